package hci

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"

	"github.com/bluekelp/ble/buf"
	"github.com/bluekelp/ble/hci/cmd"
)

func TestMarshalCommandReset(t *testing.T) {
	b := make([]byte, 64)
	n, err := MarshalCommand(&cmd.Reset{}, b)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	want := []byte{0x01, 0x03, 0x0C, 0x00}
	if !bytes.Equal(b[:n], want) {
		t.Fatalf("expected % X, got % X", want, b[:n])
	}
}

func TestMarshalCommandWithParams(t *testing.T) {
	b := make([]byte, 64)
	c := &cmd.LESetScanEnable{LEScanEnable: 1, FilterDuplicates: 1}
	n, err := MarshalCommand(c, b)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	want := []byte{0x01, 0x0C, 0x20, 0x02, 0x01, 0x01}
	if !bytes.Equal(b[:n], want) {
		t.Fatalf("expected % X, got % X", want, b[:n])
	}

	// The parameter length byte always matches the marshaled body.
	if int(b[3]) != c.Len() {
		t.Fatalf("parameter length byte %d does not match Len() %d", b[3], c.Len())
	}
}

func TestMarshalCommandShortBuffer(t *testing.T) {
	b := make([]byte, 3)
	if _, err := MarshalCommand(&cmd.Reset{}, b); errors.Cause(err) != buf.ErrOverflow {
		t.Fatalf("expected buffer overflow, got %v", err)
	}
}

type fixedLenCmd struct {
	n int
}

func (c fixedLenCmd) String() string       { return "Fixed Length Command" }
func (c fixedLenCmd) OpCode() int          { return 0x03<<10 | 0x0003 }
func (c fixedLenCmd) Len() int             { return c.n }
func (c fixedLenCmd) Marshal([]byte) error { return nil }

func TestMarshalCommandBadLength(t *testing.T) {
	b := make([]byte, 512)
	if _, err := MarshalCommand(fixedLenCmd{n: -1}, b); err == nil {
		t.Fatalf("expected negative parameter length to fail")
	}
	if _, err := MarshalCommand(fixedLenCmd{n: 256}, b); err == nil {
		t.Fatalf("expected oversized parameter length to fail")
	}
	if _, err := MarshalCommand(fixedLenCmd{n: 255}, b); err != nil {
		t.Fatalf("expected max parameter length to marshal: %v", err)
	}
}

func TestParseCommand(t *testing.T) {
	pkt, err := Parse([]byte{0x01, 0x0C, 0x20, 0x02, 0x01, 0x00})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	c, ok := pkt.(CommandPkt)
	if !ok {
		t.Fatalf("expected CommandPkt, got %T", pkt)
	}
	if c.Type() != 0x01 {
		t.Fatalf("expected type 0x01, got 0x%02X", c.Type())
	}
	if c.OpCode != 0x200C {
		t.Fatalf("expected opcode 0x200C, got 0x%04X", c.OpCode)
	}
	if !bytes.Equal(c.Params, []byte{0x01, 0x00}) {
		t.Fatalf("unexpected params % X", c.Params)
	}
}

func TestParseEvent(t *testing.T) {
	pkt, err := Parse([]byte{0x04, 0x0E, 0x04, 0x01, 0x03, 0x0C, 0x00})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	e, ok := pkt.(EventPkt)
	if !ok {
		t.Fatalf("expected EventPkt, got %T", pkt)
	}
	if e.Code != 0x0E {
		t.Fatalf("expected event code 0x0E, got 0x%02X", e.Code)
	}
	if !bytes.Equal(e.Params, []byte{0x01, 0x03, 0x0C, 0x00}) {
		t.Fatalf("unexpected params % X", e.Params)
	}
}

func TestParseACLData(t *testing.T) {
	// Handle 0x0040, PB 0b10, BC 0b01, 3 data bytes.
	pkt, err := Parse([]byte{0x02, 0x09, 0x04, 0x03, 0x00, 0xAA, 0xBB, 0xCC})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	a, ok := pkt.(ACLDataPkt)
	if !ok {
		t.Fatalf("expected ACLDataPkt, got %T", pkt)
	}
	if a.Handle != 0x0040 {
		t.Fatalf("expected handle 0x0040, got 0x%04X", a.Handle)
	}
	if a.PB != 0b10 {
		t.Fatalf("expected pb flag 0b10, got %b", a.PB)
	}
	if a.BC != 0b01 {
		t.Fatalf("expected bc flag 0b01, got %b", a.BC)
	}
	if !bytes.Equal(a.Data, []byte{0xAA, 0xBB, 0xCC}) {
		t.Fatalf("unexpected data % X", a.Data)
	}
}

func TestParseIgnoresTrailingBytes(t *testing.T) {
	pkt, err := Parse([]byte{0x04, 0x0E, 0x01, 0x00, 0xFF, 0xFF})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	e := pkt.(EventPkt)
	if !bytes.Equal(e.Params, []byte{0x00}) {
		t.Fatalf("expected params [00], got % X", e.Params)
	}
}

func TestParseUnsupportedTypes(t *testing.T) {
	if _, err := Parse([]byte{0x03, 0x09, 0x04, 0x00}); err != ErrUnsupportedType(0x03) {
		t.Fatalf("expected unsupported type for sco data, got %v", err)
	}
	if _, err := Parse([]byte{0x05, 0x09, 0x04, 0x00, 0x00}); err != ErrUnsupportedType(0x05) {
		t.Fatalf("expected unsupported type for iso data, got %v", err)
	}
}

func TestParseUnknownType(t *testing.T) {
	_, err := Parse([]byte{0x07, 0x00})
	if err != ErrUnknownType(0x07) {
		t.Fatalf("expected unknown type, got %v", err)
	}
}

func TestParseTruncated(t *testing.T) {
	for _, b := range [][]byte{
		{},
		{0x01},
		{0x01, 0x03},
		{0x01, 0x03, 0x0C},
		{0x01, 0x0C, 0x20, 0x02, 0x01},
		{0x02, 0x09},
		{0x02, 0x09, 0x04, 0x03},
		{0x02, 0x09, 0x04, 0x03, 0x00, 0xAA},
		{0x04},
		{0x04, 0x0E},
		{0x04, 0x0E, 0x04, 0x01, 0x03, 0x0C},
	} {
		_, err := Parse(b)
		if errors.Cause(err) != buf.ErrTruncated {
			t.Fatalf("input % X: expected truncated input, got %v", b, err)
		}
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	b := make([]byte, 64)
	c := &cmd.LESetScanEnable{LEScanEnable: 1, FilterDuplicates: 0}
	n, err := MarshalCommand(c, b)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	pkt, err := Parse(b[:n])
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	p, ok := pkt.(CommandPkt)
	if !ok {
		t.Fatalf("expected CommandPkt, got %T", pkt)
	}
	if int(p.OpCode) != c.OpCode() {
		t.Fatalf("opcode mismatch: 0x%04X != 0x%04X", p.OpCode, c.OpCode())
	}
	if len(p.Params) != c.Len() {
		t.Fatalf("parameter length mismatch: %d != %d", len(p.Params), c.Len())
	}
}
