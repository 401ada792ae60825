package adv

import (
	"reflect"
	"strings"
	"testing"

	"github.com/bluekelp/ble"
	"github.com/bluekelp/ble/buf"
	"github.com/pkg/errors"
)

func TestPacketRoundTrip(t *testing.T) {
	in := []Record{
		Flags(FlagGeneralDiscoverable | FlagLEOnly),
		CompleteName("gopher"),
		AllUUID16{0x180d, 0x180f},
		MfgData(0x004c, []byte{0x02, 0x15}),
	}

	p, err := NewPacket(in...)
	if err != nil {
		t.Fatalf("build error %v", err)
	}
	out, err := p.Records()
	if err != nil {
		t.Fatalf("decode error %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip\n in %+v\nout %+v", in, out)
	}
}

func TestPacketEmptyMfgData(t *testing.T) {
	p, err := NewPacket(MfgData(0xffff, nil))
	if err != nil {
		t.Fatalf("build error %v", err)
	}
	if !reflect.DeepEqual(p.Bytes(), []byte{0x03, 0xff, 0xff, 0xff}) {
		t.Fatalf("encoded % x", p.Bytes())
	}
	md := p.ManufacturerData()
	if !reflect.DeepEqual(md, []byte{0xff, 0xff}) {
		t.Fatalf("company id only, got % x", md)
	}
}

func TestPacketExactFit(t *testing.T) {
	name := strings.Repeat("a", MaxEIRPacketLength-2)
	p, err := NewPacket(CompleteName(name))
	if err != nil {
		t.Fatalf("build error %v", err)
	}
	if p.Len() != MaxEIRPacketLength {
		t.Fatalf("packet length %d, want %d", p.Len(), MaxEIRPacketLength)
	}
}

func TestPacketNotFit(t *testing.T) {
	p, err := NewPacket(CompleteName(strings.Repeat("a", 28)))
	if err != nil {
		t.Fatalf("build error %v", err)
	}
	if err = p.Append(Flags(0x06)); err != ErrNotFit {
		t.Fatalf("append error %v, want %v", err, ErrNotFit)
	}
	if p.Len() != 30 {
		t.Fatalf("failed append changed the packet, length %d", p.Len())
	}
}

func TestMarshalRecordAtomic(t *testing.T) {
	w := buf.NewWriter(make([]byte, 4))
	err := MarshalRecord(w, CompleteName("toolong"))
	if errors.Cause(err) != buf.ErrOverflow {
		t.Fatalf("error %v, want overflow", err)
	}
	if w.Pos() != 0 {
		t.Fatalf("failed marshal moved the cursor to %d", w.Pos())
	}
}

func TestPacketAccessors(t *testing.T) {
	p, err := NewPacket(
		Flags(0x06),
		ShortName("go"),
		TxPower(-8),
		AllUUID16{0x180d},
		SomeUUID32{0x12345678},
		SvcData16(0x180f, []byte{0x64}),
	)
	if err != nil {
		t.Fatalf("build error %v", err)
	}

	if f, ok := p.Flags(); !ok || f != 0x06 {
		t.Fatalf("flags %#02x %v", f, ok)
	}
	if n, ok := p.LocalName(); !ok || n != "go" {
		t.Fatalf("name %q %v", n, ok)
	}
	if pwr, ok := p.TxPower(); !ok || pwr != -8 {
		t.Fatalf("tx power %d %v", pwr, ok)
	}
	if md := p.ManufacturerData(); md != nil {
		t.Fatalf("phantom manufacturer data % x", md)
	}

	uu := p.UUIDs()
	if len(uu) != 2 {
		t.Fatalf("got %d uuids, want 2", len(uu))
	}
	if !uu[0].Equal(ble.UUID16(0x180d)) || !uu[1].Equal(ble.UUID32(0x12345678)) {
		t.Fatalf("uuids %v", uu)
	}

	sd := p.ServiceData()
	if len(sd) != 1 {
		t.Fatalf("got %d service data fields, want 1", len(sd))
	}
	if !sd[0].UUID.Equal(ble.UUID16(0x180f)) || !reflect.DeepEqual(sd[0].Data, []byte{0x64}) {
		t.Fatalf("service data %+v", sd[0])
	}
}

func TestPacketNameFallback(t *testing.T) {
	p, err := NewPacket(ShortName("go"), CompleteName("gopher"))
	if err != nil {
		t.Fatalf("build error %v", err)
	}
	if n, ok := p.LocalName(); !ok || n != "gopher" {
		t.Fatalf("name %q %v, want complete name preferred", n, ok)
	}
}

func TestNewRawPacketCopies(t *testing.T) {
	b := []byte{0x02, 0x01, 0x06}
	p := NewRawPacket(b)
	b[2] = 0x00

	if f, ok := p.Flags(); !ok || f != 0x06 {
		t.Fatalf("flags %#02x %v, want copy of original", f, ok)
	}
}

func TestUUIDRecords(t *testing.T) {
	uu := []ble.UUID{
		ble.UUID16(0x180d),
		ble.UUID32(0xdeadbeef),
		ble.MustParse("19fe95a5d7744ea6a2d0bbb8921c0031"),
	}

	rr, err := UUIDRecords(true, uu)
	if err != nil {
		t.Fatalf("grouping error %v", err)
	}
	if len(rr) != 3 {
		t.Fatalf("got %d records, want 3", len(rr))
	}
	if _, ok := rr[0].(AllUUID16); !ok {
		t.Fatalf("wrong 16-bit record %v", reflect.TypeOf(rr[0]))
	}
	if _, ok := rr[1].(AllUUID32); !ok {
		t.Fatalf("wrong 32-bit record %v", reflect.TypeOf(rr[1]))
	}
	if _, ok := rr[2].(AllUUID128); !ok {
		t.Fatalf("wrong 128-bit record %v", reflect.TypeOf(rr[2]))
	}

	rr, err = UUIDRecords(false, uu[:1])
	if err != nil || len(rr) != 1 {
		t.Fatalf("records %d, err %v", len(rr), err)
	}
	if _, ok := rr[0].(SomeUUID16); !ok {
		t.Fatalf("wrong incomplete record %v", reflect.TypeOf(rr[0]))
	}

	if _, err = UUIDRecords(true, []ble.UUID{{0x01, 0x02, 0x03}}); errors.Cause(err) != ErrInvalid {
		t.Fatalf("odd width error %v", err)
	}
}
