package hci

import (
	"github.com/bluekelp/ble/buf"
	"github.com/pkg/errors"
)

// A Command is an HCI command sent to the controller.
type Command interface {
	OpCode() int
	Len() int
	Marshal([]byte) error
}

// A CommandRP decodes the return parameters of a command.
type CommandRP interface {
	Unmarshal(b []byte) error
}

// A Packet is one framed HCI packet. Concrete types are CommandPkt,
// ACLDataPkt and EventPkt.
type Packet interface {
	// Type returns the packet indicator byte.
	Type() uint8
}

// CommandPkt is a framed HCI Command packet [Vol 2, Part E, 5.4.1].
type CommandPkt struct {
	OpCode uint16
	Params []byte
}

// Type returns the packet indicator byte.
func (p CommandPkt) Type() uint8 { return pktTypeCommand }

// ACLDataPkt is a framed HCI ACL Data packet [Vol 2, Part E, 5.4.2].
type ACLDataPkt struct {
	Handle uint16
	PB     uint8
	BC     uint8
	Data   []byte
}

// Type returns the packet indicator byte.
func (p ACLDataPkt) Type() uint8 { return pktTypeACLData }

// EventPkt is a framed HCI Event packet [Vol 2, Part E, 5.4.4].
type EventPkt struct {
	Code   uint8
	Params []byte
}

// Type returns the packet indicator byte.
func (p EventPkt) Type() uint8 { return pktTypeEvent }

// Parse frames a single HCI packet from b. Payload slices in the returned
// packet borrow from b. Synchronous and isochronous data packets are
// recognized but not decoded.
func Parse(b []byte) (Packet, error) {
	r := buf.NewReader(b)
	t, err := r.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "packet type")
	}
	switch t {
	case pktTypeCommand:
		return parseCommand(r)
	case pktTypeACLData:
		return parseACLData(r)
	case pktTypeEvent:
		return parseEvent(r)
	case pktTypeSCOData, pktTypeISOData:
		return nil, ErrUnsupportedType(t)
	default:
		return nil, ErrUnknownType(t)
	}
}

func parseCommand(r *buf.Reader) (Packet, error) {
	op, err := r.ReadUint16()
	if err != nil {
		return nil, errors.Wrap(err, "command opcode")
	}
	plen, err := r.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "command parameter length")
	}
	pp, err := r.ReadSlice(int(plen))
	if err != nil {
		return nil, errors.Wrapf(err, "command parameters (%d bytes)", plen)
	}
	return CommandPkt{OpCode: op, Params: pp}, nil
}

func parseACLData(r *buf.Reader) (Packet, error) {
	hdr, err := r.ReadUint16()
	if err != nil {
		return nil, errors.Wrap(err, "acl header")
	}
	dlen, err := r.ReadUint16()
	if err != nil {
		return nil, errors.Wrap(err, "acl data length")
	}
	d, err := r.ReadSlice(int(dlen))
	if err != nil {
		return nil, errors.Wrapf(err, "acl data (%d bytes)", dlen)
	}
	flags := uint8(hdr & 0x000F)
	return ACLDataPkt{
		Handle: (hdr & 0xFFF0) >> 4,
		PB:     (flags & 0b1100) >> 2,
		BC:     flags & 0b0011,
		Data:   d,
	}, nil
}

func parseEvent(r *buf.Reader) (Packet, error) {
	code, err := r.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "event code")
	}
	plen, err := r.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "event parameter length")
	}
	pp, err := r.ReadSlice(int(plen))
	if err != nil {
		return nil, errors.Wrapf(err, "event parameters (%d bytes)", plen)
	}
	return EventPkt{Code: code, Params: pp}, nil
}

// MarshalCommand writes the full Command packet for c into b and returns the
// number of bytes written. The parameter length byte is always c.Len(), so
// header and body cannot disagree.
func MarshalCommand(c Command, b []byte) (int, error) {
	n := c.Len()
	if n < 0 || n > maxCmdParamLength {
		return 0, errors.Errorf("%v: bad parameter length %d", c, n)
	}

	w := buf.NewWriter(b)
	if err := w.WriteUint8(pktTypeCommand); err != nil {
		return 0, errors.Wrapf(err, "%v packet type", c)
	}
	if err := w.WriteUint16(uint16(c.OpCode())); err != nil {
		return 0, errors.Wrapf(err, "%v opcode", c)
	}
	if err := w.WriteUint8(uint8(n)); err != nil {
		return 0, errors.Wrapf(err, "%v parameter length", c)
	}
	p, err := w.Next(n)
	if err != nil {
		return 0, errors.Wrapf(err, "%v parameters", c)
	}
	if err := c.Marshal(p); err != nil {
		return 0, errors.Wrapf(err, "%v parameters", c)
	}
	return w.Pos(), nil
}
