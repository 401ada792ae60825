package adv

import (
	"github.com/bluekelp/ble"
	"github.com/bluekelp/ble/buf"
	"github.com/pkg/errors"
)

// Packet is an advertising or scan-response payload, either under
// construction or wrapped around received bytes for inspection. Refer to
// Supplement to the Bluetooth Core Specification, Part A.
type Packet struct {
	b []byte
}

// NewPacket returns a packet holding the given records in order.
func NewPacket(rr ...Record) (*Packet, error) {
	p := &Packet{b: make([]byte, 0, MaxEIRPacketLength)}
	for _, r := range rr {
		if err := p.Append(r); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NewRawPacket returns a packet over a copy of already encoded bytes.
func NewRawPacket(b []byte) *Packet {
	p := &Packet{b: make([]byte, 0, MaxEIRPacketLength)}
	p.b = append(p.b, b...)
	return p
}

// Bytes returns the encoded payload.
func (p *Packet) Bytes() []byte { return p.b }

// Len returns the encoded payload length.
func (p *Packet) Len() int { return len(p.b) }

// Append encodes r at the end of the packet. It returns ErrNotFit when the
// record does not fit in the remaining space, leaving the packet intact.
func (p *Packet) Append(r Record) error {
	w := buf.NewWriter(p.b[len(p.b):cap(p.b)])
	if err := MarshalRecord(w, r); err != nil {
		if errors.Cause(err) == buf.ErrOverflow {
			return ErrNotFit
		}
		return err
	}
	p.b = p.b[:len(p.b)+w.Pos()]
	return nil
}

// Records decodes every record in the packet.
func (p *Packet) Records() ([]Record, error) {
	var rr []Record
	it := NewIter(p.b)
	for it.Next() {
		rr = append(rr, it.Record())
	}
	return rr, it.Err()
}

// find returns the first well-formed record with the given tag, or nil.
func (p *Packet) find(typ byte) Record {
	it := NewIter(p.b)
	for it.Next() {
		if r := it.Record(); r.Type() == typ {
			return r
		}
	}
	return nil
}

// Flags returns the flags field of the packet.
func (p *Packet) Flags() (byte, bool) {
	if r, ok := p.find(TypeFlags).(Flags); ok {
		return byte(r), true
	}
	return 0, false
}

// LocalName returns the complete local name, falling back to the short
// name when only that is present.
func (p *Packet) LocalName() (string, bool) {
	if r, ok := p.find(TypeCompleteName).(CompleteName); ok {
		return string(r), true
	}
	if r, ok := p.find(TypeShortName).(ShortName); ok {
		return string(r), true
	}
	return "", false
}

// TxPower returns the advertised transmit power level in dBm.
func (p *Packet) TxPower() (int, bool) {
	if r, ok := p.find(TypeTxPower).(TxPower); ok {
		return int(r), true
	}
	return 0, false
}

// ManufacturerData returns manufacturer-specific data, company identifier
// included.
func (p *Packet) ManufacturerData() []byte {
	if r, ok := p.find(TypeManufacturerData).(ManufacturerData); ok {
		return []byte(r)
	}
	return nil
}

// UUIDs returns the service UUIDs gathered across every list record,
// complete and incomplete alike.
func (p *Packet) UUIDs() []ble.UUID {
	var uu []ble.UUID
	it := NewIter(p.b)
	for it.Next() {
		uu = append(uu, listUUIDs(it.Record())...)
	}
	return uu
}

// ServiceData returns the service data fields keyed by their 16-bit UUID.
func (p *Packet) ServiceData() []ble.ServiceData {
	var sd []ble.ServiceData
	it := NewIter(p.b)
	for it.Next() {
		r, ok := it.Record().(ServiceData)
		if !ok || len(r) < 2 {
			continue
		}
		b := []byte(r)
		sd = append(sd, ble.ServiceData{UUID: ble.UUID(b[:2]), Data: b[2:]})
	}
	return sd
}

func listUUIDs(r Record) []ble.UUID {
	var uu []ble.UUID
	switch r := r.(type) {
	case SomeUUID16:
		uu = uuid16s(r)
	case AllUUID16:
		uu = uuid16s(r)
	case SomeUUID32:
		uu = uuid32s(r)
	case AllUUID32:
		uu = uuid32s(r)
	case SomeUUID128:
		uu = r
	case AllUUID128:
		uu = r
	}
	return uu
}

func uuid16s(ids []uint16) []ble.UUID {
	uu := make([]ble.UUID, 0, len(ids))
	for _, id := range ids {
		uu = append(uu, ble.UUID16(id))
	}
	return uu
}

func uuid32s(ids []uint32) []ble.UUID {
	uu := make([]ble.UUID, 0, len(ids))
	for _, id := range ids {
		uu = append(uu, ble.UUID32(id))
	}
	return uu
}
