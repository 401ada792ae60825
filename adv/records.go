// Package adv implements the advertising data TLV format carried inside
// advertising and scan-response payloads. Each record is encoded as a
// 1-byte length (payload width + 1), a 1-byte type tag and the payload.
package adv

import (
	"encoding/binary"

	"github.com/bluekelp/ble"
	"github.com/bluekelp/ble/buf"
	"github.com/pkg/errors"
)

// Record is one advertising data structure.
type Record interface {
	// Type returns the record's AD type tag.
	Type() byte
	// Size returns the payload width in bytes, i.e. the record length
	// minus the tag byte.
	Size() int
	// Marshal writes the payload through w.
	Marshal(w *buf.Writer) error
}

// MarshalRecord writes a complete TLV record. The free space is checked up
// front so a record that does not fit leaves the writer untouched.
func MarshalRecord(w *buf.Writer, r Record) error {
	n := 2 + r.Size()
	if n > w.Cap()-w.Pos() {
		return errors.Wrapf(buf.ErrOverflow, "%s record needs %d bytes, %d free",
			TypeName(r.Type()), n, w.Cap()-w.Pos())
	}
	if err := w.WriteUint8(byte(r.Size() + 1)); err != nil {
		return err
	}
	if err := w.WriteUint8(r.Type()); err != nil {
		return err
	}
	return r.Marshal(w)
}

// Flags holds the discoverability flag bits.
type Flags byte

func (f Flags) Type() byte { return TypeFlags }
func (f Flags) Size() int  { return 1 }
func (f Flags) Marshal(w *buf.Writer) error {
	return w.WriteUint8(byte(f))
}

// SomeUUID16 is an incomplete list of 16-bit service UUIDs.
type SomeUUID16 []uint16

func (u SomeUUID16) Type() byte                  { return TypeSomeUUID16 }
func (u SomeUUID16) Size() int                   { return 2 * len(u) }
func (u SomeUUID16) Marshal(w *buf.Writer) error { return writeUUID16s(w, u) }

// AllUUID16 is a complete list of 16-bit service UUIDs.
type AllUUID16 []uint16

func (u AllUUID16) Type() byte                  { return TypeAllUUID16 }
func (u AllUUID16) Size() int                   { return 2 * len(u) }
func (u AllUUID16) Marshal(w *buf.Writer) error { return writeUUID16s(w, u) }

// SomeUUID32 is an incomplete list of 32-bit service UUIDs.
type SomeUUID32 []uint32

func (u SomeUUID32) Type() byte                  { return TypeSomeUUID32 }
func (u SomeUUID32) Size() int                   { return 4 * len(u) }
func (u SomeUUID32) Marshal(w *buf.Writer) error { return writeUUID32s(w, u) }

// AllUUID32 is a complete list of 32-bit service UUIDs.
type AllUUID32 []uint32

func (u AllUUID32) Type() byte                  { return TypeAllUUID32 }
func (u AllUUID32) Size() int                   { return 4 * len(u) }
func (u AllUUID32) Marshal(w *buf.Writer) error { return writeUUID32s(w, u) }

// SomeUUID128 is an incomplete list of 128-bit service UUIDs, each element
// in wire (little-endian) order.
type SomeUUID128 []ble.UUID

func (u SomeUUID128) Type() byte                  { return TypeSomeUUID128 }
func (u SomeUUID128) Size() int                   { return 16 * len(u) }
func (u SomeUUID128) Marshal(w *buf.Writer) error { return writeUUID128s(w, u) }

// AllUUID128 is a complete list of 128-bit service UUIDs, each element in
// wire (little-endian) order.
type AllUUID128 []ble.UUID

func (u AllUUID128) Type() byte                  { return TypeAllUUID128 }
func (u AllUUID128) Size() int                   { return 16 * len(u) }
func (u AllUUID128) Marshal(w *buf.Writer) error { return writeUUID128s(w, u) }

// ShortName is a shortened local name.
type ShortName string

func (n ShortName) Type() byte { return TypeShortName }
func (n ShortName) Size() int  { return len(n) }
func (n ShortName) Marshal(w *buf.Writer) error {
	return w.WriteSlice([]byte(n))
}

// CompleteName is a complete local name.
type CompleteName string

func (n CompleteName) Type() byte { return TypeCompleteName }
func (n CompleteName) Size() int  { return len(n) }
func (n CompleteName) Marshal(w *buf.Writer) error {
	return w.WriteSlice([]byte(n))
}

// TxPower is the advertised transmit power level in dBm.
type TxPower int8

func (t TxPower) Type() byte { return TypeTxPower }
func (t TxPower) Size() int  { return 1 }
func (t TxPower) Marshal(w *buf.Writer) error {
	return w.WriteUint8(uint8(t))
}

// ClassOfDevice is the advertised device class word.
type ClassOfDevice uint32

func (c ClassOfDevice) Type() byte { return TypeClassOfDevice }
func (c ClassOfDevice) Size() int  { return 4 }
func (c ClassOfDevice) Marshal(w *buf.Writer) error {
	return w.WriteUint32(uint32(c))
}

// ConnIntervalRange is the peripheral connection interval range, carried
// as raw payload bytes.
type ConnIntervalRange []byte

func (c ConnIntervalRange) Type() byte { return TypeConnIntervalRange }
func (c ConnIntervalRange) Size() int  { return len(c) }
func (c ConnIntervalRange) Marshal(w *buf.Writer) error {
	return w.WriteSlice(c)
}

// ServiceData is service data led by its 16-bit service UUID.
type ServiceData []byte

func (s ServiceData) Type() byte { return TypeServiceData }
func (s ServiceData) Size() int  { return len(s) }
func (s ServiceData) Marshal(w *buf.Writer) error {
	return w.WriteSlice(s)
}

// Appearance is the advertised appearance category.
type Appearance uint16

func (a Appearance) Type() byte { return TypeAppearance }
func (a Appearance) Size() int  { return 2 }
func (a Appearance) Marshal(w *buf.Writer) error {
	return w.WriteUint16(uint16(a))
}

// DeviceAddress is the advertised LE device address, carried as raw
// payload bytes (6 address bytes plus the address type).
type DeviceAddress []byte

func (d DeviceAddress) Type() byte { return TypeDeviceAddress }
func (d DeviceAddress) Size() int  { return len(d) }
func (d DeviceAddress) Marshal(w *buf.Writer) error {
	return w.WriteSlice(d)
}

// ManufacturerData is manufacturer-specific data led by the 16-bit company
// identifier.
type ManufacturerData []byte

func (m ManufacturerData) Type() byte { return TypeManufacturerData }
func (m ManufacturerData) Size() int  { return len(m) }
func (m ManufacturerData) Marshal(w *buf.Writer) error {
	return w.WriteSlice(m)
}

// Unknown is a record with a tag this package does not recognize. It keeps
// the raw payload so callers can skip it or fail, and re-encodes verbatim.
type Unknown struct {
	AdType  byte
	Payload []byte
}

func (u Unknown) Type() byte { return u.AdType }
func (u Unknown) Size() int  { return len(u.Payload) }
func (u Unknown) Marshal(w *buf.Writer) error {
	return w.WriteSlice(u.Payload)
}

func writeUUID16s(w *buf.Writer, uu []uint16) error {
	for _, u := range uu {
		if err := w.WriteUint16(u); err != nil {
			return err
		}
	}
	return nil
}

func writeUUID32s(w *buf.Writer, uu []uint32) error {
	for _, u := range uu {
		if err := w.WriteUint32(u); err != nil {
			return err
		}
	}
	return nil
}

func writeUUID128s(w *buf.Writer, uu []ble.UUID) error {
	for _, u := range uu {
		if u.Len() != 16 {
			return errors.Wrapf(ErrInvalid, "uuid128 element length %d", u.Len())
		}
		if err := w.WriteSlice(u); err != nil {
			return err
		}
	}
	return nil
}

// MfgData prefixes the company identifier to b, forming a complete
// manufacturer-specific record.
func MfgData(id uint16, b []byte) ManufacturerData {
	d := make([]byte, 2+len(b))
	binary.LittleEndian.PutUint16(d, id)
	copy(d[2:], b)
	return ManufacturerData(d)
}

// SvcData16 prefixes the 16-bit service UUID to b, forming a complete
// service data record.
func SvcData16(id uint16, b []byte) ServiceData {
	d := make([]byte, 2+len(b))
	binary.LittleEndian.PutUint16(d, id)
	copy(d[2:], b)
	return ServiceData(d)
}

// UUIDRecords groups uu by width into list records, complete (AllUUID*) or
// incomplete (SomeUUID*) forms.
func UUIDRecords(complete bool, uu []ble.UUID) ([]Record, error) {
	var u16 []uint16
	var u32 []uint32
	var u128 []ble.UUID
	for _, u := range uu {
		switch u.Len() {
		case 2:
			u16 = append(u16, binary.LittleEndian.Uint16(u))
		case 4:
			u32 = append(u32, binary.LittleEndian.Uint32(u))
		case 16:
			u128 = append(u128, u)
		default:
			return nil, errors.Wrapf(ErrInvalid, "uuid length %d", u.Len())
		}
	}

	var rr []Record
	if len(u16) > 0 {
		if complete {
			rr = append(rr, AllUUID16(u16))
		} else {
			rr = append(rr, SomeUUID16(u16))
		}
	}
	if len(u32) > 0 {
		if complete {
			rr = append(rr, AllUUID32(u32))
		} else {
			rr = append(rr, SomeUUID32(u32))
		}
	}
	if len(u128) > 0 {
		if complete {
			rr = append(rr, AllUUID128(u128))
		} else {
			rr = append(rr, SomeUUID128(u128))
		}
	}
	return rr, nil
}
