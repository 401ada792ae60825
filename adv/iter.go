package adv

import (
	"unicode/utf8"

	"github.com/bluekelp/ble"
	"github.com/bluekelp/ble/buf"
	"github.com/pkg/errors"
)

// Iter walks the records of an advertising data payload one at a time.
// Records are decoded on demand, not up front. Payload-backed records
// (names excepted) borrow from the input buffer and stay valid until the
// next call to Next. Iteration is forward only.
type Iter struct {
	r   *buf.Reader
	cur Record
	err error
}

// NewIter returns an iterator over the records encoded in b.
func NewIter(b []byte) *Iter {
	return &Iter{r: buf.NewReader(b)}
}

// Next advances to the next record. It returns false when the payload is
// exhausted, when a zero length byte marks the start of padding, or when a
// record fails to decode. After false, Err tells termination from failure.
func (it *Iter) Next() bool {
	if it.err != nil {
		return false
	}
	if it.r.Remaining() == 0 {
		return false
	}
	length, err := it.r.ReadUint8()
	if err != nil {
		it.err = err
		return false
	}
	if length == 0 {
		// Zero fill after the last record.
		return false
	}
	typ, err := it.r.ReadUint8()
	if err != nil {
		it.err = errors.Wrapf(err, "record type (length %d)", length)
		return false
	}
	p, err := it.r.ReadSlice(int(length) - 1)
	if err != nil {
		it.err = errors.Wrapf(err, "%s record body", TypeName(typ))
		return false
	}
	rec, err := decodeRecord(typ, p)
	if err != nil {
		it.err = errors.Wrapf(err, "%s record", TypeName(typ))
		return false
	}
	it.cur = rec
	return true
}

// Record returns the record decoded by the last successful Next.
func (it *Iter) Record() Record { return it.cur }

// Err returns the error that stopped iteration, or nil if the payload ran
// out cleanly.
func (it *Iter) Err() error { return it.err }

// decodeRecord interprets one record payload. Scalar payloads wider than
// the scalar keep the extra bytes unread, list payloads must be an exact
// multiple of the element width, and unrecognized tags come back as
// Unknown so the caller picks between skipping and failing.
func decodeRecord(typ byte, p []byte) (Record, error) {
	r := buf.NewReader(p)
	switch typ {
	case TypeFlags:
		f, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		return Flags(f), nil
	case TypeSomeUUID16:
		uu, err := readUUID16List(p)
		if err != nil {
			return nil, err
		}
		return SomeUUID16(uu), nil
	case TypeAllUUID16:
		uu, err := readUUID16List(p)
		if err != nil {
			return nil, err
		}
		return AllUUID16(uu), nil
	case TypeSomeUUID32:
		uu, err := readUUID32List(p)
		if err != nil {
			return nil, err
		}
		return SomeUUID32(uu), nil
	case TypeAllUUID32:
		uu, err := readUUID32List(p)
		if err != nil {
			return nil, err
		}
		return AllUUID32(uu), nil
	case TypeSomeUUID128:
		uu, err := readUUID128List(p)
		if err != nil {
			return nil, err
		}
		return SomeUUID128(uu), nil
	case TypeAllUUID128:
		uu, err := readUUID128List(p)
		if err != nil {
			return nil, err
		}
		return AllUUID128(uu), nil
	case TypeShortName:
		if !utf8.Valid(p) {
			return nil, errors.Wrap(ErrInvalidUTF8, "short name")
		}
		return ShortName(p), nil
	case TypeCompleteName:
		if !utf8.Valid(p) {
			return nil, errors.Wrap(ErrInvalidUTF8, "complete name")
		}
		return CompleteName(p), nil
	case TypeTxPower:
		v, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		return TxPower(int8(v)), nil
	case TypeClassOfDevice:
		v, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return ClassOfDevice(v), nil
	case TypeConnIntervalRange:
		return ConnIntervalRange(p), nil
	case TypeServiceData:
		return ServiceData(p), nil
	case TypeAppearance:
		v, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return Appearance(v), nil
	case TypeDeviceAddress:
		return DeviceAddress(p), nil
	case TypeManufacturerData:
		return ManufacturerData(p), nil
	default:
		return Unknown{AdType: typ, Payload: p}, nil
	}
}

func readUUID16List(p []byte) ([]uint16, error) {
	if len(p)%2 != 0 {
		return nil, errors.Wrapf(ErrInvalidLength, "uuid16 list of %d bytes", len(p))
	}
	r := buf.NewReader(p)
	uu := make([]uint16, 0, len(p)/2)
	for r.Remaining() > 0 {
		u, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		uu = append(uu, u)
	}
	return uu, nil
}

func readUUID32List(p []byte) ([]uint32, error) {
	if len(p)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidLength, "uuid32 list of %d bytes", len(p))
	}
	r := buf.NewReader(p)
	uu := make([]uint32, 0, len(p)/4)
	for r.Remaining() > 0 {
		u, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		uu = append(uu, u)
	}
	return uu, nil
}

func readUUID128List(p []byte) ([]ble.UUID, error) {
	if len(p)%16 != 0 {
		return nil, errors.Wrapf(ErrInvalidLength, "uuid128 list of %d bytes", len(p))
	}
	r := buf.NewReader(p)
	uu := make([]ble.UUID, 0, len(p)/16)
	for r.Remaining() > 0 {
		b, err := r.ReadSlice(16)
		if err != nil {
			return nil, err
		}
		uu = append(uu, ble.UUID(b))
	}
	return uu, nil
}
