package ble

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bluekelp/ble/sliceops"
	"github.com/pkg/errors"
)

// A UUID is a BLE UUID, stored in little-endian (wire) order.
// BLE UUIDs are 2, 4 or 16 bytes long.
type UUID []byte

// UUID16 converts a 16-bit assigned number (such as 0x180D) to a UUID.
func UUID16(i uint16) UUID {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, i)
	return UUID(b)
}

// UUID32 converts a 32-bit assigned number to a UUID.
func UUID32(i uint32) UUID {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, i)
	return UUID(b)
}

// Parse parses a standard-format UUID string, such as "180D" or
// "34DA3AD1-7110-41A1-B1EF-4430F509CDE7".
func Parse(s string) (UUID, error) {
	s = strings.Replace(s, "-", "", -1)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "can't parse uuid")
	}
	switch len(b) {
	case 2, 4, 16:
	default:
		return nil, errors.Errorf("uuid length %d, must be 2, 4 or 16 bytes", len(b))
	}
	return UUID(sliceops.Reversed(b)), nil
}

// MustParse parses a standard-format UUID string, like Parse, but panics
// in case of error.
func MustParse(s string) UUID {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Len returns the length of the UUID in bytes.
func (u UUID) Len() int {
	return len(u)
}

// String hex-encodes the UUID in display (big-endian) order.
func (u UUID) String() string {
	return fmt.Sprintf("%X", sliceops.Reversed(u))
}

// Equal reports whether v represents the same UUID as u.
func (u UUID) Equal(v UUID) bool {
	return bytes.Equal(u, v)
}

// Contains reports whether u is in the slice s. A nil slice matches
// everything.
func Contains(s []UUID, u UUID) bool {
	if s == nil {
		return true
	}
	for _, a := range s {
		if a.Equal(u) {
			return true
		}
	}
	return false
}
