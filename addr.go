package ble

import (
	"encoding/hex"
	"net"
	"strings"

	"github.com/bluekelp/ble/sliceops"
)

// Addr represents a device address, a 48-bit MAC in its string form.
type Addr interface {
	String() string
	Bytes() []byte
}

// NewAddr creates an Addr from its colon-separated hex string form.
func NewAddr(s string) Addr {
	return addr(strings.ToLower(s))
}

// WireAddr converts a 6-byte address as it appears on the wire
// (little-endian) into an Addr.
func WireAddr(b []byte) Addr {
	return NewAddr(net.HardwareAddr(sliceops.Reversed(b)).String())
}

type addr string

func (a addr) String() string {
	return string(a)
}

// Bytes returns the address as big-endian bytes, nil if the string form is
// not valid hex.
func (a addr) Bytes() []byte {
	out, err := hex.DecodeString(strings.Replace(string(a), ":", "", -1))
	if err != nil {
		return nil
	}
	return out
}
