package ble

import "github.com/pkg/errors"

// ErrEIRPacketTooLong is the error returned when an advertising data or scan
// response payload does not fit in the 31 byte EIR packet.
var ErrEIRPacketTooLong = errors.New("max packet length is 31")

// ErrNotImplemented means the functionality is not implemented.
var ErrNotImplemented = errors.New("not implemented")
