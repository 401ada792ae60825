package adv

import (
	"fmt"

	"github.com/pkg/errors"
)

// MaxEIRPacketLength is the maximum length of an advertising or scan
// response payload.
const MaxEIRPacketLength = 31

var (
	// ErrNotFit is returned when a record does not fit into a payload.
	ErrNotFit = errors.New("data not fit")

	// ErrInvalid is returned for arguments that cannot form a record.
	ErrInvalid = errors.New("invalid argument")

	// ErrInvalidLength is returned when a payload length does not match
	// its record type, e.g. a UUID list that is not a multiple of the
	// element width.
	ErrInvalidLength = errors.New("invalid length")

	// ErrInvalidUTF8 is returned when a local-name payload is not valid
	// UTF-8.
	ErrInvalidUTF8 = errors.New("invalid utf-8")
)

// Advertising data types, per the Bluetooth assigned numbers.
const (
	TypeFlags             = 0x01
	TypeSomeUUID16        = 0x02
	TypeAllUUID16         = 0x03
	TypeSomeUUID32        = 0x04
	TypeAllUUID32         = 0x05
	TypeSomeUUID128       = 0x06
	TypeAllUUID128        = 0x07
	TypeShortName         = 0x08
	TypeCompleteName      = 0x09
	TypeTxPower           = 0x0A
	TypeClassOfDevice     = 0x0D
	TypeConnIntervalRange = 0x12
	TypeServiceData       = 0x16
	TypeAppearance        = 0x19
	TypeDeviceAddress     = 0x1B
	TypeManufacturerData  = 0xFF
)

// Flag bits of the TypeFlags record.
const (
	FlagLimitedDiscoverable = 0x01 // LE Limited Discoverable Mode
	FlagGeneralDiscoverable = 0x02 // LE General Discoverable Mode
	FlagLEOnly              = 0x04 // BR/EDR Not Supported
	FlagBothController      = 0x08 // Simultaneous LE and BR/EDR to Same Device Capable (Controller)
	FlagBothHost            = 0x10 // Simultaneous LE and BR/EDR to Same Device Capable (Host)
)

var typeNames = map[byte]string{
	TypeFlags:             "flags",
	TypeSomeUUID16:        "some uuid16",
	TypeAllUUID16:         "all uuid16",
	TypeSomeUUID32:        "some uuid32",
	TypeAllUUID32:         "all uuid32",
	TypeSomeUUID128:       "some uuid128",
	TypeAllUUID128:        "all uuid128",
	TypeShortName:         "short name",
	TypeCompleteName:      "complete name",
	TypeTxPower:           "tx power",
	TypeClassOfDevice:     "class of device",
	TypeConnIntervalRange: "conn interval range",
	TypeServiceData:       "service data",
	TypeAppearance:        "appearance",
	TypeDeviceAddress:     "device address",
	TypeManufacturerData:  "manufacturer data",
}

// TypeName returns a human-readable name for an advertising data type.
func TypeName(t byte) string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("unknown (0x%02X)", t)
}
