// Package evt decodes HCI event parameter blocks into typed views.
package evt

import (
	"fmt"

	"github.com/bluekelp/ble/buf"
	"github.com/pkg/errors"
)

// Event codes this package decodes [Vol 2, Part E, 7.7].
const (
	CommandCompleteCode = 0x0E
	CommandStatusCode   = 0x0F
	LEMetaCode          = 0x3E

	LEAdvertisingReportSubCode = 0x02
)

// ErrUnknownEvent is an event code with no decoder.
type ErrUnknownEvent byte

func (e ErrUnknownEvent) Error() string {
	return fmt.Sprintf("unknown event code 0x%02X", byte(e))
}

// ErrUnknownSubevent is an LE meta subevent code with no decoder.
type ErrUnknownSubevent byte

func (e ErrUnknownSubevent) Error() string {
	return fmt.Sprintf("unknown subevent code 0x%02X", byte(e))
}

// Event is a decoded event parameter block.
type Event interface {
	Code() int
}

// Unmarshal decodes the parameter block of the event with the given code.
// Unknown event and subevent codes fail with ErrUnknownEvent and
// ErrUnknownSubevent, truncated blocks with a wrapped buf.ErrTruncated.
// Decoding never mutates b; views into b stay valid while b does.
func Unmarshal(code uint8, params []byte) (Event, error) {
	switch code {
	case CommandCompleteCode:
		e := &CommandComplete{}
		if err := e.Unmarshal(params); err != nil {
			return nil, err
		}
		return e, nil
	case CommandStatusCode:
		e := &CommandStatus{}
		if err := e.Unmarshal(params); err != nil {
			return nil, err
		}
		return e, nil
	case LEMetaCode:
		return unmarshalLEMeta(params)
	default:
		return nil, ErrUnknownEvent(code)
	}
}

func unmarshalLEMeta(params []byte) (Event, error) {
	r := buf.NewReader(params)
	sub, err := r.ReadUint8()
	if err != nil {
		return nil, errors.Wrap(err, "le meta subevent")
	}
	switch sub {
	case LEAdvertisingReportSubCode:
		e := &LEAdvertisingReport{SubeventCode: sub}
		if err := e.unmarshal(r); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, ErrUnknownSubevent(sub)
	}
}

// CommandComplete implements Command Complete (0x0E) [Vol 2, Part E, 7.7.14].
type CommandComplete struct {
	NumHCICommandPackets uint8
	CommandOpcode        uint16
	ret                  []byte
}

// Code returns the event code.
func (e *CommandComplete) Code() int { return CommandCompleteCode }

// Unmarshal decodes the parameter block. The return parameters stay a view
// into b.
func (e *CommandComplete) Unmarshal(b []byte) error {
	r := buf.NewReader(b)
	var err error
	if e.NumHCICommandPackets, err = r.ReadUint8(); err != nil {
		return errors.Wrap(err, "command complete")
	}
	if e.CommandOpcode, err = r.ReadUint16(); err != nil {
		return errors.Wrap(err, "command complete")
	}
	e.ret, err = r.ReadSlice(r.Remaining())
	return err
}

// ReturnParameters returns the opcode-specific return parameter block.
func (e *CommandComplete) ReturnParameters() []byte { return e.ret }

// CommandStatus implements Command Status (0x0F) [Vol 2, Part E, 7.7.15].
type CommandStatus struct {
	Status               uint8
	NumHCICommandPackets uint8
	CommandOpcode        uint16
}

// Code returns the event code.
func (e *CommandStatus) Code() int { return CommandStatusCode }

// Unmarshal decodes the parameter block.
func (e *CommandStatus) Unmarshal(b []byte) error {
	return errors.Wrap(buf.NewReader(b).ReadValue(e), "command status")
}
