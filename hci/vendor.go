package hci

import (
	"encoding/binary"
	"fmt"

	"github.com/bluekelp/ble/buf"
)

// CustomCommand carries a fixed-width payload to a vendor specific opcode.
// The wire length is computed from the payload layout.
type CustomCommand struct {
	Payload interface{}
	opCode  int
}

func (c *CustomCommand) OpCode() int {
	return c.opCode
}

func (c *CustomCommand) Len() int {
	return binary.Size(c.Payload)
}

func (c *CustomCommand) Marshal(b []byte) error {
	return buf.NewWriter(b).WriteValue(c.Payload)
}

func (c *CustomCommand) String() string {
	ogf := (c.opCode & 0xFC00) >> 10
	ocf := c.opCode & 0x3FF

	return fmt.Sprintf("Custom Command (0x%02x|0x%04x); Payload (%02x)", ogf, ocf, c.Payload)
}

// SendVendorSpecificCommand sends v to a vendor specific opcode and waits for
// the completion event.
func (h *HCI) SendVendorSpecificCommand(op uint16, v interface{}) error {
	c := &CustomCommand{
		opCode:  int(ogfVendorSpecificDebug<<ogfBitShift | op),
		Payload: v,
	}

	n := c.Len()
	if n < 0 {
		return fmt.Errorf("payload %T is not fixed width", v)
	}
	if n > maxCmdParamLength {
		return fmt.Errorf("invalid length %v; max hci payload length is %v", n, maxCmdParamLength)
	}

	return h.Send(c, nil)
}
