// Package cmd defines HCI command parameter blocks and their return
// parameters. A command's wire length is computed from its struct layout,
// so the declared fields and the encoded width cannot disagree.
package cmd

import (
	"encoding/binary"

	"github.com/bluekelp/ble/buf"
)

type command interface {
	OpCode() int
	Len() int
	Marshal([]byte) error
}

type commandRP interface {
	Unmarshal(b []byte) error
}

// size returns the encoded width of a parameter block.
func size(c interface{}) int { return binary.Size(c) }

// marshal fills b with the command's parameter block, little-endian.
func marshal(c command, b []byte) error {
	w := buf.NewWriter(b)
	return w.WriteValue(c)
}

// unmarshal decodes a return parameter block from b. A short block fails
// with buf.ErrTruncated, bytes past the block stay untouched.
func unmarshal(c commandRP, b []byte) error {
	r := buf.NewReader(b)
	return r.ReadValue(c)
}
