//go:build !linux
// +build !linux

package socket

import (
	"io"

	"github.com/pkg/errors"
)

// NewSocket is only available on Linux.
func NewSocket(id int) (io.ReadWriteCloser, error) {
	return nil, errors.New("hci user channel socket requires linux")
}
