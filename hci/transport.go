package hci

import (
	"fmt"
	"io"

	"github.com/bluekelp/ble/hci/h4"
	"github.com/bluekelp/ble/hci/socket"
)

type transportHci struct {
	id int
}

type transportH4Uart struct {
	path string
}

type transport struct {
	hci    *transportHci
	h4uart *transportH4Uart
	rwc    io.ReadWriteCloser
}

func getTransport(t transport) (io.ReadWriteCloser, error) {
	switch {
	case t.hci != nil:
		return socket.NewSocket(t.hci.id)

	case t.h4uart != nil:
		so := h4.DefaultSerialOptions()
		so.PortName = t.h4uart.path
		return h4.NewSerial(so)

	case t.rwc != nil:
		return t.rwc, nil

	default:
		return nil, fmt.Errorf("no valid transport found")
	}
}
