package hci

import (
	"io"

	"github.com/bluekelp/ble/hci/cmd"
)

// SetScanParams overrides default scanning parameters.
func (h *HCI) SetScanParams(param cmd.LESetScanParameters) error {
	h.params.scanParams = param
	return nil
}

// SetAdvParams overrides default advertising parameters.
func (h *HCI) SetAdvParams(param cmd.LESetAdvertisingParameters) error {
	h.params.advParams = param
	return nil
}

// SetAdvHandlerSync overrides default advertising handler behavior (async)
func (h *HCI) SetAdvHandlerSync(sync bool) error {
	h.advHandlerSync = sync
	return nil
}

// SetErrorHandler ...
func (h *HCI) SetErrorHandler(handler func(error)) error {
	h.errorHandler = handler
	return nil
}

// SetTransportHCISocket sets HCI device for hci socket
func (h *HCI) SetTransportHCISocket(id int) error {
	h.transport = transport{
		hci: &transportHci{id},
	}
	return nil
}

// SetTransportH4Uart sets h4 uart path
func (h *HCI) SetTransportH4Uart(path string) error {
	h.transport = transport{
		h4uart: &transportH4Uart{path},
	}
	return nil
}

// SetTransportRW supplies an already-open controller stream, e.g. for tests.
func (h *HCI) SetTransportRW(rwc io.ReadWriteCloser) error {
	h.transport = transport{
		rwc: rwc,
	}
	return nil
}
