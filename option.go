package ble

import (
	"io"

	"github.com/bluekelp/ble/hci/cmd"
)

// DeviceOption is the set of knobs a host implementation must expose to be
// configurable through Options.
type DeviceOption interface {
	SetScanParams(cmd.LESetScanParameters) error
	SetAdvParams(cmd.LESetAdvertisingParameters) error
	SetAdvHandlerSync(bool) error
	SetErrorHandler(func(error)) error

	SetTransportHCISocket(id int) error
	SetTransportH4Uart(path string) error
	SetTransportRW(rwc io.ReadWriteCloser) error
}

// An Option is a configuration function, which configures the device.
type Option func(DeviceOption) error

// OptDeviceID selects the HCI socket device (hci<id>).
func OptDeviceID(id int) Option {
	return OptTransportHCISocket(id)
}

// OptTransportHCISocket selects the Linux HCI user-channel socket transport.
func OptTransportHCISocket(id int) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportHCISocket(id)
	}
}

// OptTransportH4Uart selects an H4 serial transport on the given port.
func OptTransportH4Uart(path string) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportH4Uart(path)
	}
}

// OptTransportRW supplies an already-open controller byte stream. Useful
// for tests and transports this module doesn't know about.
func OptTransportRW(rwc io.ReadWriteCloser) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportRW(rwc)
	}
}

// OptScanParams overrides default scanning parameters.
func OptScanParams(p cmd.LESetScanParameters) Option {
	return func(opt DeviceOption) error {
		return opt.SetScanParams(p)
	}
}

// OptAdvParams overrides default advertising parameters.
func OptAdvParams(p cmd.LESetAdvertisingParameters) Option {
	return func(opt DeviceOption) error {
		return opt.SetAdvParams(p)
	}
}

// OptAdvHandlerSync makes advertisement handlers run on the event loop
// goroutine instead of their own.
func OptAdvHandlerSync(sync bool) Option {
	return func(opt DeviceOption) error {
		return opt.SetAdvHandlerSync(sync)
	}
}

// OptErrorHandler installs a handler for errors raised outside any call,
// e.g. on the event loop.
func OptErrorHandler(h func(error)) Option {
	return func(opt DeviceOption) error {
		return opt.SetErrorHandler(h)
	}
}
