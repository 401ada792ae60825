// Package h4 provides an HCI transport over a uart using the H4 framing
// [Vol 4, Part A].
package h4

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

const rxQueueSize = 64

type h4 struct {
	sp  io.ReadWriteCloser
	rmu sync.Mutex
	wmu sync.Mutex

	frame *frame

	rxQueue chan []byte

	done chan int
	cmu  sync.Mutex
}

// DefaultSerialOptions returns uart settings for a typical BLE controller.
// Callers set PortName and override the rest as needed.
func DefaultSerialOptions() serial.OpenOptions {
	return serial.OpenOptions{
		PortName:              "/dev/ttyACM0",
		BaudRate:              115200,
		DataBits:              8,
		StopBits:              1,
		RTSCTSFlowControl:     true,
		InterCharacterTimeout: 100,
		MinimumReadSize:       0,
	}
}

// NewSerial opens the uart described by opts and returns an H4 transport
// over it. Each Read returns one reassembled HCI packet.
func NewSerial(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	// reads must time out for the rx loop to notice shutdown
	opts.MinimumReadSize = 0
	if opts.InterCharacterTimeout == 0 {
		opts.InterCharacterTimeout = 100
	}

	sp, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %v", opts.PortName)
	}

	return newH4(sp), nil
}

// NewTransport returns an H4 transport over an already-open byte stream.
func NewTransport(rwc io.ReadWriteCloser) io.ReadWriteCloser {
	return newH4(rwc)
}

func newH4(rwc io.ReadWriteCloser) *h4 {
	h := &h4{
		sp:      rwc,
		done:    make(chan int),
		rxQueue: make(chan []byte, rxQueueSize),
	}
	h.frame = newFrame(h.rxQueue)

	go h.rxLoop()

	return h
}

// Read copies the next reassembled packet into p. It returns 0 bytes and a
// nil error when no packet arrives in time, so callers can poll for
// shutdown between reads.
func (h *h4) Read(p []byte) (int, error) {
	if !h.isOpen() {
		return 0, io.EOF
	}

	h.rmu.Lock()
	defer h.rmu.Unlock()

	select {
	case t := <-h.rxQueue:
		if len(p) < len(t) {
			return 0, fmt.Errorf("buffer too small: %v < %v", len(p), len(t))
		}
		n := copy(p, t)
		if !h.isOpen() {
			return 0, io.EOF
		}
		return n, nil

	case <-h.done:
		return 0, io.EOF

	case <-time.After(time.Second):
		return 0, nil
	}
}

func (h *h4) Write(p []byte) (int, error) {
	if !h.isOpen() {
		return 0, io.EOF
	}

	h.wmu.Lock()
	defer h.wmu.Unlock()

	n, err := h.sp.Write(p)
	return n, errors.Wrap(err, "can't write h4")
}

func (h *h4) Close() error {
	h.cmu.Lock()
	defer h.cmu.Unlock()

	select {
	case <-h.done:
		// already closed
		return nil

	default:
		close(h.done)
		h.rmu.Lock()
		err := h.sp.Close()
		h.rmu.Unlock()

		return errors.Wrap(err, "can't close h4")
	}
}

func (h *h4) isOpen() bool {
	select {
	case <-h.done:
		return false
	default:
		return h.sp != nil
	}
}

func (h *h4) rxLoop() {
	b := make([]byte, 512)
	for {
		select {
		case <-h.done:
			return
		default:
		}

		n, err := h.sp.Read(b)
		if err != nil || n == 0 {
			continue
		}

		h.frame.Assemble(b[:n])
	}
}
