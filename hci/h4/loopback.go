package h4

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Loopback is an in-memory controller endpoint. Every command written to it
// is answered with a successful Command Complete event, so a host can run
// its full handshake with no hardware attached. Enabling scanning queues a
// single canned advertising report from the loopback's own address.
type Loopback struct {
	rx   chan []byte
	addr [6]byte

	done chan int
	cmu  sync.Mutex
}

// NewLoopback returns a loopback controller ready for use as a transport.
func NewLoopback() *Loopback {
	return &Loopback{
		rx:   make(chan []byte, rxQueueSize),
		done: make(chan int),
		// 01:23:45:67:89:ab in wire (little-endian) order.
		addr: [6]byte{0xAB, 0x89, 0x67, 0x45, 0x23, 0x01},
	}
}

// Read copies the next queued event into p. It returns 0 bytes and a nil
// error when nothing is queued in time, so callers can poll for shutdown
// between reads.
func (l *Loopback) Read(p []byte) (int, error) {
	if !l.isOpen() {
		return 0, io.EOF
	}

	select {
	case t := <-l.rx:
		if len(p) < len(t) {
			return 0, fmt.Errorf("buffer too small: %v < %v", len(p), len(t))
		}
		return copy(p, t), nil

	case <-l.done:
		return 0, io.EOF

	case <-time.After(time.Second):
		return 0, nil
	}
}

// Write accepts one command packet and queues its completion event.
func (l *Loopback) Write(b []byte) (int, error) {
	if !l.isOpen() {
		return 0, io.EOF
	}
	if len(b) < 4 || b[0] != 0x01 {
		return 0, fmt.Errorf("not a command packet: % X", b)
	}
	op := uint16(b[1]) | uint16(b[2])<<8

	rp := []byte{0x00}
	if op == 0x1009 { // Read BD_ADDR
		rp = append(rp, l.addr[:]...)
	}

	e := []byte{eventPacket, 0x0E, byte(3 + len(rp)), 0x01, b[1], b[2]}
	l.queue(append(e, rp...))

	if op == 0x200C && len(b) > 4 && b[4] == 0x01 { // LE Set Scan Enable
		l.queue(l.report())
	}
	return len(b), nil
}

func (l *Loopback) Close() error {
	l.cmu.Lock()
	defer l.cmu.Unlock()

	select {
	case <-l.done:
		// already closed
	default:
		close(l.done)
	}
	return nil
}

func (l *Loopback) isOpen() bool {
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

func (l *Loopback) queue(p []byte) {
	select {
	case l.rx <- p:
	case <-l.done:
	}
}

// report builds one ADV_IND row from the loopback's own address, carrying
// flags and the complete local name "loopback".
func (l *Loopback) report() []byte {
	ad := []byte{
		0x02, 0x01, 0x06,
		0x09, 0x09, 'l', 'o', 'o', 'p', 'b', 'a', 'c', 'k',
	}

	row := append([]byte{0x00, 0x00}, l.addr[:]...)
	row = append(row, byte(len(ad)))
	row = append(row, ad...)
	row = append(row, 0xC8) // rssi -56

	e := []byte{eventPacket, 0x3E, byte(2 + len(row)), 0x02, 0x01}
	return append(e, row...)
}
