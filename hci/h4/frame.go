package h4

import (
	"fmt"
	"time"
)

// Packet indicators the assembler accepts on the controller to host path.
const (
	aclPacket   = 0x02
	eventPacket = 0x04
)

const (
	evtHeaderLength = 3
	aclHeaderLength = 5

	// A partial frame with no progress for this long is dropped so one
	// corrupt length byte cannot wedge the stream.
	frameStaleAfter = time.Millisecond * 500
)

// frame reassembles HCI packets out of an arbitrarily chopped uart byte
// stream. Completed packets are delivered on out, one send per packet.
type frame struct {
	b       []byte
	timeout time.Time
	out     chan []byte
	pktType byte
}

func newFrame(c chan []byte) *frame {
	fr := &frame{
		b:   make([]byte, 0, 256),
		out: c,
	}

	return fr
}

func (f *frame) Assemble(b []byte) {
	switch {
	case len(b) == 0:
		// nothing to look at
		return

	case !f.timeout.IsZero() && time.Now().After(f.timeout):
		// stale partial frame
		fallthrough
	case f.b == nil:
		// lazy init
		f.reset()

	default:
		// ok
	}

	if len(f.b) == 0 {
		if err := f.waitStart(b); err != nil {
			return
		}
	} else {
		bb := make([]byte, len(b))
		copy(bb, b)
		f.b = append(f.b, bb...)
	}

	rf, err := f.frame()
	if err != nil {
		return
	}
	out := make([]byte, len(rf))
	copy(out, rf)
	f.out <- out

	// shift
	if len(f.b) > len(rf) {
		rem := make([]byte, len(f.b[len(rf):]))
		copy(rem, f.b[len(rf):])
		f.reset()
		f.Assemble(rem)
	} else {
		f.reset()
	}
}

func (f *frame) reset() {
	f.b = make([]byte, 0, 256)
	f.timeout = time.Time{}
}

// waitStart scans b for a packet indicator and starts a frame there,
// discarding whatever garbage precedes it.
func (f *frame) waitStart(b []byte) error {
	var i int
	var v byte
	var ok bool
	for i, v = range b {
		switch v {
		case eventPacket:
			f.pktType = eventPacket
		case aclPacket:
			f.pktType = aclPacket
		default:
			continue
		}

		ok = true
		f.timeout = time.Now().Add(frameStaleAfter)
		break
	}

	if !ok {
		return fmt.Errorf("couldn't find start byte")
	}

	bb := make([]byte, len(b[i:]))
	copy(bb, b[i:])
	f.b = append(f.b, bb...)
	return nil
}

func (f *frame) frameLength() (int, error) {
	switch f.pktType {
	case aclPacket:
		return f.aclLength()
	case eventPacket:
		return f.eventLength()
	default:
		return 0, fmt.Errorf("invalid packet type %v", f.pktType)
	}
}

func (f *frame) eventLength() (int, error) {
	if len(f.b) < evtHeaderLength {
		return 0, fmt.Errorf("not enough bytes")
	}

	return int(f.b[2]) + evtHeaderLength, nil
}

func (f *frame) aclLength() (int, error) {
	if len(f.b) < aclHeaderLength {
		return 0, fmt.Errorf("not enough bytes")
	}

	l := int(f.b[3]) | (int(f.b[4]) << 8)
	return l + aclHeaderLength, nil
}

func (f *frame) frame() ([]byte, error) {
	tl, err := f.frameLength()
	if err != nil {
		return nil, err
	}

	if len(f.b) < tl {
		return nil, fmt.Errorf("not enough bytes")
	}
	return f.b[:tl], nil
}
