package h4

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"
)

// chunkPipe plays a scripted byte stream one chunk per Read, like a uart
// delivering partial packets. Writes are collected for inspection.
type chunkPipe struct {
	mu     sync.Mutex
	chunks [][]byte
	wrote  []byte
	done   chan int
}

func newChunkPipe(chunks ...[]byte) *chunkPipe {
	return &chunkPipe{chunks: chunks, done: make(chan int)}
}

func (c *chunkPipe) Read(p []byte) (int, error) {
	select {
	case <-c.done:
		return 0, io.EOF
	default:
	}

	c.mu.Lock()
	if len(c.chunks) == 0 {
		c.mu.Unlock()
		// idle line; keep the rx loop from spinning
		time.Sleep(2 * time.Millisecond)
		return 0, nil
	}
	b := c.chunks[0]
	c.chunks = c.chunks[1:]
	c.mu.Unlock()

	return copy(p, b), nil
}

func (c *chunkPipe) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.wrote = append(c.wrote, p...)
	return len(p), nil
}

func (c *chunkPipe) Close() error {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	return nil
}

func (c *chunkPipe) written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]byte{}, c.wrote...)
}

// readPacket polls r until a packet arrives, riding out the empty reads the
// transport returns while its queue is idle.
func readPacket(t *testing.T, r io.Reader) []byte {
	t.Helper()

	b := make([]byte, 512)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		n, err := r.Read(b)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if n > 0 {
			return b[:n]
		}
	}
	t.Fatal("no packet before deadline")
	return nil
}

func TestTransportReassembles(t *testing.T) {
	want := []byte{0x04, 0x0E, 0x04, 0x01, 0x03, 0x0C, 0x00}
	pipe := newChunkPipe(want[:2], want[2:])

	tr := NewTransport(pipe)
	defer tr.Close()

	got := readPacket(t, tr)
	if !bytes.Equal(got, want) {
		t.Fatalf("got % X, want % X", got, want)
	}
}

func TestTransportWritePassthrough(t *testing.T) {
	pipe := newChunkPipe()

	tr := NewTransport(pipe)
	defer tr.Close()

	cmd := []byte{0x01, 0x03, 0x0C, 0x00}
	n, err := tr.Write(cmd)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if n != len(cmd) {
		t.Fatalf("wrote %d bytes, want %d", n, len(cmd))
	}
	if got := pipe.written(); !bytes.Equal(got, cmd) {
		t.Fatalf("line got % X, want % X", got, cmd)
	}
}

func TestTransportClose(t *testing.T) {
	pipe := newChunkPipe()
	tr := NewTransport(pipe)

	if err := tr.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := tr.Read(make([]byte, 16)); err != io.EOF {
		t.Fatalf("read after close: got %v, want io.EOF", err)
	}
	if _, err := tr.Write([]byte{0x01}); err != io.EOF {
		t.Fatalf("write after close: got %v, want io.EOF", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second close: got %v, want nil", err)
	}
}

func TestLoopbackCommandComplete(t *testing.T) {
	l := NewLoopback()
	defer l.Close()

	// Reset
	if _, err := l.Write([]byte{0x01, 0x03, 0x0C, 0x00}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	want := []byte{0x04, 0x0E, 0x04, 0x01, 0x03, 0x0C, 0x00}
	got := readPacket(t, l)
	if !bytes.Equal(got, want) {
		t.Fatalf("got % X, want % X", got, want)
	}
}

func TestLoopbackBDAddr(t *testing.T) {
	l := NewLoopback()
	defer l.Close()

	// Read BD_ADDR
	if _, err := l.Write([]byte{0x01, 0x09, 0x10, 0x00}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	want := []byte{
		0x04, 0x0E, 0x0A, 0x01, 0x09, 0x10,
		0x00, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01,
	}
	got := readPacket(t, l)
	if !bytes.Equal(got, want) {
		t.Fatalf("got % X, want % X", got, want)
	}
}

func TestLoopbackScanReport(t *testing.T) {
	l := NewLoopback()
	defer l.Close()

	// LE Set Scan Enable, scanning on
	if _, err := l.Write([]byte{0x01, 0x0C, 0x20, 0x02, 0x01, 0x00}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cc := []byte{0x04, 0x0E, 0x04, 0x01, 0x0C, 0x20, 0x00}
	got := readPacket(t, l)
	if !bytes.Equal(got, cc) {
		t.Fatalf("complete: got % X, want % X", got, cc)
	}

	report := []byte{
		0x04, 0x3E, 0x19, 0x02, 0x01,
		0x00, 0x00, 0xAB, 0x89, 0x67, 0x45, 0x23, 0x01, 0x0D,
		0x02, 0x01, 0x06,
		0x09, 0x09, 'l', 'o', 'o', 'p', 'b', 'a', 'c', 'k',
		0xC8,
	}
	got = readPacket(t, l)
	if !bytes.Equal(got, report) {
		t.Fatalf("report: got % X, want % X", got, report)
	}
}

func TestLoopbackRejectsNonCommand(t *testing.T) {
	l := NewLoopback()
	defer l.Close()

	if _, err := l.Write([]byte{0x04, 0x0E, 0x00}); err == nil {
		t.Fatal("event packet accepted, want error")
	}
	if _, err := l.Write([]byte{0x01, 0x03}); err == nil {
		t.Fatal("short packet accepted, want error")
	}
}

func TestLoopbackClose(t *testing.T) {
	l := NewLoopback()

	if err := l.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := l.Read(make([]byte, 16)); err != io.EOF {
		t.Fatalf("read after close: got %v, want io.EOF", err)
	}
	if _, err := l.Write([]byte{0x01, 0x03, 0x0C, 0x00}); err != io.EOF {
		t.Fatalf("write after close: got %v, want io.EOF", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: got %v, want nil", err)
	}
}
