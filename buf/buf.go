// Package buf provides bounded, cursor-based access to byte buffers.
// All multi-byte values are little-endian, matching the HCI wire format.
package buf

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	// ErrOverflow is returned when a write would run past the end of the
	// destination buffer. The buffer and cursor are left untouched.
	ErrOverflow = errors.New("buffer overflow")

	// ErrTruncated is returned when a read asks for more bytes than remain.
	// The cursor does not move.
	ErrTruncated = errors.New("truncated input")

	// ErrSeekRange is returned by Seek for a position outside the buffer.
	ErrSeekRange = errors.New("seek out of range")
)

// Writer appends little-endian values to a fixed-capacity buffer, tracking
// a cursor. A write that cannot fully fit fails with ErrOverflow before any
// byte is mutated. An exact fit succeeds.
type Writer struct {
	b   []byte
	pos int
}

// NewWriter wraps b. The writer fills b in place and never grows it.
func NewWriter(b []byte) *Writer {
	return &Writer{b: b}
}

func (w *Writer) ensure(n int) error {
	if w.pos+n > len(w.b) {
		return errors.Wrapf(ErrOverflow, "write %d bytes, %d free", n, len(w.b)-w.pos)
	}
	return nil
}

// WriteUint8 appends one byte.
func (w *Writer) WriteUint8(v uint8) error {
	if err := w.ensure(1); err != nil {
		return err
	}
	w.b[w.pos] = v
	w.pos++
	return nil
}

// WriteUint16 appends v in little-endian order.
func (w *Writer) WriteUint16(v uint16) error {
	if err := w.ensure(2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(w.b[w.pos:], v)
	w.pos += 2
	return nil
}

// WriteUint32 appends v in little-endian order.
func (w *Writer) WriteUint32(v uint32) error {
	if err := w.ensure(4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(w.b[w.pos:], v)
	w.pos += 4
	return nil
}

// WriteUint64 appends v in little-endian order.
func (w *Writer) WriteUint64(v uint64) error {
	if err := w.ensure(8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(w.b[w.pos:], v)
	w.pos += 8
	return nil
}

// WriteSlice appends p verbatim.
func (w *Writer) WriteSlice(p []byte) error {
	if err := w.ensure(len(p)); err != nil {
		return err
	}
	copy(w.b[w.pos:], p)
	w.pos += len(p)
	return nil
}

// WriteValue appends a fixed-layout value through encoding/binary in
// little-endian order. v must be made of fixed-width fields and arrays;
// its encoded size and field order are exactly those of the declaration.
func (w *Writer) WriteValue(v interface{}) error {
	n := binary.Size(v)
	if n < 0 {
		return errors.Errorf("value %T has no fixed size", v)
	}
	if err := w.ensure(n); err != nil {
		return err
	}
	bb := bytes.NewBuffer(w.b[w.pos:w.pos:len(w.b)])
	if err := binary.Write(bb, binary.LittleEndian, v); err != nil {
		return err
	}
	w.pos += n
	return nil
}

// Next carves out the following n bytes for direct marshalling and advances
// the cursor. The returned slice aliases the underlying buffer.
func (w *Writer) Next(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Errorf("negative count %d", n)
	}
	if err := w.ensure(n); err != nil {
		return nil, err
	}
	s := w.b[w.pos : w.pos+n]
	w.pos += n
	return s, nil
}

// Pos returns the number of bytes written so far.
func (w *Writer) Pos() int { return w.pos }

// Cap returns the capacity of the underlying buffer.
func (w *Writer) Cap() int { return len(w.b) }

// Bytes returns the written prefix of the buffer.
func (w *Writer) Bytes() []byte { return w.b[:w.pos] }

// Reader consumes little-endian values from a borrowed buffer, tracking a
// cursor. A read that asks for more bytes than remain fails with
// ErrTruncated and leaves the cursor where it was.
type Reader struct {
	b   []byte
	pos int
}

// NewReader wraps b. Values returned by ReadSlice are views into b.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

func (r *Reader) ensure(n int) error {
	if r.pos+n > len(r.b) {
		return errors.Wrapf(ErrTruncated, "read %d bytes, %d left", n, len(r.b)-r.pos)
	}
	return nil
}

// ReadUint8 consumes one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.ensure(1); err != nil {
		return 0, err
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

// ReadUint16 consumes two bytes, little-endian.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.ensure(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.b[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint32 consumes four bytes, little-endian.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.ensure(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadUint64 consumes eight bytes, little-endian.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.ensure(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.b[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadSlice consumes n bytes and returns them as a view into the source
// buffer, not a copy.
func (r *Reader) ReadSlice(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Errorf("negative count %d", n)
	}
	if err := r.ensure(n); err != nil {
		return nil, err
	}
	s := r.b[r.pos : r.pos+n]
	r.pos += n
	return s, nil
}

// ReadValue consumes a fixed-layout value through encoding/binary in
// little-endian order. v must be a pointer to fixed-width fields and
// arrays. Bytes past the value's width stay unread.
func (r *Reader) ReadValue(v interface{}) error {
	n := binary.Size(v)
	if n < 0 {
		return errors.Errorf("value %T has no fixed size", v)
	}
	if err := r.ensure(n); err != nil {
		return err
	}
	if err := binary.Read(bytes.NewReader(r.b[r.pos:r.pos+n]), binary.LittleEndian, v); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() int { return len(r.b) - r.pos }

// Len returns the total length of the source buffer.
func (r *Reader) Len() int { return len(r.b) }

// Pos returns the cursor position.
func (r *Reader) Pos() int { return r.pos }

// Seek repositions the cursor. Seek(Len()) is valid and leaves zero bytes
// remaining; anything past that is rejected.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.b) {
		return errors.Wrapf(ErrSeekRange, "pos %d, len %d", pos, len(r.b))
	}
	r.pos = pos
	return nil
}
