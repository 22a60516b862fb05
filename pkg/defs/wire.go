package defs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// encoder writes fields sequentially into a fixed-size little-endian buffer.
// The first error sticks; later writes are ignored.
type encoder struct {
	b   []byte
	off int
	err error
}

func newEncoder(buf []byte, size int) *encoder {
	e := &encoder{b: buf}
	if len(buf) != size {
		e.err = fmt.Errorf("%w: got %d want %d", ErrBufferSize, len(buf), size)
		return e
	}
	clear(buf)
	return e
}

func (e *encoder) str(field, s string, n int) {
	if e.err != nil {
		return
	}
	// One byte is always kept for the terminating NUL.
	if len(s) >= n {
		e.err = fmt.Errorf("%w: %s %q exceeds %d bytes", ErrFieldTooLong, field, s, n-1)
		return
	}
	copy(e.b[e.off:e.off+n], s)
	e.off += n
}

func (e *encoder) skip(n int) {
	if e.err != nil {
		return
	}
	e.off += n
}

func (e *encoder) f64(v float64) {
	if e.err != nil {
		return
	}
	binary.LittleEndian.PutUint64(e.b[e.off:e.off+8], math.Float64bits(v))
	e.off += 8
}

func (e *encoder) i32(v int32) {
	if e.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(e.b[e.off:e.off+4], uint32(v))
	e.off += 4
}

// decoder is the read-side twin of encoder.
type decoder struct {
	b   []byte
	off int
	err error
}

func newDecoder(buf []byte, size int) *decoder {
	d := &decoder{b: buf}
	if len(buf) != size {
		d.err = fmt.Errorf("%w: got %d want %d", ErrBufferSize, len(buf), size)
	}
	return d
}

func (d *decoder) str(n int) string {
	if d.err != nil {
		return ""
	}
	f := d.b[d.off : d.off+n]
	d.off += n
	return cString(f)
}

func (d *decoder) skip(n int) {
	if d.err != nil {
		return
	}
	d.off += n
}

func (d *decoder) f64() float64 {
	if d.err != nil {
		return 0
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(d.b[d.off : d.off+8]))
	d.off += 8
	return v
}

func (d *decoder) i32() int32 {
	if d.err != nil {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(d.b[d.off : d.off+4]))
	d.off += 4
	return v
}

// key decodes and validates the key name at the start of a record.
func (d *decoder) key(width int) string {
	raw := d.str(width)
	if d.err != nil {
		return ""
	}
	name, err := NamePrep(raw, width)
	if err != nil {
		d.err = err
		return ""
	}
	if name != raw {
		d.err = fmt.Errorf("%w: %q is not normalised", ErrInvalidName, raw)
		return ""
	}
	return name
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// KeyOf extracts the NUL-terminated key name from a plaintext record buffer.
func KeyOf(buf []byte, width int) string {
	if len(buf) < width {
		return cString(buf)
	}
	return cString(buf[:width])
}
