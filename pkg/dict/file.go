package dict

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/samcharles93/geodict/pkg/defs"
)

// File is an open dictionary of records of type T.
//
// A File keeps a logical read position so that Next behaves like a stream.
// It is not safe for concurrent use.
type File[T any] struct {
	path  string
	codec Codec[T]
	mode  Mode
	f     *os.File
	pos   int64
	rnd   *rand.Rand

	raw []byte // record as stored
	tmp []byte // transient plaintext copy
}

// Option configures a File.
type Option func(*options)

type options struct {
	rnd *rand.Rand
}

// WithRand sets the random source used to pick obfuscation keys.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rnd = r }
}

// Open opens an existing dictionary and validates its magic number and size.
func Open[T any](path string, codec Codec[T], mode Mode, opts ...Option) (*File[T], error) {
	flag := os.O_RDONLY
	if mode == ReadWrite {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &RecordError{Op: "open", Dict: codec.Name(), Err: err}
		}
		return nil, &RecordError{Op: "open", Dict: codec.Name(), Err: ioErr(err)}
	}
	df := newFile(path, codec, mode, f, opts)
	if err := df.validate(); err != nil {
		_ = f.Close()
		return nil, &RecordError{Op: "open", Dict: codec.Name(), Err: err}
	}
	return df, nil
}

// Create writes a new, empty dictionary, truncating any existing file, and
// returns it opened read-write.
func Create[T any](path string, codec Codec[T], opts ...Option) (*File[T], error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, &RecordError{Op: "create", Dict: codec.Name(), Err: ioErr(err)}
	}
	var hdr [magicSize]byte
	binary.LittleEndian.PutUint32(hdr[:], codec.Magic())
	if err := writeFull(f, hdr[:]); err != nil {
		_ = f.Close()
		return nil, &RecordError{Op: "create", Dict: codec.Name(), Err: ioErr(err)}
	}
	return newFile(path, codec, ReadWrite, f, opts), nil
}

func newFile[T any](path string, codec Codec[T], mode Mode, f *os.File, opts []Option) *File[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &File[T]{
		path:  path,
		codec: codec,
		mode:  mode,
		f:     f,
		pos:   magicSize,
		rnd:   o.rnd,
		raw:   make([]byte, codec.Size()),
		tmp:   make([]byte, codec.Size()),
	}
}

func (d *File[T]) validate() error {
	var hdr [magicSize]byte
	if _, err := d.f.ReadAt(hdr[:], 0); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: missing magic number", ErrInvalidFile)
		}
		return ioErr(err)
	}
	if got := binary.LittleEndian.Uint32(hdr[:]); got != d.codec.Magic() {
		return fmt.Errorf("%w: got %#08x want %#08x", ErrBadMagic, got, d.codec.Magic())
	}
	_, err := d.Count()
	return err
}

// Path returns the file path.
func (d *File[T]) Path() string { return d.path }

// Mode returns the mode the file was opened with.
func (d *File[T]) Mode() Mode { return d.mode }

// Codec returns the record codec.
func (d *File[T]) Codec() Codec[T] { return d.codec }

// Close releases the file handle.
func (d *File[T]) Close() error {
	if d == nil || d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// Count returns the number of records. A size that is not a whole number of
// records is reported as ErrInvalidFile.
func (d *File[T]) Count() (int, error) {
	if d.f == nil {
		return 0, ErrClosed
	}
	st, err := d.f.Stat()
	if err != nil {
		return 0, ioErr(err)
	}
	body := st.Size() - magicSize
	size := int64(d.codec.Size())
	if body < 0 || body%size != 0 {
		return 0, fmt.Errorf("%w: size %d is not %d + n*%d", ErrInvalidFile, st.Size(), magicSize, size)
	}
	return int(body / size), nil
}

// Rewind positions the stream at the first record, just past the magic number.
func (d *File[T]) Rewind() {
	d.pos = magicSize
}

// Tell returns the stream position in bytes.
func (d *File[T]) Tell() int64 {
	return d.pos
}

func (d *File[T]) offset(i int) int64 {
	return magicSize + int64(i)*int64(d.codec.Size())
}

// Next reads the record at the stream position and advances past it.
// It returns io.EOF once every record has been read.
func (d *File[T]) Next() (T, error) {
	rec, err := d.ReadAt(d.pos)
	if err != nil {
		return rec, err
	}
	d.pos += int64(d.codec.Size())
	return rec, nil
}

// ReadAt reads the record stored at byte offset pos.
func (d *File[T]) ReadAt(pos int64) (T, error) {
	var rec T
	if d.f == nil {
		return rec, ErrClosed
	}
	if err := d.readRaw(pos, d.raw); err != nil {
		return rec, err
	}
	if err := d.decode(d.raw, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}

func (d *File[T]) readRaw(pos int64, buf []byte) error {
	n, err := d.f.ReadAt(buf, pos)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && n == 0:
		return io.EOF
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: truncated record at offset %d", ErrInvalidFile, pos)
	default:
		return ioErr(err)
	}
}

func (d *File[T]) writeRaw(pos int64, buf []byte) error {
	if d.mode != ReadWrite {
		return ErrReadOnly
	}
	if _, err := d.f.WriteAt(buf, pos); err != nil {
		return ioErr(err)
	}
	return nil
}

// decode turns a stored record into a value. The stored bytes are left
// untouched; decryption happens in a transient copy.
func (d *File[T]) decode(raw []byte, rec *T) error {
	copy(d.tmp, raw)
	deobfuscate(d.tmp, d.codec.FillOffset())
	if err := d.codec.Decode(d.tmp, rec); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	return nil
}

// keyOf returns the plaintext key of a stored record.
func (d *File[T]) keyOf(raw []byte) string {
	copy(d.tmp, raw)
	deobfuscate(d.tmp, d.codec.FillOffset())
	return defs.KeyOf(d.tmp, d.codec.KeyWidth())
}

// encode produces the stored form of rec in buf.
func (d *File[T]) encode(rec *T, buf []byte, encrypt bool) error {
	if err := d.codec.Encode(rec, buf); err != nil {
		return err
	}
	fill := d.codec.FillOffset()
	buf[fill] = 0
	if encrypt {
		var key byte
		for key == 0 {
			key = d.randByte()
		}
		obfuscate(buf, fill, key)
	}
	return nil
}

func (d *File[T]) randByte() byte {
	if d.rnd != nil {
		return byte(d.rnd.UintN(256))
	}
	return byte(rand.UintN(256))
}

// Write encodes rec at the stream position and advances past it.
func (d *File[T]) Write(rec *T, encrypt bool) error {
	if err := d.WriteAt(d.pos, rec, encrypt); err != nil {
		return err
	}
	d.pos += int64(d.codec.Size())
	return nil
}

// WriteAt encodes rec at byte offset pos. Callers are responsible for the
// sort order; Update and Sort maintain it.
func (d *File[T]) WriteAt(pos int64, rec *T, encrypt bool) error {
	if d.f == nil {
		return ErrClosed
	}
	buf := make([]byte, d.codec.Size())
	if err := d.encode(rec, buf, encrypt); err != nil {
		return err
	}
	return d.writeRaw(pos, buf)
}

// Each rewinds and calls fn for every record in file order.
func (d *File[T]) Each(fn func(pos int64, rec *T) error) error {
	d.Rewind()
	for {
		pos := d.pos
		rec, err := d.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(pos, &rec); err != nil {
			return err
		}
	}
}

func writeFull(f *os.File, p []byte) error {
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
