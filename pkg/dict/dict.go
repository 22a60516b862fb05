// Package dict implements the binary dictionary file shared by every
// geodetic dictionary kind.
//
// A dictionary file is a 4 byte little-endian magic number followed by a
// densely packed sequence of fixed-size records sorted ascending by their
// case-insensitive key name. There is no record count: it is implied by the
// file size. Records may individually be obfuscated with an XOR chain whose key
// lives in the record's fill byte; a zero fill byte means plaintext.
package dict

// magicSize is the size of the file header.
const magicSize = 4

// Codec describes one record kind: its magic number, fixed on-disk size and
// the mapping between the Go value and its little-endian layout. Every layout
// starts with the NUL-padded key name.
type Codec[T any] interface {
	Name() string
	Magic() uint32
	Size() int
	KeyWidth() int
	FillOffset() int
	Key(rec *T) string
	Encode(rec *T, buf []byte) error
	Decode(buf []byte, rec *T) error
}

// Mode selects how a dictionary is opened.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "rw"
	}
	return "r"
}

// UpdateResult tells an Update caller whether it replaced or added a record.
type UpdateResult int

const (
	Failed UpdateResult = iota - 1
	Updated
	Added
)

func (r UpdateResult) String() string {
	switch r {
	case Updated:
		return "updated"
	case Added:
		return "added"
	default:
		return "failed"
	}
}

// Guard vets a pending mutation. existing is nil when the key is new.
// A non-nil error aborts the mutation and is returned to the caller.
type Guard[T any] func(existing *T) error
