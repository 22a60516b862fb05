package dict

import (
	"fmt"

	"github.com/samcharles93/geodict/pkg/defs"
)

// Search performs a binary search directly against the file for key,
// ignoring case. It returns the byte offset of the matching record, or
// ErrNotFound. The stream position is not changed.
//
// The search is only meaningful while the file is sorted.
func (d *File[T]) Search(key string) (int64, error) {
	i, found, err := d.search(key)
	if err != nil {
		return -1, &RecordError{Op: "search", Dict: d.codec.Name(), Key: key, Err: err}
	}
	if !found {
		return -1, &RecordError{Op: "search", Dict: d.codec.Name(), Key: key, Err: ErrNotFound}
	}
	return d.offset(i), nil
}

// Lookup is Search followed by ReadAt.
func (d *File[T]) Lookup(key string) (T, error) {
	var rec T
	pos, err := d.Search(key)
	if err != nil {
		return rec, err
	}
	rec, err = d.ReadAt(pos)
	if err != nil {
		return rec, &RecordError{Op: "read", Dict: d.codec.Name(), Key: key, Err: err}
	}
	return rec, nil
}

// search returns the slot index holding key, or the insertion slot when the
// key is absent.
func (d *File[T]) search(key string) (int, bool, error) {
	if d.f == nil {
		return 0, false, ErrClosed
	}
	n, err := d.Count()
	if err != nil {
		return 0, false, err
	}
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if err := d.readRaw(d.offset(mid), d.raw); err != nil {
			return 0, false, fmt.Errorf("slot %d: %w", mid, err)
		}
		switch c := defs.CompareKeys(d.keyOf(d.raw), key); {
		case c == 0:
			return mid, true, nil
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false, nil
}
