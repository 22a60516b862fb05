package dict

import (
	"fmt"

	"github.com/samcharles93/geodict/pkg/defs"
)

// Sort re-establishes ascending key order with an insertion sort over the
// record slots of the file. Records are moved as stored bytes, so each keeps
// its obfuscation state; only transient copies are decrypted for comparison.
//
// After a single append only the last record is out of place and the pass
// is linear.
func (d *File[T]) Sort() error {
	if d.f == nil {
		return ErrClosed
	}
	if d.mode != ReadWrite {
		return ErrReadOnly
	}
	n, err := d.Count()
	if err != nil {
		return err
	}
	size := d.codec.Size()
	cur := make([]byte, size)
	prev := make([]byte, size)
	for i := 1; i < n; i++ {
		if err := d.readRaw(d.offset(i), cur); err != nil {
			return err
		}
		curKey := d.keyOf(cur)
		j := i - 1
		for ; j >= 0; j-- {
			if err := d.readRaw(d.offset(j), prev); err != nil {
				return err
			}
			if defs.CompareKeys(d.keyOf(prev), curKey) <= 0 {
				break
			}
			if err := d.writeRaw(d.offset(j+1), prev); err != nil {
				return err
			}
		}
		if j+1 != i {
			if err := d.writeRaw(d.offset(j+1), cur); err != nil {
				return err
			}
		}
	}
	return nil
}

// Verify scans the file and checks that every record decodes and that keys
// are strictly ascending.
func (d *File[T]) Verify() error {
	prevKey := ""
	first := true
	err := d.Each(func(pos int64, rec *T) error {
		key := d.codec.Key(rec)
		if !first && defs.CompareKeys(prevKey, key) >= 0 {
			return fmt.Errorf("%w: %q at offset %d does not sort after %q", ErrInvalidFile, key, pos, prevKey)
		}
		prevKey, first = key, false
		return nil
	})
	if err != nil {
		return &RecordError{Op: "verify", Dict: d.codec.Name(), Err: err}
	}
	return nil
}
