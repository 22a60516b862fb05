package dict

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
)

// Update writes rec under its key. An existing record with the same key is
// overwritten in place; otherwise rec is appended and the file re-sorted.
// guard, when non-nil, sees the existing record (nil for a new key) and may
// veto the write.
func (d *File[T]) Update(rec *T, encrypt bool, guard Guard[T]) (UpdateResult, error) {
	key := d.codec.Key(rec)
	res, err := d.update(rec, encrypt, guard)
	if err != nil {
		return Failed, &RecordError{Op: "update", Dict: d.codec.Name(), Key: key, Err: err}
	}
	return res, nil
}

func (d *File[T]) update(rec *T, encrypt bool, guard Guard[T]) (UpdateResult, error) {
	if d.f == nil {
		return Failed, ErrClosed
	}
	if d.mode != ReadWrite {
		return Failed, ErrReadOnly
	}
	unlock, err := lockFile(d.f)
	if err != nil {
		return Failed, ioErr(err)
	}
	defer unlock()

	i, found, err := d.search(d.codec.Key(rec))
	if err != nil {
		return Failed, err
	}
	if found {
		existing, err := d.ReadAt(d.offset(i))
		if err != nil {
			return Failed, err
		}
		if guard != nil {
			if err := guard(&existing); err != nil {
				return Failed, err
			}
		}
		if err := d.WriteAt(d.offset(i), rec, encrypt); err != nil {
			return Failed, err
		}
		return Updated, nil
	}

	if guard != nil {
		if err := guard(nil); err != nil {
			return Failed, err
		}
	}
	n, err := d.Count()
	if err != nil {
		return Failed, err
	}
	if err := d.WriteAt(d.offset(n), rec, encrypt); err != nil {
		return Failed, err
	}
	if err := d.Sort(); err != nil {
		return Failed, err
	}
	return Added, nil
}

// Delete removes the record with the given key. The file is rewritten to a
// temporary file in the same directory without the record, every other
// record copied as stored, and the temporary file renamed into place. On any
// failure the temporary file is removed and the original left untouched.
func (d *File[T]) Delete(key string, guard Guard[T]) error {
	if err := d.delete(key, guard); err != nil {
		return &RecordError{Op: "delete", Dict: d.codec.Name(), Key: key, Err: err}
	}
	return nil
}

func (d *File[T]) delete(key string, guard Guard[T]) (err error) {
	if d.f == nil {
		return ErrClosed
	}
	if d.mode != ReadWrite {
		return ErrReadOnly
	}
	unlock, err := lockFile(d.f)
	if err != nil {
		return ioErr(err)
	}
	locked := true
	defer func() {
		if locked {
			unlock()
		}
	}()

	target, found, err := d.search(key)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	if guard != nil {
		existing, err := d.ReadAt(d.offset(target))
		if err != nil {
			return err
		}
		if err := guard(&existing); err != nil {
			return err
		}
	}
	n, err := d.Count()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return ioErr(err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	var hdr [magicSize]byte
	binary.LittleEndian.PutUint32(hdr[:], d.codec.Magic())
	if err = writeFull(tmp, hdr[:]); err != nil {
		return ioErr(err)
	}
	buf := make([]byte, d.codec.Size())
	for i := 0; i < n; i++ {
		if i == target {
			continue
		}
		if err = d.readRaw(d.offset(i), buf); err != nil {
			return err
		}
		if err = writeFull(tmp, buf); err != nil {
			return ioErr(err)
		}
	}
	if err = tmp.Sync(); err != nil {
		return ioErr(err)
	}
	if err = tmp.Close(); err != nil {
		return ioErr(err)
	}

	unlock()
	locked = false
	if cerr := d.f.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = ioErr(cerr)
		return err
	}
	d.f = nil
	if err = os.Rename(tmpName, d.path); err != nil {
		// The original is intact; reopen it so the File stays usable.
		if f, rerr := os.OpenFile(d.path, os.O_RDWR, 0); rerr == nil {
			d.f = f
		}
		return ioErr(err)
	}
	f, oerr := os.OpenFile(d.path, os.O_RDWR, 0)
	if oerr != nil {
		// The delete itself succeeded; only the handle is gone.
		return ioErr(oerr)
	}
	d.f = f
	d.Rewind()
	return nil
}
