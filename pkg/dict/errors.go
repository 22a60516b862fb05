package dict

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	ErrIO          = errors.New("dict: i/o error")
	ErrInvalidFile = errors.New("dict: invalid dictionary file")
	ErrBadMagic    = errors.New("dict: bad magic number")
	ErrDiskFull    = errors.New("dict: disk full")
	ErrNotFound    = errors.New("dict: record not found")
	ErrReadOnly    = errors.New("dict: dictionary opened read-only")
	ErrClosed      = errors.New("dict: dictionary closed")
)

// RecordError records the dictionary, operation and key that failed.
type RecordError struct {
	Op   string
	Dict string
	Key  string
	Err  error
}

func (e *RecordError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Dict, e.Err)
	}
	return fmt.Sprintf("%s %s %q: %v", e.Op, e.Dict, e.Key, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// ioErr classifies an operating system error.
func ioErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrIO) || errors.Is(err, ErrDiskFull) || errors.Is(err, ErrInvalidFile) {
		return err
	}
	if errors.Is(err, unix.ENOSPC) {
		return fmt.Errorf("%w: %w", ErrDiskFull, err)
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}
