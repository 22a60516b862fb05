package defs

import "errors"

var (
	ErrInvalidName  = errors.New("defs: invalid key name")
	ErrFieldTooLong = errors.New("defs: field too long")
	ErrBufferSize   = errors.New("defs: buffer size mismatch")
	ErrInvalidDef   = errors.New("defs: invalid definition")
)
