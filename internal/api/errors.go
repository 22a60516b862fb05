package api

import (
	"errors"
	"net/http"

	"github.com/samcharles93/geodict/pkg/bridge"
	"github.com/samcharles93/geodict/pkg/catalog"
	"github.com/samcharles93/geodict/pkg/defs"
	"github.com/samcharles93/geodict/pkg/dict"
	"github.com/samcharles93/geodict/pkg/geodict"
	"github.com/samcharles93/geodict/pkg/gxindex"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// classify maps an error to an HTTP status and an error type string.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, defs.ErrInvalidName),
		errors.Is(err, defs.ErrInvalidDef),
		errors.Is(err, defs.ErrFieldTooLong),
		errors.Is(err, catalog.ErrUnique):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, dict.ErrNotFound),
		errors.Is(err, gxindex.ErrNotFound),
		errors.Is(err, geodict.ErrUnknownDatum):
		return http.StatusNotFound, "not_found_error"
	case errors.Is(err, bridge.ErrNoPath):
		return http.StatusNotFound, "no_path_error"
	case errors.Is(err, catalog.ErrProtected),
		errors.Is(err, catalog.ErrAgeProtected):
		return http.StatusConflict, "protected_error"
	case errors.Is(err, gxindex.ErrDuplicate),
		errors.Is(err, bridge.ErrAmbiguous):
		return http.StatusConflict, "ambiguous_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
