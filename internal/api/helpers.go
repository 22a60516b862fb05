package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/geodict/pkg/defs"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "")
}

// writeFailure reports err with the status its class maps to.
func writeFailure(c *echo.Context, err error, param string) error {
	status, errType := classify(err)
	return writeError(c, status, errType, err.Error(), param)
}

func writeError(c *echo.Context, status int, errType, msg, param string) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{
			Message: msg,
			Type:    errType,
			Param:   param,
		},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	err := decodeInto(r, &out)
	return out, err
}

func decodeInto(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return newInvalidRequest("decode body: " + err.Error())
	}
	return nil
}

func kindParam(c *echo.Context) (defs.Kind, error) {
	k, err := defs.ParseKind(c.Param("kind"))
	if err != nil {
		return 0, newInvalidRequest(err.Error())
	}
	return k, nil
}

func floatParam(c *echo.Context, name string) (float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, newInvalidRequest(name + " is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, newInvalidRequest(name + ": " + err.Error())
	}
	return v, nil
}
