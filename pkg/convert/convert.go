// Package convert applies a chain of geodetic transformations to
// coordinates.
//
// A Conversion is set up from a bridge: every step becomes a stage holding an
// initialised Transformer. Converting a point runs each stage in order.
// Per-point failures come in two flavours: hard failures abort the point and
// return the input unchanged, soft failures (typically a point outside a
// transformation's coverage) still produce a result and are handled
// according to the conversion's Policy.
package convert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

var (
	ErrNoFactory = errors.New("convert: no implementation for transformation method")
	ErrInternal  = errors.New("convert: internal error")
	ErrClosed    = errors.New("convert: conversion closed")
)

// Coord is a geographic position in degrees with an ellipsoid height in
// meters.
type Coord struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
	Hgt float64 `json:"hgt"`
}

// CoordOf lifts a 2D point.
func CoordOf(p orb.Point) Coord {
	return Coord{Lng: p.Lon(), Lat: p.Lat()}
}

// Point drops the height.
func (c Coord) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// Status is the per-point result of a transformation. Zero is success,
// negative values are hard failures, positive values are soft failures.
type Status int

const (
	StatusOK       Status = 0
	StatusOutside  Status = 1  // outside the coverage of a transformation
	StatusFailed   Status = -1 // the transformation could not compute a result
	StatusTooMany  Status = -2 // soft failures escalated by BlockFatal
	StatusInternal Status = -3
)

func (s Status) String() string {
	switch {
	case s == StatusOK:
		return "ok"
	case s == StatusOutside:
		return "outside coverage"
	case s == StatusFailed:
		return "failed"
	case s == StatusTooMany:
		return "too many soft failures"
	case s == StatusInternal:
		return "internal error"
	case s > 0:
		return fmt.Sprintf("soft(%d)", int(s))
	default:
		return fmt.Sprintf("hard(%d)", int(s))
	}
}

// Hard reports whether s aborts the conversion of a point.
func (s Status) Hard() bool { return s < 0 }

// Soft reports whether s is a recoverable failure.
func (s Status) Soft() bool { return s > 0 }

// BlockMode decides what a Conversion does with soft failures.
type BlockMode int

const (
	BlockIgnore BlockMode = iota
	BlockWarnOnce
	BlockWarnAlways
	BlockFatal
)

var blockNames = [...]string{"ignore", "warn-once", "warn-always", "fatal"}

func (m BlockMode) String() string {
	if m >= 0 && int(m) < len(blockNames) {
		return blockNames[m]
	}
	return fmt.Sprintf("block(%d)", int(m))
}

// ParseBlockMode accepts the names produced by String.
func ParseBlockMode(s string) (BlockMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range blockNames {
		if s == name {
			return BlockMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown block mode %q", s)
}

func (m BlockMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *BlockMode) UnmarshalText(b []byte) error {
	v, err := ParseBlockMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MaxLocations bounds the soft failure list of a Conversion.
const MaxLocations = 10

// Policy configures soft failure handling.
//
// Locations are compared after rounding to Resolution degrees. Under
// BlockFatal a point fails hard once more than MaxErrors distinct locations
// have reported soft failures.
type Policy struct {
	Block      BlockMode `json:"block" yaml:"block"`
	MaxErrors  int       `json:"max_errors" yaml:"max_errors"`
	Resolution float64   `json:"resolution" yaml:"resolution"`
}

// DefaultPolicy warns once per location.
var DefaultPolicy = Policy{Block: BlockWarnOnce, MaxErrors: MaxLocations, Resolution: 1}

func (p Policy) normalize() Policy {
	if p.MaxErrors <= 0 || p.MaxErrors > MaxLocations {
		p.MaxErrors = MaxLocations
	}
	if !(p.Resolution > 0) {
		p.Resolution = DefaultPolicy.Resolution
	}
	return p
}
