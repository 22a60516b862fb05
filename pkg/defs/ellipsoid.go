package defs

import (
	"fmt"
	"math"
)

// ElDef is an ellipsoid definition.
type ElDef struct {
	KeyName     string  `json:"key_name"`
	Group       string  `json:"group,omitempty"`
	Description string  `json:"description,omitempty"`
	Source      string  `json:"source,omitempty"`
	ERad        float64 `json:"e_rad"` // equatorial radius, meters
	PRad        float64 `json:"p_rad"` // polar radius, meters
	Flat        float64 `json:"flat"`
	Ecent       float64 `json:"ecent"` // eccentricity (not squared)
	EPSG        int32   `json:"epsg,omitempty"`
	Protect     int32   `json:"protect"`
}

func (e *ElDef) Key() string { return e.KeyName }
func (e *ElDef) Protection() int32 { return e.Protect }
func (e *ElDef) SetProtection(p int32) { e.Protect = p }

// Derive recomputes flattening and eccentricity from the two radii.
func (e *ElDef) Derive() error {
	if !(e.ERad > 0) || !(e.PRad > 0) {
		return fmt.Errorf("%w: ellipsoid %s radii must be positive", ErrInvalidDef, e.KeyName)
	}
	if e.PRad > e.ERad {
		return fmt.Errorf("%w: ellipsoid %s polar radius exceeds equatorial radius", ErrInvalidDef, e.KeyName)
	}
	e.Flat = 1 - e.PRad/e.ERad
	e.Ecent = math.Sqrt(e.Flat * (2 - e.Flat))
	return nil
}

// Ecent2 is the first eccentricity squared.
func (e *ElDef) Ecent2() float64 {
	return e.Ecent * e.Ecent
}

const elDefSize = KeyWidth + FillWidth + GroupWidth + DescWidth + SourceWidth + 4*8 + 2*4

// ElCodec encodes ellipsoid records.
type ElCodec struct{}

func (ElCodec) Name() string { return "ellipsoid" }
func (ElCodec) Magic() uint32 { return MagicEl }
func (ElCodec) Size() int { return elDefSize }
func (ElCodec) KeyWidth() int { return KeyWidth }
func (ElCodec) FillOffset() int { return KeyWidth }
func (ElCodec) Key(e *ElDef) string { return e.KeyName }

func (ElCodec) Encode(e *ElDef, buf []byte) error {
	w := newEncoder(buf, elDefSize)
	w.str("key_name", e.KeyName, KeyWidth)
	w.skip(FillWidth)
	w.str("group", e.Group, GroupWidth)
	w.str("description", e.Description, DescWidth)
	w.str("source", e.Source, SourceWidth)
	w.f64(e.ERad)
	w.f64(e.PRad)
	w.f64(e.Flat)
	w.f64(e.Ecent)
	w.i32(e.EPSG)
	w.i32(e.Protect)
	return w.err
}

func (ElCodec) Decode(buf []byte, e *ElDef) error {
	r := newDecoder(buf, elDefSize)
	e.KeyName = r.key(KeyWidth)
	r.skip(FillWidth)
	e.Group = r.str(GroupWidth)
	e.Description = r.str(DescWidth)
	e.Source = r.str(SourceWidth)
	e.ERad = r.f64()
	e.PRad = r.f64()
	e.Flat = r.f64()
	e.Ecent = r.f64()
	e.EPSG = r.i32()
	e.Protect = r.i32()
	return r.err
}
