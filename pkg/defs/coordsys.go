package defs

import "fmt"

// CsParamCount is the number of projection parameter slots in a CsDef.
const CsParamCount = 24

// CsDef is a coordinate system definition. Exactly one of DatumName and
// EllipsoidName is set: a datum-referenced system can be converted to other
// datums, an ellipsoid-referenced (cartographic) system cannot.
type CsDef struct {
	KeyName        string                `json:"key_name"`
	Projection     string                `json:"projection"`
	DatumName      string                `json:"datum,omitempty"`
	EllipsoidName  string                `json:"ellipsoid,omitempty"`
	Group          string                `json:"group,omitempty"`
	Unit           string                `json:"unit"`
	Description    string                `json:"description,omitempty"`
	Source         string                `json:"source,omitempty"`
	Params         [CsParamCount]float64 `json:"params"`
	OrgLng         float64               `json:"org_lng"`
	OrgLat         float64               `json:"org_lat"`
	FalseEasting   float64               `json:"x_off"`
	FalseNorthing  float64               `json:"y_off"`
	ScaleReduction float64               `json:"scl_red"`
	MapScale       float64               `json:"map_scl"`
	UnitScale      float64               `json:"unit_scl"`
	Scale          float64               `json:"scale"`
	ZeroX          float64               `json:"zero_x"`
	ZeroY          float64               `json:"zero_y"`
	MinLng         float64               `json:"ll_min_lng"`
	MinLat         float64               `json:"ll_min_lat"`
	MaxLng         float64               `json:"ll_max_lng"`
	MaxLat         float64               `json:"ll_max_lat"`
	Quad           int32                 `json:"quad"`
	EPSG           int32                 `json:"epsg,omitempty"`
	Protect        int32                 `json:"protect"`
}

func (c *CsDef) Key() string { return c.KeyName }
func (c *CsDef) Protection() int32 { return c.Protect }
func (c *CsDef) SetProtection(p int32) { c.Protect = p }

// Geographic reports whether the system is an unprojected lat/long system.
func (c *CsDef) Geographic() bool {
	return EqualKeys(c.Projection, "LL")
}

// DeriveScale recomputes UnitScale, Scale and the zero thresholds from the
// unit table and the equatorial radius of the referenced ellipsoid.
func (c *CsDef) DeriveScale(eRad float64) error {
	if c.MapScale == 0 {
		c.MapScale = 1
	}
	if c.ScaleReduction == 0 {
		c.ScaleReduction = 1
	}
	u, ok := LookupUnit(c.Unit)
	if !ok {
		return fmt.Errorf("%w: coordinate system %s has unknown unit %q", ErrInvalidDef, c.KeyName, c.Unit)
	}
	if c.Geographic() != (u.Type == UnitAngle) {
		return fmt.Errorf("%w: coordinate system %s unit %s does not suit projection %s",
			ErrInvalidDef, c.KeyName, u.Name, c.Projection)
	}
	if !(eRad > 0) {
		return fmt.Errorf("%w: coordinate system %s has no usable ellipsoid radius", ErrInvalidDef, c.KeyName)
	}
	c.UnitScale = u.Factor
	c.Scale = 1 / (c.MapScale * c.UnitScale)
	// Coordinates within a few microns of zero are reported as zero.
	zero := eRad * 1.0e-12 * c.Scale
	if u.Type == UnitAngle {
		zero = 1.0e-12
	}
	if c.ZeroX == 0 {
		c.ZeroX = zero
	}
	if c.ZeroY == 0 {
		c.ZeroY = zero
	}
	return nil
}

const csDefSize = KeyWidth + FillWidth + 3*KeyWidth + GroupWidth + UnitWidth + DescWidth + SourceWidth +
	CsParamCount*8 + 14*8 + 4*4

// CsCodec encodes coordinate system records.
type CsCodec struct{}

func (CsCodec) Name() string { return "coordsys" }
func (CsCodec) Magic() uint32 { return MagicCs }
func (CsCodec) Size() int { return csDefSize }
func (CsCodec) KeyWidth() int { return KeyWidth }
func (CsCodec) FillOffset() int { return KeyWidth }
func (CsCodec) Key(c *CsDef) string { return c.KeyName }

func (CsCodec) Encode(c *CsDef, buf []byte) error {
	w := newEncoder(buf, csDefSize)
	w.str("key_name", c.KeyName, KeyWidth)
	w.skip(FillWidth)
	w.str("projection", c.Projection, KeyWidth)
	w.str("datum", c.DatumName, KeyWidth)
	w.str("ellipsoid", c.EllipsoidName, KeyWidth)
	w.str("group", c.Group, GroupWidth)
	w.str("unit", c.Unit, UnitWidth)
	w.str("description", c.Description, DescWidth)
	w.str("source", c.Source, SourceWidth)
	for _, p := range c.Params {
		w.f64(p)
	}
	for _, v := range []float64{
		c.OrgLng, c.OrgLat, c.FalseEasting, c.FalseNorthing, c.ScaleReduction,
		c.MapScale, c.UnitScale, c.Scale, c.ZeroX, c.ZeroY,
		c.MinLng, c.MinLat, c.MaxLng, c.MaxLat,
	} {
		w.f64(v)
	}
	w.i32(c.Quad)
	w.i32(c.EPSG)
	w.i32(c.Protect)
	w.skip(4)
	return w.err
}

func (CsCodec) Decode(buf []byte, c *CsDef) error {
	r := newDecoder(buf, csDefSize)
	c.KeyName = r.key(KeyWidth)
	r.skip(FillWidth)
	c.Projection = r.str(KeyWidth)
	c.DatumName = r.str(KeyWidth)
	c.EllipsoidName = r.str(KeyWidth)
	c.Group = r.str(GroupWidth)
	c.Unit = r.str(UnitWidth)
	c.Description = r.str(DescWidth)
	c.Source = r.str(SourceWidth)
	for i := range c.Params {
		c.Params[i] = r.f64()
	}
	for _, p := range []*float64{
		&c.OrgLng, &c.OrgLat, &c.FalseEasting, &c.FalseNorthing, &c.ScaleReduction,
		&c.MapScale, &c.UnitScale, &c.Scale, &c.ZeroX, &c.ZeroY,
		&c.MinLng, &c.MinLat, &c.MaxLng, &c.MaxLat,
	} {
		*p = r.f64()
	}
	c.Quad = r.i32()
	c.EPSG = r.i32()
	c.Protect = r.i32()
	r.skip(4)
	return r.err
}
