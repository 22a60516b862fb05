package defs

import "fmt"

// GeocentricParams parameterise the geocentric family of methods.
// Rotations are arc seconds, scale is parts per million.
type GeocentricParams struct {
	DeltaX float64 `json:"delta_x"`
	DeltaY float64 `json:"delta_y"`
	DeltaZ float64 `json:"delta_z"`
	RotX   float64 `json:"rot_x"`
	RotY   float64 `json:"rot_y"`
	RotZ   float64 `json:"rot_z"`
	Scale  float64 `json:"scale"`
}

// GridFormat identifies the file format of a grid shift file.
type GridFormat int32

const (
	GridNone GridFormat = iota
	GridNADCON
	GridNTv1
	GridNTv2
	GridRGF
	GridATS77
	GridGeocon
)

// GridFile is one entry of a grid interpolation transformation.
type GridFile struct {
	Format    GridFormat `json:"format"`
	Direction Direction  `json:"direction"`
	Path      string     `json:"path"`
}

// GxDef is a geodetic transformation definition: a single directional,
// optionally reversible, method converting between exactly two datums.
type GxDef struct {
	KeyName       string           `json:"key_name"`
	SourceDatum   string           `json:"source_datum"`
	TargetDatum   string           `json:"target_datum"`
	Group         string           `json:"group,omitempty"`
	Description   string           `json:"description,omitempty"`
	Source        string           `json:"source,omitempty"`
	Method        Method           `json:"method"`
	Inverse       bool             `json:"inverse_supported"`
	MaxIterations int32            `json:"max_iterations,omitempty"`
	EPSG          int32            `json:"epsg,omitempty"`
	Protect       int32            `json:"protect"`
	Accuracy      float64          `json:"accuracy"`
	Convergence   float64          `json:"convergence,omitempty"`
	ErrorValue    float64          `json:"error_value,omitempty"`
	RangeMinLng   float64          `json:"range_min_lng"`
	RangeMinLat   float64          `json:"range_min_lat"`
	RangeMaxLng   float64          `json:"range_max_lng"`
	RangeMaxLat   float64          `json:"range_max_lat"`
	Geocentric    GeocentricParams `json:"geocentric"`
	Grids         []GridFile       `json:"grids,omitempty"`
}

func (g *GxDef) Key() string { return g.KeyName }
func (g *GxDef) Protection() int32 { return g.Protect }
func (g *GxDef) SetProtection(p int32) { g.Protect = p }

// HasRange reports whether a coverage range has been set. An all-zero range
// means the transformation applies everywhere.
func (g *GxDef) HasRange() bool {
	return g.RangeMinLng != 0 || g.RangeMinLat != 0 || g.RangeMaxLng != 0 || g.RangeMaxLat != 0
}

// Validate performs the checks that need nothing but the record itself.
func (g *GxDef) Validate() error {
	if !g.Method.Known() {
		return fmt.Errorf("%w: transformation %s has unknown method %d", ErrInvalidDef, g.KeyName, int32(g.Method))
	}
	if g.SourceDatum == "" || g.TargetDatum == "" {
		return fmt.Errorf("%w: transformation %s needs source and target datums", ErrInvalidDef, g.KeyName)
	}
	if EqualKeys(g.SourceDatum, g.TargetDatum) {
		return fmt.Errorf("%w: transformation %s converts %s to itself", ErrInvalidDef, g.KeyName, g.SourceDatum)
	}
	if g.HasRange() && (g.RangeMinLng >= g.RangeMaxLng || g.RangeMinLat >= g.RangeMaxLat) {
		return fmt.Errorf("%w: transformation %s has an empty coverage range", ErrInvalidDef, g.KeyName)
	}
	if g.Method == MethodGridInterpolation {
		if len(g.Grids) == 0 {
			return fmt.Errorf("%w: transformation %s lists no grid files", ErrInvalidDef, g.KeyName)
		}
		if len(g.Grids) > MaxGridFiles {
			return fmt.Errorf("%w: transformation %s lists %d grid files, limit is %d",
				ErrInvalidDef, g.KeyName, len(g.Grids), MaxGridFiles)
		}
	}
	return nil
}

const (
	gridFileSize = 4 + 4 + GridPathWidth
	gxUnionSize  = 8 + MaxGridFiles*gridFileSize
	gxDefSize    = LongKeyWidth + FillWidth + 2*KeyWidth + GroupWidth + DescWidth + SourceWidth +
		6*4 + 7*8 + gxUnionSize
)

// GxCodec encodes geodetic transformation records.
type GxCodec struct{}

func (GxCodec) Name() string { return "xform" }
func (GxCodec) Magic() uint32 { return MagicGx }
func (GxCodec) Size() int { return gxDefSize }
func (GxCodec) KeyWidth() int { return LongKeyWidth }
func (GxCodec) FillOffset() int { return LongKeyWidth }
func (GxCodec) Key(g *GxDef) string { return g.KeyName }

func (GxCodec) Encode(g *GxDef, buf []byte) error {
	w := newEncoder(buf, gxDefSize)
	w.str("key_name", g.KeyName, LongKeyWidth)
	w.skip(FillWidth)
	w.str("source_datum", g.SourceDatum, KeyWidth)
	w.str("target_datum", g.TargetDatum, KeyWidth)
	w.str("group", g.Group, GroupWidth)
	w.str("description", g.Description, DescWidth)
	w.str("source", g.Source, SourceWidth)
	w.i32(int32(g.Method))
	w.i32(boolInt(g.Inverse))
	w.i32(g.MaxIterations)
	w.i32(g.EPSG)
	w.i32(g.Protect)
	w.skip(4)
	w.f64(g.Accuracy)
	w.f64(g.Convergence)
	w.f64(g.ErrorValue)
	w.f64(g.RangeMinLng)
	w.f64(g.RangeMinLat)
	w.f64(g.RangeMaxLng)
	w.f64(g.RangeMaxLat)

	// The parameter block is a union keyed by the method code.
	switch {
	case g.Method.Geocentric():
		p := g.Geocentric
		for _, v := range []float64{p.DeltaX, p.DeltaY, p.DeltaZ, p.RotX, p.RotY, p.RotZ, p.Scale} {
			w.f64(v)
		}
		w.skip(gxUnionSize - 7*8)
	case g.Method == MethodGridInterpolation:
		if len(g.Grids) > MaxGridFiles {
			return fmt.Errorf("%w: %d grid files", ErrFieldTooLong, len(g.Grids))
		}
		w.i32(int32(len(g.Grids)))
		w.skip(4)
		for _, f := range g.Grids {
			w.i32(int32(f.Format))
			w.i32(int32(f.Direction))
			w.str("grid path", f.Path, GridPathWidth)
		}
		w.skip((MaxGridFiles - len(g.Grids)) * gridFileSize)
	default:
		w.skip(gxUnionSize)
	}
	return w.err
}

func (GxCodec) Decode(buf []byte, g *GxDef) error {
	r := newDecoder(buf, gxDefSize)
	g.KeyName = r.key(LongKeyWidth)
	r.skip(FillWidth)
	g.SourceDatum = r.str(KeyWidth)
	g.TargetDatum = r.str(KeyWidth)
	g.Group = r.str(GroupWidth)
	g.Description = r.str(DescWidth)
	g.Source = r.str(SourceWidth)
	g.Method = Method(r.i32())
	g.Inverse = r.i32() != 0
	g.MaxIterations = r.i32()
	g.EPSG = r.i32()
	g.Protect = r.i32()
	r.skip(4)
	g.Accuracy = r.f64()
	g.Convergence = r.f64()
	g.ErrorValue = r.f64()
	g.RangeMinLng = r.f64()
	g.RangeMinLat = r.f64()
	g.RangeMaxLng = r.f64()
	g.RangeMaxLat = r.f64()

	g.Geocentric = GeocentricParams{}
	g.Grids = nil
	switch {
	case g.Method.Geocentric():
		p := &g.Geocentric
		for _, v := range []*float64{&p.DeltaX, &p.DeltaY, &p.DeltaZ, &p.RotX, &p.RotY, &p.RotZ, &p.Scale} {
			*v = r.f64()
		}
		r.skip(gxUnionSize - 7*8)
	case g.Method == MethodGridInterpolation:
		n := int(r.i32())
		r.skip(4)
		if r.err == nil && (n < 0 || n > MaxGridFiles) {
			return fmt.Errorf("%w: transformation %s grid file count %d", ErrInvalidDef, g.KeyName, n)
		}
		for i := 0; i < n; i++ {
			var f GridFile
			f.Format = GridFormat(r.i32())
			f.Direction = Direction(r.i32())
			f.Path = r.str(GridPathWidth)
			g.Grids = append(g.Grids, f)
		}
		r.skip((MaxGridFiles - n) * gridFileSize)
	default:
		r.skip(gxUnionSize)
	}
	return r.err
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
