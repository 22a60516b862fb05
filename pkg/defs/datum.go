package defs

// DtDef is a datum definition. The shift parameters describe the datum's
// relationship to WGS84 for legacy consumers; conversions between datums are
// driven by the geodetic transformation dictionary.
type DtDef struct {
	KeyName       string  `json:"key_name"`
	EllipsoidName string  `json:"ellipsoid"`
	Group         string  `json:"group,omitempty"`
	Description   string  `json:"description,omitempty"`
	Source        string  `json:"source,omitempty"`
	DeltaX        float64 `json:"delta_x"`
	DeltaY        float64 `json:"delta_y"`
	DeltaZ        float64 `json:"delta_z"`
	RotX          float64 `json:"rot_x"`
	RotY          float64 `json:"rot_y"`
	RotZ          float64 `json:"rot_z"`
	BWScale       float64 `json:"bw_scale"`
	To84Via       Method  `json:"to84_via"`
	EPSG          int32   `json:"epsg,omitempty"`
	Protect       int32   `json:"protect"`
}

func (d *DtDef) Key() string { return d.KeyName }
func (d *DtDef) Protection() int32 { return d.Protect }
func (d *DtDef) SetProtection(p int32) { d.Protect = p }

const dtDefSize = KeyWidth + FillWidth + KeyWidth + GroupWidth + DescWidth + SourceWidth + 7*8 + 4*4

// DtCodec encodes datum records.
type DtCodec struct{}

func (DtCodec) Name() string { return "datum" }
func (DtCodec) Magic() uint32 { return MagicDt }
func (DtCodec) Size() int { return dtDefSize }
func (DtCodec) KeyWidth() int { return KeyWidth }
func (DtCodec) FillOffset() int { return KeyWidth }
func (DtCodec) Key(d *DtDef) string { return d.KeyName }

func (DtCodec) Encode(d *DtDef, buf []byte) error {
	w := newEncoder(buf, dtDefSize)
	w.str("key_name", d.KeyName, KeyWidth)
	w.skip(FillWidth)
	w.str("ellipsoid", d.EllipsoidName, KeyWidth)
	w.str("group", d.Group, GroupWidth)
	w.str("description", d.Description, DescWidth)
	w.str("source", d.Source, SourceWidth)
	w.f64(d.DeltaX)
	w.f64(d.DeltaY)
	w.f64(d.DeltaZ)
	w.f64(d.RotX)
	w.f64(d.RotY)
	w.f64(d.RotZ)
	w.f64(d.BWScale)
	w.i32(int32(d.To84Via))
	w.i32(d.EPSG)
	w.i32(d.Protect)
	w.skip(4)
	return w.err
}

func (DtCodec) Decode(buf []byte, d *DtDef) error {
	r := newDecoder(buf, dtDefSize)
	d.KeyName = r.key(KeyWidth)
	r.skip(FillWidth)
	d.EllipsoidName = r.str(KeyWidth)
	d.Group = r.str(GroupWidth)
	d.Description = r.str(DescWidth)
	d.Source = r.str(SourceWidth)
	d.DeltaX = r.f64()
	d.DeltaY = r.f64()
	d.DeltaZ = r.f64()
	d.RotX = r.f64()
	d.RotY = r.f64()
	d.RotZ = r.f64()
	d.BWScale = r.f64()
	d.To84Via = Method(r.i32())
	d.EPSG = r.i32()
	d.Protect = r.i32()
	r.skip(4)
	return r.err
}
