package defs

import "fmt"

// PathStep names one transformation of a geodetic path and the direction in
// which it is applied.
type PathStep struct {
	Transform string    `json:"transform"`
	Direction Direction `json:"direction"`
}

// GpDef is a geodetic path: a named, pre-composed ordered sequence of
// transformations connecting two datums.
type GpDef struct {
	KeyName     string     `json:"key_name"`
	SourceDatum string     `json:"source_datum"`
	TargetDatum string     `json:"target_datum"`
	Group       string     `json:"group,omitempty"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source,omitempty"`
	Reversible  bool       `json:"reversible"`
	EPSG        int32      `json:"epsg,omitempty"`
	Protect     int32      `json:"protect"`
	Accuracy    float64    `json:"accuracy"`
	Steps       []PathStep `json:"steps"`
}

func (p *GpDef) Key() string { return p.KeyName }
func (p *GpDef) Protection() int32 { return p.Protect }
func (p *GpDef) SetProtection(v int32) { p.Protect = v }

// Validate performs the checks that need nothing but the record itself.
func (p *GpDef) Validate() error {
	if p.SourceDatum == "" || p.TargetDatum == "" {
		return fmt.Errorf("%w: path %s needs source and target datums", ErrInvalidDef, p.KeyName)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: path %s has no steps", ErrInvalidDef, p.KeyName)
	}
	if len(p.Steps) > MaxTransforms {
		return fmt.Errorf("%w: path %s has %d steps, limit is %d", ErrInvalidDef, p.KeyName, len(p.Steps), MaxTransforms)
	}
	for i, s := range p.Steps {
		if s.Transform == "" {
			return fmt.Errorf("%w: path %s step %d names no transformation", ErrInvalidDef, p.KeyName, i)
		}
		if s.Direction != Forward && s.Direction != Inverse {
			return fmt.Errorf("%w: path %s step %d has direction %d", ErrInvalidDef, p.KeyName, i, s.Direction)
		}
	}
	return nil
}

const (
	pathStepSize = LongKeyWidth + 4 + 4
	gpDefSize    = LongKeyWidth + FillWidth + 2*KeyWidth + GroupWidth + DescWidth + SourceWidth +
		4*4 + 8 + MaxTransforms*pathStepSize
)

// GpCodec encodes geodetic path records.
type GpCodec struct{}

func (GpCodec) Name() string { return "path" }
func (GpCodec) Magic() uint32 { return MagicGp }
func (GpCodec) Size() int { return gpDefSize }
func (GpCodec) KeyWidth() int { return LongKeyWidth }
func (GpCodec) FillOffset() int { return LongKeyWidth }
func (GpCodec) Key(p *GpDef) string { return p.KeyName }

func (GpCodec) Encode(p *GpDef, buf []byte) error {
	if len(p.Steps) > MaxTransforms {
		return fmt.Errorf("%w: %d path steps", ErrFieldTooLong, len(p.Steps))
	}
	w := newEncoder(buf, gpDefSize)
	w.str("key_name", p.KeyName, LongKeyWidth)
	w.skip(FillWidth)
	w.str("source_datum", p.SourceDatum, KeyWidth)
	w.str("target_datum", p.TargetDatum, KeyWidth)
	w.str("group", p.Group, GroupWidth)
	w.str("description", p.Description, DescWidth)
	w.str("source", p.Source, SourceWidth)
	w.i32(boolInt(p.Reversible))
	w.i32(p.EPSG)
	w.i32(p.Protect)
	w.i32(int32(len(p.Steps)))
	w.f64(p.Accuracy)
	for _, s := range p.Steps {
		w.str("transform", s.Transform, LongKeyWidth)
		w.i32(int32(s.Direction))
		w.skip(4)
	}
	w.skip((MaxTransforms - len(p.Steps)) * pathStepSize)
	return w.err
}

func (GpCodec) Decode(buf []byte, p *GpDef) error {
	r := newDecoder(buf, gpDefSize)
	p.KeyName = r.key(LongKeyWidth)
	r.skip(FillWidth)
	p.SourceDatum = r.str(KeyWidth)
	p.TargetDatum = r.str(KeyWidth)
	p.Group = r.str(GroupWidth)
	p.Description = r.str(DescWidth)
	p.Source = r.str(SourceWidth)
	p.Reversible = r.i32() != 0
	p.EPSG = r.i32()
	p.Protect = r.i32()
	n := int(r.i32())
	p.Accuracy = r.f64()
	if r.err != nil {
		return r.err
	}
	if n < 0 || n > MaxTransforms {
		return fmt.Errorf("%w: path %s step count %d", ErrInvalidDef, p.KeyName, n)
	}
	p.Steps = make([]PathStep, 0, n)
	for i := 0; i < n; i++ {
		var s PathStep
		s.Transform = r.str(LongKeyWidth)
		s.Direction = Direction(r.i32())
		r.skip(4)
		p.Steps = append(p.Steps, s)
	}
	r.skip((MaxTransforms - n) * pathStepSize)
	return r.err
}
