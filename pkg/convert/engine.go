package convert

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/samcharles93/geodict/internal/logger"
	"github.com/samcharles93/geodict/pkg/bridge"
	"github.com/samcharles93/geodict/pkg/defs"
)

// Resolver supplies the definitions a conversion is built from.
type Resolver interface {
	GxDef(name string) (defs.GxDef, error)
	DtDef(name string) (defs.DtDef, error)
	ElDef(name string) (defs.ElDef, error)
}

// Engine sets up conversions.
type Engine struct {
	Resolver Resolver
	Registry *Registry // nil means NewRegistry()
	Log      logger.Logger

	once sync.Once
	reg  *Registry
}

func (e *Engine) registry() *Registry {
	e.once.Do(func() {
		e.reg = e.Registry
		if e.reg == nil {
			e.reg = NewRegistry()
		}
	})
	return e.reg
}

func (e *Engine) log() logger.Logger {
	if e.Log == nil {
		return logger.Discard()
	}
	return e.Log
}

// Setup initialises one stage per bridge step. A null bridge yields a
// conversion that copies its input.
func (e *Engine) Setup(br *bridge.Bridge, policy Policy) (*Conversion, error) {
	if br.State != bridge.Complete {
		return nil, fmt.Errorf("%w: bridge %s to %s is %v", ErrInternal, br.Source, br.Target, br.State)
	}
	steps := br.Steps()
	if len(steps) > defs.MaxTransforms {
		return nil, fmt.Errorf("%w: %d stages exceed %d", ErrInternal, len(steps), defs.MaxTransforms)
	}
	c := &Conversion{
		Source: br.Source,
		Target: br.Target,
		policy: policy.normalize(),
		log:    e.log().With("source", br.Source, "target", br.Target),
	}
	for _, s := range steps {
		st, err := e.stage(s)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.stages = append(c.stages, st)
	}
	return c, nil
}

func (e *Engine) stage(s bridge.Step) (stage, error) {
	gx, err := e.Resolver.GxDef(s.Name)
	if err != nil {
		return stage{}, fmt.Errorf("convert: stage %s: %w", s.Name, err)
	}
	src, err := e.ellipsoid(gx.SourceDatum)
	if err != nil {
		return stage{}, fmt.Errorf("convert: stage %s: %w", s.Name, err)
	}
	trg, err := e.ellipsoid(gx.TargetDatum)
	if err != nil {
		return stage{}, fmt.Errorf("convert: stage %s: %w", s.Name, err)
	}
	f, err := e.registry().Lookup(gx.Method)
	if err != nil {
		return stage{}, fmt.Errorf("convert: stage %s: %w", s.Name, err)
	}
	t, err := f(&gx, src, trg)
	if err != nil {
		return stage{}, fmt.Errorf("convert: stage %s: %w", s.Name, err)
	}
	return stage{name: gx.KeyName, method: gx.Method, dir: s.Direction, t: t}, nil
}

func (e *Engine) ellipsoid(datum string) (Ellipsoid, error) {
	dt, err := e.Resolver.DtDef(datum)
	if err != nil {
		return Ellipsoid{}, err
	}
	el, err := e.Resolver.ElDef(dt.EllipsoidName)
	if err != nil {
		return Ellipsoid{}, err
	}
	return EllipsoidOf(&el), nil
}

type stage struct {
	name   string
	method defs.Method
	dir    defs.Direction
	t      Transformer
}

// StageInfo describes one stage of a conversion.
type StageInfo struct {
	Transform string         `json:"transform"`
	Method    defs.Method    `json:"method"`
	Direction defs.Direction `json:"direction"`
}

// Conversion is a set-up chain of transformations. It is not safe for
// concurrent use.
type Conversion struct {
	Source string
	Target string

	stages []stage
	policy Policy
	log    logger.Logger
	closed bool

	// Soft failure bookkeeping: a ring of recent distinct locations and the
	// number of distinct locations seen so far.
	ring     [MaxLocations]Coord
	ringLen  int
	ringNext int
	distinct int
}

// Policy returns the soft failure policy in force.
func (c *Conversion) Policy() Policy { return c.policy }

// Stages lists the stages in application order.
func (c *Conversion) Stages() []StageInfo {
	out := make([]StageInfo, len(c.stages))
	for i, s := range c.stages {
		out[i] = StageInfo{Transform: s.name, Method: s.method, Direction: s.dir}
	}
	return out
}

// Convert runs in through every stage. A hard failure returns in unchanged
// with a negative status. A soft failure returns the computed result with a
// positive status, unless the policy escalates it. For 2D conversions the
// output height is zero.
func (c *Conversion) Convert(in Coord, is3D bool) (Coord, Status) {
	if c.closed {
		return in, StatusInternal
	}
	out := in
	if !is3D {
		out.Hgt = 0
	}
	worst := StatusOK
	for _, s := range c.stages {
		var st Status
		if s.dir == defs.Inverse {
			st = s.t.Inverse(&out, is3D)
		} else {
			st = s.t.Forward(&out, is3D)
		}
		if st.Hard() {
			c.log.Debug("conversion failed", "stage", s.name, "status", st.String(), "lng", in.Lng, "lat", in.Lat)
			return in, st
		}
		if st > worst {
			worst = st
		}
	}
	if !is3D {
		out.Hgt = 0
	}
	if worst.Soft() {
		if st := c.soft(in, worst); st.Hard() {
			return in, st
		}
	}
	return out, worst
}

// soft applies the block policy to a soft failure at in.
func (c *Conversion) soft(in Coord, st Status) Status {
	if c.policy.Block == BlockIgnore {
		return st
	}
	loc := c.round(in)
	fresh := c.record(loc)
	switch c.policy.Block {
	case BlockWarnOnce:
		if fresh {
			c.log.Warn("point outside transformation coverage", "lng", loc.Lng, "lat", loc.Lat)
		}
	case BlockWarnAlways:
		c.log.Warn("point outside transformation coverage", "lng", in.Lng, "lat", in.Lat)
	case BlockFatal:
		if c.distinct > c.policy.MaxErrors {
			c.log.Error("too many points outside transformation coverage", "distinct", c.distinct, "limit", c.policy.MaxErrors)
			return StatusTooMany
		}
	}
	return st
}

func (c *Conversion) round(in Coord) Coord {
	r := c.policy.Resolution
	return Coord{Lng: math.Round(in.Lng/r) * r, Lat: math.Round(in.Lat/r) * r}
}

// record adds loc to the ring unless it is already there and reports
// whether it was new.
func (c *Conversion) record(loc Coord) bool {
	for i := 0; i < c.ringLen; i++ {
		if c.ring[i] == loc {
			return false
		}
	}
	c.ring[c.ringNext] = loc
	c.ringNext = (c.ringNext + 1) % MaxLocations
	if c.ringLen < MaxLocations {
		c.ringLen++
	}
	c.distinct++
	return true
}

// Locations returns the rounded locations of recent soft failures, oldest
// first.
func (c *Conversion) Locations() []Coord {
	out := make([]Coord, 0, c.ringLen)
	start := (c.ringNext - c.ringLen + MaxLocations) % MaxLocations
	for i := 0; i < c.ringLen; i++ {
		out = append(out, c.ring[(start+i)%MaxLocations])
	}
	return out
}

// Close releases every stage that holds resources. It is safe to call more
// than once.
func (c *Conversion) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	for _, s := range c.stages {
		if cl, ok := s.t.(io.Closer); ok {
			if err := cl.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close stage %s: %w", s.name, err))
			}
		}
	}
	c.stages = nil
	return errors.Join(errs...)
}
