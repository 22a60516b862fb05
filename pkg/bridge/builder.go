package bridge

import (
	"errors"
	"fmt"

	"github.com/samcharles93/geodict/internal/logger"
	"github.com/samcharles93/geodict/pkg/defs"
	"github.com/samcharles93/geodict/pkg/gxindex"
)

// DefaultPivots are tried when no pivots are configured.
var DefaultPivots = []string{"WGS84"}

// Indexer supplies the current transformation index.
type Indexer interface {
	Index() (*gxindex.Index, error)
}

// PathSource supplies geodetic path definitions.
type PathSource interface {
	EachGp(fn func(*defs.GpDef) error) error
}

// Builder searches for bridges. The zero value is not usable; Index is
// required, Paths may be nil.
type Builder struct {
	Index  Indexer
	Paths  PathSource
	Pivots []string
	Log    logger.Logger
}

// phase tries to extend a bridge. It reports whether it added anything.
type phase func(b *Builder, br *Bridge, ix *gxindex.Index) (bool, error)

var phases = []struct {
	name string
	run  phase
}{
	{"path", (*Builder).pathPhase},
	{"direct", (*Builder).directPhase},
	{"pivot", (*Builder).pivotPhase},
}

// Build constructs the bridge from datum src to datum trg. An empty name on
// either side, or two equal names, yields a complete bridge with no steps.
func (b *Builder) Build(src, trg string) (*Bridge, error) {
	br := newBridge(src, trg)
	if src == "" || trg == "" || defs.EqualKeys(src, trg) {
		br.State = Complete
		return br, nil
	}
	ix, err := b.Index.Index()
	if err != nil {
		br.State = Failed
		return br, err
	}
	log := b.log().With("source", src, "target", trg)

	for !br.Joined() {
		changed := false
		for _, p := range phases {
			ok, err := p.run(b, br, ix)
			if err != nil {
				br.State = Failed
				return br, err
			}
			if ok {
				log.Debug("bridge extended", "phase", p.name, "steps", br.Len())
				changed = true
				break
			}
		}
		if !changed {
			ok, err := b.singularPhase(br, ix)
			if err != nil {
				br.State = Failed
				return br, err
			}
			if !ok {
				br.State = Failed
				return br, fmt.Errorf("%w: %s to %s", ErrNoPath, src, trg)
			}
			log.Debug("bridge extended", "phase", "singular", "steps", br.Len())
		}
		if br.Len() > defs.MaxTransforms {
			br.State = Failed
			return br, fmt.Errorf("%w: bridge from %s to %s exceeds %d transformations",
				ErrInternal, src, trg, defs.MaxTransforms)
		}
	}
	br.State = Complete
	log.Debug("bridge complete", "bridge", br.String())
	return br, nil
}

func (b *Builder) log() logger.Logger {
	if b.Log == nil {
		return logger.Discard()
	}
	return b.Log
}

func (b *Builder) pivots() []string {
	if len(b.Pivots) == 0 {
		return DefaultPivots
	}
	return b.Pivots
}

func step(ix *gxindex.Index, i int, d defs.Direction) Step {
	e := ix.Entry(i)
	return Step{Entry: i, Name: e.Name, Direction: d, From: e.From(d), To: e.To(d)}
}

// pathPhase looks for a geodetic path connecting the two open ends. A
// reversible path also matches in reverse; more than one match is an error.
func (b *Builder) pathPhase(br *Bridge, ix *gxindex.Index) (bool, error) {
	if b.Paths == nil {
		return false, nil
	}
	from, to := br.SourceEnd(), br.TargetEnd()
	var (
		match    defs.GpDef
		reversed bool
		n        int
	)
	err := b.Paths.EachGp(func(gp *defs.GpDef) error {
		if defs.EqualKeys(gp.SourceDatum, from) && defs.EqualKeys(gp.TargetDatum, to) {
			match, reversed = *gp, false
			n++
		} else if gp.Reversible && defs.EqualKeys(gp.SourceDatum, to) && defs.EqualKeys(gp.TargetDatum, from) {
			match, reversed = *gp, true
			n++
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	switch {
	case n == 0:
		return false, nil
	case n > 1:
		return false, fmt.Errorf("%w: %d paths connect %s and %s", ErrAmbiguous, n, from, to)
	}

	steps := make([]Step, 0, len(match.Steps))
	for k := range match.Steps {
		ps := match.Steps[k]
		d := ps.Direction
		if reversed {
			ps = match.Steps[len(match.Steps)-1-k]
			d = ps.Direction.Flip()
		}
		i, err := ix.LocateByName(ps.Transform)
		if err != nil {
			return false, fmt.Errorf("%w: path %s: %w", ErrInternal, match.KeyName, err)
		}
		if !ix.Entry(i).Usable(d) {
			return false, fmt.Errorf("%w: path %s applies %s in reverse, which it does not support",
				ErrInternal, match.KeyName, ps.Transform)
		}
		steps = append(steps, step(ix, i, d))
	}
	if br.Len()+len(steps) > defs.MaxTransforms {
		return false, fmt.Errorf("%w: path %s would exceed %d transformations", ErrInternal, match.KeyName, defs.MaxTransforms)
	}
	br.append(steps...)
	return true, nil
}

// directPhase looks for a single transformation between the two open ends.
func (b *Builder) directPhase(br *Bridge, ix *gxindex.Index) (bool, error) {
	i, d, err := ix.LocateByPair(br.SourceEnd(), br.TargetEnd())
	if errors.Is(err, gxindex.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	br.append(step(ix, i, d))
	return true, nil
}

// pivotPhase joins the open ends through a well connected datum: one
// transformation into the pivot at the head, one out of it at the tail.
func (b *Builder) pivotPhase(br *Bridge, ix *gxindex.Index) (bool, error) {
	from, to := br.SourceEnd(), br.TargetEnd()
	for _, pivot := range b.pivots() {
		if defs.EqualKeys(pivot, from) || defs.EqualKeys(pivot, to) {
			continue
		}
		i1, d1, err := ix.LocateByPair(from, pivot)
		if errors.Is(err, gxindex.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		i2, d2, err := ix.LocateByPair(pivot, to)
		if errors.Is(err, gxindex.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		br.append(step(ix, i1, d1))
		br.prepend(step(ix, i2, d2))
		return true, nil
	}
	return false, nil
}

// singularPhase handles datums with exactly one transformation: that
// transformation must be part of any bridge through the datum, so it is
// added unconditionally.
func (b *Builder) singularPhase(br *Bridge, ix *gxindex.Index) (bool, error) {
	if from := br.SourceEnd(); ix.References(from) == 1 {
		i, d, err := ix.LocateBySource(from)
		switch {
		case err == nil && !br.contains(ix.Entry(i).Name):
			br.append(step(ix, i, d))
			return true, nil
		case err != nil && !errors.Is(err, gxindex.ErrNotFound):
			return false, err
		}
	}
	if to := br.TargetEnd(); ix.References(to) == 1 {
		i, d, err := ix.LocateByTarget(to)
		switch {
		case err == nil && !br.contains(ix.Entry(i).Name):
			br.prepend(step(ix, i, d))
			return true, nil
		case err != nil && !errors.Is(err, gxindex.ErrNotFound):
			return false, err
		}
	}
	return false, nil
}
