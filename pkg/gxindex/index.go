// Package gxindex is an in-memory index over the geodetic transformation
// dictionary. It holds only the fields needed to chain transformations
// together and is rebuilt from the dictionary on demand.
package gxindex

import (
	"errors"
	"fmt"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/samcharles93/geodict/pkg/defs"
)

var (
	ErrNotFound  = errors.New("gxindex: transformation not found")
	ErrDuplicate = errors.New("gxindex: more than one transformation matches")
)

// World is the coverage of a transformation with no range set.
var World = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// Entry is the lightweight copy of a transformation kept in the index.
type Entry struct {
	Name     string      `json:"name"`
	Source   string      `json:"source"`
	Target   string      `json:"target"`
	Accuracy float64     `json:"accuracy"`
	Inverse  bool        `json:"inverse"`
	Method   defs.Method `json:"method"`
	Bounds   orb.Bound   `json:"bounds"`
}

// EntryOf copies the indexed fields out of a transformation definition.
func EntryOf(gx *defs.GxDef) Entry {
	e := Entry{
		Name:     gx.KeyName,
		Source:   gx.SourceDatum,
		Target:   gx.TargetDatum,
		Accuracy: gx.Accuracy,
		Inverse:  gx.Inverse,
		Method:   gx.Method,
		Bounds:   World,
	}
	if gx.HasRange() {
		e.Bounds = orb.Bound{
			Min: orb.Point{gx.RangeMinLng, gx.RangeMinLat},
			Max: orb.Point{gx.RangeMaxLng, gx.RangeMaxLat},
		}
	}
	return e
}

// From returns the datum the entry starts at when applied in direction d.
func (e *Entry) From(d defs.Direction) string {
	if d == defs.Inverse {
		return e.Target
	}
	return e.Source
}

// To returns the datum the entry ends at when applied in direction d.
func (e *Entry) To(d defs.Direction) string {
	if d == defs.Inverse {
		return e.Source
	}
	return e.Target
}

// Usable reports whether the entry may be applied in direction d.
func (e *Entry) Usable(d defs.Direction) bool {
	return d == defs.Forward || e.Inverse
}

// spatial adapts an entry to the R-tree.
type spatial struct {
	i    int
	rect rtreego.Rect
}

func (s spatial) Bounds() rtreego.Rect { return s.rect }

// Index is an immutable snapshot of the transformation dictionary.
type Index struct {
	entries []Entry
	tree    *rtreego.Rtree
}

// Source supplies transformation definitions in dictionary order.
type Source interface {
	EachGx(fn func(*defs.GxDef) error) error
}

// Build scans src sequentially and indexes every transformation.
func Build(src Source) (*Index, error) {
	var entries []Entry
	err := src.EachGx(func(gx *defs.GxDef) error {
		entries = append(entries, EntryOf(gx))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gxindex: scan: %w", err)
	}
	return New(entries), nil
}

// New indexes entries as given.
func New(entries []Entry) *Index {
	ix := &Index{entries: entries, tree: rtreego.NewTree(2, 25, 50)}
	for i := range entries {
		b := entries[i].Bounds
		point := rtreego.Point{b.Min.Lon(), b.Min.Lat()}
		lengths := []float64{
			max(b.Max.Lon()-b.Min.Lon(), minExtent),
			max(b.Max.Lat()-b.Min.Lat(), minExtent),
		}
		rect, err := rtreego.NewRect(point, lengths)
		if err != nil {
			continue
		}
		ix.tree.Insert(spatial{i: i, rect: rect})
	}
	return ix
}

// minExtent keeps degenerate ranges insertable.
const minExtent = 1e-9

// Len returns the number of entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Entry returns the entry at position i. The pointer stays valid for the
// lifetime of the index.
func (ix *Index) Entry(i int) *Entry { return &ix.entries[i] }

// Entries returns every entry in dictionary order.
func (ix *Index) Entries() []Entry { return ix.entries }

// LocateByName finds a transformation by key name.
func (ix *Index) LocateByName(name string) (int, error) {
	for i := range ix.entries {
		if defs.EqualKeys(ix.entries[i].Name, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// LocateBySource finds the one transformation that can start at datum name:
// forward from its source, or inverse from its target when reversible.
func (ix *Index) LocateBySource(name string) (int, defs.Direction, error) {
	return ix.locateEnd(name, true)
}

// LocateByTarget finds the one transformation that can end at datum name:
// forward into its target, or inverse into its source when reversible.
func (ix *Index) LocateByTarget(name string) (int, defs.Direction, error) {
	return ix.locateEnd(name, false)
}

func (ix *Index) locateEnd(name string, start bool) (int, defs.Direction, error) {
	found, dir, n := -1, defs.Forward, 0
	for i := range ix.entries {
		e := &ix.entries[i]
		for _, d := range [...]defs.Direction{defs.Forward, defs.Inverse} {
			if !e.Usable(d) {
				continue
			}
			end := e.To(d)
			if start {
				end = e.From(d)
			}
			if defs.EqualKeys(end, name) {
				found, dir = i, d
				n++
			}
		}
	}
	switch {
	case n == 0:
		return -1, defs.Forward, fmt.Errorf("%w: nothing connects to %s", ErrNotFound, name)
	case n > 1:
		return -1, defs.Forward, fmt.Errorf("%w: %d candidates for %s", ErrDuplicate, n, name)
	}
	return found, dir, nil
}

// LocateByPair finds the transformation converting src to trg. A unique
// forward match wins; otherwise a unique reversible entry from trg to src is
// returned in the inverse direction.
func (ix *Index) LocateByPair(src, trg string) (int, defs.Direction, error) {
	i, n := ix.scanPair(src, trg, false)
	if n > 1 {
		return -1, defs.Forward, fmt.Errorf("%w: %d transformations from %s to %s", ErrDuplicate, n, src, trg)
	}
	if n == 1 {
		return i, defs.Forward, nil
	}
	i, n = ix.scanPair(trg, src, true)
	if n > 1 {
		return -1, defs.Forward, fmt.Errorf("%w: %d reversible transformations from %s to %s", ErrDuplicate, n, trg, src)
	}
	if n == 1 {
		return i, defs.Inverse, nil
	}
	return -1, defs.Forward, fmt.Errorf("%w: %s to %s", ErrNotFound, src, trg)
}

func (ix *Index) scanPair(src, trg string, reversible bool) (int, int) {
	found, n := -1, 0
	for i := range ix.entries {
		e := &ix.entries[i]
		if reversible && !e.Inverse {
			continue
		}
		if defs.EqualKeys(e.Source, src) && defs.EqualKeys(e.Target, trg) {
			found = i
			n++
		}
	}
	return found, n
}

// References counts the entries naming datum as source or target.
func (ix *Index) References(datum string) int {
	n := 0
	for i := range ix.entries {
		e := &ix.entries[i]
		if defs.EqualKeys(e.Source, datum) || defs.EqualKeys(e.Target, datum) {
			n++
		}
	}
	return n
}

// Covering returns the positions of the entries whose coverage contains pt,
// in dictionary order.
func (ix *Index) Covering(pt orb.Point) []int {
	hits := ix.tree.SearchIntersect(rtreego.Point{pt.Lon(), pt.Lat()}.ToRect(minExtent))
	seen := make([]bool, len(ix.entries))
	for _, h := range hits {
		i := h.(spatial).i
		if ix.entries[i].Bounds.Contains(pt) {
			seen[i] = true
		}
	}
	var out []int
	for i, ok := range seen {
		if ok {
			out = append(out, i)
		}
	}
	return out
}
