package convert

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samcharles93/geodict/internal/logger"
	"github.com/samcharles93/geodict/pkg/bridge"
	"github.com/samcharles93/geodict/pkg/defs"
	"github.com/samcharles93/geodict/pkg/dict"
	"github.com/samcharles93/geodict/pkg/gxindex"
)

type resolver struct {
	gx map[string]defs.GxDef
	dt map[string]defs.DtDef
	el map[string]defs.ElDef
}

func get[T any](m map[string]T, name string) (T, error) {
	v, ok := m[name]
	if !ok {
		var zero T
		return zero, dict.ErrNotFound
	}
	return v, nil
}

func (r *resolver) GxDef(name string) (defs.GxDef, error) { return get(r.gx, name) }
func (r *resolver) DtDef(name string) (defs.DtDef, error) { return get(r.dt, name) }
func (r *resolver) ElDef(name string) (defs.ElDef, error) { return get(r.el, name) }

func newResolver(gxs ...defs.GxDef) *resolver {
	r := &resolver{
		gx: map[string]defs.GxDef{},
		dt: map[string]defs.DtDef{
			"NAD27": {KeyName: "NAD27", EllipsoidName: "CLRK66"},
			"WGS84": {KeyName: "WGS84", EllipsoidName: "WGS84"},
			"ETRS89": {KeyName: "ETRS89", EllipsoidName: "GRS1980"},
		},
		el: map[string]defs.ElDef{},
	}
	for _, el := range []defs.ElDef{
		{KeyName: "CLRK66", ERad: 6378206.4, PRad: 6356583.8},
		{KeyName: "WGS84", ERad: 6378137.0, PRad: 6356752.31424518},
		{KeyName: "GRS1980", ERad: 6378137.0, PRad: 6356752.31414036},
	} {
		if err := el.Derive(); err != nil {
			panic(err)
		}
		r.el[el.KeyName] = el
	}
	for _, gx := range gxs {
		r.gx[gx.KeyName] = gx
	}
	return r
}

type staticIndex struct{ ix *gxindex.Index }

func (s staticIndex) Index() (*gxindex.Index, error) { return s.ix, nil }

func chain(t *testing.T, r *resolver, src, trg string) *bridge.Bridge {
	t.Helper()
	var entries []gxindex.Entry
	for _, gx := range r.gx {
		entries = append(entries, gxindex.EntryOf(&gx))
	}
	b := &bridge.Builder{Index: staticIndex{gxindex.New(entries)}}
	br, err := b.Build(src, trg)
	require.NoError(t, err)
	return br
}

var nad27ToWGS84 = defs.GxDef{
	KeyName: "NAD27_to_WGS84", SourceDatum: "NAD27", TargetDatum: "WGS84",
	Method: defs.MethodGeocentric, Inverse: true,
	Geocentric:  defs.GeocentricParams{DeltaX: -8, DeltaY: 160, DeltaZ: 176},
	RangeMinLng: -170, RangeMinLat: 10, RangeMaxLng: -50, RangeMaxLat: 75,
}

func TestNullConversion(t *testing.T) {
	t.Parallel()

	r := newResolver()
	e := &Engine{Resolver: r}
	conv, err := e.Setup(chain(t, r, "", "WGS84"), DefaultPolicy)
	require.NoError(t, err)
	defer conv.Close()

	in := Coord{Lng: -105, Lat: 40, Hgt: 1600}
	out, st := conv.Convert(in, true)
	require.Equal(t, StatusOK, st)
	require.Equal(t, in, out)

	out, st = conv.Convert(in, false)
	require.Equal(t, StatusOK, st)
	require.Equal(t, Coord{Lng: -105, Lat: 40}, out)
}

func TestGeocentricRoundTrip(t *testing.T) {
	t.Parallel()

	r := newResolver(nad27ToWGS84)
	e := &Engine{Resolver: r}
	fwd, err := e.Setup(chain(t, r, "NAD27", "WGS84"), DefaultPolicy)
	require.NoError(t, err)
	defer fwd.Close()
	inv, err := e.Setup(chain(t, r, "WGS84", "NAD27"), DefaultPolicy)
	require.NoError(t, err)
	defer inv.Close()
	require.Equal(t, []StageInfo{{Transform: "NAD27_to_WGS84", Method: defs.MethodGeocentric, Direction: defs.Inverse}},
		inv.Stages())

	in := Coord{Lng: -104.99, Lat: 39.74, Hgt: 1609}
	mid, st := fwd.Convert(in, true)
	require.Equal(t, StatusOK, st)
	// The NAD27 shift in Colorado is tens of meters, well under a thousandth of a degree.
	require.NotEqual(t, in.Lng, mid.Lng)
	require.InDelta(t, in.Lng, mid.Lng, 1e-3)
	require.InDelta(t, in.Lat, mid.Lat, 1e-3)

	back, st := inv.Convert(mid, true)
	require.Equal(t, StatusOK, st)
	require.InDelta(t, in.Lng, back.Lng, 1e-9)
	require.InDelta(t, in.Lat, back.Lat, 1e-9)
	require.InDelta(t, in.Hgt, back.Hgt, 1e-4)
}

func TestGeocentricIdentityEllipsoid(t *testing.T) {
	t.Parallel()

	// A zero shift between equal ellipsoids must reproduce the input.
	el := Ellipsoid{A: 6378137.0, E2: 0.00669438002290}
	for _, ll := range []Coord{{0, 0, 0}, {-179.5, 89.9, 100}, {45, -60, -20}, {10, 90, 0}} {
		x, y, z := toGeocentric(el, ll.Lng, ll.Lat, ll.Hgt)
		lng, lat, hgt, ok := toGeodetic(el, x, y, z, defaultIterations)
		require.True(t, ok)
		require.InDelta(t, ll.Lat, lat, 1e-10)
		require.InDelta(t, ll.Hgt, hgt, 1e-5)
		if math.Abs(ll.Lat) < 90 {
			require.InDelta(t, ll.Lng, lng, 1e-10)
		}
	}
}

func TestRotationConventions(t *testing.T) {
	t.Parallel()

	params := defs.GeocentricParams{DeltaX: 89.5, DeltaY: 93.8, DeltaZ: 123.1, RotZ: -0.156, Scale: -1.2}
	pv := defs.GxDef{KeyName: "pv", SourceDatum: "ETRS89", TargetDatum: "WGS84", Method: defs.MethodSevenParameter, Geocentric: params}
	cf := pv
	cf.KeyName, cf.Method = "cf", defs.MethodBursaWolf
	flipped := cf
	flipped.KeyName = "flipped"
	flipped.Geocentric.RotZ = -params.RotZ

	r := newResolver()
	src, err := (&Engine{Resolver: r}).ellipsoid("ETRS89")
	require.NoError(t, err)
	trg, err := (&Engine{Resolver: r}).ellipsoid("WGS84")
	require.NoError(t, err)

	run := func(gx defs.GxDef) Coord {
		tr, err := newHelmert(&gx, src, trg)
		require.NoError(t, err)
		ll := Coord{Lng: 2.35, Lat: 48.85}
		require.Equal(t, StatusOK, tr.Forward(&ll, false))
		return ll
	}
	a, b, c := run(pv), run(cf), run(flipped)
	require.NotEqual(t, a, b)
	require.InDelta(t, a.Lng, c.Lng, 1e-12)
	require.InDelta(t, a.Lat, c.Lat, 1e-12)
}

func TestOutsideCoverageIsSoft(t *testing.T) {
	t.Parallel()

	r := newResolver(nad27ToWGS84)
	e := &Engine{Resolver: r}
	conv, err := e.Setup(chain(t, r, "NAD27", "WGS84"), Policy{Block: BlockIgnore})
	require.NoError(t, err)
	defer conv.Close()

	in := Coord{Lng: 2.35, Lat: 48.85}
	out, st := conv.Convert(in, false)
	require.Equal(t, StatusOutside, st)
	require.NotEqual(t, in, out, "soft failures still compute a result")
	require.Empty(t, conv.Locations(), "ignored failures are not recorded")
}

// stub is a transformer with a fixed status.
type stub struct {
	status Status
	closed *int
}

func (s stub) Forward(ll *Coord, _ bool) Status {
	if s.status >= 0 {
		ll.Lng += 1
	}
	return s.status
}

func (s stub) Inverse(ll *Coord, is3D bool) Status { return s.Forward(ll, is3D) }

func (s stub) Close() error {
	if s.closed != nil {
		*s.closed++
	}
	return nil
}

func gridXform(name, src, trg string) defs.GxDef {
	return defs.GxDef{KeyName: name, SourceDatum: src, TargetDatum: trg, Method: defs.MethodGridInterpolation,
		Grids: []defs.GridFile{{Format: defs.GridNTv2, Path: name + ".gsb"}}}
}

func TestGridNeedsFactory(t *testing.T) {
	t.Parallel()

	r := newResolver(gridXform("NAD27_to_WGS84_grid", "NAD27", "WGS84"))
	_, err := (&Engine{Resolver: r}).Setup(chain(t, r, "NAD27", "WGS84"), DefaultPolicy)
	require.ErrorIs(t, err, ErrNoFactory)
}

func TestHardFailureReturnsInput(t *testing.T) {
	t.Parallel()

	r := newResolver(gridXform("NAD27_to_ETRS89", "NAD27", "ETRS89"), gridXform("ETRS89_to_WGS84", "ETRS89", "WGS84"))
	reg := NewRegistry()
	reg.Register(defs.MethodGridInterpolation, func(gx *defs.GxDef, _, _ Ellipsoid) (Transformer, error) {
		if gx.KeyName == "NAD27_to_ETRS89" {
			return stub{status: StatusFailed}, nil
		}
		return stub{}, nil
	})
	e := &Engine{Resolver: r, Registry: reg}
	conv, err := e.Setup(chain(t, r, "NAD27", "WGS84"), DefaultPolicy)
	require.NoError(t, err)
	defer conv.Close()
	require.Len(t, conv.Stages(), 2)

	in := Coord{Lng: -97, Lat: 35, Hgt: 300}
	out, st := conv.Convert(in, true)
	require.True(t, st.Hard())
	require.Equal(t, in, out)
}

func TestSoftFailureEscalation(t *testing.T) {
	t.Parallel()

	r := newResolver(gridXform("NAD27_to_WGS84_grid", "NAD27", "WGS84"))
	reg := NewRegistry()
	reg.Register(defs.MethodGridInterpolation, func(*defs.GxDef, Ellipsoid, Ellipsoid) (Transformer, error) {
		return stub{status: StatusOutside}, nil
	})
	e := &Engine{Resolver: r, Registry: reg}
	conv, err := e.Setup(chain(t, r, "NAD27", "WGS84"), Policy{Block: BlockFatal, MaxErrors: 10, Resolution: 1})
	require.NoError(t, err)
	defer conv.Close()

	for i := 0; i < 10; i++ {
		in := Coord{Lng: float64(i) * 2, Lat: 10}
		out, st := conv.Convert(in, false)
		require.Equal(t, StatusOutside, st, "point %d", i)
		require.Equal(t, in.Lng+1, out.Lng)

		// Repeats within the resolution do not count as new locations.
		_, st = conv.Convert(Coord{Lng: in.Lng + 0.1, Lat: 10.2}, false)
		require.Equal(t, StatusOutside, st)
	}
	require.Len(t, conv.Locations(), 10)

	in := Coord{Lng: 40, Lat: 10}
	out, st := conv.Convert(in, false)
	require.Equal(t, StatusTooMany, st)
	require.True(t, st.Hard())
	require.Equal(t, in, out)
	require.LessOrEqual(t, len(conv.Locations()), MaxLocations)
}

func TestWarnOnceLogsEachLocationOnce(t *testing.T) {
	t.Parallel()

	r := newResolver(gridXform("NAD27_to_WGS84_grid", "NAD27", "WGS84"))
	reg := NewRegistry()
	reg.Register(defs.MethodGridInterpolation, func(*defs.GxDef, Ellipsoid, Ellipsoid) (Transformer, error) {
		return stub{status: StatusOutside}, nil
	})
	var buf bytes.Buffer
	e := &Engine{Resolver: r, Registry: reg, Log: logger.Text(&buf, slog.LevelWarn)}
	conv, err := e.Setup(chain(t, r, "NAD27", "WGS84"), Policy{Block: BlockWarnOnce})
	require.NoError(t, err)
	defer conv.Close()

	for i := 0; i < 3; i++ {
		conv.Convert(Coord{Lng: 5, Lat: 5}, false)
	}
	conv.Convert(Coord{Lng: 50, Lat: 5}, false)
	require.Equal(t, 2, strings.Count(buf.String(), "outside transformation coverage"))
}

func TestCloseReleasesStages(t *testing.T) {
	t.Parallel()

	closed := 0
	r := newResolver(gridXform("NAD27_to_ETRS89", "NAD27", "ETRS89"), gridXform("ETRS89_to_WGS84", "ETRS89", "WGS84"))
	reg := NewRegistry()
	reg.Register(defs.MethodGridInterpolation, func(*defs.GxDef, Ellipsoid, Ellipsoid) (Transformer, error) {
		return stub{closed: &closed}, nil
	})
	conv, err := (&Engine{Resolver: r, Registry: reg}).Setup(chain(t, r, "NAD27", "WGS84"), DefaultPolicy)
	require.NoError(t, err)
	require.NoError(t, conv.Close())
	require.NoError(t, conv.Close())
	require.Equal(t, 2, closed)

	_, st := conv.Convert(Coord{}, false)
	require.Equal(t, StatusInternal, st)
}

func TestSetupClosesOnFailure(t *testing.T) {
	t.Parallel()

	closed := 0
	r := newResolver(gridXform("NAD27_to_ETRS89", "NAD27", "ETRS89"), gridXform("ETRS89_to_WGS84", "ETRS89", "WGS84"))
	reg := NewRegistry()
	reg.Register(defs.MethodGridInterpolation, func(gx *defs.GxDef, _, _ Ellipsoid) (Transformer, error) {
		if gx.KeyName == "ETRS89_to_WGS84" {
			return nil, errors.New("grid file missing")
		}
		return stub{closed: &closed}, nil
	})
	_, err := (&Engine{Resolver: r, Registry: reg}).Setup(chain(t, r, "NAD27", "WGS84"), DefaultPolicy)
	require.ErrorContains(t, err, "grid file missing")
	require.Equal(t, 1, closed)
}

func TestParseBlockMode(t *testing.T) {
	t.Parallel()

	for _, m := range []BlockMode{BlockIgnore, BlockWarnOnce, BlockWarnAlways, BlockFatal} {
		got, err := ParseBlockMode(m.String())
		require.NoError(t, err)
		require.Equal(t, m, got)
	}
	var m BlockMode
	require.NoError(t, m.UnmarshalText([]byte("Fatal")))
	require.Equal(t, BlockFatal, m)
	_, err := ParseBlockMode("sometimes")
	require.Error(t, err)
}
