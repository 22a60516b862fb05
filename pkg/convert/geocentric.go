package convert

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/samcharles93/geodict/pkg/defs"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
	sec2rad = math.Pi / (180 * 3600)

	defaultIterations = 10
	convergence       = 1.0e-12 // radians
)

// helmert implements the geocentric family: a geocentric translation with
// optional rotation and scale, applied between the ellipsoids of the two
// datums. Rotations are held in the position vector convention.
type helmert struct {
	src, trg Ellipsoid

	dx, dy, dz float64
	rx, ry, rz float64 // radians
	scale      float64 // factor minus one

	bounds  orb.Bound
	ranged  bool
	maxIter int
}

func newHelmert(gx *defs.GxDef, src, trg Ellipsoid) (Transformer, error) {
	if !(src.A > 0) || !(trg.A > 0) || src.E2 < 0 || trg.E2 < 0 || src.E2 >= 1 || trg.E2 >= 1 {
		return nil, fmt.Errorf("%w: %s: unusable ellipsoid", ErrInternal, gx.KeyName)
	}
	p := gx.Geocentric
	h := &helmert{
		src: src, trg: trg,
		dx: p.DeltaX, dy: p.DeltaY, dz: p.DeltaZ,
		maxIter: int(gx.MaxIterations),
	}
	switch gx.Method {
	case defs.MethodGeocentric:
	case defs.MethodSevenParameter:
		h.rx, h.ry, h.rz = p.RotX*sec2rad, p.RotY*sec2rad, p.RotZ*sec2rad
		h.scale = p.Scale * 1.0e-6
	case defs.MethodBursaWolf:
		// Coordinate frame rotations are the transpose of position vector ones.
		h.rx, h.ry, h.rz = -p.RotX*sec2rad, -p.RotY*sec2rad, -p.RotZ*sec2rad
		h.scale = p.Scale * 1.0e-6
	default:
		return nil, fmt.Errorf("%w: %v", ErrNoFactory, gx.Method)
	}
	if gx.HasRange() {
		h.ranged = true
		h.bounds = orb.Bound{
			Min: orb.Point{gx.RangeMinLng, gx.RangeMinLat},
			Max: orb.Point{gx.RangeMaxLng, gx.RangeMaxLat},
		}
	}
	if h.maxIter <= 0 {
		h.maxIter = defaultIterations
	}
	return h, nil
}

func (h *helmert) Forward(ll *Coord, is3D bool) Status {
	return h.apply(ll, is3D, 1, h.src, h.trg)
}

// Inverse applies the parameters with their signs reversed, which is exact
// for a pure translation and good to well under a millimetre otherwise.
func (h *helmert) Inverse(ll *Coord, is3D bool) Status {
	return h.apply(ll, is3D, -1, h.trg, h.src)
}

func (h *helmert) apply(ll *Coord, is3D bool, sign float64, from, to Ellipsoid) Status {
	if math.IsNaN(ll.Lng) || math.IsNaN(ll.Lat) || math.Abs(ll.Lat) > 90 {
		return StatusFailed
	}
	status := StatusOK
	if h.ranged && !h.bounds.Contains(ll.Point()) {
		status = StatusOutside
	}
	hgt := ll.Hgt
	if !is3D {
		hgt = 0
	}
	x, y, z := toGeocentric(from, ll.Lng, ll.Lat, hgt)
	x, y, z = h.shift(x, y, z, sign)
	lng, lat, hh, ok := toGeodetic(to, x, y, z, h.maxIter)
	if !ok {
		return StatusFailed
	}
	ll.Lng, ll.Lat = lng, lat
	if is3D {
		ll.Hgt = hh
	} else {
		ll.Hgt = 0
	}
	return status
}

func (h *helmert) shift(x, y, z, sign float64) (float64, float64, float64) {
	s := 1 + sign*h.scale
	rx, ry, rz := sign*h.rx, sign*h.ry, sign*h.rz
	return sign*h.dx + s*(x-rz*y+ry*z),
		sign*h.dy + s*(rz*x+y-rx*z),
		sign*h.dz + s*(-ry*x+rx*y+z)
}

// toGeocentric converts degrees and meters to earth-centred coordinates.
func toGeocentric(el Ellipsoid, lng, lat, hgt float64) (float64, float64, float64) {
	phi, lam := lat*deg2rad, lng*deg2rad
	sinPhi, cosPhi := math.Sincos(phi)
	sinLam, cosLam := math.Sincos(lam)
	n := el.A / math.Sqrt(1-el.E2*sinPhi*sinPhi)
	return (n + hgt) * cosPhi * cosLam,
		(n + hgt) * cosPhi * sinLam,
		(n*(1-el.E2) + hgt) * sinPhi
}

// toGeodetic is the iterative inverse of toGeocentric. ok is false when the
// latitude fails to converge within maxIter rounds.
func toGeodetic(el Ellipsoid, x, y, z float64, maxIter int) (lng, lat, hgt float64, ok bool) {
	p := math.Hypot(x, y)
	lng = math.Atan2(y, x) * rad2deg
	if p < 1.0e-9 {
		b := el.A * math.Sqrt(1-el.E2)
		lat = math.Copysign(90, z)
		return 0, lat, math.Abs(z) - b, true
	}
	phi := math.Atan2(z, p*(1-el.E2))
	for i := 0; i < maxIter; i++ {
		sinPhi := math.Sin(phi)
		n := el.A / math.Sqrt(1-el.E2*sinPhi*sinPhi)
		hgt = p/math.Cos(phi) - n
		next := math.Atan2(z, p*(1-el.E2*n/(n+hgt)))
		if math.Abs(next-phi) < convergence {
			sinPhi = math.Sin(next)
			n = el.A / math.Sqrt(1-el.E2*sinPhi*sinPhi)
			hgt = p/math.Cos(next) - n
			return lng, next * rad2deg, hgt, true
		}
		phi = next
	}
	return lng, phi * rad2deg, hgt, false
}
