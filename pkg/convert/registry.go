package convert

import (
	"fmt"
	"sync"

	"github.com/samcharles93/geodict/pkg/defs"
)

// Transformer is an initialised transformation. Implementations update ll
// in place. A stage that holds resources also implements io.Closer.
type Transformer interface {
	Forward(ll *Coord, is3D bool) Status
	Inverse(ll *Coord, is3D bool) Status
}

// Ellipsoid is the reference surface of a datum.
type Ellipsoid struct {
	Name string
	A    float64 // equatorial radius, meters
	E2   float64 // first eccentricity squared
}

// EllipsoidOf converts an ellipsoid definition.
func EllipsoidOf(el *defs.ElDef) Ellipsoid {
	return Ellipsoid{Name: el.KeyName, A: el.ERad, E2: el.Ecent2()}
}

// Factory initialises a transformer for gx between the ellipsoids of its
// source and target datums.
type Factory func(gx *defs.GxDef, src, trg Ellipsoid) (Transformer, error)

// Registry maps transformation methods to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[defs.Method]Factory
}

// NewRegistry returns a registry holding the built-in methods: null and the
// three geocentric methods. Grid interpolation and multiple regression must
// be registered by the caller.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[defs.Method]Factory)}
	r.Register(defs.MethodNull, newNull)
	r.Register(defs.MethodGeocentric, newHelmert)
	r.Register(defs.MethodSevenParameter, newHelmert)
	r.Register(defs.MethodBursaWolf, newHelmert)
	return r
}

// Register installs f for method m, replacing any previous factory.
func (r *Registry) Register(m defs.Method, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[m] = f
}

// Lookup returns the factory for m.
func (r *Registry) Lookup(m defs.Method) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[m]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNoFactory, m)
	}
	return f, nil
}

type null struct{}

func newNull(*defs.GxDef, Ellipsoid, Ellipsoid) (Transformer, error) { return null{}, nil }

func (null) Forward(*Coord, bool) Status { return StatusOK }
func (null) Inverse(*Coord, bool) Status { return StatusOK }
