package catalog

import (
	"fmt"

	"github.com/samcharles93/geodict/pkg/defs"
	"github.com/samcharles93/geodict/pkg/dict"
)

// Ellipsoids

func (c *Catalog) OpenEl(mode dict.Mode) (*dict.File[defs.ElDef], error) { return open(c, &c.el, mode) }
func (c *Catalog) ElDef(name string) (defs.ElDef, error) { return lookup(c, &c.el, name) }
func (c *Catalog) EachEl(fn func(*defs.ElDef) error) error { return each(c, &c.el, fn) }
func (c *Catalog) ElNames() ([]string, error) { return names(c, &c.el) }
func (c *Catalog) DeleteEl(name string) error { return remove[defs.ElDef](c, &c.el, name) }

// UpdateEl validates el, derives its flattening and eccentricity, and writes it.
func (c *Catalog) UpdateEl(el *defs.ElDef) (dict.UpdateResult, error) { return c.updateEl(el, false) }

func (c *Catalog) updateEl(el *defs.ElDef, install bool) (dict.UpdateResult, error) {
	if err := c.prepEl(el); err != nil {
		return dict.Failed, &dict.RecordError{Op: "update", Dict: c.el.codec.Name(), Key: el.KeyName, Err: err}
	}
	return update(c, &c.el, el, install)
}

func (c *Catalog) prepEl(el *defs.ElDef) error {
	key, err := defs.NamePrep(el.KeyName, defs.KeyWidth)
	if err != nil {
		return err
	}
	el.KeyName = key
	return el.Derive()
}

// Datums

func (c *Catalog) OpenDt(mode dict.Mode) (*dict.File[defs.DtDef], error) { return open(c, &c.dt, mode) }
func (c *Catalog) DtDef(name string) (defs.DtDef, error) { return lookup(c, &c.dt, name) }
func (c *Catalog) EachDt(fn func(*defs.DtDef) error) error { return each(c, &c.dt, fn) }
func (c *Catalog) DtNames() ([]string, error) { return names(c, &c.dt) }
func (c *Catalog) DeleteDt(name string) error { return remove[defs.DtDef](c, &c.dt, name) }

// UpdateDt checks that the referenced ellipsoid exists and writes dt.
func (c *Catalog) UpdateDt(dt *defs.DtDef) (dict.UpdateResult, error) { return c.updateDt(dt, false) }

func (c *Catalog) updateDt(dt *defs.DtDef, install bool) (dict.UpdateResult, error) {
	if err := c.prepDt(dt); err != nil {
		return dict.Failed, &dict.RecordError{Op: "update", Dict: c.dt.codec.Name(), Key: dt.KeyName, Err: err}
	}
	return update(c, &c.dt, dt, install)
}

func (c *Catalog) prepDt(dt *defs.DtDef) error {
	key, err := defs.NamePrep(dt.KeyName, defs.KeyWidth)
	if err != nil {
		return err
	}
	dt.KeyName = key
	if !dt.To84Via.Known() {
		return fmt.Errorf("%w: datum %s has unknown method %d", defs.ErrInvalidDef, key, int32(dt.To84Via))
	}
	if _, err := c.ElDef(dt.EllipsoidName); err != nil {
		return fmt.Errorf("%w: datum %s references ellipsoid %q: %w", defs.ErrInvalidDef, key, dt.EllipsoidName, err)
	}
	return nil
}

// Coordinate systems

func (c *Catalog) OpenCs(mode dict.Mode) (*dict.File[defs.CsDef], error) { return open(c, &c.cs, mode) }
func (c *Catalog) CsDef(name string) (defs.CsDef, error) { return lookup(c, &c.cs, name) }
func (c *Catalog) EachCs(fn func(*defs.CsDef) error) error { return each(c, &c.cs, fn) }
func (c *Catalog) CsNames() ([]string, error) { return names(c, &c.cs) }
func (c *Catalog) DeleteCs(name string) error { return remove[defs.CsDef](c, &c.cs, name) }

// UpdateCs resolves the datum or ellipsoid the system is referenced to,
// recomputes the derived scale factors and writes cs.
func (c *Catalog) UpdateCs(cs *defs.CsDef) (dict.UpdateResult, error) { return c.updateCs(cs, false) }

func (c *Catalog) updateCs(cs *defs.CsDef, install bool) (dict.UpdateResult, error) {
	if err := c.prepCs(cs); err != nil {
		return dict.Failed, &dict.RecordError{Op: "update", Dict: c.cs.codec.Name(), Key: cs.KeyName, Err: err}
	}
	return update(c, &c.cs, cs, install)
}

func (c *Catalog) prepCs(cs *defs.CsDef) error {
	key, err := defs.NamePrep(cs.KeyName, defs.KeyWidth)
	if err != nil {
		return err
	}
	cs.KeyName = key
	if (cs.DatumName == "") == (cs.EllipsoidName == "") {
		return fmt.Errorf("%w: coordinate system %s must reference exactly one of a datum or an ellipsoid",
			defs.ErrInvalidDef, key)
	}
	elName := cs.EllipsoidName
	if cs.DatumName != "" {
		dt, err := c.DtDef(cs.DatumName)
		if err != nil {
			return fmt.Errorf("%w: coordinate system %s references datum %q: %w", defs.ErrInvalidDef, key, cs.DatumName, err)
		}
		elName = dt.EllipsoidName
	}
	el, err := c.ElDef(elName)
	if err != nil {
		return fmt.Errorf("%w: coordinate system %s references ellipsoid %q: %w", defs.ErrInvalidDef, key, elName, err)
	}
	return cs.DeriveScale(el.ERad)
}

// Geodetic transformations

func (c *Catalog) OpenGx(mode dict.Mode) (*dict.File[defs.GxDef], error) { return open(c, &c.gx, mode) }
func (c *Catalog) GxDef(name string) (defs.GxDef, error) { return lookup(c, &c.gx, name) }
func (c *Catalog) EachGx(fn func(*defs.GxDef) error) error { return each(c, &c.gx, fn) }
func (c *Catalog) GxNames() ([]string, error) { return names(c, &c.gx) }
func (c *Catalog) DeleteGx(name string) error { return remove[defs.GxDef](c, &c.gx, name) }

// UpdateGx checks the method and both datums and writes gx.
func (c *Catalog) UpdateGx(gx *defs.GxDef) (dict.UpdateResult, error) { return c.updateGx(gx, false) }

func (c *Catalog) updateGx(gx *defs.GxDef, install bool) (dict.UpdateResult, error) {
	if err := c.prepGx(gx); err != nil {
		return dict.Failed, &dict.RecordError{Op: "update", Dict: c.gx.codec.Name(), Key: gx.KeyName, Err: err}
	}
	return update(c, &c.gx, gx, install)
}

func (c *Catalog) prepGx(gx *defs.GxDef) error {
	key, err := defs.NamePrep(gx.KeyName, defs.LongKeyWidth)
	if err != nil {
		return err
	}
	gx.KeyName = key
	if err := gx.Validate(); err != nil {
		return err
	}
	for _, name := range []string{gx.SourceDatum, gx.TargetDatum} {
		if _, err := c.DtDef(name); err != nil {
			return fmt.Errorf("%w: transformation %s references datum %q: %w", defs.ErrInvalidDef, key, name, err)
		}
	}
	return nil
}

// Geodetic paths

func (c *Catalog) OpenGp(mode dict.Mode) (*dict.File[defs.GpDef], error) { return open(c, &c.gp, mode) }
func (c *Catalog) GpDef(name string) (defs.GpDef, error) { return lookup(c, &c.gp, name) }
func (c *Catalog) EachGp(fn func(*defs.GpDef) error) error { return each(c, &c.gp, fn) }
func (c *Catalog) GpNames() ([]string, error) { return names(c, &c.gp) }
func (c *Catalog) DeleteGp(name string) error { return remove[defs.GpDef](c, &c.gp, name) }

// UpdateGp checks that every step exists and that the steps chain from the
// source datum to the target datum, then writes gp.
func (c *Catalog) UpdateGp(gp *defs.GpDef) (dict.UpdateResult, error) { return c.updateGp(gp, false) }

func (c *Catalog) updateGp(gp *defs.GpDef, install bool) (dict.UpdateResult, error) {
	if err := c.prepGp(gp); err != nil {
		return dict.Failed, &dict.RecordError{Op: "update", Dict: c.gp.codec.Name(), Key: gp.KeyName, Err: err}
	}
	return update(c, &c.gp, gp, install)
}

func (c *Catalog) prepGp(gp *defs.GpDef) error {
	key, err := defs.NamePrep(gp.KeyName, defs.LongKeyWidth)
	if err != nil {
		return err
	}
	gp.KeyName = key
	if err := gp.Validate(); err != nil {
		return err
	}
	at := gp.SourceDatum
	for i, step := range gp.Steps {
		gx, err := c.GxDef(step.Transform)
		if err != nil {
			return fmt.Errorf("%w: path %s step %d references %q: %w", defs.ErrInvalidDef, key, i, step.Transform, err)
		}
		from, to := gx.SourceDatum, gx.TargetDatum
		if step.Direction == defs.Inverse {
			if !gx.Inverse {
				return fmt.Errorf("%w: path %s step %d uses %s in reverse, which it does not support",
					defs.ErrInvalidDef, key, i, gx.KeyName)
			}
			from, to = to, from
		}
		if !defs.EqualKeys(from, at) {
			return fmt.Errorf("%w: path %s step %d starts at %s, expected %s", defs.ErrInvalidDef, key, i, from, at)
		}
		at = to
	}
	if !defs.EqualKeys(at, gp.TargetDatum) {
		return fmt.Errorf("%w: path %s ends at %s, expected %s", defs.ErrInvalidDef, key, at, gp.TargetDatum)
	}
	return nil
}

// Install writes a distribution record: it is stamped as protected and
// replaces any existing record of the same name regardless of policy.
func (c *Catalog) Install(rec defs.Record) (dict.UpdateResult, error) {
	switch r := rec.(type) {
	case *defs.ElDef:
		return c.updateEl(r, true)
	case *defs.DtDef:
		return c.updateDt(r, true)
	case *defs.CsDef:
		return c.updateCs(r, true)
	case *defs.GxDef:
		return c.updateGx(r, true)
	case *defs.GpDef:
		return c.updateGp(r, true)
	default:
		return dict.Failed, fmt.Errorf("catalog: cannot install %T", rec)
	}
}

// Update dispatches to the kind-specific update for rec.
func (c *Catalog) Update(rec defs.Record) (dict.UpdateResult, error) {
	switch r := rec.(type) {
	case *defs.ElDef:
		return c.UpdateEl(r)
	case *defs.DtDef:
		return c.UpdateDt(r)
	case *defs.CsDef:
		return c.UpdateCs(r)
	case *defs.GxDef:
		return c.UpdateGx(r)
	case *defs.GpDef:
		return c.UpdateGp(r)
	default:
		return dict.Failed, fmt.Errorf("catalog: cannot update %T", rec)
	}
}

// Delete removes the record called name from the dictionary of kind k.
func (c *Catalog) Delete(k defs.Kind, name string) error {
	switch k {
	case defs.KindEl:
		return c.DeleteEl(name)
	case defs.KindDt:
		return c.DeleteDt(name)
	case defs.KindCs:
		return c.DeleteCs(name)
	case defs.KindGx:
		return c.DeleteGx(name)
	case defs.KindGp:
		return c.DeleteGp(name)
	default:
		return fmt.Errorf("catalog: unknown kind %v", k)
	}
}

// Lookup returns the record called name from the dictionary of kind k.
func (c *Catalog) Lookup(k defs.Kind, name string) (defs.Record, error) {
	switch k {
	case defs.KindEl:
		r, err := c.ElDef(name)
		return &r, err
	case defs.KindDt:
		r, err := c.DtDef(name)
		return &r, err
	case defs.KindCs:
		r, err := c.CsDef(name)
		return &r, err
	case defs.KindGx:
		r, err := c.GxDef(name)
		return &r, err
	case defs.KindGp:
		r, err := c.GpDef(name)
		return &r, err
	default:
		return nil, fmt.Errorf("catalog: unknown kind %v", k)
	}
}

// Names lists the keys of the dictionary of kind k in file order.
func (c *Catalog) Names(k defs.Kind) ([]string, error) {
	switch k {
	case defs.KindEl:
		return c.ElNames()
	case defs.KindDt:
		return c.DtNames()
	case defs.KindCs:
		return c.CsNames()
	case defs.KindGx:
		return c.GxNames()
	case defs.KindGp:
		return c.GpNames()
	default:
		return nil, fmt.Errorf("catalog: unknown kind %v", k)
	}
}
