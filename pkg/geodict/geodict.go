// Package geodict ties the dictionaries, the transformation index, the
// bridge builder and the conversion engine together behind one handle.
package geodict

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samcharles93/geodict/internal/logger"
	"github.com/samcharles93/geodict/pkg/bridge"
	"github.com/samcharles93/geodict/pkg/catalog"
	"github.com/samcharles93/geodict/pkg/convert"
	"github.com/samcharles93/geodict/pkg/defs"
	"github.com/samcharles93/geodict/pkg/dict"
	"github.com/samcharles93/geodict/pkg/gxindex"
)

// ErrUnknownDatum is returned when a name is neither a datum nor a
// coordinate system.
var ErrUnknownDatum = errors.New("geodict: unknown datum")

type config struct {
	catalog  []catalog.Option
	log      logger.Logger
	pivots   []string
	registry *convert.Registry
}

// Option configures a Library.
type Option func(*config)

// WithCatalogOptions passes options through to the dictionary catalog.
func WithCatalogOptions(opts ...catalog.Option) Option {
	return func(c *config) { c.catalog = append(c.catalog, opts...) }
}

// WithLogger sets the logger shared by every component.
func WithLogger(l logger.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithPivots sets the datums tried as intermediates when no direct
// transformation exists.
func WithPivots(pivots ...string) Option {
	return func(c *config) { c.pivots = pivots }
}

// WithRegistry supplies the transformation method registry, typically one
// with grid interpolation registered.
func WithRegistry(r *convert.Registry) Option {
	return func(c *config) { c.registry = r }
}

// Library is a dictionary directory together with everything derived from
// it. It is safe for concurrent use; the Conversions it hands out are not.
type Library struct {
	cat     *catalog.Catalog
	cache   *gxindex.Cache
	builder *bridge.Builder
	engine  *convert.Engine
	log     logger.Logger
}

// Open returns a Library over the dictionaries in dir. Nothing is read
// until first use.
func Open(dir string, opts ...Option) *Library {
	cfg := config{log: logger.Discard()}
	for _, opt := range opts {
		opt(&cfg)
	}
	catOpts := append([]catalog.Option{catalog.WithLogger(cfg.log)}, cfg.catalog...)
	cat := catalog.New(dir, catOpts...)
	cache := gxindex.NewCache(cat, cfg.log.With("component", "gxindex"))
	return &Library{
		cat:   cat,
		cache: cache,
		builder: &bridge.Builder{
			Index:  cache,
			Paths:  cat,
			Pivots: cfg.pivots,
			Log:    cfg.log.With("component", "bridge"),
		},
		engine: &convert.Engine{
			Resolver: cat,
			Registry: cfg.registry,
			Log:      cfg.log.With("component", "convert"),
		},
		log: cfg.log,
	}
}

// Catalog returns the dictionary accessors.
func (l *Library) Catalog() *catalog.Catalog { return l.cat }

// Index returns the transformation index, building it if needed.
func (l *Library) Index() (*gxindex.Index, error) { return l.cache.Index() }

// IndexState reports whether the transformation index is built.
func (l *Library) IndexState() gxindex.State { return l.cache.State() }

// BuildBridge finds the chain of transformations from one datum to another.
func (l *Library) BuildBridge(src, trg string) (*bridge.Bridge, error) {
	return l.builder.Build(src, trg)
}

// SetupConversion prepares a conversion between two datums. Either name may
// also be a coordinate system, in which case its datum is used; a
// coordinate system referenced to a bare ellipsoid contributes no datum and
// yields a null conversion.
func (l *Library) SetupConversion(src, trg string, policy convert.Policy) (*convert.Conversion, error) {
	srcDt, err := l.datumOf(src)
	if err != nil {
		return nil, err
	}
	trgDt, err := l.datumOf(trg)
	if err != nil {
		return nil, err
	}
	br, err := l.builder.Build(srcDt, trgDt)
	if err != nil {
		return nil, err
	}
	conv, err := l.engine.Setup(br, policy)
	if err != nil {
		return nil, err
	}
	l.log.Debug("conversion ready", "source", srcDt, "target", trgDt, "bridge", br.String())
	return conv, nil
}

// Convert is shorthand for conv.Convert.
func (l *Library) Convert(conv *convert.Conversion, in convert.Coord, is3D bool) (convert.Coord, convert.Status) {
	return conv.Convert(in, is3D)
}

// ReleaseConversion releases the resources held by conv.
func (l *Library) ReleaseConversion(conv *convert.Conversion) error {
	if conv == nil {
		return nil
	}
	return conv.Close()
}

func (l *Library) datumOf(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}
	dt, err := l.cat.DtDef(name)
	if err == nil {
		return dt.KeyName, nil
	}
	if !errors.Is(err, dict.ErrNotFound) {
		return "", err
	}
	cs, csErr := l.cat.CsDef(name)
	if csErr == nil {
		return cs.DatumName, nil
	}
	if !errors.Is(csErr, dict.ErrNotFound) {
		return "", csErr
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownDatum, name)
}

// Update writes rec through the catalog and drops the index when a
// transformation changed.
func (l *Library) Update(rec defs.Record) (dict.UpdateResult, error) {
	res, err := l.cat.Update(rec)
	if err == nil {
		l.changed(rec)
	}
	return res, err
}

// Install writes rec as a distribution record.
func (l *Library) Install(rec defs.Record) (dict.UpdateResult, error) {
	res, err := l.cat.Install(rec)
	if err == nil {
		l.changed(rec)
	}
	return res, err
}

// Delete removes a record through the catalog.
func (l *Library) Delete(k defs.Kind, name string) error {
	if err := l.cat.Delete(k, name); err != nil {
		return err
	}
	if k == defs.KindGx {
		l.cache.Release()
	}
	return nil
}

func (l *Library) changed(rec defs.Record) {
	if _, ok := rec.(*defs.GxDef); ok {
		l.cache.Release()
	}
}

// Invalidate drops cached state derived from the dictionary of kind k so
// the next access sees the file as it is on disk.
func (l *Library) Invalidate(k defs.Kind) {
	l.cat.Invalidate(k)
	if k == defs.KindGx {
		l.cache.Release()
	}
}

// InvalidateAll drops every cached dictionary stream and the index.
func (l *Library) InvalidateAll() {
	for _, k := range defs.Kinds {
		l.Invalidate(k)
	}
}

// Close releases every cached dictionary stream.
func (l *Library) Close() error {
	l.cache.Release()
	return l.cat.Close()
}
