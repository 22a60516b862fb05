// Package catalog is the per-dictionary accessor layer: it knows where the
// five dictionaries live, validates records against each other before they
// are written, and enforces the protection policy.
package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samcharles93/geodict/internal/logger"
	"github.com/samcharles93/geodict/pkg/defs"
	"github.com/samcharles93/geodict/pkg/dict"
)

var (
	ErrProtected    = errors.New("catalog: record is distribution protected")
	ErrAgeProtected = errors.New("catalog: record was modified too recently")
	ErrUnique       = errors.New("catalog: new key lacks the unique character")
)

// Policy controls protection of existing records.
//
// Protect < 0 disables the age check and writes records unstamped. Protect == 0
// only refuses distribution records. Protect > 0 also refuses records
// stamped within the last Protect days. Distribution records (protect 1) are
// always refused.
//
// When Unique is non-zero every new key must contain it, which keeps user
// definitions apart from distribution ones.
type Policy struct {
	Protect int
	Unique  rune
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithPolicy sets the protection policy.
func WithPolicy(p Policy) Option {
	return func(c *Catalog) { c.policy = p }
}

// WithClock replaces time.Now for protection stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// WithEncrypt selects whether records are obfuscated when written.
func WithEncrypt(on bool) Option {
	return func(c *Catalog) { c.encrypt = on }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Catalog) { c.log = l }
}

// WithFileOptions passes options to every dictionary file opened for writing.
func WithFileOptions(opts ...dict.Option) Option {
	return func(c *Catalog) { c.fileOpts = append(c.fileOpts, opts...) }
}

// store is one dictionary kind together with its cached read-only stream.
type store[T any] struct {
	kind  defs.Kind
	codec dict.Codec[T]
	ro    *dict.File[T]
}

// Catalog holds the dictionary directory and the state shared by every
// accessor. It is safe for concurrent use.
type Catalog struct {
	dir      string
	policy   Policy
	now      func() time.Time
	encrypt  bool
	log      logger.Logger
	fileOpts []dict.Option

	mu sync.Mutex
	cs store[defs.CsDef]
	dt store[defs.DtDef]
	el store[defs.ElDef]
	gx store[defs.GxDef]
	gp store[defs.GpDef]
}

// New returns a Catalog over the dictionaries in dir. Nothing is opened
// until first use; missing dictionaries read as empty and are created by the
// first update.
func New(dir string, opts ...Option) *Catalog {
	c := &Catalog{
		dir:     dir,
		now:     time.Now,
		encrypt: true,
		log:     logger.Discard(),
		cs:      store[defs.CsDef]{kind: defs.KindCs, codec: defs.CsCodec{}},
		dt:      store[defs.DtDef]{kind: defs.KindDt, codec: defs.DtCodec{}},
		el:      store[defs.ElDef]{kind: defs.KindEl, codec: defs.ElCodec{}},
		gx:      store[defs.GxDef]{kind: defs.KindGx, codec: defs.GxCodec{}},
		gp:      store[defs.GpDef]{kind: defs.KindGp, codec: defs.GpCodec{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the dictionary directory.
func (c *Catalog) Dir() string { return c.dir }

// Policy returns the protection policy in force.
func (c *Catalog) Policy() Policy { return c.policy }

// Path returns the file path of the dictionary of kind k.
func (c *Catalog) Path(k defs.Kind) string {
	return filepath.Join(c.dir, k.FileName())
}

// Invalidate closes the cached stream of kind k so the next read reopens the
// file from disk.
func (c *Catalog) Invalidate(k defs.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidate(k)
}

func (c *Catalog) invalidate(k defs.Kind) {
	switch k {
	case defs.KindCs:
		drop(&c.cs)
	case defs.KindDt:
		drop(&c.dt)
	case defs.KindEl:
		drop(&c.el)
	case defs.KindGx:
		drop(&c.gx)
	case defs.KindGp:
		drop(&c.gp)
	}
}

// Close releases every cached stream.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range defs.Kinds {
		c.invalidate(k)
	}
	return nil
}

func drop[T any](s *store[T]) {
	if s.ro != nil {
		_ = s.ro.Close()
		s.ro = nil
	}
}

// today is the current protection day count. It never yields the
// distribution marker.
func (c *Catalog) today() int32 {
	d := defs.DayCount(c.now())
	if d <= defs.Distribution {
		d = defs.Distribution + 1
	}
	return d
}

// stream returns the cached read-only stream of s, rewound, opening it on
// first use. A missing file yields (nil, nil). The caller holds c.mu.
func stream[T any](c *Catalog, s *store[T]) (*dict.File[T], error) {
	if s.ro != nil {
		s.ro.Rewind()
		return s.ro, nil
	}
	f, err := dict.Open(c.Path(s.kind), s.codec, dict.ReadOnly)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.ro = f
	return f, nil
}

// open returns a new stream that the caller owns. Read-write streams create
// the file when it does not exist yet.
func open[T any](c *Catalog, s *store[T], mode dict.Mode) (*dict.File[T], error) {
	f, err := dict.Open(c.Path(s.kind), s.codec, mode, c.fileOpts...)
	if mode == dict.ReadWrite && errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return nil, &dict.RecordError{Op: "create", Dict: s.codec.Name(), Err: err}
		}
		c.log.Info("creating dictionary", "path", c.Path(s.kind))
		return dict.Create(c.Path(s.kind), s.codec, c.fileOpts...)
	}
	return f, err
}

func lookup[T any](c *Catalog, s *store[T], name string) (T, error) {
	var zero T
	key, err := defs.NamePrep(name, s.codec.KeyWidth())
	if err != nil {
		return zero, &dict.RecordError{Op: "lookup", Dict: s.codec.Name(), Key: name, Err: err}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := stream(c, s)
	if err != nil {
		return zero, err
	}
	if f == nil {
		return zero, &dict.RecordError{Op: "lookup", Dict: s.codec.Name(), Key: key, Err: dict.ErrNotFound}
	}
	return f.Lookup(key)
}

// all reads every record in file order. Callbacks run on the copy, without
// the catalog lock held, so they may call back into the catalog.
func all[T any](c *Catalog, s *store[T]) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := stream(c, s)
	if err != nil || f == nil {
		return nil, err
	}
	var out []T
	err = f.Each(func(_ int64, rec *T) error {
		out = append(out, *rec)
		return nil
	})
	return out, err
}

func each[T any](c *Catalog, s *store[T], fn func(*T) error) error {
	recs, err := all(c, s)
	if err != nil {
		return err
	}
	for i := range recs {
		if err := fn(&recs[i]); err != nil {
			return err
		}
	}
	return nil
}

func names[T any](c *Catalog, s *store[T]) ([]string, error) {
	recs, err := all(c, s)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(recs))
	for i := range recs {
		out[i] = s.codec.Key(&recs[i])
	}
	return out, nil
}

// record constrains P to the pointer type of T that implements defs.Record.
type record[T any] interface {
	*T
	defs.Record
}

// update writes rec, stamping its protection field first. rec.Key() must
// already be normalised.
func update[T any, P record[T]](c *Catalog, s *store[T], rec *T, install bool) (dict.UpdateResult, error) {
	p := P(rec)
	switch {
	case install:
		p.SetProtection(defs.Distribution)
	case c.policy.Protect < 0:
		p.SetProtection(defs.Unprotected)
	default:
		p.SetProtection(c.today())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := open(c, s, dict.ReadWrite)
	if err != nil {
		return dict.Failed, err
	}
	defer f.Close()
	defer drop(s)

	var guard dict.Guard[T]
	if !install {
		guard = protectGuard[T, P](c, p.Key(), true)
	}
	res, err := f.Update(rec, c.encrypt, guard)
	if err != nil {
		return res, err
	}
	c.log.Debug("dictionary record written", "dict", s.codec.Name(), "key", p.Key(), "result", res.String())
	return res, nil
}

func remove[T any, P record[T]](c *Catalog, s *store[T], name string) error {
	key, err := defs.NamePrep(name, s.codec.KeyWidth())
	if err != nil {
		return &dict.RecordError{Op: "delete", Dict: s.codec.Name(), Key: name, Err: err}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := dict.Open(c.Path(s.kind), s.codec, dict.ReadWrite, c.fileOpts...)
	if errors.Is(err, os.ErrNotExist) {
		return &dict.RecordError{Op: "delete", Dict: s.codec.Name(), Key: key, Err: dict.ErrNotFound}
	}
	if err != nil {
		return err
	}
	defer f.Close()
	defer drop(s)
	if err := f.Delete(key, protectGuard[T, P](c, key, false)); err != nil {
		return err
	}
	c.log.Debug("dictionary record deleted", "dict", s.codec.Name(), "key", key)
	return nil
}
