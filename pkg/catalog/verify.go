package catalog

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/geodict/pkg/defs"
	"github.com/samcharles93/geodict/pkg/dict"
)

// Report is the outcome of verifying one dictionary.
type Report struct {
	Kind    defs.Kind `json:"kind"`
	Path    string    `json:"path"`
	Missing bool      `json:"missing,omitempty"`
	Records int       `json:"records"`
	Err     error     `json:"-"`
}

// Verify scans every dictionary concurrently and checks that each record
// decodes and that keys are strictly ascending. Missing dictionaries are
// reported, not treated as errors. The returned error joins every failure.
func (c *Catalog) Verify(ctx context.Context) ([]Report, error) {
	reports := make([]Report, len(defs.Kinds))
	g, ctx := errgroup.WithContext(ctx)
	for i, k := range defs.Kinds {
		reports[i] = Report{Kind: k, Path: c.Path(k)}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := &reports[i]
			switch k {
			case defs.KindEl:
				r.Records, r.Err = verifyFile(r.Path, c.el.codec)
			case defs.KindDt:
				r.Records, r.Err = verifyFile(r.Path, c.dt.codec)
			case defs.KindCs:
				r.Records, r.Err = verifyFile(r.Path, c.cs.codec)
			case defs.KindGx:
				r.Records, r.Err = verifyFile(r.Path, c.gx.codec)
			case defs.KindGp:
				r.Records, r.Err = verifyFile(r.Path, c.gp.codec)
			}
			if errors.Is(r.Err, os.ErrNotExist) {
				r.Missing, r.Err = true, nil
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	var errs []error
	for _, r := range reports {
		if r.Err != nil {
			c.log.Warn("dictionary failed verification", "path", r.Path, "error", r.Err)
			errs = append(errs, r.Err)
		}
	}
	return reports, errors.Join(errs...)
}

// verifyFile uses its own handle so verification never disturbs the cached
// streams.
func verifyFile[T any](path string, codec dict.Codec[T]) (int, error) {
	f, err := dict.Open(path, codec, dict.ReadOnly)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := f.Count()
	if err != nil {
		return 0, err
	}
	return n, f.Verify()
}
