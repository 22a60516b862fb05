package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/geodict/internal/logger"
	"github.com/samcharles93/geodict/pkg/catalog"
	"github.com/samcharles93/geodict/pkg/geodict"
)

// env is the state shared by every command of one invocation.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	g   globals
	cfg Config
	log logger.Logger
	lib *geodict.Library
}

func (e *env) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := e.g.config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return ctx, fmt.Errorf("config: %w", err)
		}
	} else {
		path = configPath()
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	e.cfg = cfg
	applyGlobalConfig(cmd, cfg, &e.g)

	level := logger.ParseLevel(e.g.logLevel)
	if e.g.debug {
		level = slog.LevelDebug
	}
	e.log = logger.ForFormat(e.g.logFormat, e.stderr, level)
	return logger.WithContext(ctx, e.log), nil
}

func (e *env) after(ctx context.Context, cmd *cli.Command) error {
	if e.lib == nil {
		return nil
	}
	err := e.lib.Close()
	e.lib = nil
	return err
}

// library opens the dictionary directory on first use.
func (e *env) library() (*geodict.Library, error) {
	if e.lib != nil {
		return e.lib, nil
	}
	policy, err := e.cfg.catalogPolicy()
	if err != nil {
		return nil, err
	}
	catOpts := []catalog.Option{catalog.WithPolicy(policy)}
	if e.cfg.Encrypt != nil {
		catOpts = append(catOpts, catalog.WithEncrypt(*e.cfg.Encrypt))
	}
	opts := []geodict.Option{
		geodict.WithLogger(e.log),
		geodict.WithCatalogOptions(catOpts...),
	}
	if len(e.cfg.Pivots) > 0 {
		opts = append(opts, geodict.WithPivots(e.cfg.Pivots...))
	}
	e.log.Debug("opening dictionaries", "dir", e.g.dir)
	e.lib = geodict.Open(e.g.dir, opts...)
	return e.lib, nil
}

func (e *env) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "%s\n", b)
	return err
}
