package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/geodict/internal/api"
	"github.com/samcharles93/geodict/internal/logger"
	"github.com/samcharles93/geodict/internal/watch"
)

func serveCmd(e *env) *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		noWatch     bool
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.BoolFlag{
				Name:        "no-watch",
				Usage:       "do not reload dictionaries changed on disk",
				Destination: &noWatch,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if e.cfg.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = e.cfg.ServerAddress
			}
			lib, err := e.library()
			if err != nil {
				return err
			}

			if !noWatch {
				w, err := watch.New(e.g.dir, lib, watch.WithLogger(log))
				if err != nil {
					return err
				}
				if err := w.Start(ctx); err != nil {
					log.Warn("dictionary watcher disabled", "dir", e.g.dir, "error", err)
				}
				defer func() { _ = w.Stop() }()
			}

			server := api.NewServer(lib, api.NewConversionStore(), log)
			defer func() { _ = server.Close() }()

			ec := echo.New()
			ec.Use(middleware.RequestLogger())
			ec.Use(middleware.Recover())
			server.Register(ec)
			log.Info("starting server", "address", addr, "dir", e.g.dir)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, ec)
		},
	}
}
