package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/geodict/pkg/convert"
)

const envGeodictDir = "GEODICT_DIR"

type globals struct {
	dir       string
	config    string
	logLevel  string
	logFormat string
	debug     bool
}

func globalFlags(g *globals) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "dir",
			Aliases:     []string{"d"},
			Usage:       "dictionary directory",
			Value:       ".",
			Sources:     cli.EnvVars(envGeodictDir),
			Destination: &g.dir,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: $XDG_CONFIG_HOME/geodict/config.yaml)",
			Destination: &g.config,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "warn",
			Destination: &g.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &g.logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &g.debug,
		},
	}
}

type policyFlags struct {
	block      string
	maxErrors  int64
	resolution float64
}

func conversionPolicyFlags(p *policyFlags) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "block",
			Usage:       "soft failure handling (ignore, warn-once, warn-always, fatal)",
			Value:       convert.DefaultPolicy.Block.String(),
			Destination: &p.block,
		},
		&cli.Int64Flag{
			Name:        "max-errors",
			Usage:       "distinct soft failure locations tolerated before fatal mode fails",
			Value:       int64(convert.DefaultPolicy.MaxErrors),
			Destination: &p.maxErrors,
		},
		&cli.Float64Flag{
			Name:        "resolution",
			Usage:       "degrees within which soft failures count as one location",
			Value:       convert.DefaultPolicy.Resolution,
			Destination: &p.resolution,
		},
	}
}

// policy merges config defaults with flags, flags winning when set.
func (p *policyFlags) policy(cmd *cli.Command, cfg Config) (convert.Policy, error) {
	pol, err := cfg.Conversion.policy()
	if err != nil {
		return pol, err
	}
	if cmd.IsSet("block") {
		if pol.Block, err = convert.ParseBlockMode(p.block); err != nil {
			return pol, err
		}
	}
	if cmd.IsSet("max-errors") {
		pol.MaxErrors = int(p.maxErrors)
	}
	if cmd.IsSet("resolution") {
		pol.Resolution = p.resolution
	}
	return pol, nil
}
