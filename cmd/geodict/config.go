package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/geodict/pkg/catalog"
	"github.com/samcharles93/geodict/pkg/convert"
)

// Config represents the geodict configuration file
// (~/.config/geodict/config.yaml). Pointer fields distinguish "not set" from
// zero values.
type Config struct {
	Dir       string `yaml:"dir"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Dictionary maintenance
	Protect *int   `yaml:"protect"`
	Unique  string `yaml:"unique"`
	Encrypt *bool  `yaml:"encrypt"`

	// Bridge building
	Pivots []string `yaml:"pivots"`

	Conversion ConversionConfig `yaml:"conversion"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

type ConversionConfig struct {
	Block      string   `yaml:"block"`
	MaxErrors  *int     `yaml:"max_errors"`
	Resolution *float64 `yaml:"resolution"`
}

func (c ConversionConfig) policy() (convert.Policy, error) {
	p := convert.DefaultPolicy
	if c.Block != "" {
		b, err := convert.ParseBlockMode(c.Block)
		if err != nil {
			return p, fmt.Errorf("config: conversion.block: %w", err)
		}
		p.Block = b
	}
	if c.MaxErrors != nil {
		p.MaxErrors = *c.MaxErrors
	}
	if c.Resolution != nil {
		p.Resolution = *c.Resolution
	}
	return p, nil
}

// catalogPolicy returns the protection policy the config asks for.
func (c Config) catalogPolicy() (catalog.Policy, error) {
	var p catalog.Policy
	if c.Protect != nil {
		p.Protect = *c.Protect
	}
	if c.Unique != "" {
		r, size := utf8.DecodeRuneInString(c.Unique)
		if size != len(c.Unique) || r >= utf8.RuneSelf {
			return p, fmt.Errorf("config: unique must be a single ASCII character, got %q", c.Unique)
		}
		p.Unique = r
	}
	return p, nil
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "geodict", "config.yaml")
}

// applyGlobalConfig applies config file defaults to global flags that were
// not explicitly set.
func applyGlobalConfig(c *cli.Command, cfg Config, g *globals) {
	if cfg.Dir != "" && !c.IsSet("dir") {
		g.dir = cfg.Dir
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		g.logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		g.logFormat = cfg.LogFormat
	}
}

// LoadConfig reads the config file at path. A missing file yields a zero
// Config; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
