package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/geodict/internal/logger"
	"github.com/samcharles93/geodict/pkg/defs"
	"github.com/samcharles93/geodict/pkg/dict"
)

func kindArg(cmd *cli.Command, i int) (defs.Kind, error) {
	if cmd.NArg() <= i {
		return 0, fmt.Errorf("dictionary kind is required (cs, dt, el, gx, gp)")
	}
	return defs.ParseKind(cmd.Args().Get(i))
}

func listCmd(e *env) *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:      "list",
		Usage:     "List the key names of a dictionary",
		ArgsUsage: "<kind>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print a JSON array", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			k, err := kindArg(cmd, 0)
			if err != nil {
				return err
			}
			lib, err := e.library()
			if err != nil {
				return err
			}
			names, err := lib.Catalog().Names(k)
			if err != nil {
				return err
			}
			if asJSON {
				if names == nil {
					names = []string{}
				}
				return e.printJSON(names)
			}
			for _, n := range names {
				_, _ = fmt.Fprintln(e.stdout, n)
			}
			return nil
		},
	}
}

func showCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print one record as JSON",
		ArgsUsage: "<kind> <name>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			k, err := kindArg(cmd, 0)
			if err != nil {
				return err
			}
			if cmd.NArg() < 2 {
				return fmt.Errorf("record name is required")
			}
			lib, err := e.library()
			if err != nil {
				return err
			}
			rec, err := lib.Catalog().Lookup(k, cmd.Args().Get(1))
			if err != nil {
				return err
			}
			return e.printJSON(rec)
		},
	}
}

func importCmd(e *env) *cli.Command {
	var install bool
	return &cli.Command{
		Name:      "import",
		Usage:     "Add or replace records from a JSON file (one object or an array)",
		ArgsUsage: "<kind> <file.json>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "install",
				Usage:       "write distribution records, bypassing protection",
				Destination: &install,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			k, err := kindArg(cmd, 0)
			if err != nil {
				return err
			}
			if cmd.NArg() < 2 {
				return fmt.Errorf("input file is required")
			}
			data, err := os.ReadFile(cmd.Args().Get(1))
			if err != nil {
				return err
			}
			recs, err := decodeRecords(k, data)
			if err != nil {
				return err
			}
			lib, err := e.library()
			if err != nil {
				return err
			}
			var errs []error
			for _, rec := range recs {
				write := lib.Update
				if install {
					write = lib.Install
				}
				res, err := write(rec)
				if err != nil {
					errs = append(errs, err)
					log.Warn("record rejected", "kind", k.String(), "name", rec.Key(), "error", err)
					continue
				}
				verb := "updated"
				if res == dict.Added {
					verb = "added"
				}
				_, _ = fmt.Fprintf(e.stdout, "%s %s\n", verb, rec.Key())
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d of %d records rejected: %w", len(errs), len(recs), errors.Join(errs...))
			}
			return nil
		},
	}
}

// decodeRecords accepts either a single JSON object or an array of them.
func decodeRecords(k defs.Kind, data []byte) ([]defs.Record, error) {
	data = bytes.TrimSpace(data)
	var raws []json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
	} else {
		raws = []json.RawMessage{data}
	}
	recs := make([]defs.Record, 0, len(raws))
	for i, raw := range raws {
		rec := k.New()
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(rec); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func deleteCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Remove a record",
		ArgsUsage: "<kind> <name>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			k, err := kindArg(cmd, 0)
			if err != nil {
				return err
			}
			if cmd.NArg() < 2 {
				return fmt.Errorf("record name is required")
			}
			lib, err := e.library()
			if err != nil {
				return err
			}
			name := cmd.Args().Get(1)
			if err := lib.Delete(k, name); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(e.stdout, "deleted %s\n", strings.TrimSpace(name))
			return nil
		},
	}
}

func verifyCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Check that every dictionary decodes and is sorted",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lib, err := e.library()
			if err != nil {
				return err
			}
			reports, err := lib.Catalog().Verify(ctx)
			for _, r := range reports {
				status := "ok"
				switch {
				case r.Missing:
					status = "missing"
				case r.Err != nil:
					status = "FAILED: " + r.Err.Error()
				}
				_, _ = fmt.Fprintf(e.stdout, "%-3s %6d  %s  %s\n", r.Kind, r.Records, r.Path, status)
			}
			return err
		},
	}
}
