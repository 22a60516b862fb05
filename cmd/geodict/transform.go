package main

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/geodict/internal/logger"
	"github.com/samcharles93/geodict/pkg/convert"
)

func indexCmd(e *env) *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:  "index",
		Usage: "Dump the geodetic transformation index",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lib, err := e.library()
			if err != nil {
				return err
			}
			ix, err := lib.Index()
			if err != nil {
				return err
			}
			if asJSON {
				return e.printJSON(ix.Entries())
			}
			for _, en := range ix.Entries() {
				dir := "->"
				if en.Inverse {
					dir = "<>"
				}
				_, _ = fmt.Fprintf(e.stdout, "%-40s %s %s %s  %-18s %8.3fm  [%g %g, %g %g]\n",
					en.Name, en.Source, dir, en.Target, en.Method, en.Accuracy,
					en.Bounds.Min.Lon(), en.Bounds.Min.Lat(), en.Bounds.Max.Lon(), en.Bounds.Max.Lat())
			}
			return nil
		},
	}
}

func bridgeCmd(e *env) *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:      "bridge",
		Usage:     "Show the chain of transformations between two datums",
		ArgsUsage: "<source datum> <target datum>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 2 {
				return fmt.Errorf("source and target datums are required")
			}
			lib, err := e.library()
			if err != nil {
				return err
			}
			br, err := lib.BuildBridge(cmd.Args().Get(0), cmd.Args().Get(1))
			if err != nil {
				return err
			}
			if asJSON {
				return e.printJSON(struct {
					Source string `json:"source"`
					Target string `json:"target"`
					Steps  any    `json:"steps"`
				}{br.Source, br.Target, br.Steps()})
			}
			_, _ = fmt.Fprintln(e.stdout, br.String())
			return nil
		},
	}
}

func convertCmd(e *env) *cli.Command {
	var (
		src, trg string
		threeD   bool
		pf       policyFlags
	)
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert coordinates between datums (reads \"lng lat [hgt]\" lines from stdin without arguments)",
		ArgsUsage: "[lng lat [hgt]]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "src", Usage: "source datum or coordinate system", Required: true, Destination: &src},
			&cli.StringFlag{Name: "trg", Usage: "target datum or coordinate system", Required: true, Destination: &trg},
			&cli.BoolFlag{Name: "3d", Usage: "carry ellipsoid heights through the conversion", Destination: &threeD},
		}, conversionPolicyFlags(&pf)...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			policy, err := pf.policy(cmd, e.cfg)
			if err != nil {
				return err
			}
			lib, err := e.library()
			if err != nil {
				return err
			}
			conv, err := lib.SetupConversion(src, trg, policy)
			if err != nil {
				return err
			}
			defer lib.ReleaseConversion(conv)

			var points []convert.Coord
			if cmd.NArg() > 0 {
				p, err := parseCoord(cmd.Args().Slice())
				if err != nil {
					return err
				}
				points = append(points, p)
			} else {
				sc := bufio.NewScanner(e.stdin)
				for line := 1; sc.Scan(); line++ {
					text := strings.TrimSpace(sc.Text())
					if text == "" || strings.HasPrefix(text, "#") {
						continue
					}
					p, err := parseCoord(strings.Fields(text))
					if err != nil {
						return fmt.Errorf("line %d: %w", line, err)
					}
					points = append(points, p)
				}
				if err := sc.Err(); err != nil {
					return err
				}
			}

			failed := 0
			for _, p := range points {
				out, st := conv.Convert(p, threeD)
				var line string
				if threeD {
					line = fmt.Sprintf("%.9f %.9f %.4f", out.Lng, out.Lat, out.Hgt)
				} else {
					line = fmt.Sprintf("%.9f %.9f", out.Lng, out.Lat)
				}
				if st != convert.StatusOK {
					line += " # " + st.String()
				}
				if st.Hard() {
					failed++
				}
				_, _ = fmt.Fprintln(e.stdout, line)
			}
			if locs := conv.Locations(); len(locs) > 0 {
				log.Info("points outside transformation coverage", "locations", len(locs))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d points failed", failed, len(points))
			}
			return nil
		},
	}
}

func parseCoord(fields []string) (convert.Coord, error) {
	if len(fields) < 2 || len(fields) > 3 {
		return convert.Coord{}, fmt.Errorf("expected lng lat [hgt], got %d values", len(fields))
	}
	var v [3]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return convert.Coord{}, fmt.Errorf("coordinate %q: %w", f, err)
		}
		v[i] = x
	}
	return convert.Coord{Lng: v[0], Lat: v[1], Hgt: v[2]}, nil
}
