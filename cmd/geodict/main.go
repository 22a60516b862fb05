package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	e := &env{stdin: stdin, stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name:      "geodict",
		Usage:     "Geodetic dictionary maintenance and datum conversion",
		Flags:     globalFlags(&e.g),
		Before:    e.before,
		After:     e.after,
		Writer:    stdout,
		ErrWriter: stderr,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			listCmd(e),
			showCmd(e),
			importCmd(e),
			deleteCmd(e),
			verifyCmd(e),
			indexCmd(e),
			bridgeCmd(e),
			convertCmd(e),
			serveCmd(e),
			versionCmd(e),
		},
	}
}
