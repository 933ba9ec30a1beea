package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/building-energy-toolkit/internal/report"
	"github.com/couchcryptid/building-energy-toolkit/internal/results"
)

func runResults(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("results")
	out := fs.StringP("out", "o", "", `CSV path, "-" for stdout (default: timestamped file in the run directory)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: bemkit results [flags] RUN_DIR")
	}
	dir := fs.Arg(0)

	rows, skipped, err := results.Collect(ctx, dir, e.logger)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no %s files with annual results below %s", results.SQLFileName, dir)
	}
	e.logger.Info("results collected", "runs", len(rows), "skipped", len(skipped))

	if *out == "-" {
		return report.WriteAnnualResults(e.stdout, rows)
	}
	path := *out
	if path == "" {
		path = report.StampedPath(dir, "annual_results")
	}
	if err := report.WriteFile(path, func(w io.Writer) error {
		return report.WriteAnnualResults(w, rows)
	}); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, path)
	return nil
}
