// Command bemkit prepares building energy models: it indexes weather
// libraries, builds parametric geometry, expands sensitivity and elimination
// studies into simulation jobs, and aggregates annual results. The serve
// command exposes the same operations over HTTP.
//
// Usage:
//
//	bemkit <command> [flags]
//
// Settings come from the environment (see internal/config); command flags
// override them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/couchcryptid/building-energy-toolkit/internal/config"
	"github.com/couchcryptid/building-energy-toolkit/internal/observability"
)

type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	stdout  io.Writer
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = []command{
	{"weather", "write the climate index CSV of a weather library", runWeather},
	{"nearest", "find the library weather file closest to a site", runNearest},
	{"geometry", "build a zoned building from a shape wizard", runGeometry},
	{"study", "expand a parametric study and dispatch its jobs", runStudy},
	{"results", "aggregate annual results of a run directory", runResults},
	{"serve", "serve the HTTP API", runServe},
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(os.Stderr)
		return 2
	}
	cmd, ok := lookup(args[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "bemkit: unknown command %q\n\n", args[0])
		usage(os.Stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	e := &env{
		cfg:     cfg,
		logger:  observability.NewLogger(cfg),
		metrics: observability.NewMetrics(),
		stdout:  os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, e, args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		e.logger.Error(cmd.name+" failed", "error", err)
		return 1
	}
	return 0
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: bemkit <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'bemkit <command> --help' for command flags.")
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("bemkit "+name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}
