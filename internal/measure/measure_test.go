package measure

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestRunner_Success(t *testing.T) {
	logger, buf := bufferLogger()
	r := NewRunner("create_geometry", logger)

	r.InitialCondition("model has %d spaces", 0)
	r.Info("matched %d surfaces", 16)
	r.Warning("removed %d degenerate surfaces", 1)
	r.FinalCondition("model has %d spaces", 5)

	assert.Equal(t, Success, r.Result())
	require.NoError(t, r.Err())

	want := Report{
		Measure:          "create_geometry",
		Result:           Success,
		InitialCondition: "model has 0 spaces",
		FinalCondition:   "model has 5 spaces",
		Info:             []string{"matched 16 surfaces"},
		Warnings:         []string{"removed 1 degenerate surfaces"},
	}
	if diff := cmp.Diff(want, r.Report()); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "measure=create_geometry")
	assert.Contains(t, out, "initial condition")
}

func TestRunner_ErrorFails(t *testing.T) {
	r := NewRunner("m", slog.New(slog.DiscardHandler))
	r.NotApplicable("nothing to do")
	r.Error("bad %s", "input")

	assert.Equal(t, Fail, r.Result())
	require.EqualError(t, r.Err(), "m failed: bad input")
}

func TestRunner_NotApplicable(t *testing.T) {
	r := NewRunner("m", slog.New(slog.DiscardHandler))
	r.NotApplicable("no exterior walls")

	assert.Equal(t, NotApplicable, r.Result())
	assert.Equal(t, []string{"no exterior walls"}, r.Report().Info)
}

func TestRunner_ReportIsCopy(t *testing.T) {
	r := NewRunner("m", slog.New(slog.DiscardHandler))
	r.Info("a")
	rep := r.Report()
	rep.Info[0] = "changed"
	assert.Equal(t, "a", r.Report().Info[0])
}

func TestRun(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	rep, err := Run(context.Background(), "ok", logger, func(_ context.Context, r *Runner) error {
		r.Info("done")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Success, rep.Result)

	rep, err = Run(context.Background(), "broken", logger, func(_ context.Context, r *Runner) error {
		return errors.New("no weather file")
	})
	require.Error(t, err)
	assert.Equal(t, Fail, rep.Result)
	assert.Equal(t, []string{"no weather file"}, rep.Errors)
}
