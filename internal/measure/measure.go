// Package measure records the outcome of a model-editing command: an initial
// condition, informational and warning messages, errors, and a final
// condition. Every message is mirrored to the logger as it is recorded.
package measure

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Result is the overall outcome of a run.
type Result string

// Results.
const (
	Success       Result = "Success"
	Fail          Result = "Fail"
	NotApplicable Result = "NA"
)

// Runner collects the messages of one measure.
type Runner struct {
	name   string
	logger *slog.Logger

	initial       string
	final         string
	info          []string
	warnings      []string
	errors        []string
	notApplicable bool
}

// NewRunner creates a runner for the named measure.
func NewRunner(name string, logger *slog.Logger) *Runner {
	return &Runner{name: name, logger: logger.With("measure", name)}
}

// Name returns the measure name.
func (r *Runner) Name() string { return r.name }

// InitialCondition records the state of the model before the measure.
func (r *Runner) InitialCondition(format string, args ...any) {
	r.initial = fmt.Sprintf(format, args...)
	r.logger.Info("initial condition", "message", r.initial)
}

// FinalCondition records the state of the model after the measure.
func (r *Runner) FinalCondition(format string, args ...any) {
	r.final = fmt.Sprintf(format, args...)
	r.logger.Info("final condition", "message", r.final)
}

// Info records an informational message.
func (r *Runner) Info(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.info = append(r.info, msg)
	r.logger.Info(msg)
}

// Warning records a warning. Warnings do not fail the measure.
func (r *Runner) Warning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.warnings = append(r.warnings, msg)
	r.logger.Warn(msg)
}

// Error records an error and fails the measure.
func (r *Runner) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.errors = append(r.errors, msg)
	r.logger.Error(msg)
}

// NotApplicable marks the measure as having nothing to do.
func (r *Runner) NotApplicable(format string, args ...any) {
	r.notApplicable = true
	r.Info(format, args...)
}

// Result is Fail after any error, NotApplicable when marked so, Success otherwise.
func (r *Runner) Result() Result {
	switch {
	case len(r.errors) > 0:
		return Fail
	case r.notApplicable:
		return NotApplicable
	}
	return Success
}

// Report is a snapshot of a runner.
type Report struct {
	Measure          string   `json:"measure"`
	Result           Result   `json:"result"`
	InitialCondition string   `json:"initial_condition,omitempty"`
	FinalCondition   string   `json:"final_condition,omitempty"`
	Info             []string `json:"info,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
	Errors           []string `json:"errors,omitempty"`
}

// Report returns a copy of everything recorded so far.
func (r *Runner) Report() Report {
	return Report{
		Measure:          r.name,
		Result:           r.Result(),
		InitialCondition: r.initial,
		FinalCondition:   r.final,
		Info:             append([]string(nil), r.info...),
		Warnings:         append([]string(nil), r.warnings...),
		Errors:           append([]string(nil), r.errors...),
	}
}

// Err returns an error summarising recorded errors, or nil.
func (r *Runner) Err() error {
	if len(r.errors) == 0 {
		return nil
	}
	return fmt.Errorf("%s failed: %s", r.name, strings.Join(r.errors, "; "))
}

// Run executes fn as a measure. An error returned by fn is recorded on the
// runner; the returned error is non-nil whenever the measure failed.
func Run(ctx context.Context, name string, logger *slog.Logger, fn func(ctx context.Context, r *Runner) error) (Report, error) {
	r := NewRunner(name, logger)
	if err := fn(ctx, r); err != nil {
		r.Error("%v", err)
	}
	return r.Report(), r.Err()
}
