package parametric

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/building-energy-toolkit/internal/domain"
	"github.com/couchcryptid/building-energy-toolkit/internal/observability"
	"github.com/couchcryptid/building-energy-toolkit/internal/weather"
)

// WeatherSource resolves the weather file named by a study.
type WeatherSource interface {
	Get(name string) (*weather.WeatherFile, error)
}

// RunManager hands simulation jobs to whatever executes them.
type RunManager interface {
	// Name labels the manager in logs and metrics.
	Name() string
	Dispatch(ctx context.Context, jobs []domain.Job) error
}

type readinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Result describes one run of a study.
type Result struct {
	Study     string       `json:"study"`
	Dir       string       `json:"dir"`
	BaseModel string       `json:"base_model"`
	Jobs      []domain.Job `json:"jobs"`
}

// Driver expands studies into model variants and dispatches them.
type Driver struct {
	workDir     string
	weather     WeatherSource
	manager     RunManager
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	maxAttempts int
}

// New creates a Driver writing models below workDir. weather may be nil for
// studies that name no weather file.
func New(workDir string, weather WeatherSource, manager RunManager, logger *slog.Logger, metrics *observability.Metrics) *Driver {
	return &Driver{
		workDir:     workDir,
		weather:     weather,
		manager:     manager,
		logger:      logger,
		metrics:     metrics,
		maxAttempts: 3,
	}
}

// CheckReadiness returns nil once the run manager is reachable.
func (d *Driver) CheckReadiness(ctx context.Context) error {
	if d.manager == nil {
		return errors.New("no run manager configured")
	}
	if rc, ok := d.manager.(readinessChecker); ok {
		return rc.CheckReadiness(ctx)
	}
	return nil
}

// Dispatched reports whether at least one study has been dispatched.
func (d *Driver) Dispatched() bool { return d.ready.Load() }

// StudyDir is the directory holding the models of a study. Names that would
// resolve outside the work directory are rejected.
func (d *Driver) StudyDir(study string) (string, error) {
	if !ValidStudyName(study) {
		return "", fmt.Errorf("%w: unsafe study name %q", ErrInvalidStudy, study)
	}
	dir := filepath.Join(d.workDir, study)
	rel, err := filepath.Rel(d.workDir, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: study %q escapes work directory", ErrInvalidStudy, study)
	}
	return dir, nil
}

// Run builds the base model of s, writes one model file per variant and
// dispatches the resulting jobs. Variants are expanded in order; cancellation
// is checked between variants.
func (d *Driver) Run(ctx context.Context, s *Study) (*Result, error) {
	d.metrics.StudyRunning.Set(1)
	defer d.metrics.StudyRunning.Set(0)

	res, err := d.run(ctx, s)
	if err != nil {
		d.metrics.StudiesRun.WithLabelValues("error").Inc()
		d.logger.Error("study failed", "study", s.Name, "error", err)
		return nil, err
	}
	d.metrics.StudiesRun.WithLabelValues("success").Inc()
	d.ready.Store(true)
	d.logger.Info("study dispatched", "study", s.Name, "jobs", len(res.Jobs), "manager", d.manager.Name())
	return res, nil
}

func (d *Driver) run(ctx context.Context, s *Study) (*Result, error) {
	if d.manager == nil {
		return nil, errors.New("no run manager configured")
	}

	var wf *weather.WeatherFile
	if s.Weather != "" {
		if d.weather == nil {
			return nil, fmt.Errorf("study %s names weather %s but no weather library is configured", s.Name, s.Weather)
		}
		var err error
		if wf, err = d.weather.Get(s.Weather); err != nil {
			return nil, fmt.Errorf("study %s: %w", s.Name, err)
		}
	}

	dir, err := d.StudyDir(s.Name)
	if err != nil {
		return nil, err
	}
	base, err := s.BaseModel(wf)
	if err != nil {
		return nil, fmt.Errorf("study %s: %w", s.Name, err)
	}
	basePath, err := base.Save(dir)
	if err != nil {
		return nil, err
	}
	d.logger.Info("base model written", "study", s.Name, "path", basePath)

	variants, err := s.Variants(base)
	if err != nil {
		return nil, fmt.Errorf("study %s: %w", s.Name, err)
	}

	jobs := make([]domain.Job, 0, len(variants))
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("study %s: %w", s.Name, err)
		}
		path, err := v.Model.Save(dir)
		if err != nil {
			return nil, err
		}
		job := domain.NewJob(v.ID, s.Name, v.Name)
		job.Analysis = v.Analysis
		job.Parameter = v.Parameter
		job.Value = v.Value
		job.ModelPath = path
		if wf != nil {
			job.WeatherFile = wf.EPWPath
		}
		jobs = append(jobs, job)
		d.metrics.VariantsGenerated.WithLabelValues(v.Analysis).Inc()
		d.logger.Debug("variant written", "variant", v.Name, "parameter", v.Parameter, "value", v.Value)
	}

	if err := d.dispatch(ctx, jobs); err != nil {
		return nil, fmt.Errorf("study %s: %w", s.Name, err)
	}
	return &Result{Study: s.Name, Dir: dir, BaseModel: basePath, Jobs: jobs}, nil
}

// dispatch hands the job list to the run manager, backing off between
// failed attempts.
func (d *Driver) dispatch(ctx context.Context, jobs []domain.Job) error {
	name := d.manager.Name()
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		start := time.Now()
		err = d.manager.Dispatch(ctx, jobs)
		d.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			d.metrics.JobsDispatched.WithLabelValues(name, "success").Add(float64(len(jobs)))
			return nil
		}
		d.logger.Warn("dispatch failed", "manager", name, "attempt", attempt, "error", err)
		if attempt == d.maxAttempts || !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	d.metrics.JobsDispatched.WithLabelValues(name, "error").Add(float64(len(jobs)))
	return fmt.Errorf("dispatch %d jobs via %s: %w", len(jobs), name, err)
}
