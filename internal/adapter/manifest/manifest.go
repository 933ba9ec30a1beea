// Package manifest dispatches simulation jobs by writing a YAML manifest next
// to the model files, for run managers that poll a working directory.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/building-energy-toolkit/internal/config"
	"github.com/couchcryptid/building-energy-toolkit/internal/domain"
)

// FileName is the manifest file name inside a study directory.
const FileName = "manifest.yaml"

// Manifest lists the jobs of one study.
type Manifest struct {
	Study     string       `yaml:"study"`
	CreatedAt time.Time    `yaml:"created_at"`
	Jobs      []domain.Job `yaml:"jobs"`
}

// Writer implements parametric.RunManager.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a manifest writer.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// Name implements parametric.RunManager.
func (w *Writer) Name() string { return config.DispatchManifest }

// Dispatch writes the manifest into the directory of the first job's model
// file, replacing any previous manifest there. All jobs must belong to the
// same study.
func (w *Writer) Dispatch(ctx context.Context, jobs []domain.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	study := jobs[0].Study
	for _, j := range jobs[1:] {
		if j.Study != study {
			return fmt.Errorf("manifest: jobs span studies %s and %s", study, j.Study)
		}
	}
	if jobs[0].ModelPath == "" {
		return errors.New("manifest: job has no model path")
	}

	m := Manifest{Study: study, CreatedAt: domain.Now(), Jobs: jobs}
	path := filepath.Join(filepath.Dir(jobs[0].ModelPath), FileName)
	if err := Write(path, m); err != nil {
		return err
	}
	w.logger.Info("manifest written", "path", path, "jobs", len(jobs))
	return nil
}

// Write encodes m to path through a temporary file so readers never see a
// partial manifest.
func Write(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*.yaml")
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Read decodes a manifest file.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return &m, nil
}
