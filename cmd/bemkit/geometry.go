package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/building-energy-toolkit/internal/geometry"
	"github.com/couchcryptid/building-energy-toolkit/internal/measure"
	"github.com/couchcryptid/building-energy-toolkit/internal/model"
)

type geometryOutput struct {
	Model  string         `json:"model,omitempty"`
	Report measure.Report `json:"report"`
}

func runGeometry(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("geometry")
	kind := fs.StringP("shape", "s", "rectangle", "wizard: "+strings.Join(geometry.ShapeKinds, ", "))
	params := fs.StringP("params", "p", "", `shape dimensions as YAML or JSON, e.g. "{length: 40, width: 20, perimeter_depth: 4}"`)
	name := fs.StringP("name", "n", "", "model name (default: the shape kind)")
	stories := geometry.DefaultStories()
	fs.IntVar(&stories.AboveGrade, "stories", stories.AboveGrade, "above-grade stories")
	fs.IntVar(&stories.BelowGrade, "basements", stories.BelowGrade, "below-grade stories")
	fs.Float64Var(&stories.FloorToFloor, "floor-to-floor", stories.FloorToFloor, "story height in metres")
	fs.Float64Var(&stories.PlenumHeight, "plenum", stories.PlenumHeight, "plenum height in metres")
	fs.Float64Var(&stories.InitialHeight, "initial-height", stories.InitialHeight, "elevation of the first above-grade floor")
	fs.Float64Var(&stories.Rotation, "rotation", stories.Rotation, "rotation of the vertices in degrees")
	northAxis := fs.Float64("north-axis", 0, "model north axis in degrees, applied on top of the vertex rotation")
	wwr := fs.Float64("wwr", model.DefaultEnvelope.WindowToWallRatio, "window-to-wall ratio")
	fs.StringVar(&e.cfg.WorkDir, "work-dir", e.cfg.WorkDir, "directory for the model file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *params == "" {
		return errors.New("--params is required")
	}
	if *name == "" {
		*name = *kind
	}

	shape, err := geometry.NewShape(*kind)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal([]byte(*params), shape); err != nil {
		return fmt.Errorf("shape %s: %w", *kind, err)
	}

	var m *model.Model
	rep, err := measure.Run(ctx, "create_"+shape.Kind(), e.logger, func(_ context.Context, r *measure.Runner) error {
		r.InitialCondition("empty model")
		b, err := geometry.Build(shape, stories)
		if err != nil {
			return err
		}
		built := b.Summary()
		r.Info("built %d stories, %d spaces, %d surfaces", built.Stories, built.Spaces, built.Surfaces)
		r.Info("matched %d interior surface pairs", built.MatchedSurfaces/2)

		for _, w := range b.RemoveInvalid() {
			r.Warning("%s", w)
		}
		checkConsistency(r, b, built)

		m = model.New(*name, b)
		m.NorthAxis = *northAxis
		m.Envelope.WindowToWallRatio = *wwr
		windows, err := m.ApplyEnvelope()
		if err != nil {
			return err
		}
		sum := b.Summary()
		r.FinalCondition("%d spaces, %.1f m2 floor area, %d windows at %.2f window-to-wall ratio",
			sum.Spaces, sum.FloorArea, windows, sum.WindowToWallRatio())
		return nil
	})
	if err != nil {
		_ = writeJSON(e.stdout, geometryOutput{Report: rep})
		return err
	}

	path, err := m.Save(e.cfg.WorkDir)
	if err != nil {
		return err
	}
	return writeJSON(e.stdout, geometryOutput{Model: path, Report: rep})
}

// checkConsistency compares the cleaned building against what the wizard
// produced. Differences only warn.
func checkConsistency(r *measure.Runner, b *geometry.Building, built geometry.Summary) {
	after := b.Summary()
	if after.Spaces != built.Spaces {
		r.Warning("space count changed from %d to %d during cleanup", built.Spaces, after.Spaces)
	}
	if after.Surfaces != built.Surfaces {
		r.Warning("surface count changed from %d to %d during cleanup", built.Surfaces, after.Surfaces)
	}
	want := b.FootprintArea * float64(len(b.Stories))
	if math.Abs(after.FloorArea-want) > 0.01 {
		r.Warning("floor area %.2f m2 does not match footprint area %.2f m2 over %d stories",
			after.FloorArea, b.FootprintArea, len(b.Stories))
	}
}
