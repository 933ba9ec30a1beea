package parametric

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/building-energy-toolkit/internal/domain"
	"github.com/couchcryptid/building-energy-toolkit/internal/geometry"
	"github.com/couchcryptid/building-energy-toolkit/internal/model"
	"github.com/couchcryptid/building-energy-toolkit/internal/observability"
	"github.com/couchcryptid/building-energy-toolkit/internal/weather"
)

// --- mocks ---

type mockManager struct {
	jobs  [][]domain.Job
	errs  []error
	calls int
}

func (m *mockManager) Name() string { return "mock" }

func (m *mockManager) Dispatch(_ context.Context, jobs []domain.Job) error {
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return err
		}
	}
	m.jobs = append(m.jobs, jobs)
	return nil
}

type mockWeather map[string]*weather.WeatherFile

func (m mockWeather) Get(name string) (*weather.WeatherFile, error) {
	wf, ok := m[name]
	if !ok {
		return nil, weather.ErrNotFound
	}
	return wf, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func baseModel(t *testing.T) *model.Model {
	t.Helper()
	b, err := geometry.Rectangle(geometry.RectangleParams{Length: 20, Width: 10, PerimeterDepth: 3}, geometry.DefaultStories())
	require.NoError(t, err)
	m := model.New("office", b)
	_, err = m.ApplyEnvelope()
	require.NoError(t, err)
	return m
}

const studyYAML = `
name: office
shape:
  kind: rectangle
  params: {length: 20, width: 10, perimeter_depth: 3}
stories: {above_grade: 2, floor_to_floor: 3.5}
weather: chicago
loads: {lighting_power_density: 9}
analyses:
  - type: sensitivity
    parameter: lighting_power_density
    values: [5, 12]
  - type: elimination
    parameters: [window_shgc, infiltration_ach]
`

// --- registry ---

func TestNames_Registered(t *testing.T) {
	assert.Equal(t, []string{
		"cooling_cop",
		"equipment_power_density",
		"heating_efficiency",
		"infiltration_ach",
		"lighting_power_density",
		"north_axis",
		"occupant_density",
		"roof_u_value",
		"wall_u_value",
		"window_shgc",
		"window_to_wall_ratio",
		"window_u_value",
	}, Names())
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("roof_albedo")
	require.ErrorIs(t, err, ErrUnknownParameter)
}

func TestParameter_GetSet(t *testing.T) {
	m := baseModel(t)
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p, err := Lookup(name)
			require.NoError(t, err)
			require.NoError(t, p.Set(m, p.Eliminated))
			assert.InDelta(t, p.Eliminated, p.Get(m), 1e-12)
		})
	}
}

func TestParameter_SetOutOfRange(t *testing.T) {
	p, err := Lookup("window_shgc")
	require.NoError(t, err)
	require.ErrorIs(t, p.Set(baseModel(t), 1.5), ErrOutOfRange)
	require.ErrorIs(t, p.Set(baseModel(t), math.NaN()), ErrOutOfRange)
}

func TestParameter_WindowToWallRatioRedrawsWindows(t *testing.T) {
	m := baseModel(t)
	p, err := Lookup("window_to_wall_ratio")
	require.NoError(t, err)

	require.NoError(t, p.Set(m, 0.5))
	assert.InDelta(t, 0.5, m.Building.Summary().WindowToWallRatio(), 1e-9)

	require.NoError(t, p.Set(m, 0))
	assert.Zero(t, m.Building.Summary().SubSurfaces)
}

// --- variants ---

func TestSensitivity(t *testing.T) {
	base := baseModel(t)
	variants, err := Sensitivity(base, "wall_u_value", []float64{0.2, 0.35, 1})
	require.NoError(t, err)
	require.Len(t, variants, 3)

	names := make([]string, len(variants))
	for i, v := range variants {
		names[i] = v.Name
		assert.Equal(t, "sensitivity", v.Analysis)
		assert.Equal(t, "wall_u_value", v.Parameter)
		assert.Equal(t, v.Name, v.Model.Name)
		assert.InDelta(t, v.Value, v.Model.Envelope.WallUValue, 1e-12)
	}
	assert.Equal(t, []string{"office_wall_u_value_0.2", "office_wall_u_value_0.35", "office_wall_u_value_1"}, names)
	assert.NotEqual(t, variants[0].ID, variants[1].ID)

	// base untouched
	assert.InDelta(t, model.DefaultEnvelope.WallUValue, base.Envelope.WallUValue, 1e-12)
	assert.Equal(t, "office", base.Name)
}

func TestSensitivity_VariantsAreIndependent(t *testing.T) {
	base := baseModel(t)
	variants, err := Sensitivity(base, "north_axis", []float64{0, 90})
	require.NoError(t, err)

	variants[0].Model.Building.Stories[0].Spaces[0].Name = "renamed"
	assert.NotEqual(t, "renamed", variants[1].Model.Building.Stories[0].Spaces[0].Name)
	assert.NotEqual(t, "renamed", base.Building.Stories[0].Spaces[0].Name)
}

func TestSensitivity_Errors(t *testing.T) {
	base := baseModel(t)

	_, err := Sensitivity(base, "lighting_power_density", nil)
	require.ErrorIs(t, err, ErrInvalidStudy)

	_, err = Sensitivity(base, "nope", []float64{1})
	require.ErrorIs(t, err, ErrUnknownParameter)

	_, err = Sensitivity(base, "lighting_power_density", []float64{5, 5})
	require.ErrorIs(t, err, ErrInvalidStudy)
	assert.Contains(t, err.Error(), "duplicate")

	_, err = Sensitivity(base, "window_shgc", []float64{0.3, 2})
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestElimination(t *testing.T) {
	base := baseModel(t)
	variants, err := Elimination(base, []string{"lighting_power_density", "cooling_cop", "window_to_wall_ratio"})
	require.NoError(t, err)
	require.Len(t, variants, 3)

	assert.Equal(t, "office_lighting_power_density_0", variants[0].Name)
	assert.Zero(t, variants[0].Model.Loads.LightingPowerDensity)
	assert.InDelta(t, model.DefaultLoads.EquipmentPowerDensity, variants[0].Model.Loads.EquipmentPowerDensity, 1e-12)

	assert.Equal(t, "office_cooling_cop_100", variants[1].Name)
	assert.InDelta(t, 100.0, variants[1].Model.HVAC.CoolingCOP, 1e-12)

	assert.Zero(t, variants[2].Model.Building.Summary().WindowArea)
	assert.Positive(t, base.Building.Summary().WindowArea)
}

func TestElimination_Errors(t *testing.T) {
	base := baseModel(t)

	_, err := Elimination(base, nil)
	require.Error(t, err)

	_, err = Elimination(base, []string{"window_shgc", "window_shgc"})
	require.ErrorIs(t, err, ErrInvalidStudy)

	_, err = Elimination(base, []string{"bogus"})
	require.ErrorIs(t, err, ErrUnknownParameter)
}

// --- study ---

func TestParseStudy(t *testing.T) {
	s, err := ParseStudy([]byte(studyYAML))
	require.NoError(t, err)

	assert.Equal(t, "office", s.Name)
	assert.Equal(t, "rectangle", s.Shape.Kind)
	assert.Equal(t, 2, s.Stories.AboveGrade)
	assert.InDelta(t, 3.5, s.Stories.FloorToFloor, 1e-12)
	assert.InDelta(t, 9.0, s.Loads.LightingPowerDensity, 1e-12)
	assert.InDelta(t, model.DefaultLoads.EquipmentPowerDensity, s.Loads.EquipmentPowerDensity, 1e-12, "omitted keys keep defaults")
	assert.Equal(t, model.DefaultEnvelope, s.Envelope)
	require.Len(t, s.Analyses, 2)

	shape, err := s.Geometry()
	require.NoError(t, err)
	assert.Equal(t, &geometry.RectangleParams{Length: 20, Width: 10, PerimeterDepth: 3}, shape)
}

func TestParseStudy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "name: [unclosed"},
		{"no name", "shape: {kind: rectangle}\nanalyses: [{type: elimination, parameters: [north_axis]}]"},
		{"no analyses", "name: x\nshape: {kind: rectangle}"},
		{"bad analysis type", "name: x\nshape: {kind: rectangle}\nanalyses: [{type: optimization}]"},
		{"sensitivity without parameter", "name: x\nshape: {kind: rectangle}\nanalyses: [{type: sensitivity, values: [1]}]"},
		{"no shape kind", "name: x\nanalyses: [{type: elimination, parameters: [north_axis]}]"},
		{"parent dir name", "name: ..\nshape: {kind: rectangle}\nanalyses: [{type: elimination, parameters: [north_axis]}]"},
		{"dot name", "name: .\nshape: {kind: rectangle}\nanalyses: [{type: elimination, parameters: [north_axis]}]"},
		{"path in name", "name: ../../etc\nshape: {kind: rectangle}\nanalyses: [{type: elimination, parameters: [north_axis]}]"},
		{"space in name", "name: my office\nshape: {kind: rectangle}\nanalyses: [{type: elimination, parameters: [north_axis]}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStudy([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestStudy_GeometryErrors(t *testing.T) {
	s := &Study{Shape: ShapeSpec{Kind: "octagon"}}
	_, err := s.Geometry()
	require.ErrorIs(t, err, geometry.ErrUnknownShape)

	s = &Study{Shape: ShapeSpec{Kind: "rectangle"}}
	_, err = s.Geometry()
	require.Error(t, err)
}

func TestStudy_BaseModelInvalidShape(t *testing.T) {
	s, err := ParseStudy([]byte(`
name: bad
shape: {kind: rectangle, params: {length: 10, width: 4, perimeter_depth: 3}}
analyses: [{type: elimination, parameters: [north_axis]}]
`))
	require.NoError(t, err)
	_, err = s.BaseModel(nil)
	require.ErrorIs(t, err, geometry.ErrInvalidShape)
}

func TestStudy_VariantNameClash(t *testing.T) {
	s, err := ParseStudy([]byte(`
name: clash
shape: {kind: rectangle, params: {length: 20, width: 10}}
analyses:
  - {type: sensitivity, parameter: window_shgc, values: [0, 0.4]}
  - {type: elimination, parameters: [window_shgc]}
`))
	require.NoError(t, err)
	base, err := s.BaseModel(nil)
	require.NoError(t, err)

	_, err = s.Variants(base)
	require.ErrorIs(t, err, ErrInvalidStudy)
	assert.Contains(t, err.Error(), "clash_window_shgc_0")
}

func TestLoadStudy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(studyYAML), 0o644))

	s, err := LoadStudy(path)
	require.NoError(t, err)
	assert.Equal(t, "office", s.Name)

	_, err = LoadStudy(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// --- driver ---

func newTestDriver(t *testing.T, mgr RunManager) (*Driver, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	src := mockWeather{"chicago": {
		EPWPath: "/weather/chicago.epw", City: "Chicago", Latitude: 41.98, Longitude: -87.92, TimeZone: -6,
	}}
	return New(t.TempDir(), src, mgr, testLogger(), metrics), metrics
}

func TestDriver_Run(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	defer domain.SetClock(nil)

	mgr := &mockManager{}
	d, metrics := newTestDriver(t, mgr)
	s, err := ParseStudy([]byte(studyYAML))
	require.NoError(t, err)

	res, err := d.Run(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, mgr.jobs, 1)
	jobs := mgr.jobs[0]
	require.Len(t, jobs, 4)
	assert.Equal(t, res.Jobs, jobs)

	want := []string{
		"office_lighting_power_density_5",
		"office_lighting_power_density_12",
		"office_window_shgc_0",
		"office_infiltration_ach_0",
	}
	for i, job := range jobs {
		assert.Equal(t, want[i], job.Variant)
		assert.Equal(t, "office", job.Study)
		assert.Equal(t, "/weather/chicago.epw", job.WeatherFile)
		assert.Equal(t, fixed, job.CreatedAt)
		assert.Equal(t, filepath.Join(res.Dir, want[i]+".json"), job.ModelPath)

		m, err := model.Load(job.ModelPath)
		require.NoError(t, err)
		assert.Equal(t, job.Variant, m.Name)
		assert.Equal(t, "Chicago", m.Site.Name)
	}

	base, err := model.Load(res.BaseModel)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, base.Loads.LightingPowerDensity, 1e-12)

	assert.InDelta(t, 2.0, counterValue(t, metrics.VariantsGenerated.WithLabelValues("sensitivity")), 1e-9)
	assert.InDelta(t, 2.0, counterValue(t, metrics.VariantsGenerated.WithLabelValues("elimination")), 1e-9)
	assert.InDelta(t, 4.0, counterValue(t, metrics.JobsDispatched.WithLabelValues("mock", "success")), 1e-9)
	assert.InDelta(t, 1.0, counterValue(t, metrics.StudiesRun.WithLabelValues("success")), 1e-9)
	assert.True(t, d.Dispatched())
}

func TestDriver_Run_UnknownWeather(t *testing.T) {
	mgr := &mockManager{}
	d, metrics := newTestDriver(t, mgr)
	s, err := ParseStudy([]byte(studyYAML))
	require.NoError(t, err)
	s.Weather = "atlantis"

	_, err = d.Run(context.Background(), s)
	require.ErrorIs(t, err, weather.ErrNotFound)
	assert.Zero(t, mgr.calls)
	assert.InDelta(t, 1.0, counterValue(t, metrics.StudiesRun.WithLabelValues("error")), 1e-9)
	assert.False(t, d.Dispatched())
}

func TestDriver_Run_NoWeatherSource(t *testing.T) {
	d := New(t.TempDir(), nil, &mockManager{}, testLogger(), observability.NewMetricsForTesting())
	s, err := ParseStudy([]byte(studyYAML))
	require.NoError(t, err)

	_, err = d.Run(context.Background(), s)
	require.Error(t, err)

	s.Weather = ""
	res, err := d.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, res.Jobs[0].WeatherFile)
}

func TestDriver_Run_RetriesDispatch(t *testing.T) {
	mgr := &mockManager{errs: []error{errors.New("broker down"), nil}}
	d, metrics := newTestDriver(t, mgr)
	s, err := ParseStudy([]byte(studyYAML))
	require.NoError(t, err)

	_, err = d.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 2, mgr.calls)
	assert.InDelta(t, 4.0, counterValue(t, metrics.JobsDispatched.WithLabelValues("mock", "success")), 1e-9)
}

func TestDriver_Run_DispatchFails(t *testing.T) {
	mgr := &mockManager{errs: []error{errors.New("broker down")}}
	d, metrics := newTestDriver(t, mgr)
	d.maxAttempts = 1
	s, err := ParseStudy([]byte(studyYAML))
	require.NoError(t, err)

	_, err = d.Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.InDelta(t, 4.0, counterValue(t, metrics.JobsDispatched.WithLabelValues("mock", "error")), 1e-9)
}

func TestDriver_Run_Cancelled(t *testing.T) {
	mgr := &mockManager{}
	d, _ := newTestDriver(t, mgr)
	s, err := ParseStudy([]byte(studyYAML))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.Run(ctx, s)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mgr.calls)
}

func TestDriver_CheckReadiness(t *testing.T) {
	d := New(t.TempDir(), nil, nil, testLogger(), observability.NewMetricsForTesting())
	require.Error(t, d.CheckReadiness(context.Background()))

	d = New(t.TempDir(), nil, &mockManager{}, testLogger(), observability.NewMetricsForTesting())
	require.NoError(t, d.CheckReadiness(context.Background()))
}

func TestDriver_StudyDir(t *testing.T) {
	d := New("/work", nil, nil, testLogger(), observability.NewMetricsForTesting())

	dir, err := d.StudyDir("office-v2.1_final")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work", "office-v2.1_final"), dir)

	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`, "my study", "c:"} {
		_, err := d.StudyDir(name)
		require.ErrorIs(t, err, ErrInvalidStudy, "%q", name)
	}
}

func TestDriver_Run_UnsafeNameWritesNothing(t *testing.T) {
	root := t.TempDir()
	work := filepath.Join(root, "work")
	require.NoError(t, os.Mkdir(work, 0o755))
	mgr := &mockManager{}
	d := New(work, nil, mgr, testLogger(), observability.NewMetricsForTesting())

	s, err := ParseStudy([]byte(studyYAML))
	require.NoError(t, err)
	s.Name = ".."

	_, err = d.Run(context.Background(), s)
	require.ErrorIs(t, err, ErrInvalidStudy)
	assert.Zero(t, mgr.calls)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "work", entries[0].Name())
}
