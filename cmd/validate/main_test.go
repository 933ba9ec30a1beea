package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/building-energy-toolkit/internal/weather"
)

const chicago = "USA_IL_Chicago-OHare.Intl.AP.725300_TMY3"

func copyFixture(t *testing.T, dir, name, ext string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "internal", "weather", "testdata", chicago+ext))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+ext), data, 0o644))
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPhases_ChicagoFixture(t *testing.T) {
	dir := t.TempDir()
	for _, ext := range []string{".epw", ".ddy", ".stat"} {
		copyFixture(t, dir, chicago, ext)
	}
	lib, err := weather.NewLibrary(dir, weather.FileLoader{Logger: discard()}, discard())
	require.NoError(t, err)

	sets, load := loadSets(lib.Sets(), discard())
	require.Len(t, sets, 1)
	assert.True(t, load.passed(), load.errors)
	assert.True(t, validateCompleteness(lib.Entries()).passed())
	assert.True(t, validateLocation(sets).passed())
	assert.True(t, validateDesignDays(sets).passed())

	// The fixture carries one malformed hourly row.
	hourly := validateHourly(sets, 0.1)
	assert.Equal(t, []string{chicago + ": skipped 1 malformed records"}, hourly.errors)
}

func TestValidateCompleteness(t *testing.T) {
	p := validateCompleteness([]weather.Entry{
		{Name: "a", EPW: "a.epw"},
		{Name: "b", EPW: "b.epw", Missing: []string{"b.ddy", "b.stat"}},
	})
	assert.Equal(t, []string{"b: missing b.ddy", "b: missing b.stat"}, p.errors)
}

func TestCheckDegreeDays(t *testing.T) {
	p := &phase{}
	checkDegreeDays(p, "x", "HDD18", 3500, 3503, 0.1)
	checkDegreeDays(p, "x", "CDD18", 100, 0, 0.1)
	assert.True(t, p.passed())

	checkDegreeDays(p, "x", "CDD18", 500, 800, 0.1)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "CDD18 epw=500 stat=800")
}

func TestRun_Report(t *testing.T) {
	dir := t.TempDir()
	for _, ext := range []string{".epw", ".ddy", ".stat"} {
		copyFixture(t, dir, chicago, ext)
	}
	copyFixture(t, dir, "lonely", ".epw")

	var out bytes.Buffer
	code := run(dir, 0.1, &out)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "Files: 2 EPW, 1 complete sets, 1 parsed")
	assert.Contains(t, out.String(), "lonely: missing lonely.ddy")
	assert.Contains(t, out.String(), "Validation FAILED.")
}

func TestRun_EmptyDir(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 1, run(t.TempDir(), 0.1, &out))
	assert.Contains(t, out.String(), "no EPW files")
}
