// Command validate checks the integrity of a weather library: every EPW file
// has its DDY and STAT siblings, STAT files parse completely, the EPW header
// agrees with the STAT location, hourly data is clean, and DDY files carry
// heating and cooling design days.
//
// Usage:
//
//	go run ./cmd/validate --weather-dir weather [--degree-day-tolerance 0.1]
package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/spf13/pflag"

	"github.com/couchcryptid/building-energy-toolkit/internal/weather"
)

// Tolerances between the EPW header and the STAT file.
const (
	maxCoordDelta     = 0.1 // degrees
	maxElevationDelta = 10  // metres
	fullYearHours     = 8760
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// parsedSet is one complete file set read without merging.
type parsedSet struct {
	fs   weather.FileSet
	epw  *weather.EPWFile
	ddy  *weather.DDYFile
	stat *weather.StatFile
}

func main() {
	dir := pflag.StringP("weather-dir", "d", "weather", "directory of EPW/DDY/STAT sets")
	tolerance := pflag.Float64("degree-day-tolerance", 0.1, "allowed relative gap between EPW and STAT degree-days")
	pflag.Parse()

	if code := run(*dir, *tolerance, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(dir string, tolerance float64, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	fmt.Fprintln(w, "=== Weather Library Validation ===")
	fmt.Fprintln(w)

	lib, err := weather.NewLibrary(dir, weather.FileLoader{Logger: logger}, logger)
	if err != nil {
		fmt.Fprintf(w, "FATAL: %v\n", err)
		return 1
	}
	entries := lib.Entries()
	if len(entries) == 0 {
		fmt.Fprintf(w, "FATAL: no EPW files in %s\n", dir)
		return 1
	}

	sets, load := loadSets(lib.Sets(), logger)
	phases := []*phase{
		validateCompleteness(entries),
		load,
		validateLocation(sets),
		validateHourly(sets, tolerance),
		validateDesignDays(sets),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Files: %d EPW, %d complete sets, %d parsed\n", len(entries), len(lib.Sets()), len(sets))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Phases ──

func validateCompleteness(entries []weather.Entry) *phase {
	p := &phase{name: "File sets complete"}
	for _, e := range entries {
		for _, m := range e.Missing {
			p.errorf("%s: missing %s", e.Name, m)
		}
	}
	return p
}

// loadSets parses every file of each set. Sets with a file that cannot be
// read or a STAT file with gaps are reported and left out of later phases.
func loadSets(fileSets []weather.FileSet, logger *slog.Logger) ([]parsedSet, *phase) {
	p := &phase{name: "Files parse"}
	var out []parsedSet
	for _, fs := range fileSets {
		epw, err := weather.ReadEPW(fs.EPW, logger)
		if err != nil {
			p.errorf("%s: %v", fs.Name, err)
			continue
		}
		ddy, err := weather.ReadDDY(fs.DDY, logger)
		if err != nil {
			p.errorf("%s: %v", fs.Name, err)
			continue
		}
		stat, err := weather.ReadStat(fs.Stat, logger)
		if err != nil {
			p.errorf("%s: %v", fs.Name, err)
			continue
		}
		for _, warn := range stat.Warnings {
			p.errorf("%s stat: %s", fs.Name, warn)
		}
		if !stat.Valid() {
			continue
		}
		out = append(out, parsedSet{fs: fs, epw: epw, ddy: ddy, stat: stat})
	}
	return out, p
}

func validateLocation(sets []parsedSet) *phase {
	p := &phase{name: "EPW header matches STAT location"}
	for _, s := range sets {
		loc := s.epw.Location
		if d := math.Abs(loc.Latitude - *s.stat.Latitude); d > maxCoordDelta {
			p.errorf("%s: latitude epw=%.3f stat=%.3f", s.fs.Name, loc.Latitude, *s.stat.Latitude)
		}
		if d := math.Abs(loc.Longitude - *s.stat.Longitude); d > maxCoordDelta {
			p.errorf("%s: longitude epw=%.3f stat=%.3f", s.fs.Name, loc.Longitude, *s.stat.Longitude)
		}
		if loc.TimeZone != *s.stat.GMTOffset {
			p.errorf("%s: time zone epw=%g stat=%g", s.fs.Name, loc.TimeZone, *s.stat.GMTOffset)
		}
		if s.stat.Elevation != nil && math.Abs(loc.Elevation-*s.stat.Elevation) > maxElevationDelta {
			p.errorf("%s: elevation epw=%g stat=%g", s.fs.Name, loc.Elevation, *s.stat.Elevation)
		}
	}
	return p
}

// validateHourly rejects malformed hourly rows. Degree-days are compared only
// for files holding a full year.
func validateHourly(sets []parsedSet, tolerance float64) *phase {
	p := &phase{name: "EPW hourly data"}
	for _, s := range sets {
		if s.epw.SkippedRecords > 0 {
			p.errorf("%s: skipped %d malformed records", s.fs.Name, s.epw.SkippedRecords)
		}
		if len(s.epw.Records) < fullYearHours*max(s.epw.RecordsPerHour, 1) {
			continue
		}
		hdd, cdd := s.epw.DegreeDays(18)
		checkDegreeDays(p, s.fs.Name, "HDD18", hdd, *s.stat.HDD18, tolerance)
		checkDegreeDays(p, s.fs.Name, "CDD18", cdd, *s.stat.CDD18, tolerance)
	}
	return p
}

func checkDegreeDays(p *phase, name, label string, epw, stat, tolerance float64) {
	if stat == 0 {
		return
	}
	if gap := math.Abs(epw-stat) / stat; gap > tolerance {
		p.errorf("%s: %s epw=%.0f stat=%.0f (%.0f%% apart)", name, label, epw, stat, gap*100)
	}
}

func validateDesignDays(sets []parsedSet) *phase {
	p := &phase{name: "DDY design days"}
	for _, s := range sets {
		if len(s.ddy.ByKind(weather.DesignDayHeating)) == 0 {
			p.errorf("%s: no heating design day", s.fs.Name)
		}
		if len(s.ddy.ByKind(weather.DesignDayCooling)) == 0 {
			p.errorf("%s: no cooling design day", s.fs.Name)
		}
	}
	return p
}
