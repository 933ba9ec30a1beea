// Package results reads annual figures from the SQL output files the run
// manager leaves in a study directory, one sub-directory per variant:
//
//	<study dir>/<variant>/eplusout.sql
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/building-energy-toolkit/internal/adapter/manifest"
)

// SQLFileName is the output file looked for in each run directory.
const SQLFileName = "eplusout.sql"

// ErrMissingTables is returned for a SQL file without the annual tabular report.
var ErrMissingTables = errors.New("annual building utility performance summary not found")

const reportName = "AnnualBuildingUtilityPerformanceSummary"

// Row holds the annual results of one run.
type Row struct {
	Variant   string
	Path      string
	Analysis  string
	Parameter string
	Value     float64
	HasValue  bool

	TotalSiteEnergy float64 // GJ
	BuildingArea    float64 // m2
	// EndUses maps end use then fuel to GJ, e.g. EndUses["Cooling"]["Electricity"].
	EndUses map[string]map[string]float64
}

// EUI returns site energy use intensity in MJ/m2.
func (r Row) EUI() float64 {
	if r.BuildingArea == 0 {
		return 0
	}
	return r.TotalSiteEnergy * 1000 / r.BuildingArea
}

// Fuels returns the fuels with a non-zero end use, sorted.
func (r Row) Fuels() []string {
	set := map[string]bool{}
	for _, byFuel := range r.EndUses {
		for fuel, v := range byFuel {
			if v != 0 {
				set[fuel] = true
			}
		}
	}
	fuels := make([]string, 0, len(set))
	for f := range set {
		fuels = append(fuels, f)
	}
	sort.Strings(fuels)
	return fuels
}

// Read opens one SQL output file read-only and extracts its annual figures.
func Read(ctx context.Context, path string) (*Row, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	dsn := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open results %s: %w", path, err)
	}
	defer db.Close()

	var count int
	err = db.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name='TabularDataWithStrings'").Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("inspect results %s: %w", path, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrMissingTables)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT TableName, RowName, ColumnName, Value
		FROM TabularDataWithStrings
		WHERE ReportName = ? AND ReportForString = 'Entire Facility'
		  AND TableName IN ('Site and Source Energy', 'Building Area', 'End Uses')`, reportName)
	if err != nil {
		return nil, fmt.Errorf("query results %s: %w", path, err)
	}
	defer rows.Close()

	row := &Row{Path: path, EndUses: map[string]map[string]float64{}}
	var foundEnergy, foundArea bool
	for rows.Next() {
		var table, name, column, value string
		if err := rows.Scan(&table, &name, &column, &value); err != nil {
			return nil, fmt.Errorf("scan results %s: %w", path, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			continue
		}
		switch {
		case table == "Site and Source Energy" && name == "Total Site Energy" && column == "Total Energy":
			row.TotalSiteEnergy, foundEnergy = v, true
		case table == "Building Area" && name == "Total Building Area" && column == "Area":
			row.BuildingArea, foundArea = v, true
		case table == "End Uses" && name != "" && name != "Total End Uses" && !strings.HasPrefix(column, "Water"):
			if row.EndUses[name] == nil {
				row.EndUses[name] = map[string]float64{}
			}
			row.EndUses[name][column] = v
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read results %s: %w", path, err)
	}
	if !foundEnergy || !foundArea {
		return nil, fmt.Errorf("%s: %w", path, ErrMissingTables)
	}
	return row, nil
}

// Collect reads every run below dir. Runs whose SQL file lacks the annual
// report are logged and listed in skipped. When dir holds a job manifest the
// rows carry the analysis, parameter and value of their variant. Rows are
// sorted by variant.
func Collect(ctx context.Context, dir string, logger *slog.Logger) (rows []Row, skipped []string, err error) {
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || d.Name() != SQLFileName {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := Read(ctx, path)
		if err != nil {
			if errors.Is(err, ErrMissingTables) {
				logger.Warn("skipping run without annual results", "path", path)
				skipped = append(skipped, path)
				return nil
			}
			return err
		}
		row.Variant = variantName(dir, path)
		rows = append(rows, *row)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("collect results: %w", err)
	}

	if m, err := manifest.Read(filepath.Join(dir, manifest.FileName)); err == nil {
		Annotate(rows, m)
	} else if !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("ignoring unreadable manifest", "dir", dir, "error", err)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Variant < rows[j].Variant })
	return rows, skipped, nil
}

// Annotate copies the analysis, parameter and value of each variant from m.
// Jobs that vary no parameter, such as the base model, carry no value.
func Annotate(rows []Row, m *manifest.Manifest) {
	byVariant := make(map[string]int, len(m.Jobs))
	for i, j := range m.Jobs {
		byVariant[j.Variant] = i
	}
	for i := range rows {
		idx, ok := byVariant[rows[i].Variant]
		if !ok {
			continue
		}
		job := m.Jobs[idx]
		rows[i].Analysis = job.Analysis
		rows[i].Parameter = job.Parameter
		rows[i].Value = job.Value
		rows[i].HasValue = job.Parameter != ""
	}
}

// variantName is the run directory name, or the file's parent relative to
// the walk root when the SQL file sits directly in it.
func variantName(root, path string) string {
	parent := filepath.Dir(path)
	if rel, err := filepath.Rel(root, parent); err == nil && rel != "." {
		return filepath.ToSlash(rel)
	}
	return filepath.Base(parent)
}
