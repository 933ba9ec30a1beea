// Package report writes CSV summaries of weather libraries and study results.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/building-energy-toolkit/internal/results"
	"github.com/couchcryptid/building-energy-toolkit/internal/weather"
)

// clock stamps report file names; tests freeze it via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for report stamps. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// StampedPath returns dir/<prefix>_<UTC timestamp>.csv.
func StampedPath(dir, prefix string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, clock.Now().UTC().Format("20060102T150405Z")))
}

var monthNames = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// ClimateIndexHeader lists the columns written by WriteClimateIndex.
func ClimateIndexHeader() []string {
	h := []string{
		"name", "city", "state", "country", "wmo",
		"latitude", "longitude", "elevation_m", "time_zone",
		"climate_zone", "koppen",
		"hdd10", "cdd10", "hdd18", "cdd18",
		"heating_db_996", "cooling_db_004", "cooling_mcwb_004",
		"delta_dry_bulb",
	}
	for _, m := range monthNames {
		h = append(h, "dry_bulb_"+m)
	}
	return append(h, "warnings")
}

// WriteClimateIndex writes one row per weather file, in the given order.
func WriteClimateIndex(w io.Writer, files []*weather.WeatherFile) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ClimateIndexHeader()); err != nil {
		return fmt.Errorf("write climate index header: %w", err)
	}
	for _, wf := range files {
		rec := []string{
			wf.Name, wf.City, wf.State, wf.Country, wf.WMO,
			num(wf.Latitude), num(wf.Longitude), num(wf.Elevation), num(wf.TimeZone),
			wf.ClimateZone, wf.KoppenClimate,
			num(wf.HDD10), num(wf.CDD10), num(wf.HDD18), num(wf.CDD18),
			num(wf.Design.HeatingDB996), num(wf.Design.CoolingDB004), num(wf.Design.CoolingMCWB004),
			num(wf.DeltaDryBulb),
		}
		for i := range monthNames {
			if i < len(wf.MonthlyDryBulb) {
				rec = append(rec, num(wf.MonthlyDryBulb[i]))
			} else {
				rec = append(rec, "")
			}
		}
		rec = append(rec, strconv.Itoa(len(wf.Warnings)))
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write climate index row %s: %w", wf.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// endUseColumn names one end use and fuel pair.
type endUseColumn struct {
	endUse, fuel string
}

// WriteAnnualResults writes one row per run. End-use columns are the union of
// every non-zero end use and fuel across rows, sorted by end use then fuel.
func WriteAnnualResults(w io.Writer, rows []results.Row) error {
	seen := map[endUseColumn]bool{}
	var cols []endUseColumn
	for _, r := range rows {
		for endUse, byFuel := range r.EndUses {
			for fuel, v := range byFuel {
				c := endUseColumn{endUse, fuel}
				if v == 0 || seen[c] {
					continue
				}
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].endUse != cols[j].endUse {
			return cols[i].endUse < cols[j].endUse
		}
		return cols[i].fuel < cols[j].fuel
	})

	header := []string{"variant", "analysis", "parameter", "value", "total_site_energy_gj", "building_area_m2", "eui_mj_m2"}
	for _, c := range cols {
		header = append(header, fmt.Sprintf("%s [%s] (GJ)", c.endUse, c.fuel))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write annual results header: %w", err)
	}
	for _, r := range rows {
		value := ""
		if r.HasValue {
			value = num(r.Value)
		}
		rec := []string{r.Variant, r.Analysis, r.Parameter, value, num(r.TotalSiteEnergy), num(r.BuildingArea), num(r.EUI())}
		for _, c := range cols {
			rec = append(rec, num(r.EndUses[c.endUse][c.fuel]))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write annual results row %s: %w", r.Variant, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates path and fills it with write.
func WriteFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
