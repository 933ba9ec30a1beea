package weather

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ErrNotEPW is returned when the input has no LOCATION header.
var ErrNotEPW = errors.New("not an EPW file: missing LOCATION header")

// Location is the site described by an EPW LOCATION header.
type Location struct {
	City       string  `json:"city"`
	State      string  `json:"state"`
	Country    string  `json:"country"`
	DataSource string  `json:"data_source,omitempty"`
	WMO        string  `json:"wmo,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	TimeZone   float64 `json:"time_zone"`
	Elevation  float64 `json:"elevation_m"`
}

// HourlyRecord is one row of EPW weather data.
type HourlyRecord struct {
	Month             int     `json:"month"`
	Day               int     `json:"day"`
	Hour              int     `json:"hour"`
	DryBulb           float64 `json:"dry_bulb"`
	DewPoint          float64 `json:"dew_point"`
	RelativeHumidity  float64 `json:"relative_humidity"`
	Pressure          float64 `json:"pressure"`
	GlobalHorizontal  float64 `json:"global_horizontal"`
	DirectNormal      float64 `json:"direct_normal"`
	DiffuseHorizontal float64 `json:"diffuse_horizontal"`
	WindDirection     float64 `json:"wind_direction"`
	WindSpeed         float64 `json:"wind_speed"`
}

// EPWFile is a parsed EPW weather file.
type EPWFile struct {
	Path           string         `json:"path,omitempty"`
	Location       Location       `json:"location"`
	RecordsPerHour int            `json:"records_per_hour"`
	StartDayOfWeek string         `json:"start_day_of_week,omitempty"`
	Records        []HourlyRecord `json:"-"`
	SkippedRecords int            `json:"skipped_records,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// EPW column indexes.
const (
	colMonth             = 1
	colDay               = 2
	colHour              = 3
	colDryBulb           = 6
	colDewPoint          = 7
	colRelativeHumidity  = 8
	colPressure          = 9
	colGlobalHorizontal  = 13
	colDirectNormal      = 14
	colDiffuseHorizontal = 15
	colWindDirection     = 20
	colWindSpeed         = 21

	minDataColumns = colWindSpeed + 1
)

// ReadEPW opens and parses the EPW file at path.
func ReadEPW(path string, logger *slog.Logger) (*EPWFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open epw file: %w", err)
	}
	defer f.Close()

	epw, err := ParseEPW(f, logger.With("path", path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	epw.Path = path
	return epw, nil
}

// ParseEPW reads EPW headers and hourly records. Malformed hourly rows are
// skipped and counted; only a missing LOCATION header is fatal.
func ParseEPW(r io.Reader, logger *slog.Logger) (*EPWFile, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	epw := &EPWFile{RecordsPerHour: 1}
	sawLocation := false

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			epw.SkippedRecords++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read epw: %w", err)
		}

		switch key := strings.ToUpper(strings.TrimSpace(rec[0])); key {
		case "LOCATION":
			sawLocation = true
			epw.Location = parseLocationHeader(rec, epw, logger)
		case "DATA PERIODS":
			parseDataPeriods(rec, epw)
		case "DESIGN CONDITIONS", "TYPICAL/EXTREME PERIODS", "GROUND TEMPERATURES",
			"HOLIDAYS/DAYLIGHT SAVINGS", "COMMENTS 1", "COMMENTS 2":
		default:
			hr, ok := parseHourly(rec)
			if !ok {
				epw.SkippedRecords++
				logger.Debug("skipping malformed epw record", "line", line)
				continue
			}
			epw.Records = append(epw.Records, hr)
		}
	}

	if !sawLocation {
		return nil, ErrNotEPW
	}
	if epw.SkippedRecords > 0 {
		msg := fmt.Sprintf("skipped %d malformed records", epw.SkippedRecords)
		epw.Warnings = append(epw.Warnings, msg)
		logger.Warn("epw records skipped", "count", epw.SkippedRecords)
	}
	return epw, nil
}

// parseLocationHeader reads
// LOCATION,Chicago Ohare Intl Ap,IL,USA,TMY3,725300,41.98,-87.92,-6.0,201.0
func parseLocationHeader(rec []string, epw *EPWFile, logger *slog.Logger) Location {
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	loc := Location{
		City:       field(1),
		State:      field(2),
		Country:    field(3),
		DataSource: field(4),
		WMO:        field(5),
	}
	nums := []struct {
		name string
		idx  int
		dst  *float64
	}{
		{"latitude", 6, &loc.Latitude},
		{"longitude", 7, &loc.Longitude},
		{"time zone", 8, &loc.TimeZone},
		{"elevation", 9, &loc.Elevation},
	}
	for _, n := range nums {
		v, err := parseNumber(field(n.idx))
		if err != nil {
			epw.Warnings = append(epw.Warnings, fmt.Sprintf("location %s: not numeric", n.name))
			logger.Warn("epw location field not parsed", "field", n.name)
			continue
		}
		*n.dst = v
	}
	return loc
}

// parseDataPeriods reads DATA PERIODS,1,1,Data,Sunday, 1/ 1,12/31
func parseDataPeriods(rec []string, epw *EPWFile) {
	if len(rec) > 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(rec[2])); err == nil && n > 0 {
			epw.RecordsPerHour = n
		}
	}
	if len(rec) > 4 {
		epw.StartDayOfWeek = strings.TrimSpace(rec[4])
	}
}

func parseHourly(rec []string) (HourlyRecord, bool) {
	if len(rec) < minDataColumns {
		return HourlyRecord{}, false
	}
	ints := [3]int{}
	for i, col := range []int{colMonth, colDay, colHour} {
		v, err := strconv.Atoi(strings.TrimSpace(rec[col]))
		if err != nil {
			return HourlyRecord{}, false
		}
		ints[i] = v
	}
	if ints[0] < 1 || ints[0] > 12 || ints[1] < 1 || ints[1] > 31 || ints[2] < 1 || ints[2] > 24 {
		return HourlyRecord{}, false
	}

	hr := HourlyRecord{Month: ints[0], Day: ints[1], Hour: ints[2]}
	floats := []struct {
		col int
		dst *float64
	}{
		{colDryBulb, &hr.DryBulb},
		{colDewPoint, &hr.DewPoint},
		{colRelativeHumidity, &hr.RelativeHumidity},
		{colPressure, &hr.Pressure},
		{colGlobalHorizontal, &hr.GlobalHorizontal},
		{colDirectNormal, &hr.DirectNormal},
		{colDiffuseHorizontal, &hr.DiffuseHorizontal},
		{colWindDirection, &hr.WindDirection},
		{colWindSpeed, &hr.WindSpeed},
	}
	for _, f := range floats {
		v, err := parseNumber(rec[f.col])
		if err != nil {
			return HourlyRecord{}, false
		}
		*f.dst = v
	}
	return hr, true
}

// MonthlyMeanDryBulb returns the mean dry-bulb temperature of each month that
// has records. Months without data are omitted from the returned map.
func (e *EPWFile) MonthlyMeanDryBulb() map[int]float64 {
	sums := map[int]float64{}
	counts := map[int]int{}
	for _, r := range e.Records {
		sums[r.Month] += r.DryBulb
		counts[r.Month]++
	}
	out := make(map[int]float64, len(sums))
	for m, s := range sums {
		out[m] = s / float64(counts[m])
	}
	return out
}

// MonthlyDryBulbSeries returns the twelve monthly means in calendar order, or
// false when any month is missing.
func (e *EPWFile) MonthlyDryBulbSeries() ([]float64, bool) {
	means := e.MonthlyMeanDryBulb()
	out := make([]float64, 12)
	for m := 1; m <= 12; m++ {
		v, ok := means[m]
		if !ok {
			return nil, false
		}
		out[m-1] = v
	}
	return out, true
}

// DegreeDays returns heating and cooling degree-days against base (°C),
// computed from daily mean dry-bulb temperatures.
func (e *EPWFile) DegreeDays(base float64) (hdd, cdd float64) {
	type dayKey struct{ month, day int }
	sums := map[dayKey]float64{}
	counts := map[dayKey]int{}
	for _, r := range e.Records {
		k := dayKey{r.Month, r.Day}
		sums[k] += r.DryBulb
		counts[k]++
	}
	for k, s := range sums {
		mean := s / float64(counts[k])
		if mean < base {
			hdd += base - mean
		} else {
			cdd += mean - base
		}
	}
	return hdd, cdd
}
