package weather

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrIncompleteSet is returned when an EPW file lacks its DDY or STAT sibling.
	ErrIncompleteSet = errors.New("weather file set incomplete")

	// ErrInvalidStat is returned when the STAT file lacks the location block or
	// a numeric degree-day figure.
	ErrInvalidStat = errors.New("stat file rejected")
)

// WeatherFile aggregates the EPW, DDY and STAT files of one location.
type WeatherFile struct {
	Name     string `json:"name"`
	EPWPath  string `json:"epw_path"`
	DDYPath  string `json:"ddy_path"`
	StatPath string `json:"stat_path"`

	City      string  `json:"city"`
	State     string  `json:"state"`
	Country   string  `json:"country"`
	WMO       string  `json:"wmo,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TimeZone  float64 `json:"time_zone"`
	Elevation float64 `json:"elevation_m"`

	HDD10 float64 `json:"hdd10"`
	CDD10 float64 `json:"cdd10"`
	HDD18 float64 `json:"hdd18"`
	CDD18 float64 `json:"cdd18"`

	MonthlyDryBulb []float64 `json:"monthly_dry_bulb"`
	DeltaDryBulb   float64   `json:"delta_dry_bulb"`

	ClimateZone   string           `json:"climate_zone,omitempty"`
	KoppenClimate string           `json:"koppen_climate,omitempty"`
	Design        DesignConditions `json:"design_conditions"`
	DesignDays    []DesignDay      `json:"design_days"`

	Warnings []string `json:"warnings,omitempty"`
}

// FileSet names the three members of a weather file set.
type FileSet struct {
	Name string
	EPW  string
	DDY  string
	Stat string
}

// SiblingPaths derives the DDY and STAT paths sharing the EPW basename.
func SiblingPaths(epwPath string) FileSet {
	ext := filepath.Ext(epwPath)
	base := strings.TrimSuffix(epwPath, ext)
	return FileSet{
		Name: filepath.Base(base),
		EPW:  epwPath,
		DDY:  base + ".ddy",
		Stat: base + ".stat",
	}
}

// Missing lists the members of the set that do not exist on disk.
func (fs FileSet) Missing() []string {
	var missing []string
	for _, p := range []string{fs.EPW, fs.DDY, fs.Stat} {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, filepath.Base(p))
		}
	}
	return missing
}

// Load parses the EPW file at epwPath together with its DDY and STAT siblings.
// All three must exist. STAT values take precedence; the EPW header and hourly
// data fill location and monthly means the STAT file does not provide.
func Load(epwPath string, logger *slog.Logger) (*WeatherFile, error) {
	if !strings.EqualFold(filepath.Ext(epwPath), ".epw") {
		return nil, fmt.Errorf("load %s: expected an .epw path", epwPath)
	}
	fs := SiblingPaths(epwPath)
	if missing := fs.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s missing %s", ErrIncompleteSet, fs.Name, strings.Join(missing, ", "))
	}

	epw, err := ReadEPW(fs.EPW, logger)
	if err != nil {
		return nil, err
	}
	ddy, err := ReadDDY(fs.DDY, logger)
	if err != nil {
		return nil, err
	}
	stat, err := ReadStat(fs.Stat, logger)
	if err != nil {
		return nil, err
	}
	if !stat.Valid() {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidStat, fs.Stat, strings.Join(stat.Warnings, "; "))
	}

	return Merge(fs, epw, ddy, stat), nil
}

// Merge combines parsed files into a WeatherFile. stat must be valid.
func Merge(fs FileSet, epw *EPWFile, ddy *DDYFile, stat *StatFile) *WeatherFile {
	wf := &WeatherFile{
		Name:     fs.Name,
		EPWPath:  fs.EPW,
		DDYPath:  fs.DDY,
		StatPath: fs.Stat,

		City:      epw.Location.City,
		State:     epw.Location.State,
		Country:   epw.Location.Country,
		WMO:       epw.Location.WMO,
		Latitude:  *stat.Latitude,
		Longitude: *stat.Longitude,
		TimeZone:  *stat.GMTOffset,
		Elevation: epw.Location.Elevation,

		HDD10: *stat.HDD10,
		CDD10: *stat.CDD10,
		HDD18: *stat.HDD18,
		CDD18: *stat.CDD18,

		ClimateZone:   stat.ClimateZone,
		KoppenClimate: stat.KoppenClimate,
		Design:        stat.DesignConditions(),
		DesignDays:    ddy.DesignDays,
	}
	if stat.Elevation != nil {
		wf.Elevation = *stat.Elevation
	}

	wf.MonthlyDryBulb = stat.MonthlyDryBulb
	if len(wf.MonthlyDryBulb) == 0 {
		if series, ok := epw.MonthlyDryBulbSeries(); ok {
			wf.MonthlyDryBulb = series
			wf.Warnings = append(wf.Warnings, "monthly dry bulb derived from epw hourly data")
		}
	}
	if len(wf.MonthlyDryBulb) > 0 {
		lo, hi := wf.MonthlyDryBulb[0], wf.MonthlyDryBulb[0]
		for _, v := range wf.MonthlyDryBulb[1:] {
			lo, hi = min(lo, v), max(hi, v)
		}
		wf.DeltaDryBulb = hi - lo
	}

	wf.Warnings = append(wf.Warnings, stat.Warnings...)
	wf.Warnings = append(wf.Warnings, epw.Warnings...)
	wf.Warnings = append(wf.Warnings, ddy.Warnings...)
	return wf
}

// HeatingDesignDays returns the heating design days from the DDY file.
func (w *WeatherFile) HeatingDesignDays() []DesignDay {
	return (&DDYFile{DesignDays: w.DesignDays}).ByKind(DesignDayHeating)
}

// CoolingDesignDays returns the cooling design days from the DDY file.
func (w *WeatherFile) CoolingDesignDays() []DesignDay {
	return (&DDYFile{DesignDays: w.DesignDays}).ByKind(DesignDayCooling)
}
