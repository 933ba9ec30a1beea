package weather

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	// locationBlockRe matches "{N 41° 58'} {W  87° 54'} {GMT -6.0 Hours}".
	locationBlockRe = regexp.MustCompile(`\{([NS])\s*(\d+)\D\s*(\d+)'\}\s*\{([EW])\s*(\d+)\D\s*(\d+)'\}\s*\{GMT\s*(\S+)\s*Hours\}`)

	// elevationRe matches "Elevation --   201m above sea level".
	elevationRe = regexp.MustCompile(`Elevation --\s*(\S+?)m (above|below) sea level`)

	hdd18Re = degreeDayRe("heating", `18\.3`)
	cdd18Re = degreeDayRe("cooling", `18\.3`)
	hdd10Re = degreeDayRe("heating", `10`)
	cdd10Re = degreeDayRe("cooling", `10`)

	// The design rows start with a tab-indented keyword followed by numbers.
	heatingRowRe  = regexp.MustCompile(`(?m)^\s*Heating\s+(-?\d.*)$`)
	coolingRowRe  = regexp.MustCompile(`(?m)^\s*Cooling\s+(-?\d.*)$`)
	extremesRowRe = regexp.MustCompile(`(?m)^\s*Extremes\s+(-?\d.*)$`)

	dailyAvgRe    = regexp.MustCompile(`(?m)^\s*Daily Avg\s+(.*)$`)
	climateZoneRe = regexp.MustCompile(`Climate type "([^"]+)" \(ASHRAE Standard[^)]*Climate Zone\)`)
	koppenRe      = regexp.MustCompile(`Climate type "([^"]+)" \(K.ppen classification\)`)
)

// degreeDayRe matches e.g. "- 3463 annual (standard) heating degree-days (18.3°C baseline)".
func degreeDayRe(kind, base string) *regexp.Regexp {
	return regexp.MustCompile(`-\s*(\S+)\s+annual \(standard\) ` + kind + ` degree-days \(` + base + `.C baseline\)`)
}

// StatFile is the parse result of a STAT climate summary. Scalar fields are nil
// when the corresponding text could not be found or parsed.
type StatFile struct {
	Path string `json:"path,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	GMTOffset *float64 `json:"gmt_offset,omitempty"`
	Elevation *float64 `json:"elevation_m,omitempty"`

	HDD18 *float64 `json:"hdd18,omitempty"`
	CDD18 *float64 `json:"cdd18,omitempty"`
	HDD10 *float64 `json:"hdd10,omitempty"`
	CDD10 *float64 `json:"cdd10,omitempty"`

	// Raw design rows in column order (see package documentation).
	HeatingDesign  []float64 `json:"heating_design,omitempty"`
	CoolingDesign  []float64 `json:"cooling_design,omitempty"`
	Extremes       []float64 `json:"extremes,omitempty"`
	MonthlyDryBulb []float64 `json:"monthly_dry_bulb,omitempty"`

	ClimateZone   string `json:"climate_zone,omitempty"`
	KoppenClimate string `json:"koppen_climate,omitempty"`

	Warnings []string `json:"warnings,omitempty"`
}

// Valid reports whether the mandatory location block matched and all degree-day
// figures are numeric.
func (s *StatFile) Valid() bool {
	return s.Latitude != nil && s.Longitude != nil && s.GMTOffset != nil &&
		s.HDD18 != nil && s.CDD18 != nil && s.HDD10 != nil && s.CDD10 != nil
}

// DeltaDryBulb returns the spread between the warmest and coldest monthly mean.
func (s *StatFile) DeltaDryBulb() (float64, bool) {
	if len(s.MonthlyDryBulb) == 0 {
		return 0, false
	}
	return slices.Max(s.MonthlyDryBulb) - slices.Min(s.MonthlyDryBulb), true
}

// DesignConditions returns the named values of the heating, cooling and
// extremes rows. Values absent from a short row are left zero.
func (s *StatFile) DesignConditions() DesignConditions {
	at := func(vals []float64, i int) float64 {
		if i < len(vals) {
			return vals[i]
		}
		return 0
	}
	return DesignConditions{
		ColdestMonth:      int(at(s.HeatingDesign, 0)),
		HeatingDB996:      at(s.HeatingDesign, 1),
		HeatingDB990:      at(s.HeatingDesign, 2),
		HottestMonth:      int(at(s.CoolingDesign, 0)),
		CoolingDailyRange: at(s.CoolingDesign, 1),
		CoolingDB004:      at(s.CoolingDesign, 2),
		CoolingMCWB004:    at(s.CoolingDesign, 3),
		CoolingDB010:      at(s.CoolingDesign, 4),
		CoolingMCWB010:    at(s.CoolingDesign, 5),
		ExtremeWS010:      at(s.Extremes, 0),
		ExtremeDBMinMean:  at(s.Extremes, 4),
		ExtremeDBMaxMean:  at(s.Extremes, 5),
	}
}

// DesignConditions are the ASHRAE design values most used for sizing.
type DesignConditions struct {
	ColdestMonth      int     `json:"coldest_month"`
	HeatingDB996      float64 `json:"heating_db_996"`
	HeatingDB990      float64 `json:"heating_db_990"`
	HottestMonth      int     `json:"hottest_month"`
	CoolingDailyRange float64 `json:"cooling_daily_range"`
	CoolingDB004      float64 `json:"cooling_db_004"`
	CoolingMCWB004    float64 `json:"cooling_mcwb_004"`
	CoolingDB010      float64 `json:"cooling_db_010"`
	CoolingMCWB010    float64 `json:"cooling_mcwb_010"`
	ExtremeWS010      float64 `json:"extreme_ws_010"`
	ExtremeDBMinMean  float64 `json:"extreme_db_min_mean"`
	ExtremeDBMaxMean  float64 `json:"extreme_db_max_mean"`
}

// ReadStat reads and parses the STAT file at path.
func ReadStat(path string, logger *slog.Logger) (*StatFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stat file: %w", err)
	}
	stat := ParseStat(data, logger.With("path", path))
	stat.Path = path
	return stat, nil
}

// ParseStat extracts climate data from STAT text. It never fails: fields that
// cannot be found are logged, listed in Warnings and left empty.
func ParseStat(data []byte, logger *slog.Logger) *StatFile {
	text := decodeLatin1(data)
	s := &StatFile{}

	warn := func(field, reason string) {
		msg := fmt.Sprintf("%s: %s", field, reason)
		s.Warnings = append(s.Warnings, msg)
		logger.Warn("stat field not parsed", "field", field, "reason", reason)
	}

	parseLocationBlock(text, s, warn)
	parseElevation(text, s, warn)

	s.HDD18 = matchFloat(text, hdd18Re, "hdd18", warn)
	s.CDD18 = matchFloat(text, cdd18Re, "cdd18", warn)
	s.HDD10 = matchFloat(text, hdd10Re, "hdd10", warn)
	s.CDD10 = matchFloat(text, cdd10Re, "cdd10", warn)

	s.HeatingDesign = matchRow(text, heatingRowRe, "heating design", warn)
	s.CoolingDesign = matchRow(text, coolingRowRe, "cooling design", warn)
	s.Extremes = matchRow(text, extremesRowRe, "extremes", warn)

	parseMonthlyDryBulb(text, s, warn)

	if m := climateZoneRe.FindStringSubmatch(text); m != nil {
		s.ClimateZone = m[1]
	} else {
		warn("climate zone", "not found")
	}
	if m := koppenRe.FindStringSubmatch(text); m != nil {
		s.KoppenClimate = m[1]
	}

	return s
}

func parseLocationBlock(text string, s *StatFile, warn func(string, string)) {
	m := locationBlockRe.FindStringSubmatch(text)
	if m == nil {
		warn("lat/lon/gmt", "not found")
		return
	}

	lat, errLat := degreesMinutes(m[2], m[3])
	lon, errLon := degreesMinutes(m[5], m[6])
	gmt, errGMT := parseNumber(m[7])
	if errLat != nil || errLon != nil || errGMT != nil {
		warn("lat/lon/gmt", "not numeric")
		return
	}
	if m[1] == "S" {
		lat = -lat
	}
	if m[4] == "W" {
		lon = -lon
	}
	s.Latitude, s.Longitude, s.GMTOffset = &lat, &lon, &gmt
}

func parseElevation(text string, s *StatFile, warn func(string, string)) {
	m := elevationRe.FindStringSubmatch(text)
	if m == nil {
		warn("elevation", "not found")
		return
	}
	elev, err := parseNumber(m[1])
	if err != nil {
		warn("elevation", "not numeric")
		return
	}
	if m[2] == "below" {
		elev = -elev
	}
	s.Elevation = &elev
}

// parseMonthlyDryBulb reads the first "Daily Avg" row of the dry-bulb section,
// falling back to the first row in the file when the section header is absent.
func parseMonthlyDryBulb(text string, s *StatFile, warn func(string, string)) {
	section := text
	if i := strings.Index(text, "Monthly Statistics for Dry Bulb"); i >= 0 {
		section = text[i:]
	}
	m := dailyAvgRe.FindStringSubmatch(section)
	if m == nil {
		warn("monthly dry bulb", "not found")
		return
	}
	vals, err := parseFloats(m[1])
	if err != nil {
		warn("monthly dry bulb", err.Error())
		return
	}
	if len(vals) != 12 {
		warn("monthly dry bulb", fmt.Sprintf("expected 12 values, got %d", len(vals)))
		return
	}
	s.MonthlyDryBulb = vals
}

func matchFloat(text string, re *regexp.Regexp, field string, warn func(string, string)) *float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		warn(field, "not found")
		return nil
	}
	v, err := parseNumber(m[1])
	if err != nil {
		warn(field, "not numeric")
		return nil
	}
	return &v
}

func matchRow(text string, re *regexp.Regexp, field string, warn func(string, string)) []float64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		warn(field, "not found")
		return nil
	}
	vals, err := parseFloats(m[1])
	if err != nil {
		warn(field, err.Error())
		return nil
	}
	return vals
}

func degreesMinutes(deg, minutes string) (float64, error) {
	d, err := parseNumber(deg)
	if err != nil {
		return 0, err
	}
	mm, err := parseNumber(minutes)
	if err != nil {
		return 0, err
	}
	return d + mm/60, nil
}

// parseNumber is locale-insensitive: only '.' is accepted as decimal separator.
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	vals := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := parseNumber(f)
		if err != nil {
			return nil, fmt.Errorf("value %q not numeric", f)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// decodeLatin1 converts ISO-8859-1 bytes to UTF-8. Input that is already valid
// UTF-8 is returned unchanged.
func decodeLatin1(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}
