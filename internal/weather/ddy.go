package weather

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Design day kinds.
const (
	DesignDayHeating = "heating"
	DesignDayCooling = "cooling"
	DesignDayOther   = "other"
)

// DesignDay is a SizingPeriod:DesignDay object from a DDY file.
type DesignDay struct {
	Name             string  `json:"name"`
	Month            int     `json:"month"`
	Day              int     `json:"day"`
	DayType          string  `json:"day_type"`
	MaxDryBulb       float64 `json:"max_dry_bulb"`
	DailyRange       float64 `json:"daily_range"`
	HumidityType     string  `json:"humidity_type,omitempty"`
	HumidityValue    float64 `json:"humidity_value,omitempty"`
	Pressure         float64 `json:"pressure,omitempty"`
	WindSpeed        float64 `json:"wind_speed,omitempty"`
	WindDirection    float64 `json:"wind_direction,omitempty"`
	RainIndicator    bool    `json:"rain_indicator,omitempty"`
	SnowIndicator    bool    `json:"snow_indicator,omitempty"`
	DaylightSavings  bool    `json:"daylight_savings,omitempty"`
	SolarModel       string  `json:"solar_model,omitempty"`
	ClearnessOrTauB  float64 `json:"clearness_or_taub,omitempty"`
	TauDiffuse       float64 `json:"tau_diffuse,omitempty"`
	AnnualPercentile string  `json:"annual_percentile,omitempty"`
}

// Kind classifies the design day as heating, cooling or other.
func (d DesignDay) Kind() string {
	switch {
	case strings.EqualFold(d.DayType, "WinterDesignDay"), strings.Contains(d.Name, "Htg"):
		return DesignDayHeating
	case strings.EqualFold(d.DayType, "SummerDesignDay"), strings.Contains(d.Name, "Clg"):
		return DesignDayCooling
	default:
		return DesignDayOther
	}
}

// DDYFile is a parsed design-day file.
type DDYFile struct {
	Path       string      `json:"path,omitempty"`
	SiteName   string      `json:"site_name,omitempty"`
	Latitude   *float64    `json:"latitude,omitempty"`
	Longitude  *float64    `json:"longitude,omitempty"`
	TimeZone   *float64    `json:"time_zone,omitempty"`
	Elevation  *float64    `json:"elevation_m,omitempty"`
	DesignDays []DesignDay `json:"design_days"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// ByKind returns the design days of the given kind, in file order.
func (f *DDYFile) ByKind(kind string) []DesignDay {
	var out []DesignDay
	for _, d := range f.DesignDays {
		if d.Kind() == kind {
			out = append(out, d)
		}
	}
	return out
}

// ReadDDY reads and parses the DDY file at path.
func ReadDDY(path string, logger *slog.Logger) (*DDYFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ddy file: %w", err)
	}
	ddy := ParseDDY(decodeLatin1(data), logger.With("path", path))
	ddy.Path = path
	return ddy, nil
}

// ParseDDY extracts Site:Location and SizingPeriod:DesignDay objects from IDF
// text. Objects with unreadable numeric fields are skipped with a warning.
func ParseDDY(text string, logger *slog.Logger) *DDYFile {
	ddy := &DDYFile{}
	for _, obj := range parseIDFObjects(text) {
		switch {
		case strings.EqualFold(obj.class, "Site:Location"):
			ddy.SiteName = obj.field(0)
			ddy.Latitude = obj.optFloat(1)
			ddy.Longitude = obj.optFloat(2)
			ddy.TimeZone = obj.optFloat(3)
			ddy.Elevation = obj.optFloat(4)
		case strings.EqualFold(obj.class, "SizingPeriod:DesignDay"):
			dd, err := designDayFromObject(obj)
			if err != nil {
				ddy.Warnings = append(ddy.Warnings, err.Error())
				logger.Warn("design day skipped", "name", obj.field(0), "error", err)
				continue
			}
			ddy.DesignDays = append(ddy.DesignDays, dd)
		}
	}
	return ddy
}

// designDayFromObject maps the SizingPeriod:DesignDay field order of
// EnergyPlus 8.x and later.
func designDayFromObject(obj idfObject) (DesignDay, error) {
	dd := DesignDay{
		Name:            obj.field(0),
		DayType:         obj.field(3),
		HumidityType:    obj.field(8),
		RainIndicator:   strings.EqualFold(obj.field(17), "Yes"),
		SnowIndicator:   strings.EqualFold(obj.field(18), "Yes"),
		DaylightSavings: strings.EqualFold(obj.field(19), "Yes"),
		SolarModel:      obj.field(20),
	}
	if dd.Name == "" {
		return dd, fmt.Errorf("design day without a name")
	}

	var err error
	if dd.Month, err = obj.integer(1); err != nil {
		return dd, fmt.Errorf("design day %q month: %w", dd.Name, err)
	}
	if dd.Day, err = obj.integer(2); err != nil {
		return dd, fmt.Errorf("design day %q day: %w", dd.Name, err)
	}
	if dd.MaxDryBulb, err = obj.number(4); err != nil {
		return dd, fmt.Errorf("design day %q max dry bulb: %w", dd.Name, err)
	}

	// Optional numerics default to zero.
	dd.DailyRange = obj.floatOr(5, 0)
	dd.HumidityValue = obj.floatOr(9, 0)
	dd.Pressure = obj.floatOr(14, 0)
	dd.WindSpeed = obj.floatOr(15, 0)
	dd.WindDirection = obj.floatOr(16, 0)
	dd.ClearnessOrTauB = obj.floatOr(obj.tauOrClearnessIndex(), 0)
	dd.TauDiffuse = obj.floatOr(24, 0)
	dd.AnnualPercentile = annualPercentile(dd.Name)
	return dd, nil
}

// annualPercentile extracts "99.6%" from "Chicago Ann Htg 99.6% Condns DB".
func annualPercentile(name string) string {
	for _, f := range strings.Fields(name) {
		if strings.HasSuffix(f, "%") {
			return f
		}
	}
	return ""
}

type idfObject struct {
	class  string
	fields []string
}

// parseIDFObjects splits IDF text into objects. "!" starts a comment that runs
// to the end of the line, "," separates fields and ";" ends an object.
func parseIDFObjects(text string) []idfObject {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if i := strings.IndexByte(line, '!'); i >= 0 {
			line = line[:i]
		}
		b.WriteString(line)
		b.WriteByte(' ')
	}

	var objs []idfObject
	for _, chunk := range strings.Split(b.String(), ";") {
		parts := strings.Split(chunk, ",")
		class := strings.TrimSpace(parts[0])
		if class == "" {
			continue
		}
		fields := make([]string, 0, len(parts)-1)
		for _, p := range parts[1:] {
			fields = append(fields, strings.TrimSpace(p))
		}
		objs = append(objs, idfObject{class: class, fields: fields})
	}
	return objs
}

func (o idfObject) field(i int) string {
	if i < len(o.fields) {
		return o.fields[i]
	}
	return ""
}

func (o idfObject) number(i int) (float64, error) {
	return parseNumber(o.field(i))
}

func (o idfObject) floatOr(i int, def float64) float64 {
	v, err := o.number(i)
	if err != nil {
		return def
	}
	return v
}

func (o idfObject) optFloat(i int) *float64 {
	v, err := o.number(i)
	if err != nil {
		return nil
	}
	return &v
}

func (o idfObject) integer(i int) (int, error) {
	return strconv.Atoi(o.field(i))
}

// tauOrClearnessIndex returns the field holding the clearness (ASHRAEClearSky)
// or the beam optical depth (ASHRAETau).
func (o idfObject) tauOrClearnessIndex() int {
	if strings.EqualFold(o.field(20), "ASHRAETau") {
		return 23
	}
	return 25
}
