package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/building-energy-toolkit/internal/domain"
	"github.com/couchcryptid/building-energy-toolkit/internal/report"
)

func runWeather(_ context.Context, e *env, args []string) error {
	fs := newFlagSet("weather")
	fs.StringVar(&e.cfg.WeatherDir, "weather-dir", e.cfg.WeatherDir, "directory of EPW/DDY/STAT sets")
	out := fs.StringP("out", "o", ".", "directory for the climate index CSV")
	if err := fs.Parse(args); err != nil {
		return err
	}

	lib, err := e.openLibrary()
	if err != nil {
		return err
	}
	for _, entry := range lib.Entries() {
		if len(entry.Missing) > 0 {
			e.logger.Warn("weather set left out of index", "name", entry.Name, "missing", entry.Missing)
		}
	}
	files := lib.All()
	if len(files) == 0 {
		return fmt.Errorf("no complete weather sets in %s", lib.Dir())
	}

	path := report.StampedPath(*out, "climate_index")
	if err := report.WriteFile(path, func(w io.Writer) error {
		return report.WriteClimateIndex(w, files)
	}); err != nil {
		return err
	}
	e.logger.Info("climate index written", "path", path, "files", len(files))
	fmt.Fprintln(e.stdout, path)
	return nil
}

type nearestOutput struct {
	Site       domain.Site `json:"site"`
	Weather    string      `json:"weather"`
	EPW        string      `json:"epw"`
	DistanceKm float64     `json:"distance_km"`
}

func runNearest(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("nearest")
	fs.StringVar(&e.cfg.WeatherDir, "weather-dir", e.cfg.WeatherDir, "directory of EPW/DDY/STAT sets")
	lat := fs.Float64("lat", 0, "site latitude in decimal degrees")
	lon := fs.Float64("lon", 0, "site longitude in decimal degrees")
	address := fs.StringP("address", "a", "", "place to geocode when no coordinates are given")
	if err := fs.Parse(args); err != nil {
		return err
	}

	geocoder, err := e.newGeocoder()
	if err != nil {
		return err
	}
	site := domain.Site{Query: *address}
	if fs.Changed("lat") || fs.Changed("lon") {
		site = site.WithCoords(*lat, *lon)
	}
	site, err = domain.LocateSite(ctx, site, geocoder, e.logger)
	if err != nil {
		if errors.Is(err, domain.ErrUnlocated) && *address == "" {
			return fmt.Errorf("%w: pass --lat/--lon or --address", err)
		}
		return err
	}

	lib, err := e.openLibrary()
	if err != nil {
		return err
	}
	wf, dist, err := lib.Nearest(site.Lat, site.Lon)
	if err != nil {
		return err
	}
	return writeJSON(e.stdout, nearestOutput{Site: site, Weather: wf.Name, EPW: wf.EPWPath, DistanceKm: dist})
}
