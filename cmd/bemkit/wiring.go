package main

import (
	"encoding/json"
	"io"

	kafkaadapter "github.com/couchcryptid/building-energy-toolkit/internal/adapter/kafka"
	"github.com/couchcryptid/building-energy-toolkit/internal/adapter/manifest"
	"github.com/couchcryptid/building-energy-toolkit/internal/adapter/mapbox"
	"github.com/couchcryptid/building-energy-toolkit/internal/config"
	"github.com/couchcryptid/building-energy-toolkit/internal/domain"
	"github.com/couchcryptid/building-energy-toolkit/internal/parametric"
	"github.com/couchcryptid/building-energy-toolkit/internal/weather"
)

// openLibrary scans the weather directory behind an LRU of parsed files.
func (e *env) openLibrary() (*weather.Library, error) {
	loader, err := weather.NewCachedLoader(
		weather.FileLoader{Logger: e.logger, Metrics: e.metrics},
		e.cfg.WeatherCacheSize, e.metrics,
	)
	if err != nil {
		return nil, err
	}
	return weather.NewLibrary(e.cfg.WeatherDir, loader, e.logger)
}

// newGeocoder returns nil when geocoding is disabled.
func (e *env) newGeocoder() (domain.Geocoder, error) {
	if !e.cfg.MapboxEnabled {
		e.metrics.GeocodeEnabled.Set(0)
		e.logger.Info("mapbox geocoding disabled")
		return nil, nil
	}
	client := mapbox.NewClient(e.cfg.MapboxToken, e.cfg.MapboxTimeout, e.metrics, e.logger)
	geocoder, err := mapbox.NewCachedGeocoder(client, e.cfg.MapboxCacheSize, e.metrics)
	if err != nil {
		return nil, err
	}
	e.metrics.GeocodeEnabled.Set(1)
	e.logger.Info("mapbox geocoding enabled", "cache_size", e.cfg.MapboxCacheSize, "timeout", e.cfg.MapboxTimeout)
	return geocoder, nil
}

// newManager returns the configured run manager and a function releasing it.
func (e *env) newManager() (parametric.RunManager, func()) {
	if e.cfg.DispatchMode == config.DispatchKafka {
		w := kafkaadapter.NewJobWriter(e.cfg, e.logger)
		return w, func() {
			if err := w.Close(); err != nil {
				e.logger.Error("kafka writer close error", "error", err)
			}
		}
	}
	return manifest.NewWriter(e.logger), func() {}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
