package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnlocated is returned by LocateSite when neither coordinates nor a
// resolvable query are available.
var ErrUnlocated = errors.New("site has no location")

// Site sources.
const (
	SiteSourceOriginal = "original"
	SiteSourceForward  = "forward"
)

// Site is the location of a building, given directly or as a place query.
type Site struct {
	Query            string  `json:"query,omitempty"`
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	Source           string  `json:"source"`

	located bool
}

// WithCoords returns s located at lat, lon. The equator and prime meridian
// are valid coordinates, so presence is tracked apart from the values.
func (s Site) WithCoords(lat, lon float64) Site {
	s.Lat, s.Lon = lat, lon
	s.located = true
	return s
}

// HasCoords reports whether the site carries coordinates.
func (s Site) HasCoords() bool { return s.located }

// LocateSite fills in the coordinates of a site. Explicit coordinates are kept
// as given; otherwise the query is forward geocoded.
func LocateSite(ctx context.Context, site Site, geocoder Geocoder, logger *slog.Logger) (Site, error) {
	if site.HasCoords() {
		site.Source = SiteSourceOriginal
		return site, nil
	}
	if site.Query == "" {
		return site, ErrUnlocated
	}
	if geocoder == nil {
		return site, fmt.Errorf("%w: geocoding disabled for %q", ErrUnlocated, site.Query)
	}

	result, err := geocoder.ForwardGeocode(ctx, site.Query)
	if err != nil {
		logger.Warn("forward geocoding failed", "query", site.Query, "error", err)
		return site, fmt.Errorf("locate %q: %w", site.Query, err)
	}
	if result.Lat == 0 && result.Lon == 0 {
		return site, fmt.Errorf("%w: no match for %q", ErrUnlocated, site.Query)
	}

	site = site.WithCoords(result.Lat, result.Lon)
	site.FormattedAddress = result.FormattedAddress
	site.PlaceName = result.PlaceName
	site.Confidence = result.Confidence
	site.Source = SiteSourceForward
	return site, nil
}
