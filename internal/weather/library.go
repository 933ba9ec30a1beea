package weather

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/building-energy-toolkit/internal/observability"
)

// ErrNotFound is returned when a library has no weather file by that name.
var ErrNotFound = errors.New("weather file not found")

// Loader loads a WeatherFile from an EPW path.
type Loader interface {
	Load(epwPath string) (*WeatherFile, error)
}

// FileLoader parses files from disk on every call. Parse warnings are counted
// when Metrics is set.
type FileLoader struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Load implements Loader.
func (l FileLoader) Load(epwPath string) (*WeatherFile, error) {
	wf, err := Load(epwPath, l.Logger)
	if err != nil {
		return nil, err
	}
	if l.Metrics != nil {
		l.Metrics.WeatherParseWarnings.Add(float64(len(wf.Warnings)))
	}
	return wf, nil
}

// CachedLoader wraps a Loader with an LRU cache keyed by EPW path.
type CachedLoader struct {
	inner   Loader
	cache   *lru.Cache[string, *WeatherFile]
	metrics *observability.Metrics
}

// NewCachedLoader creates a cache decorator holding at most maxEntries files.
func NewCachedLoader(inner Loader, maxEntries int, metrics *observability.Metrics) (*CachedLoader, error) {
	cache, err := lru.New[string, *WeatherFile](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create weather cache: %w", err)
	}
	return &CachedLoader{inner: inner, cache: cache, metrics: metrics}, nil
}

// Load implements Loader. Failed loads are not cached.
func (c *CachedLoader) Load(epwPath string) (*WeatherFile, error) {
	key := filepath.Clean(epwPath)
	if wf, ok := c.cache.Get(key); ok {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return wf, nil
	}
	c.metrics.WeatherCache.WithLabelValues("miss").Inc()
	wf, err := c.inner.Load(key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, wf)
	return wf, nil
}

// Len returns the number of cached files.
func (c *CachedLoader) Len() int { return c.cache.Len() }

// Library indexes the weather file sets of one directory.
type Library struct {
	dir    string
	loader Loader
	logger *slog.Logger

	sets       []FileSet
	incomplete map[string][]string
}

// Entry is a library listing line.
type Entry struct {
	Name    string   `json:"name"`
	EPW     string   `json:"epw"`
	Missing []string `json:"missing,omitempty"`
}

// NewLibrary scans dir for EPW files and their siblings.
func NewLibrary(dir string, loader Loader, logger *slog.Logger) (*Library, error) {
	lib := &Library{dir: dir, loader: loader, logger: logger}
	if err := lib.Rescan(); err != nil {
		return nil, err
	}
	return lib, nil
}

// Rescan rereads the directory listing.
func (l *Library) Rescan() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("scan weather library: %w", err)
	}

	l.sets = l.sets[:0]
	l.incomplete = map[string][]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".epw") {
			continue
		}
		fs := SiblingPaths(filepath.Join(l.dir, e.Name()))
		if missing := fs.Missing(); len(missing) > 0 {
			l.incomplete[fs.Name] = missing
			l.logger.Warn("incomplete weather file set", "name", fs.Name, "missing", missing)
			continue
		}
		l.sets = append(l.sets, fs)
	}
	slices.SortFunc(l.sets, func(a, b FileSet) int { return strings.Compare(a.Name, b.Name) })
	return nil
}

// Dir returns the scanned directory.
func (l *Library) Dir() string { return l.dir }

// Sets returns the complete file sets sorted by name.
func (l *Library) Sets() []FileSet { return slices.Clone(l.sets) }

// Entries lists complete and incomplete sets.
func (l *Library) Entries() []Entry {
	out := make([]Entry, 0, len(l.sets)+len(l.incomplete))
	for _, fs := range l.sets {
		out = append(out, Entry{Name: fs.Name, EPW: filepath.Base(fs.EPW)})
	}
	for name, missing := range l.incomplete {
		out = append(out, Entry{Name: name, EPW: name + ".epw", Missing: missing})
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Get loads the complete set with the given basename.
func (l *Library) Get(name string) (*WeatherFile, error) {
	for _, fs := range l.sets {
		if fs.Name == name {
			return l.loader.Load(fs.EPW)
		}
	}
	if missing, ok := l.incomplete[name]; ok {
		return nil, fmt.Errorf("%w: %s missing %s", ErrIncompleteSet, name, strings.Join(missing, ", "))
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// All loads every complete set. Sets that fail to load are logged and skipped.
func (l *Library) All() []*WeatherFile {
	out := make([]*WeatherFile, 0, len(l.sets))
	for _, fs := range l.sets {
		wf, err := l.loader.Load(fs.EPW)
		if err != nil {
			l.logger.Warn("weather file skipped", "name", fs.Name, "error", err)
			continue
		}
		out = append(out, wf)
	}
	return out
}

// Nearest returns the weather file closest to (lat, lon) by great-circle
// distance along with that distance in kilometres.
func (l *Library) Nearest(lat, lon float64) (*WeatherFile, float64, error) {
	var best *WeatherFile
	bestDist := math.Inf(1)
	for _, wf := range l.All() {
		d := Haversine(lat, lon, wf.Latitude, wf.Longitude)
		if d < bestDist {
			best, bestDist = wf, d
		}
	}
	if best == nil {
		return nil, 0, fmt.Errorf("%w: library %s has no loadable files", ErrNotFound, l.dir)
	}
	return best, bestDist, nil
}

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometres between two points
// given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
