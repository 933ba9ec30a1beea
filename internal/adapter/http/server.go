package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/building-energy-toolkit/internal/domain"
	"github.com/couchcryptid/building-energy-toolkit/internal/geometry"
	"github.com/couchcryptid/building-energy-toolkit/internal/parametric"
	"github.com/couchcryptid/building-energy-toolkit/internal/weather"
)

const maxBodyBytes = 4 << 20

// WeatherLibrary is the read side of a weather file library.
type WeatherLibrary interface {
	Entries() []weather.Entry
	Get(name string) (*weather.WeatherFile, error)
	Nearest(lat, lon float64) (*weather.WeatherFile, float64, error)
}

// StudyRunner expands and dispatches a parametric study.
type StudyRunner interface {
	Run(ctx context.Context, s *parametric.Study) (*parametric.Result, error)
}

// Deps are the collaborators behind the API routes. Routes whose
// collaborator is nil are not registered.
type Deps struct {
	Ready    sharedobs.ReadinessChecker
	Weather  WeatherLibrary
	Studies  StudyRunner
	Geocoder domain.Geocoder
}

// Server exposes the toolkit API next to health, readiness and metrics.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server listening on addr.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/weather/stat", s.handleParseStat)
	mux.HandleFunc("POST /v1/geometry", s.handleGeometry)
	if deps.Weather != nil {
		mux.HandleFunc("GET /v1/weather", s.handleListWeather)
		mux.HandleFunc("GET /v1/weather/nearest", s.handleNearestWeather)
		mux.HandleFunc("GET /v1/weather/{name}", s.handleGetWeather)
	}
	if deps.Studies != nil {
		mux.HandleFunc("POST /v1/studies", s.handleRunStudy)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleListWeather(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"files": s.deps.Weather.Entries()})
}

func (s *Server) handleGetWeather(w http.ResponseWriter, r *http.Request) {
	wf, err := s.deps.Weather.Get(r.PathValue("name"))
	if err != nil {
		s.writeError(w, weatherStatus(err), err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, wf)
}

type nearestResponse struct {
	Site       domain.Site          `json:"site"`
	DistanceKm float64              `json:"distance_km"`
	Weather    *weather.WeatherFile `json:"weather"`
}

// handleNearestWeather resolves ?lat=&lon= or ?q= to the closest library file.
func (s *Server) handleNearestWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	site := domain.Site{Query: q.Get("q")}
	if q.Has("lat") || q.Has("lon") {
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
		if err := errors.Join(errLat, errLon); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid coordinates: %w", err))
			return
		}
		site = site.WithCoords(lat, lon)
	}

	site, err := domain.LocateSite(r.Context(), site, s.deps.Geocoder, s.logger)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrUnlocated) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}

	wf, dist, err := s.deps.Weather.Nearest(site.Lat, site.Lon)
	if err != nil {
		s.writeError(w, weatherStatus(err), err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, nearestResponse{Site: site, DistanceKm: dist, Weather: wf})
}

type statResponse struct {
	Valid bool `json:"valid"`
	*weather.StatFile
}

func (s *Server) handleParseStat(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	stat := weather.ParseStat(data, s.logger)
	sharedobs.WriteJSON(w, http.StatusOK, statResponse{Valid: stat.Valid(), StatFile: stat})
}

type geometryRequest struct {
	Kind              string            `json:"kind"`
	Params            json.RawMessage   `json:"params"`
	Stories           *geometry.Stories `json:"stories"`
	WindowToWallRatio *float64          `json:"window_to_wall_ratio"`
	IncludeBuilding   bool              `json:"include_building"`
}

type geometryResponse struct {
	Summary           geometry.Summary   `json:"summary"`
	WindowToWallRatio float64            `json:"window_to_wall_ratio"`
	Warnings          []string           `json:"warnings,omitempty"`
	Building          *geometry.Building `json:"building,omitempty"`
}

func (s *Server) handleGeometry(w http.ResponseWriter, r *http.Request) {
	var req geometryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	shape, err := geometry.NewShape(req.Kind)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Params) == 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("shape %s: params missing", req.Kind))
		return
	}
	if err := json.Unmarshal(req.Params, shape); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("shape %s: %w", req.Kind, err))
		return
	}
	stories := geometry.DefaultStories()
	if req.Stories != nil {
		stories = *req.Stories
	}

	b, err := geometry.Build(shape, stories)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, geometry.ErrInvalidShape) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}
	if req.WindowToWallRatio != nil {
		if _, err := b.ApplyWindowToWallRatio(*req.WindowToWallRatio); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	warnings := b.RemoveInvalid()
	sum := b.Summary()

	resp := geometryResponse{Summary: sum, WindowToWallRatio: sum.WindowToWallRatio(), Warnings: warnings}
	if req.IncludeBuilding {
		resp.Building = b
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

// handleRunStudy accepts a YAML study document and dispatches its variants.
func (s *Server) handleRunStudy(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	study, err := parametric.ParseStudy(data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.deps.Studies.Run(r.Context(), study)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, weather.ErrNotFound), errors.Is(err, weather.ErrIncompleteSet):
			status = weatherStatus(err)
		case errors.Is(err, geometry.ErrInvalidShape), errors.Is(err, geometry.ErrUnknownShape),
			errors.Is(err, parametric.ErrUnknownParameter), errors.Is(err, parametric.ErrOutOfRange),
			errors.Is(err, parametric.ErrInvalidStudy):
			status = http.StatusUnprocessableEntity
		}
		s.writeError(w, status, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusAccepted, res)
}

func weatherStatus(err error) int {
	switch {
	case errors.Is(err, weather.ErrIncompleteSet):
		return http.StatusConflict
	case errors.Is(err, weather.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
