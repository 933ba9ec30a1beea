package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/building-energy-toolkit/internal/adapter/http"
	"github.com/couchcryptid/building-energy-toolkit/internal/parametric"
	"github.com/couchcryptid/building-energy-toolkit/internal/weather"
)

// readiness requires at least one complete weather set and a reachable run
// manager.
type readiness struct {
	lib    *weather.Library
	driver *parametric.Driver
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	if len(r.lib.Sets()) == 0 {
		return fmt.Errorf("weather library %s has no complete file sets", r.lib.Dir())
	}
	return r.driver.CheckReadiness(ctx)
}

func runServe(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("serve")
	fs.StringVar(&e.cfg.HTTPAddr, "addr", e.cfg.HTTPAddr, "listen address")
	fs.StringVar(&e.cfg.WorkDir, "work-dir", e.cfg.WorkDir, "directory for model files")
	fs.StringVar(&e.cfg.WeatherDir, "weather-dir", e.cfg.WeatherDir, "directory of EPW/DDY/STAT sets")
	fs.StringVar(&e.cfg.DispatchMode, "dispatch", e.cfg.DispatchMode, "run manager: manifest or kafka")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	lib, err := e.openLibrary()
	if err != nil {
		return err
	}
	geocoder, err := e.newGeocoder()
	if err != nil {
		return err
	}
	manager, release := e.newManager()
	defer release()
	driver := parametric.New(e.cfg.WorkDir, lib, manager, e.logger, e.metrics)

	srv := httpadapter.NewServer(e.cfg.HTTPAddr, httpadapter.Deps{
		Ready:    readiness{lib: lib, driver: driver},
		Weather:  lib,
		Studies:  driver,
		Geocoder: geocoder,
	}, e.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		e.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	e.logger.Info("shutdown complete")
	return nil
}
