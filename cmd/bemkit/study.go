package main

import (
	"context"
	"errors"

	"github.com/couchcryptid/building-energy-toolkit/internal/parametric"
)

type studyOutput struct {
	Study     string `json:"study"`
	Dir       string `json:"dir"`
	BaseModel string `json:"base_model"`
	Manager   string `json:"manager"`
	Jobs      int    `json:"jobs"`
}

func runStudy(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("study")
	fs.StringVar(&e.cfg.WorkDir, "work-dir", e.cfg.WorkDir, "directory for model files")
	fs.StringVar(&e.cfg.WeatherDir, "weather-dir", e.cfg.WeatherDir, "directory of EPW/DDY/STAT sets")
	fs.StringVar(&e.cfg.DispatchMode, "dispatch", e.cfg.DispatchMode, "run manager: manifest or kafka")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: bemkit study [flags] STUDY.yaml")
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	study, err := parametric.LoadStudy(fs.Arg(0))
	if err != nil {
		return err
	}

	var source parametric.WeatherSource
	if study.Weather != "" {
		lib, err := e.openLibrary()
		if err != nil {
			return err
		}
		source = lib
	}

	manager, release := e.newManager()
	defer release()

	driver := parametric.New(e.cfg.WorkDir, source, manager, e.logger, e.metrics)
	res, err := driver.Run(ctx, study)
	if err != nil {
		return err
	}
	return writeJSON(e.stdout, studyOutput{
		Study:     res.Study,
		Dir:       res.Dir,
		BaseModel: res.BaseModel,
		Manager:   manager.Name(),
		Jobs:      len(res.Jobs),
	})
}
