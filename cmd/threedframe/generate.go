package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/director"
	"github.com/chazu/threedframe/pkg/engine"
	"github.com/chazu/threedframe/pkg/kernel"
	"github.com/chazu/threedframe/pkg/kernel/scad"
	"github.com/chazu/threedframe/pkg/kernel/sdfx"
	"github.com/chazu/threedframe/pkg/logger"
	"github.com/chazu/threedframe/pkg/metrics"
	"go.uber.org/zap"
)

func cmdGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("generate", "generate <model.json> [options]", stderr)
	var vertices stringList
	fs.Var(&vertices, "v", "Vertex to build: label, index or range (repeatable)")
	flags := config.RegisterFlags(fs)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(fs, pos, 1); err != nil {
		return err
	}

	cfg, log, err := setup(flags, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync(log)

	data, err := os.ReadFile(pos[0])
	if err != nil {
		return err
	}

	jobs := []engine.Job{{Vertices: vertices}}
	if cfg.Build.Script != "" {
		plan, err := engine.NewEngine().EvaluateFile(cfg.Build.Script)
		if err != nil {
			return err
		}
		if err := plan.Apply(cfg); err != nil {
			return err
		}
		if len(plan.Jobs) > 0 {
			jobs = plan.Jobs
		}
		log.Info("build plan loaded",
			zap.String("script", cfg.Build.Script),
			zap.Int("jobs", len(plan.Jobs)))
	}

	k, err := newKernel(cfg, log)
	if err != nil {
		return err
	}

	timer := metrics.NewTimer()
	defer func() {
		fmt.Fprintln(stdout)
		timer.WriteReport(stdout)
	}()

	var built, cached int
	for _, job := range jobs {
		d := director.New(k, job.Config(cfg), director.WithLogger(log), director.WithTimer(timer))
		results, err := d.Run(ctx, data, job.Vertices)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Cached {
				cached++
				continue
			}
			built++
			out := r.Render
			if out == "" {
				out = r.Script
			}
			fmt.Fprintf(stdout, "✔ %s  %s\n", r.Label, out)
		}
	}
	fmt.Fprintf(stdout, "Built %d joints (%d cached) with the %s kernel.\n", built, cached, k.Name())
	return nil
}

// setup loads the configuration, applies flags and builds the logger.
func setup(flags *config.Flags, stderr io.Writer) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flags.ConfigPath())
	if err != nil {
		return nil, nil, err
	}
	flags.Apply(cfg)

	opts := logger.Options{Level: cfg.Logging.Level, Console: stderr}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	log, err := logger.NewWithOptions(opts)
	if err != nil {
		return nil, nil, err
	}
	log, _ = logger.WithRun(log)
	return cfg, log, nil
}

// newKernel builds the geometry kernel named in cfg.
func newKernel(cfg *config.Config, log *zap.Logger) (kernel.Kernel, error) {
	switch cfg.Kernel.Name {
	case "", "sdfx":
		font, err := sdfx.LoadFont(cfg.Kernel.FontPath)
		if err != nil {
			return nil, err
		}
		return sdfx.New(
			sdfx.WithMeshCells(cfg.Kernel.MeshCells),
			sdfx.WithFont(font),
			sdfx.WithLogger(log.Named("sdfx")),
		), nil
	case "scad":
		k, err := scad.New(
			scad.WithBinary(cfg.Kernel.OpenSCAD),
			scad.WithSegments(cfg.Kernel.Segments),
			scad.WithTimeout(cfg.Kernel.Timeout),
			scad.WithLogger(log.Named("scad")),
		)
		if err != nil {
			return nil, err
		}
		return k, nil
	}
	return nil, fmt.Errorf("unknown kernel %q (want sdfx or scad)", cfg.Kernel.Name)
}
