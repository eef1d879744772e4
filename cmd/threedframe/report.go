package main

import (
	"context"
	"fmt"
	"io"

	"github.com/chazu/threedframe/pkg/blender"
	"github.com/chazu/threedframe/pkg/config"
	"github.com/chazu/threedframe/pkg/logger"
	"github.com/chazu/threedframe/pkg/model"
	"github.com/chazu/threedframe/pkg/report"
)

func cmdInspect(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("inspect", "inspect <model.json> <vertex> [options]", stderr)
	resolve := fs.Bool("resolve", false, "Mesh the fixtures and resolve conflicts before reporting")
	angle := fs.Float64("angle", report.DefaultAcuteAngle, "Flag sibling angles at or below this many degrees")
	flags := config.RegisterFlags(fs)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(fs, pos, 2); err != nil {
		return err
	}

	cfg, log, err := setup(flags, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync(log)

	m, err := model.Load(pos[0])
	if err != nil {
		return err
	}
	in := &report.Inspector{Config: cfg, Logger: log, AcuteAngle: *angle}
	if *resolve {
		if in.Kernel, err = newKernel(cfg, log); err != nil {
			return err
		}
	}
	r, err := in.Inspect(ctx, m, pos[1])
	if err != nil {
		return err
	}
	return report.WriteTree(stdout, r)
}

func cmdAnalyze(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("analyze", "analyze <model.json> [--plot angles.png]", stderr)
	plot := fs.String("plot", "", "Write a sibling-angle histogram to this file")
	angle := fs.Float64("angle", report.DefaultAcuteAngle, "Report sibling angles at or below this many degrees")
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

	m, err := model.Load(pos[0])
	if err != nil {
		return err
	}
	an, err := report.Analyze(cfg, m, *angle, log)
	if err != nil {
		return err
	}
	if err := an.WriteTable(stdout); err != nil {
		return err
	}
	if *plot != "" {
		if err := an.PlotAngles(*plot); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Histogram written to: %s\n", *plot)
	}
	return nil
}

func cmdCompute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("compute", "compute <model.blend> [options]", stderr)
	out := fs.String("o", "", "Output JSON path (default: model path with .json)")
	unitScale := fs.Float64("unit-scale", blender.InchesToMM, "Millimetres per Blender scene unit")
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

	path := *out
	if path == "" {
		path = blender.OutputPath(pos[0])
	}
	e := blender.New(cfg.Blender, blender.WithLogger(log.Named("blender")), blender.WithUnitScale(*unitScale))
	m, err := e.Compute(ctx, pos[0], path)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✔ Computed: %d edges | %d vertices\n", m.NumEdges, m.NumVertices)
	fmt.Fprintf(stdout, "Data written to: %s\n", path)
	return nil
}
