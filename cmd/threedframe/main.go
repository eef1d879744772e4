// threedframe generates 3D-printable corner joints for polyhedral frames.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// errUsage marks argument errors; the usage text has already been printed.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	command, args := args[0], args[1:]
	var err error
	switch command {
	case "generate", "gen":
		err = cmdGenerate(ctx, args, stdout, stderr)
	case "inspect":
		err = cmdInspect(ctx, args, stdout, stderr)
	case "analyze":
		err = cmdAnalyze(args, stdout, stderr)
	case "compute":
		err = cmdCompute(ctx, args, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return 1
	}
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `threedframe - corner joint generator for polyhedral frames

Usage:
  threedframe <command> [options]

Commands:
  generate <model.json> [-v vertices] [-r] [-s scale]   Build joints
  inspect <model.json> <vertex>                         Show a joint's fixtures
  analyze <model.json> [--plot angles.png]              List acute sibling angles
  compute <model.blend>                                 Export model JSON with Blender

Examples:
  threedframe generate frame.json -v AA -v 3-7 -r
  threedframe generate frame.json --kernel scad --script plan.lisp
  threedframe inspect frame.json AB
  threedframe analyze frame.json --plot angles.png
  threedframe compute frame.blend`)
}
