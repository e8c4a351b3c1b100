// Package main is the entry point for the castsvg tool: it records a
// terminal session and renders it as an animated SVG.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dshills/castsvg/internal/app"
	"github.com/dshills/castsvg/internal/config"
	"github.com/dshills/castsvg/internal/logging"
	"github.com/dshills/castsvg/internal/templates"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	command := ""
	if len(args) > 0 && (args[0] == "record" || args[0] == "render") {
		command = args[0]
		args = args[1:]
	}

	opts, positional, verbose, err := parseFlags(command, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return app.ExitUsage
	}

	log := logging.Default()
	if verbose {
		log.SetLevel(logging.LevelDebug)
	}

	cfg := config.Load(log)
	if opts.Template == "" {
		opts.Template = cfg.Template
	}

	a := app.New(cfg, log)

	switch command {
	case "record":
		castPath := positionalOr(positional, 0, app.TempPath(".cast"))
		err = a.Record(opts, castPath)
	case "render":
		if len(positional) < 1 {
			fmt.Fprintln(os.Stderr, "Error: render requires an input file")
			return app.ExitUsage
		}
		outPath := positionalOr(positional, 1, defaultOutput(opts))
		err = a.Render(opts, positional[0], outPath)
	default:
		outPath := positionalOr(positional, 0, defaultOutput(opts))
		err = a.RecordRender(opts, outPath)
	}

	if code := app.ExitCode(err); code != app.ExitOK {
		if code != app.ExitInterrupted {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return code
	}
	return app.ExitOK
}

func defaultOutput(opts app.Options) string {
	if opts.StillFrames {
		return app.TempPath("")
	}
	return app.TempPath(".svg")
}

func positionalOr(positional []string, index int, fallback string) string {
	if index < len(positional) {
		return positional[index]
	}
	return fallback
}

func parseFlags(command string, args []string) (app.Options, []string, bool, error) {
	opts := app.Options{
		MinFrameMS:  1,
		LoopDelayMS: 1000,
	}
	var geometry string
	var verbose bool

	fs := flag.NewFlagSet("castsvg", flag.ContinueOnError)
	fs.StringVar(&opts.Command, "command", "", "Program (with arguments) to run inside the PTY")
	fs.StringVar(&opts.Command, "c", "", "Program to run inside the PTY (shorthand)")
	fs.StringVar(&geometry, "screen-geometry", "", "Screen geometry as COLSxROWS, e.g. 82x19")
	fs.StringVar(&geometry, "g", "", "Screen geometry as COLSxROWS (shorthand)")
	fs.Int64Var(&opts.MinFrameMS, "min-frame-duration", 1, "Minimum frame duration in milliseconds")
	fs.Int64Var(&opts.MinFrameMS, "m", 1, "Minimum frame duration in milliseconds (shorthand)")
	fs.Int64Var(&opts.MaxFrameMS, "max-frame-duration", 0, "Maximum frame duration in milliseconds (0 = unlimited)")
	fs.Int64Var(&opts.MaxFrameMS, "M", 0, "Maximum frame duration in milliseconds (shorthand)")
	fs.Int64Var(&opts.LoopDelayMS, "loop-delay", 1000, "Duration of the last frame before the animation loops, in milliseconds")
	fs.Int64Var(&opts.LoopDelayMS, "D", 1000, "Loop delay in milliseconds (shorthand)")
	fs.StringVar(&opts.Template, "template", "", "Built-in template name or path to a template file")
	fs.StringVar(&opts.Template, "t", "", "Template name or path (shorthand)")
	fs.BoolVar(&opts.StillFrames, "still-frames", false, "Emit a directory of still SVG frames instead of an animation")
	fs.BoolVar(&opts.StillFrames, "s", false, "Emit still frames (shorthand)")
	fs.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&verbose, "v", false, "Enable verbose logging (shorthand)")

	fs.Usage = func() { usage(fs, command) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			os.Exit(app.ExitOK)
		}
		return opts, nil, false, err
	}

	if geometry != "" {
		cols, rows, err := app.ParseGeometry(geometry)
		if err != nil {
			return opts, nil, false, err
		}
		opts.Cols, opts.Rows = cols, rows
	}
	if opts.MinFrameMS < 1 {
		return opts, nil, false, fmt.Errorf("minimum frame duration must be at least 1ms")
	}
	if opts.MaxFrameMS != 0 && opts.MaxFrameMS < opts.MinFrameMS {
		return opts, nil, false, fmt.Errorf("maximum frame duration must not be below the minimum")
	}
	if opts.LoopDelayMS < 0 {
		return opts, nil, false, fmt.Errorf("loop delay must be non-negative")
	}

	return opts, fs.Args(), verbose, nil
}

func usage(fs *flag.FlagSet, command string) {
	switch command {
	case "record":
		fmt.Fprintln(os.Stderr, "Usage: castsvg record [options] [output_file]")
		fmt.Fprintln(os.Stderr, "\nRecord a terminal session to a file in asciicast v2 format.")
	case "render":
		fmt.Fprintln(os.Stderr, "Usage: castsvg render [options] input_file [output_file]")
		fmt.Fprintln(os.Stderr, "\nRender an asciicast recording as an SVG animation.")
	default:
		fmt.Fprintln(os.Stderr, "Usage: castsvg [options] [output_file]")
		fmt.Fprintln(os.Stderr, "       castsvg record [options] [output_file]")
		fmt.Fprintln(os.Stderr, "       castsvg render [options] input_file [output_file]")
		fmt.Fprintln(os.Stderr, "\nRecord a terminal session and render it as an SVG animation.")
	}
	fmt.Fprintln(os.Stderr, "\nOptions:")
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nBuilt-in templates:\n  %s\n", strings.Join(templates.Names(), ", "))
}
