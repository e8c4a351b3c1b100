// Package app wires the recording and rendering pipelines together behind
// the command line interface.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dshills/castsvg/internal/asciicast"
	"github.com/dshills/castsvg/internal/config"
	"github.com/dshills/castsvg/internal/frame"
	"github.com/dshills/castsvg/internal/logging"
	"github.com/dshills/castsvg/internal/record"
	"github.com/dshills/castsvg/internal/render"
	"github.com/dshills/castsvg/internal/templates"
	"github.com/dshills/castsvg/internal/vt"
)

// Options are the parsed command line settings shared by the subcommands.
type Options struct {
	// Command is the program line recorded inside the PTY (-c).
	Command string

	// Cols and Rows are the target screen geometry (-g), zero when unset.
	Cols int
	Rows int

	// MinFrameMS, MaxFrameMS and LoopDelayMS control frame timing.
	// MaxFrameMS zero means unlimited.
	MinFrameMS  int64
	MaxFrameMS  int64
	LoopDelayMS int64

	// Template is a built-in template name or a filesystem path (-t).
	Template string

	// StillFrames selects the still-frame emitter (-s).
	StillFrames bool
}

// App runs the castsvg subcommands.
type App struct {
	cfg *config.Config
	log *logging.Logger
}

// New creates an App with the given configuration and logger.
func New(cfg *config.Config, log *logging.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logging.Default()
	}
	return &App{cfg: cfg, log: log}
}

// ParseGeometry validates a COLSxROWS string.
func ParseGeometry(s string) (cols, rows int, err error) {
	parts := strings.Split(s, "x")
	if len(parts) == 2 {
		cols, err1 := strconv.Atoi(parts[0])
		rows, err2 := strconv.Atoi(parts[1])
		if err1 == nil && err2 == nil && cols > 0 && rows > 0 {
			return cols, rows, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: geometry must be COLSxROWS with positive integers, got %q", ErrUsage, s)
}

// TempPath returns a fresh file name under the system temporary directory,
// prefixed termtosvg_ with a short random suffix.
func TempPath(suffix string) string {
	return filepath.Join(os.TempDir(),
		"termtosvg_"+strings.ReplaceAll(uuid.NewString(), "-", "")[:6]+suffix)
}

// Record records a terminal session to castPath in asciicast v2 format.
func (a *App) Record(opts Options, castPath string) error {
	session, err := record.Start(record.Options{
		Command: splitCommand(opts.Command),
		Cols:    opts.Cols,
		Rows:    opts.Rows,
		Logger:  a.log,
	})
	if err != nil {
		return opError("record", castPath, err)
	}

	castFile, err := os.Create(castPath)
	if err != nil {
		session.Close()
		return opError("record", castPath, err)
	}
	defer castFile.Close()

	a.log.Infof("recording started, enter \"exit\" or press Control-D to end")
	err = session.Run(os.Stdin, os.Stdout, asciicast.NewWriter(castFile))
	if err != nil && err != record.ErrInterrupted {
		return opError("record", castPath, err)
	}
	a.log.Infof("recording ended, cast file is %s", castPath)
	return err
}

// Render renders a cast file to an animated SVG, or to a directory of
// still SVGs when opts.StillFrames is set.
func (a *App) Render(opts Options, castPath, outPath string) error {
	cast, err := asciicast.DecodeFile(castPath)
	if err != nil {
		return opError("render", castPath, err)
	}
	a.log.Debugf("decoded cast: %dx%d, %d events",
		cast.Header.Width, cast.Header.Height, len(cast.Events))
	if len(cast.OutputEvents()) == 0 {
		return opError("render", castPath, asciicast.ErrEmptyCast)
	}

	snaps, err := vt.Replay(cast, a.log)
	if err != nil {
		return opError("render", castPath, err)
	}
	a.log.Debugf("replayed %d snapshots", len(snaps))

	frames, total, err := frame.Normalize(snaps, frame.Options{
		MinDuration: opts.MinFrameMS,
		MaxDuration: opts.MaxFrameMS,
		LoopDelay:   opts.LoopDelayMS,
	})
	if err != nil {
		return opError("render", castPath, err)
	}
	a.log.Debugf("normalised to %d frames, loop duration %dms", len(frames), total)

	templateData, err := a.resolveTemplate(opts.Template)
	if err != nil {
		return err
	}

	tmpl, err := render.ParseTemplate(templateData)
	if err != nil {
		return opError("render", opts.Template, err)
	}

	renderOpts := render.Options{
		Theme:      a.pickTheme(cast, tmpl),
		FontFamily: a.cfg.Font,
		FontSize:   a.cfg.FontSize,
	}

	if opts.StillFrames {
		return a.emitStills(templateData, cast, frames, renderOpts, castPath, outPath)
	}

	if err := tmpl.Resize(cast.Header.Width, cast.Header.Height); err != nil {
		return opError("render", opts.Template, err)
	}
	data, err := render.Compose(tmpl, frames, total, renderOpts)
	if err != nil {
		return opError("render", castPath, err)
	}
	if err := render.WriteFileAtomic(outPath, data); err != nil {
		return opError("render", outPath, err)
	}
	a.log.Infof("rendering ended, SVG animation is %s", outPath)
	return nil
}

func (a *App) emitStills(templateData []byte, cast *asciicast.Cast, frames []frame.Frame, renderOpts render.Options, castPath, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return opError("render", outDir, err)
	}
	stem := strings.TrimSuffix(filepath.Base(castPath), filepath.Ext(castPath))
	if stem == "" {
		stem = "frame"
	}
	paths, err := render.EmitStills(outDir, stem, templateData,
		cast.Header.Width, cast.Header.Height, frames, renderOpts)
	if err != nil {
		return opError("render", outDir, err)
	}
	a.log.Infof("rendering ended, %d still frames in %s", len(paths), outDir)
	return nil
}

// RecordRender records a session and renders it in one go, keeping the
// intermediate cast in a temporary file.
func (a *App) RecordRender(opts Options, outPath string) error {
	castPath := TempPath(".cast")
	defer os.Remove(castPath)

	if err := a.Record(opts, castPath); err != nil && err != record.ErrInterrupted {
		return err
	}
	return a.Render(opts, castPath, outPath)
}

// resolveTemplate maps a template flag value to template data: a built-in
// name first, a filesystem path otherwise.
func (a *App) resolveTemplate(name string) ([]byte, error) {
	if name == "" {
		name = a.cfg.Template
	}
	if data, ok := templates.Lookup(name); ok {
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, opError("render", name,
			fmt.Errorf("%w: not a built-in template (%s) and not a readable file",
				render.ErrTemplateInvalid, strings.Join(templates.Names(), ", ")))
	}
	return data, nil
}

// pickTheme resolves the rendering theme: user configuration override
// first, then the cast header, then the template default.
func (a *App) pickTheme(cast *asciicast.Cast, tmpl *render.Template) *asciicast.Theme {
	if a.cfg.Theme != "" {
		if theme := a.cfg.ResolveTheme(a.cfg.Theme, a.log); theme != nil {
			return theme
		}
	}
	if cast.Header.Theme != nil {
		return cast.Header.Theme
	}
	return tmpl.Theme
}

// splitCommand breaks the -c value into an argv. Quoting is not
// interpreted; arguments are whitespace-separated.
func splitCommand(command string) []string {
	return strings.Fields(command)
}
