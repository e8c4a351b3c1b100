package app

import (
	"errors"
	"fmt"

	"github.com/dshills/castsvg/internal/asciicast"
	"github.com/dshills/castsvg/internal/frame"
	"github.com/dshills/castsvg/internal/record"
	"github.com/dshills/castsvg/internal/render"
	"github.com/dshills/castsvg/internal/vt"
)

// ErrUsage indicates invalid command line input.
var ErrUsage = errors.New("usage error")

// Exit codes returned by the CLI.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitInvalid     = 2
	ExitIO          = 3
	ExitInterrupted = 130
)

// OperationError carries the failing operation and its target so error
// messages name the file involved.
type OperationError struct {
	Op     string // Operation name (e.g., "render", "record")
	Target string // Target of the operation (e.g., a file path)
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OperationError) Unwrap() error {
	return e.Err
}

func opError(op, target string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Target: target, Err: err}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, record.ErrInterrupted):
		return ExitInterrupted
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, asciicast.ErrInvalidCast),
		errors.Is(err, asciicast.ErrEmptyCast),
		errors.Is(err, render.ErrTemplateInvalid),
		errors.Is(err, frame.ErrEmptyStream),
		errors.Is(err, vt.ErrEmulator):
		return ExitInvalid
	default:
		return ExitIO
	}
}
