// Package asciicast reads and writes terminal session transcripts in the
// asciicast v1 and v2 formats.
//
// Full specification:
// https://github.com/asciinema/asciinema/blob/develop/doc/asciicast-v2.md
package asciicast

import (
	"errors"
	"fmt"
)

// ErrInvalidCast indicates a malformed or unsupported cast file.
var ErrInvalidCast = errors.New("invalid cast")

// ErrEmptyCast indicates a cast with no output events.
var ErrEmptyCast = errors.New("empty cast")

// EventKind identifies the kind of a cast event.
type EventKind int

const (
	// EventOutput is data written by the recorded program to the terminal.
	EventOutput EventKind = iota
	// EventInput is data typed by the user. It is preserved but has no
	// effect on rendering.
	EventInput
	// EventResize is an advisory terminal geometry change.
	EventResize
)

// String returns the asciicast v2 code for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventOutput:
		return "o"
	case EventInput:
		return "i"
	case EventResize:
		return "r"
	default:
		return "?"
	}
}

// Event is a single timestamped record of a terminal session.
type Event struct {
	// TimeMS is the time of the event relative to the start of the
	// session, in milliseconds.
	TimeMS int64

	// Kind is the event kind.
	Kind EventKind

	// Data is the raw payload for output and input events.
	Data []byte

	// Cols and Rows carry the new geometry for resize events.
	Cols int
	Rows int
}

// Header is the cast metadata record.
type Header struct {
	Version int
	Width   int
	Height  int

	// Timestamp is the unix start time of the session, zero if absent.
	Timestamp int64

	// IdleTimeLimit caps the gap between consecutive events, in seconds.
	// Zero means no limit.
	IdleTimeLimit float64

	// Theme is the recorded color theme, nil if absent.
	Theme *Theme
}

// Cast is a fully decoded terminal session transcript.
type Cast struct {
	Header Header
	Events []Event
}

// OutputEvents returns only the output events of the cast.
func (c *Cast) OutputEvents() []Event {
	out := make([]Event, 0, len(c.Events))
	for _, ev := range c.Events {
		if ev.Kind == EventOutput {
			out = append(out, ev)
		}
	}
	return out
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCast, fmt.Sprintf(format, args...))
}
