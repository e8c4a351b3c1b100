package vt

import (
	"errors"
	"fmt"

	"github.com/dshills/castsvg/internal/asciicast"
	"github.com/dshills/castsvg/internal/logging"
)

// ErrEmulator indicates an internal emulator inconsistency. It is fatal: a
// corrupt screen poisons every subsequent frame.
var ErrEmulator = errors.New("emulator failure")

// Adapter feeds cast events into the emulator and materialises a snapshot
// per output event, stamped with the event's session time. It is re-entrant
// within one session but must not be reused across sessions.
type Adapter struct {
	emu  *Emulator
	log  *logging.Logger
	cols int
	rows int
}

// NewAdapter creates an adapter for the given screen geometry.
func NewAdapter(cols, rows int, log *logging.Logger) *Adapter {
	return &Adapter{
		emu:  NewEmulator(cols, rows, log),
		log:  log,
		cols: cols,
		rows: rows,
	}
}

// Consume processes one event. Output events advance the clock, feed the
// emulator and yield a snapshot; input and resize events yield nil.
func (a *Adapter) Consume(ev asciicast.Event) (*Snapshot, error) {
	if ev.Kind != asciicast.EventOutput {
		return nil, nil
	}

	a.emu.Advance(ev.TimeMS)
	dirty := a.emu.Feed(ev.Data)
	if a.log != nil {
		a.log.Debugf("fed %d bytes at %dms, %d dirty rows", len(ev.Data), ev.TimeMS, len(dirty))
	}

	snap := a.emu.Snapshot()
	if snap.Cols() != a.cols || snap.Rows() != a.rows {
		return nil, fmt.Errorf("%w: screen is %dx%d, session is %dx%d",
			ErrEmulator, snap.Cols(), snap.Rows(), a.cols, a.rows)
	}
	return snap, nil
}

// Replay runs every output event of a cast through a fresh emulator and
// returns the snapshot sequence.
func Replay(cast *asciicast.Cast, log *logging.Logger) ([]*Snapshot, error) {
	adapter := NewAdapter(cast.Header.Width, cast.Header.Height, log)

	var snaps []*Snapshot
	for _, ev := range cast.Events {
		snap, err := adapter.Consume(ev)
		if err != nil {
			return nil, err
		}
		if snap != nil {
			snaps = append(snaps, snap)
		}
	}
	return snaps, nil
}
