// Package frame turns a timestamped snapshot stream into display frames
// with normalised durations.
package frame

import (
	"errors"
	"fmt"

	"github.com/dshills/castsvg/internal/vt"
)

// ErrEmptyStream indicates that the snapshot stream contained no frames.
var ErrEmptyStream = errors.New("no frames to render")

// Frame is a snapshot plus the duration it stays on screen, in
// milliseconds.
type Frame struct {
	Snapshot *vt.Snapshot
	Duration int64
}

// Options controls frame timing normalisation. All durations are in
// milliseconds.
type Options struct {
	// MinDuration is the minimum frame duration. Frames shorter than this
	// are merged into their successor.
	MinDuration int64

	// MaxDuration caps frame durations. Zero means unlimited.
	MaxDuration int64

	// LoopDelay is the synthetic duration of the last frame, keeping the
	// final screen visible before the animation loops.
	LoopDelay int64
}

// Validate checks option consistency.
func (o Options) Validate() error {
	if o.MinDuration < 1 {
		return fmt.Errorf("min frame duration must be at least 1ms, got %d", o.MinDuration)
	}
	if o.MaxDuration != 0 && o.MaxDuration < o.MinDuration {
		return fmt.Errorf("max frame duration %d is below min %d", o.MaxDuration, o.MinDuration)
	}
	if o.LoopDelay < 0 {
		return fmt.Errorf("loop delay must be non-negative, got %d", o.LoopDelay)
	}
	return nil
}

// Normalize converts a snapshot stream into frames. It computes raw
// durations from consecutive timestamps, folds undersized frames into their
// successors, clamps to the maximum, and collapses adjacent screen-equal
// frames. It returns the frames and the total loop duration.
func Normalize(snaps []*vt.Snapshot, opts Options) ([]Frame, int64, error) {
	if err := opts.Validate(); err != nil {
		return nil, 0, err
	}
	if len(snaps) == 0 {
		return nil, 0, ErrEmptyStream
	}

	lastDuration := opts.LoopDelay
	if lastDuration < 1 {
		lastDuration = 1
	}

	frames := make([]Frame, len(snaps))
	for i, s := range snaps {
		var d int64
		if i < len(snaps)-1 {
			d = snaps[i+1].TimeMS - s.TimeMS
			if d < 0 {
				d = 0
			}
		} else {
			d = lastDuration
		}
		frames[i] = Frame{Snapshot: s, Duration: d}
	}

	frames = mergeUndersized(frames, opts.MinDuration)

	if opts.MaxDuration > 0 {
		for i := range frames {
			if frames[i].Duration > opts.MaxDuration {
				frames[i].Duration = opts.MaxDuration
			}
		}
	}

	frames = collapseEqual(frames)

	var total int64
	for _, f := range frames {
		total += f.Duration
	}
	return frames, total, nil
}

// mergeUndersized folds frames shorter than min into their successor: the
// undersized snapshot is discarded and its duration added to the next
// frame. An undersized final frame is rounded up to min.
func mergeUndersized(frames []Frame, min int64) []Frame {
	out := frames[:0]
	var carry int64
	for i, f := range frames {
		d := f.Duration + carry
		carry = 0
		if d < min && i < len(frames)-1 {
			carry = d
			continue
		}
		if d < min {
			d = min
		}
		out = append(out, Frame{Snapshot: f.Snapshot, Duration: d})
	}
	return out
}

// collapseEqual merges adjacent screen-equal frames, summing durations.
func collapseEqual(frames []Frame) []Frame {
	out := frames[:0]
	for _, f := range frames {
		if len(out) > 0 && out[len(out)-1].Snapshot.Equal(f.Snapshot) {
			out[len(out)-1].Duration += f.Duration
			continue
		}
		out = append(out, f)
	}
	return out
}
