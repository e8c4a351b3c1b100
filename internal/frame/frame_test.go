package frame

import (
	"errors"
	"testing"

	"github.com/dshills/castsvg/internal/vt"
)

// snapAt renders text into a fresh emulator and stamps the snapshot.
func snapAt(t *testing.T, text string, timeMS int64) *vt.Snapshot {
	t.Helper()
	e := vt.NewEmulator(10, 3, nil)
	e.Feed([]byte(text))
	e.Advance(timeMS)
	return e.Snapshot()
}

func defaultOpts() Options {
	return Options{MinDuration: 1, LoopDelay: 1000}
}

func TestNormalizeEmptyStream(t *testing.T) {
	_, _, err := Normalize(nil, defaultOpts())
	if !errors.Is(err, ErrEmptyStream) {
		t.Errorf("expected ErrEmptyStream, got %v", err)
	}
}

func TestNormalizeSingleSnapshot(t *testing.T) {
	frames, total, err := Normalize([]*vt.Snapshot{snapAt(t, "hi", 0)}, defaultOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].Duration != 1000 {
		t.Errorf("expected loop delay duration 1000, got %d", frames[0].Duration)
	}
	if total != 1000 {
		t.Errorf("expected total 1000, got %d", total)
	}
}

func TestNormalizeSingleSnapshotMinOverridesLoopDelay(t *testing.T) {
	opts := Options{MinDuration: 50, LoopDelay: 10}
	frames, _, err := Normalize([]*vt.Snapshot{snapAt(t, "hi", 0)}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frames[0].Duration != 50 {
		t.Errorf("expected min duration 50, got %d", frames[0].Duration)
	}
}

func TestNormalizeDurationsFromTimestamps(t *testing.T) {
	snaps := []*vt.Snapshot{
		snapAt(t, "a", 0),
		snapAt(t, "b", 250),
		snapAt(t, "c", 1000),
	}
	frames, total, err := Normalize(snaps, defaultOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	if frames[0].Duration != 250 || frames[1].Duration != 750 || frames[2].Duration != 1000 {
		t.Errorf("bad durations: %d %d %d",
			frames[0].Duration, frames[1].Duration, frames[2].Duration)
	}
	if total != 2000 {
		t.Errorf("expected total 2000, got %d", total)
	}
}

func TestNormalizeMergesUndersizedIntoSuccessor(t *testing.T) {
	snaps := []*vt.Snapshot{
		snapAt(t, "a", 0),
		snapAt(t, "b", 5),
		snapAt(t, "c", 100),
	}
	opts := Options{MinDuration: 20, LoopDelay: 1000}
	frames, _, err := Normalize(snaps, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected undersized first frame merged, got %d frames", len(frames))
	}
	// Frame "a" (5ms) is discarded; its duration folds into "b".
	if got := frames[0].Snapshot.Cell(0, 0).Ch; got != "b" {
		t.Errorf("expected snapshot 'b' to survive, got %q", got)
	}
	if frames[0].Duration != 100 {
		t.Errorf("expected merged duration 100, got %d", frames[0].Duration)
	}
}

func TestNormalizeClampsToMax(t *testing.T) {
	snaps := []*vt.Snapshot{
		snapAt(t, "a", 0),
		snapAt(t, "b", 10000),
	}
	opts := Options{MinDuration: 1, MaxDuration: 2000, LoopDelay: 1000}
	frames, total, err := Normalize(snaps, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frames[0].Duration != 2000 {
		t.Errorf("expected clamped duration 2000, got %d", frames[0].Duration)
	}
	if frames[1].Duration != 1000 {
		t.Errorf("expected loop delay 1000, got %d", frames[1].Duration)
	}
	if total != 3000 {
		t.Errorf("expected total 3000, got %d", total)
	}
}

func TestNormalizeCollapsesEqualFrames(t *testing.T) {
	snaps := []*vt.Snapshot{
		snapAt(t, "x", 0),
		snapAt(t, "x", 10),
		snapAt(t, "x", 20),
	}
	frames, total, err := Normalize(snaps, defaultOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected equal frames collapsed to 1, got %d", len(frames))
	}
	if total != 1020 {
		t.Errorf("expected total 20 + loop delay, got %d", total)
	}
}

func TestNormalizeNoAdjacentEqualFrames(t *testing.T) {
	snaps := []*vt.Snapshot{
		snapAt(t, "a", 0),
		snapAt(t, "a", 100),
		snapAt(t, "b", 200),
		snapAt(t, "b", 300),
		snapAt(t, "a", 400),
	}
	frames, _, err := Normalize(snaps, defaultOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(frames); i++ {
		if frames[i].Snapshot.Equal(frames[i-1].Snapshot) {
			t.Errorf("adjacent frames %d and %d are screen-equal", i-1, i)
		}
	}
	if len(frames) != 3 {
		t.Errorf("expected 3 distinct frames, got %d", len(frames))
	}
}

func TestNormalizeZeroDurationFramesAbsorbed(t *testing.T) {
	snaps := []*vt.Snapshot{
		snapAt(t, "a", 100),
		snapAt(t, "b", 100),
		snapAt(t, "c", 200),
	}
	frames, _, err := Normalize(snaps, defaultOpts())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// "a" has zero duration and folds into "b".
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if got := frames[0].Snapshot.Cell(0, 0).Ch; got != "b" {
		t.Errorf("expected snapshot 'b' first, got %q", got)
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := (Options{MinDuration: 0, LoopDelay: 0}).Validate(); err == nil {
		t.Error("expected error for zero min duration")
	}
	if err := (Options{MinDuration: 10, MaxDuration: 5, LoopDelay: 0}).Validate(); err == nil {
		t.Error("expected error for max below min")
	}
	if err := (Options{MinDuration: 1, LoopDelay: -1}).Validate(); err == nil {
		t.Error("expected error for negative loop delay")
	}
	if err := (Options{MinDuration: 1, MaxDuration: 0, LoopDelay: 0}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
