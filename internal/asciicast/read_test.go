package asciicast

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeV2(t *testing.T) {
	input := `{"version": 2, "width": 80, "height": 24}
[0.0, "o", "hi"]
[0.5, "i", "x"]
[1.25, "o", "there"]
`
	cast, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cast.Header.Version != 2 || cast.Header.Width != 80 || cast.Header.Height != 24 {
		t.Errorf("bad header: %+v", cast.Header)
	}
	if len(cast.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(cast.Events))
	}
	if cast.Events[0].TimeMS != 0 || string(cast.Events[0].Data) != "hi" {
		t.Errorf("bad first event: %+v", cast.Events[0])
	}
	if cast.Events[1].Kind != EventInput {
		t.Errorf("expected input event, got %v", cast.Events[1].Kind)
	}
	if cast.Events[2].TimeMS != 1250 {
		t.Errorf("expected 1250ms, got %d", cast.Events[2].TimeMS)
	}

	out := cast.OutputEvents()
	if len(out) != 2 {
		t.Errorf("expected 2 output events, got %d", len(out))
	}
}

func TestDecodeV1(t *testing.T) {
	input := `{
  "version": 1,
  "width": 80,
  "height": 24,
  "duration": 0.3,
  "stdout": [[0.1, "a"], [0.2, "b"]]
}`
	cast, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cast.Header.Version != 1 {
		t.Errorf("expected version 1, got %d", cast.Header.Version)
	}
	if len(cast.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(cast.Events))
	}
	// v1 delays are deltas; times accumulate.
	if cast.Events[0].TimeMS != 100 {
		t.Errorf("expected 100ms, got %d", cast.Events[0].TimeMS)
	}
	if cast.Events[1].TimeMS != 300 {
		t.Errorf("expected 300ms, got %d", cast.Events[1].TimeMS)
	}
}

func TestDecodeUnknownVersion(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"version": 7, "width": 80, "height": 24}`))
	if !errors.Is(err, ErrInvalidCast) {
		t.Errorf("expected ErrInvalidCast, got %v", err)
	}
}

func TestDecodeBadGeometry(t *testing.T) {
	for _, input := range []string{
		`{"version": 2, "width": 0, "height": 24}`,
		`{"version": 2, "width": 80, "height": -1}`,
		`{"version": 2}`,
	} {
		if _, err := Decode(strings.NewReader(input)); !errors.Is(err, ErrInvalidCast) {
			t.Errorf("input %q: expected ErrInvalidCast, got %v", input, err)
		}
	}
}

func TestDecodeMalformedEventLine(t *testing.T) {
	input := `{"version": 2, "width": 80, "height": 24}
[0.0, "o"]
`
	if _, err := Decode(strings.NewReader(input)); !errors.Is(err, ErrInvalidCast) {
		t.Errorf("expected ErrInvalidCast, got %v", err)
	}
}

func TestDecodeUnknownHeaderFieldsIgnored(t *testing.T) {
	input := `{"version": 2, "width": 10, "height": 5, "command": "/bin/sh", "title": "demo"}
[0.0, "o", "x"]
`
	cast, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cast.Events) != 1 {
		t.Errorf("expected 1 event, got %d", len(cast.Events))
	}
}

func TestDecodeResizeEvent(t *testing.T) {
	input := `{"version": 2, "width": 80, "height": 24}
[1.0, "r", "100x30"]
`
	cast, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := cast.Events[0]
	if ev.Kind != EventResize || ev.Cols != 100 || ev.Rows != 30 {
		t.Errorf("bad resize event: %+v", ev)
	}
}

func TestDecodeTheme(t *testing.T) {
	input := `{"version": 2, "width": 80, "height": 24, "theme": {"fg": "#aabbcc", "bg": "#001122", "palette": "#000000:#111111:#222222:#333333:#444444:#555555:#666666:#777777"}}
[0.0, "o", "x"]
`
	cast, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	theme := cast.Header.Theme
	if theme == nil {
		t.Fatal("expected theme")
	}
	if theme.FG != "#aabbcc" || theme.BG != "#001122" {
		t.Errorf("bad theme colors: %+v", theme)
	}
	if len(theme.Palette) != 16 {
		t.Errorf("8-color palette should extend to 16, got %d", len(theme.Palette))
	}
}

func TestDecodeIdleTimeLimit(t *testing.T) {
	input := `{"version": 2, "width": 80, "height": 24, "idle_time_limit": 1.0}
[0.0, "o", "a"]
[5.0, "o", "b"]
[5.5, "o", "c"]
`
	cast, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cast.Events[1].TimeMS; got != 1000 {
		t.Errorf("expected idle gap capped at 1000ms, got %d", got)
	}
	if got := cast.Events[2].TimeMS; got != 1500 {
		t.Errorf("expected subsequent events shifted, got %d", got)
	}
}

func TestDecodeNonDecreasingTimes(t *testing.T) {
	input := `{"version": 2, "width": 80, "height": 24}
[2.0, "o", "a"]
[1.0, "o", "b"]
`
	cast, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cast.Events[1].TimeMS < cast.Events[0].TimeMS {
		t.Errorf("times must be non-decreasing: %d then %d",
			cast.Events[0].TimeMS, cast.Events[1].TimeMS)
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	if _, err := Decode(strings.NewReader("")); !errors.Is(err, ErrInvalidCast) {
		t.Errorf("expected ErrInvalidCast, got %v", err)
	}
}
