package render

import (
	"strings"
	"testing"

	"github.com/dshills/castsvg/internal/frame"
	"github.com/dshills/castsvg/internal/vt"
)

func framesOf(t *testing.T, inputs []string, durations []int64) ([]frame.Frame, int64) {
	t.Helper()
	frames := make([]frame.Frame, len(inputs))
	var total int64
	for i, input := range inputs {
		e := vt.NewEmulator(10, 2, nil)
		e.Feed([]byte(input))
		frames[i] = frame.Frame{Snapshot: e.Snapshot(), Duration: durations[i]}
		total += durations[i]
	}
	return frames, total
}

func composeString(t *testing.T, template string, inputs []string, durations []int64) string {
	t.Helper()
	tmpl, err := ParseTemplate([]byte(template))
	if err != nil {
		t.Fatalf("template parse failed: %v", err)
	}
	frames, total := framesOf(t, inputs, durations)
	out, err := Compose(tmpl, frames, total, Options{})
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	return string(out)
}

func TestComposeSmoke(t *testing.T) {
	out := composeString(t, testTemplate, []string{"hi"}, []int64{1000})

	if !strings.Contains(out, "--animation-duration: 1000ms") {
		t.Error("missing animation duration variable")
	}
	if !strings.Contains(out, `id="frame_0"`) {
		t.Error("missing frame definition")
	}
	if !strings.Contains(out, "hi") {
		t.Error("missing frame text")
	}
	if !strings.Contains(out, `xlink:href="#frame_0"`) {
		t.Error("missing frame reference")
	}
	if !strings.Contains(out, `id="screen_view"`) {
		t.Error("missing screen view group")
	}
	if !strings.Contains(out, "@keyframes roll") {
		t.Error("missing keyframes")
	}
	if !strings.Contains(out, "steps(1, end)") {
		t.Error("missing stepped timing function")
	}
	if !strings.Contains(out, `<?xml`) {
		t.Error("missing XML declaration")
	}
}

func TestComposeDeterministic(t *testing.T) {
	a := composeString(t, testTemplate, []string{"a", "b"}, []int64{100, 1000})
	b := composeString(t, testTemplate, []string{"a", "b"}, []int64{100, 1000})
	if a != b {
		t.Error("identical inputs must produce byte-identical output")
	}
}

func TestComposeDeduplicatesFrames(t *testing.T) {
	out := composeString(t, testTemplate, []string{"a", "b", "a"}, []int64{100, 100, 1000})

	if !strings.Contains(out, `id="frame_0"`) || !strings.Contains(out, `id="frame_1"`) {
		t.Error("expected two frame definitions")
	}
	if strings.Contains(out, `id="frame_2"`) {
		t.Error("identical screens must share one definition")
	}
	if got := strings.Count(out, `xlink:href="#frame_0"`); got != 2 {
		t.Errorf("expected frame_0 referenced twice, got %d", got)
	}
}

func TestComposeStepOffsets(t *testing.T) {
	out := composeString(t, testTemplate, []string{"a", "b"}, []int64{250, 750})

	// Second step starts at 250/1000 = 25% and shifts up one screen
	// height (34px).
	if !strings.Contains(out, "25.000% {transform: translateY(-34px)}") {
		t.Errorf("missing 25%% keyframe:\n%s", out)
	}
	if !strings.Contains(out, "0.000% {transform: translateY(0px)}") {
		t.Error("missing 0% keyframe")
	}
	if !strings.Contains(out, `y="34"`) {
		t.Error("second use element should sit one screen height down")
	}
}

func TestComposeUserContentPreserved(t *testing.T) {
	out := composeString(t, testTemplate, []string{"x"}, []int64{1000})

	if !strings.Contains(out, "text {fill: #eeeeee}") {
		t.Error("user-style content must pass through unchanged")
	}
	if !strings.Contains(out, `viewBox="0 0 80 34"`) {
		t.Error("geometry attributes must be preserved")
	}
}

func TestComposePaletteClasses(t *testing.T) {
	out := composeString(t, testTemplate, []string{"\x1b[31mred"}, []int64{1000})

	if !strings.Contains(out, `class="color1"`) {
		t.Error("red run should reference the color1 class")
	}
	if !strings.Contains(out, ".color1 {fill: ") {
		t.Error("generated style should define palette classes")
	}
	if !strings.Contains(out, ".foreground {fill: ") || !strings.Contains(out, ".background {fill: ") {
		t.Error("generated style should define default color classes")
	}
}

func TestComposeWAAPI(t *testing.T) {
	tmpl, err := ParseTemplate([]byte(testTemplateWAAPI))
	if err != nil {
		t.Fatal(err)
	}
	frames, total := framesOf(t, []string{"a", "b", "c"}, []int64{100, 200, 700})
	out, err := Compose(tmpl, frames, total, Options{})
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	doc := string(out)

	if !strings.Contains(doc, "var termtosvg_vars = {") {
		t.Error("missing termtosvg_vars declaration")
	}
	if got := strings.Count(doc, "{transform: "); got != 3 {
		t.Errorf("expected 3 transform entries, got %d", got)
	}
	// Only the middle entry carries an offset: 100/1000.
	if got := strings.Count(doc, "offset: "); got != 1 {
		t.Errorf("expected exactly 1 offset, got %d", got)
	}
	if !strings.Contains(doc, "offset: 0.100") {
		t.Error("middle offset should be 0.100")
	}
	if !strings.Contains(doc, "duration: 1000") {
		t.Error("missing timings duration")
	}
	if !strings.Contains(doc, "iterations: Infinity") {
		t.Error("missing infinite iterations")
	}
	if strings.Contains(doc, "@keyframes") {
		t.Error("waapi driver must not emit keyframes")
	}
}

func TestComposeLoopDurationConsistency(t *testing.T) {
	css := composeString(t, testTemplate, []string{"a", "b"}, []int64{300, 700})
	if !strings.Contains(css, "--animation-duration: 1000ms") {
		t.Error("css duration should equal the sum of frame durations")
	}

	tmpl, err := ParseTemplate([]byte(testTemplateWAAPI))
	if err != nil {
		t.Fatal(err)
	}
	frames, total := framesOf(t, []string{"a", "b"}, []int64{300, 700})
	out, err := Compose(tmpl, frames, total, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "duration: 1000") {
		t.Error("waapi duration should equal the sum of frame durations")
	}
}

func TestComposeEmptyFrames(t *testing.T) {
	tmpl, err := ParseTemplate([]byte(testTemplate))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Compose(tmpl, nil, 0, Options{}); err == nil {
		t.Error("expected error for empty frame list")
	}
}
