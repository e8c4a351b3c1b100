package templates

import (
	"testing"

	"github.com/dshills/castsvg/internal/render"
)

var builtinNames = []string{
	"base16_default_dark", "dracula", "gjm8", "gjm8_play",
	"gjm8_single_loop", "powershell", "progress_bar", "putty",
	"solarized_dark", "solarized_light", "terminal_app", "ubuntu",
	"window_frame", "window_frame_js", "window_frame_powershell", "xterm",
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != len(builtinNames) {
		t.Fatalf("expected %d templates, got %d: %v", len(builtinNames), len(names), names)
	}
	for i, want := range builtinNames {
		if names[i] != want {
			t.Errorf("expected %s at position %d, got %s", want, i, names[i])
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup("no-such-template"); ok {
		t.Error("unknown template must not resolve")
	}
}

func TestAllBuiltinsValidate(t *testing.T) {
	for _, name := range builtinNames {
		data, ok := Lookup(name)
		if !ok {
			t.Errorf("missing built-in template %s", name)
			continue
		}
		tmpl, err := render.ParseTemplate(data)
		if err != nil {
			t.Errorf("template %s does not validate: %v", name, err)
			continue
		}
		if tmpl.Cols != 82 || tmpl.Rows != 19 {
			t.Errorf("template %s has unexpected geometry %dx%d", name, tmpl.Cols, tmpl.Rows)
		}
		if tmpl.Theme == nil {
			t.Errorf("template %s is missing its default theme", name)
		}
		want := render.AnimationCSS
		if name == "window_frame_js" {
			want = render.AnimationWAAPI
		}
		if tmpl.Animation != want {
			t.Errorf("template %s: expected %v animation, got %v", name, want, tmpl.Animation)
		}
	}
}
