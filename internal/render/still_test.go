package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/castsvg/internal/frame"
)

func TestComposeStill(t *testing.T) {
	tmpl, err := ParseTemplate([]byte(testTemplate))
	if err != nil {
		t.Fatal(err)
	}
	frames, _ := framesOf(t, []string{"hi"}, []int64{1000})

	out, err := ComposeStill(tmpl, frames[0], Options{})
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}
	doc := string(out)

	if !strings.Contains(doc, "hi") {
		t.Error("missing frame text")
	}
	if strings.Contains(doc, "@keyframes") {
		t.Error("still frame must not contain keyframes")
	}
	if strings.Contains(doc, "termtosvg_vars") {
		t.Error("still frame must not contain the animation script")
	}
	if strings.Contains(doc, "<use") {
		t.Error("still frame must not reference frame definitions")
	}
	if !strings.Contains(doc, `class="background"`) {
		t.Error("missing background rect")
	}
}

func TestEmitStills(t *testing.T) {
	dir := t.TempDir()
	frames, _ := framesOf(t, []string{"a", "b", "c"}, []int64{100, 100, 1000})

	paths, err := EmitStills(dir, "demo", []byte(testTemplate), 10, 2, frames, Options{})
	if err != nil {
		t.Fatalf("emit failed: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("expected 3 files, got %d", len(paths))
	}

	for k, path := range paths {
		want := filepath.Join(dir, []string{"demo_0.svg", "demo_1.svg", "demo_2.svg"}[k])
		if path != want {
			t.Errorf("expected %s, got %s", want, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading %s: %v", path, err)
		}
		if !strings.Contains(string(data), `id="terminal"`) {
			t.Errorf("%s is not a standalone SVG", path)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("expected exactly 3 files in output dir, got %d", len(entries))
	}
}

func TestEmitStillsEmpty(t *testing.T) {
	if _, err := EmitStills(t.TempDir(), "x", []byte(testTemplate), 10, 2, nil, Options{}); err != frame.ErrEmptyStream {
		t.Errorf("expected ErrEmptyStream, got %v", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.svg")
	if err := WriteFileAtomic(path, []byte("content")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "content" {
		t.Errorf("bad file content: %q, %v", data, err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files must not remain, found %d entries", len(entries))
	}
}
