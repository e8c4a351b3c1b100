package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/castsvg/internal/frame"
)

// ComposeStill renders a single frame into the template as a standalone,
// non-animated SVG. The template must already be resized to the frame
// geometry.
func ComposeStill(tmpl *Template, f frame.Frame, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	c := &compositor{tmpl: tmpl, opts: opts}

	screen := tmpl.screen
	for _, child := range screen.ChildElements() {
		screen.RemoveChild(child)
	}

	bg := screen.CreateElement("rect")
	bg.CreateAttr("class", "background")
	bg.CreateAttr("x", "0")
	bg.CreateAttr("y", "0")
	bg.CreateAttr("width", "100%")
	bg.CreateAttr("height", "100%")

	group := c.frameGroup(f.Snapshot, 0)
	group.RemoveAttr("id")
	screen.AddChild(group)

	c.writeStylesheet(nil, 0)
	if tmpl.genScript != nil {
		tmpl.genScript.SetText("")
	}

	return serialize(tmpl.doc)
}

// EmitStills writes one SVG per frame into dir, named <stem>_<k>.svg for k
// in frame order. The template is re-parsed for every frame so that slot
// mutations do not accumulate. Files are written through a temp file and
// renamed into place; on error any partial output is removed.
func EmitStills(dir, stem string, templateData []byte, cols, rows int, frames []frame.Frame, opts Options) ([]string, error) {
	if len(frames) == 0 {
		return nil, frame.ErrEmptyStream
	}

	var written []string
	cleanup := func() {
		for _, path := range written {
			os.Remove(path)
		}
	}

	for k, f := range frames {
		tmpl, err := ParseTemplate(templateData)
		if err != nil {
			cleanup()
			return nil, err
		}
		if err := tmpl.Resize(cols, rows); err != nil {
			cleanup()
			return nil, err
		}

		data, err := ComposeStill(tmpl, f, opts)
		if err != nil {
			cleanup()
			return nil, err
		}

		path := filepath.Join(dir, fmt.Sprintf("%s_%d.svg", stem, k))
		if err := WriteFileAtomic(path, data); err != nil {
			cleanup()
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteFileAtomic writes data to path through a temporary sibling file and
// renames it into place, so that a failed write leaves nothing behind.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".castsvg-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
