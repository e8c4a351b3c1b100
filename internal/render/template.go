package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/dshills/castsvg/internal/asciicast"
)

// XML namespaces used by templates and output documents.
const (
	SVGNamespace       = "http://www.w3.org/2000/svg"
	XLinkNamespace     = "http://www.w3.org/1999/xlink"
	TermtosvgNamespace = "https://github.com/nbedos/termtosvg"
)

// ErrTemplateInvalid indicates a template violating the structural
// contract.
var ErrTemplateInvalid = errors.New("invalid template")

// AnimationKind selects the animation driver emitted by the compositor.
type AnimationKind int

const (
	// AnimationCSS drives the animation with stepped CSS keyframes.
	AnimationCSS AnimationKind = iota
	// AnimationWAAPI emits a Web Animations API variable block consumed
	// by a script shipped in the template.
	AnimationWAAPI
	// AnimationNone is the driver-less kind. No template setting selects
	// it; ComposeStill omits the driver without consulting it, and Compose
	// handles it like AnimationCSS.
	AnimationNone
)

// String returns the template attribute value for the animation kind.
func (k AnimationKind) String() string {
	switch k {
	case AnimationCSS:
		return "css"
	case AnimationWAAPI:
		return "waapi"
	default:
		return "none"
	}
}

// Template is a validated SVG template. The compositor mutates only the
// named slots; every other element passes through to the output untouched.
type Template struct {
	doc *etree.Document

	terminal  *etree.Element
	screen    *etree.Element
	genStyle  *etree.Element
	userStyle *etree.Element
	genScript *etree.Element
	settings  *etree.Element
	geometry  *etree.Element

	// Width and Height are the outer document dimensions in pixels.
	Width  int
	Height int

	// Cols and Rows are the screen geometry the template was drawn for.
	Cols int
	Rows int

	// Animation is the driver declared by the template settings.
	Animation AnimationKind

	// Theme is the color theme shipped with the template, nil if absent.
	// It ranks below the cast header theme and any user override.
	Theme *asciicast.Theme

	screenWidth  int
	screenHeight int
}

func templateErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTemplateInvalid, fmt.Sprintf(format, args...))
}

// ParseTemplate parses and validates a template document.
func ParseTemplate(data []byte) (*Template, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, templateErrf("malformed XML: %v", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "svg" || root.SelectAttrValue("id", "") != "terminal" {
		return nil, templateErrf(`root element must be <svg id="terminal">`)
	}

	t := &Template{doc: doc, terminal: root}

	var err error
	if t.Width, err = intAttr(root, "width"); err != nil {
		return nil, err
	}
	if t.Height, err = intAttr(root, "height"); err != nil {
		return nil, err
	}
	if root.SelectAttrValue("viewBox", "") == "" {
		return nil, templateErrf(`missing viewBox on <svg id="terminal">`)
	}

	if t.screen, err = findOne(root, byIDTag("screen", "svg"), `<svg id="screen">`); err != nil {
		return nil, err
	}
	if t.screenWidth, err = intAttr(t.screen, "width"); err != nil {
		return nil, err
	}
	if t.screenHeight, err = intAttr(t.screen, "height"); err != nil {
		return nil, err
	}

	if t.genStyle, err = findOne(root, byIDTag("generated-style", "style"), `<style id="generated-style">`); err != nil {
		return nil, err
	}
	if t.userStyle, err = findOne(root, byIDTag("user-style", "style"), `<style id="user-style">`); err != nil {
		return nil, err
	}
	for _, style := range []*etree.Element{t.genStyle, t.userStyle} {
		if parent := style.Parent(); parent == nil || parent.Tag != "defs" {
			return nil, templateErrf(`<style id=%q> must be a child of <defs>`,
				style.SelectAttrValue("id", ""))
		}
	}

	if t.settings, err = findOne(root, byTag("template_settings"), "<template_settings>"); err != nil {
		return nil, err
	}
	if t.geometry, err = findOne(t.settings, byTag("screen_geometry"), "<screen_geometry>"); err != nil {
		return nil, err
	}
	if t.Cols, err = intAttr(t.geometry, "cols"); err != nil {
		return nil, err
	}
	if t.Rows, err = intAttr(t.geometry, "rows"); err != nil {
		return nil, err
	}
	if t.Cols < 1 || t.Rows < 1 {
		return nil, templateErrf("screen_geometry must be positive, got %dx%d", t.Cols, t.Rows)
	}

	if err := t.parseAnimation(); err != nil {
		return nil, err
	}
	t.parseDefaultTheme()

	return t, nil
}

// parseDefaultTheme reads the optional default_theme settings element. An
// invalid theme is ignored rather than failing the whole template.
func (t *Template) parseDefaultTheme() {
	themes := findAll(t.settings, byTag("default_theme"))
	if len(themes) != 1 {
		return
	}
	el := themes[0]
	theme, err := asciicast.NewTheme(
		el.SelectAttrValue("fg", ""),
		el.SelectAttrValue("bg", ""),
		el.SelectAttrValue("palette", ""),
	)
	if err == nil {
		t.Theme = theme
	}
}

func (t *Template) parseAnimation() error {
	anims := findAll(t.settings, byTag("animation"))
	switch len(anims) {
	case 0:
		t.Animation = AnimationCSS
		return nil
	case 1:
	default:
		return templateErrf("duplicate <animation> element")
	}

	switch kind := anims[0].SelectAttrValue("type", "css"); kind {
	case "css":
		t.Animation = AnimationCSS
	case "waapi":
		t.Animation = AnimationWAAPI
		script, err := findOne(t.terminal, byIDTag("generated-js", "script"), `<script id="generated-js">`)
		if err != nil {
			return err
		}
		t.genScript = script
	default:
		return templateErrf("unknown animation type %q", kind)
	}
	return nil
}

// CellWidth returns the width of one character cell in pixels.
func (t *Template) CellWidth() float64 {
	return float64(t.screenWidth) / float64(t.Cols)
}

// CellHeight returns the height of one character cell in pixels.
func (t *Template) CellHeight() float64 {
	return float64(t.screenHeight) / float64(t.Rows)
}

// ScreenWidth returns the screen viewport width in pixels.
func (t *Template) ScreenWidth() int { return t.screenWidth }

// ScreenHeight returns the screen viewport height in pixels.
func (t *Template) ScreenHeight() int { return t.screenHeight }

// Resize adapts the template to the target session geometry. The outer and
// inner svg dimensions grow or shrink by whole cells so that decorations
// keep their size, and the declared screen geometry is rewritten to match.
func (t *Template) Resize(cols, rows int) error {
	if cols < 1 || rows < 1 {
		return templateErrf("target geometry must be positive, got %dx%d", cols, rows)
	}
	if cols == t.Cols && rows == t.Rows {
		return nil
	}

	dw := int(t.CellWidth() * float64(cols-t.Cols))
	dh := int(t.CellHeight() * float64(rows-t.Rows))

	for _, el := range []*etree.Element{t.terminal, t.screen} {
		if err := scaleElement(el, dw, dh); err != nil {
			return err
		}
	}

	t.Width += dw
	t.Height += dh
	t.screenWidth += dw
	t.screenHeight += dh

	t.geometry.CreateAttr("cols", strconv.Itoa(cols))
	t.geometry.CreateAttr("rows", strconv.Itoa(rows))
	t.Cols = cols
	t.Rows = rows
	return nil
}

// scaleElement grows an element's width, height and viewBox by the given
// pixel deltas.
func scaleElement(el *etree.Element, dw, dh int) error {
	viewBox := el.SelectAttrValue("viewBox", "")
	if viewBox == "" {
		return templateErrf("missing viewBox on <%s id=%q>", el.Tag, el.SelectAttrValue("id", ""))
	}
	fields := strings.Fields(strings.ReplaceAll(viewBox, ",", " "))
	if len(fields) != 4 {
		return templateErrf("malformed viewBox %q", viewBox)
	}
	nums := make([]int, 4)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return templateErrf("malformed viewBox %q", viewBox)
		}
		nums[i] = n
	}
	nums[2] += dw
	nums[3] += dh
	el.CreateAttr("viewBox", fmt.Sprintf("%d %d %d %d", nums[0], nums[1], nums[2], nums[3]))

	for attr, delta := range map[string]int{"width": dw, "height": dh} {
		raw := el.SelectAttrValue(attr, "")
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return templateErrf("%q attribute of <%s> must be in user units", attr, el.Tag)
		}
		el.CreateAttr(attr, strconv.Itoa(n+delta))
	}
	return nil
}

// Document returns the underlying XML document.
func (t *Template) Document() *etree.Document { return t.doc }

func intAttr(el *etree.Element, name string) (int, error) {
	raw := el.SelectAttrValue(name, "")
	if raw == "" {
		return 0, templateErrf("missing %q attribute on <%s id=%q>",
			name, el.Tag, el.SelectAttrValue("id", ""))
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, templateErrf("attribute %q of <%s> must be an integer, got %q", name, el.Tag, raw)
	}
	return n, nil
}

// byIDTag matches elements with the given tag and id attribute.
func byIDTag(id, tag string) func(*etree.Element) bool {
	return func(el *etree.Element) bool {
		return el.Tag == tag && el.SelectAttrValue("id", "") == id
	}
}

// byTag matches elements by local tag name, regardless of namespace prefix.
func byTag(tag string) func(*etree.Element) bool {
	return func(el *etree.Element) bool {
		return el.Tag == tag
	}
}

// findAll walks the subtree rooted at el (excluding el itself) collecting
// matching elements.
func findAll(el *etree.Element, match func(*etree.Element) bool) []*etree.Element {
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if match(child) {
			out = append(out, child)
		}
		out = append(out, findAll(child, match)...)
	}
	return out
}

// findOne requires exactly one matching element in the subtree.
func findOne(el *etree.Element, match func(*etree.Element) bool, what string) (*etree.Element, error) {
	found := findAll(el, match)
	switch len(found) {
	case 0:
		return nil, templateErrf("missing %s", what)
	case 1:
		return found[0], nil
	default:
		return nil, templateErrf("duplicate %s", what)
	}
}
