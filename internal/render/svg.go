package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/dshills/castsvg/internal/asciicast"
	"github.com/dshills/castsvg/internal/frame"
	"github.com/dshills/castsvg/internal/vt"
)

// Options carries the visual settings applied by the compositor.
type Options struct {
	// Theme supplies the palette for the generated stylesheet.
	Theme *asciicast.Theme

	// FontFamily is the monospace font family written to the stylesheet.
	FontFamily string

	// FontSize is the font size in pixels.
	FontSize int
}

func (o *Options) withDefaults() Options {
	out := Options{Theme: o.Theme, FontFamily: o.FontFamily, FontSize: o.FontSize}
	if out.Theme == nil {
		out.Theme = asciicast.DefaultTheme()
	}
	if out.FontFamily == "" {
		out.FontFamily = "DejaVu Sans Mono"
	}
	if out.FontSize == 0 {
		out.FontSize = 14
	}
	return out
}

// Compose renders normalised frames into the template and returns the
// animated SVG document. The template must already be resized to the frame
// geometry. Identical inputs produce identical output.
func Compose(tmpl *Template, frames []frame.Frame, totalMS int64, opts Options) ([]byte, error) {
	if len(frames) == 0 {
		return nil, frame.ErrEmptyStream
	}
	opts = opts.withDefaults()

	c := &compositor{tmpl: tmpl, opts: opts}
	steps := c.buildLibrary(frames)
	c.buildScreenView(steps)

	switch tmpl.Animation {
	case AnimationWAAPI:
		c.writeStylesheet(nil, 0)
		c.writeScript(frames, steps, totalMS)
	default:
		c.writeStylesheet(frames, totalMS)
	}

	return serialize(tmpl.doc)
}

type compositor struct {
	tmpl *Template
	opts Options

	// library holds the distinct snapshots in order of first use.
	library []*vt.Snapshot
}

// buildLibrary deduplicates the frame snapshots and returns, per animation
// step, the index of its snapshot in the library.
func (c *compositor) buildLibrary(frames []frame.Frame) []int {
	steps := make([]int, len(frames))
	for i, f := range frames {
		steps[i] = c.internSnapshot(f.Snapshot)
	}
	return steps
}

func (c *compositor) internSnapshot(snap *vt.Snapshot) int {
	for i, existing := range c.library {
		if existing.Equal(snap) {
			return i
		}
	}
	c.library = append(c.library, snap)
	return len(c.library) - 1
}

// buildScreenView replaces the screen contents with the frame definitions
// and the scrolling strip of frame references.
func (c *compositor) buildScreenView(steps []int) {
	screen := c.tmpl.screen
	for _, child := range screen.ChildElements() {
		screen.RemoveChild(child)
	}

	defs := screen.CreateElement("defs")
	for k, snap := range c.library {
		defs.AddChild(c.frameGroup(snap, k))
	}

	bg := screen.CreateElement("rect")
	bg.CreateAttr("class", "background")
	bg.CreateAttr("x", "0")
	bg.CreateAttr("y", "0")
	bg.CreateAttr("width", "100%")
	bg.CreateAttr("height", "100%")

	view := screen.CreateElement("g")
	view.CreateAttr("id", "screen_view")
	for step, frameIndex := range steps {
		use := view.CreateElement("use")
		use.CreateAttr("xlink:href", fmt.Sprintf("#frame_%d", frameIndex))
		use.CreateAttr("y", strconv.Itoa(step*c.tmpl.ScreenHeight()))
	}
}

// frameGroup encodes one snapshot as a reusable group of rectangles and
// text elements.
func (c *compositor) frameGroup(snap *vt.Snapshot, index int) *etree.Element {
	group := etree.NewElement("g")
	group.CreateAttr("id", fmt.Sprintf("frame_%d", index))

	cellW := c.tmpl.CellWidth()
	cellH := c.tmpl.CellHeight()

	for _, row := range Layout(snap) {
		y := float64(row.Row) * cellH
		for _, run := range row.Backgrounds {
			rect := group.CreateElement("rect")
			rect.CreateAttr("x", formatPx(float64(run.Col)*cellW))
			rect.CreateAttr("y", formatPx(y))
			rect.CreateAttr("width", formatPx(float64(run.Cells)*cellW))
			rect.CreateAttr("height", formatPx(cellH))
			setPaint(rect, run.Style.BG)
		}
		for _, run := range row.Texts {
			group.AddChild(textElement(run, y, cellW))
		}
	}
	return group
}

func textElement(run Run, y, cellW float64) *etree.Element {
	text := etree.NewElement("text")
	text.CreateAttr("x", formatPx(float64(run.Col)*cellW))
	text.CreateAttr("y", formatPx(y))
	text.CreateAttr("textLength", formatPx(float64(run.Cells)*cellW))
	text.CreateAttr("lengthAdjust", "spacingAndGlyphs")

	if run.Style.Attrs.Has(vt.AttrBold) {
		text.CreateAttr("font-weight", "bold")
	}
	if run.Style.Attrs.Has(vt.AttrItalic) {
		text.CreateAttr("font-style", "italic")
	}
	var decorations []string
	if run.Style.Attrs.Has(vt.AttrUnderline) {
		decorations = append(decorations, "underline")
	}
	if run.Style.Attrs.Has(vt.AttrStrikethrough) {
		decorations = append(decorations, "line-through")
	}
	if len(decorations) > 0 {
		text.CreateAttr("text-decoration", strings.Join(decorations, " "))
	}
	setPaint(text, run.Style.FG)

	// Non-breaking spaces survive XML whitespace handling inside runs.
	text.SetText(strings.ReplaceAll(run.Text, " ", "\u00a0"))
	return text
}

func setPaint(el *etree.Element, p Paint) {
	if p.IsFill() {
		el.CreateAttr("fill", string(p))
	} else {
		el.CreateAttr("class", string(p))
	}
}

// writeStylesheet populates the generated-style slot: font settings,
// baseline rule, palette classes, and (for the CSS driver) the stepped
// keyframe animation.
func (c *compositor) writeStylesheet(frames []frame.Frame, totalMS int64) {
	var b strings.Builder

	if frames != nil {
		fmt.Fprintf(&b, ":root {\n    --animation-duration: %dms;\n}\n\n", totalMS)
	}

	fmt.Fprintf(&b, "#screen {\n    font-family: '%s', monospace;\n    font-style: normal;\n    font-size: %dpx;\n}\n\n",
		c.opts.FontFamily, c.opts.FontSize)
	b.WriteString("text {\n    dominant-baseline: text-before-edge;\n    white-space: pre;\n}\n\n")

	theme := c.opts.Theme
	fmt.Fprintf(&b, ".foreground {fill: %s}\n", theme.FG)
	fmt.Fprintf(&b, ".background {fill: %s}\n", theme.BG)
	for i, color := range theme.Palette {
		fmt.Fprintf(&b, ".color%d {fill: %s}\n", i, color)
	}

	if frames != nil {
		b.WriteString("\n")
		b.WriteString(c.keyframes(frames, totalMS))
		b.WriteString("#screen_view {\n    animation: roll var(--animation-duration) steps(1, end) infinite;\n}\n")
	}

	c.tmpl.genStyle.SetText(b.String())
}

// keyframes builds the stepped keyframe list: each stop is the cumulative
// time ratio of the frame's start, moving the strip up one screen height
// per step.
func (c *compositor) keyframes(frames []frame.Frame, totalMS int64) string {
	var b strings.Builder
	b.WriteString("@keyframes roll {\n")

	var cumulative int64
	for step := range frames {
		pct := percentOffset(cumulative, totalMS)
		fmt.Fprintf(&b, "    %s {transform: translateY(%dpx)}\n",
			pct, -step*c.tmpl.ScreenHeight())
		cumulative += frames[step].Duration
	}
	fmt.Fprintf(&b, "    100%% {transform: translateY(%dpx)}\n",
		-(len(frames)-1)*c.tmpl.ScreenHeight())
	b.WriteString("}\n\n")
	return b.String()
}

func percentOffset(cumulative, total int64) string {
	if total == 0 {
		return "0%"
	}
	pct := float64(cumulative) / float64(total) * 100
	return strconv.FormatFloat(pct, 'f', 3, 64) + "%"
}

// writeScript populates the generated-js slot with the variable block read
// by the template's own animation script.
func (c *compositor) writeScript(frames []frame.Frame, steps []int, totalMS int64) {
	var b strings.Builder
	b.WriteString("var termtosvg_vars = {\n    transforms: [\n")

	var cumulative int64
	for step := range steps {
		transform := fmt.Sprintf("translate(0, %dpx)", -step*c.tmpl.ScreenHeight())
		b.WriteString("        {transform: '" + transform + "', easing: 'steps(1, end)'")
		if step > 0 && step < len(steps)-1 {
			offset := float64(cumulative) / float64(totalMS)
			fmt.Fprintf(&b, ", offset: %s", strconv.FormatFloat(offset, 'f', 3, 64))
		}
		b.WriteString("},\n")
		cumulative += frames[step].Duration
	}

	b.WriteString("    ],\n")
	fmt.Fprintf(&b, "    timings: {\n        duration: %d,\n        iterations: Infinity\n    }\n};\n", totalMS)
	c.tmpl.genScript.SetCData(b.String())
}

// formatPx renders a pixel quantity, dropping a trailing ".0".
func formatPx(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func serialize(doc *etree.Document) ([]byte, error) {
	out := doc.Copy()
	ensureDeclaration(out)
	ensureNamespaces(out.Root())
	return out.WriteToBytes()
}

// ensureDeclaration adds an XML declaration if the template had none.
func ensureDeclaration(doc *etree.Document) {
	for _, tok := range doc.Child {
		if _, ok := tok.(*etree.ProcInst); ok {
			return
		}
	}
	decl := doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.RemoveChild(decl)
	doc.InsertChildAt(0, decl)
}

// ensureNamespaces declares the SVG and xlink namespaces on the root.
func ensureNamespaces(root *etree.Element) {
	if root == nil {
		return
	}
	if root.SelectAttrValue("xmlns", "") == "" {
		root.CreateAttr("xmlns", SVGNamespace)
	}
	if root.SelectAttrValue("xmlns:xlink", "") == "" {
		root.CreateAttr("xmlns:xlink", XLinkNamespace)
	}
}
