// Package render lays screen snapshots out as SVG and assembles animated
// documents from a user-supplied template.
package render

import (
	"fmt"
	"strings"

	"github.com/dshills/castsvg/internal/vt"
)

// Paint is a resolved SVG paint: either a stylesheet class name
// ("foreground", "background", "color0".."color15") or a literal
// "#rrggbb" fill.
type Paint string

// Stylesheet class names for the default colors.
const (
	PaintForeground Paint = "foreground"
	PaintBackground Paint = "background"
)

// IsFill returns true if the paint is a literal color rather than a class.
func (p Paint) IsFill() bool {
	return strings.HasPrefix(string(p), "#")
}

// resolvePaint maps a terminal color to a paint. def is the class used for
// the default color, which depends on whether the color fills text or a
// background.
func resolvePaint(c vt.Color, def Paint) Paint {
	switch c.Mode {
	case vt.ColorModeDefault:
		return def
	case vt.ColorModeIndexed:
		if c.Index < 16 {
			return Paint(fmt.Sprintf("color%d", c.Index))
		}
		return Paint(xterm256Hex(c.Index))
	default:
		return Paint(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
	}
}

// xterm256Hex returns the standard xterm color for palette indices 16-255:
// a 6x6x6 color cube followed by a 24-step gray ramp.
func xterm256Hex(index uint8) string {
	if index < 16 {
		return "#000000"
	}
	if index < 232 {
		n := int(index) - 16
		levels := [6]int{0, 95, 135, 175, 215, 255}
		r := levels[n/36]
		g := levels[n/6%6]
		b := levels[n%6]
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	}
	v := 8 + 10*(int(index)-232)
	return fmt.Sprintf("#%02x%02x%02x", v, v, v)
}

// RunStyle is the styling triple shared by every cell of a run.
type RunStyle struct {
	FG    Paint
	BG    Paint
	Attrs vt.Attr
}

// Run is a maximal horizontal span of cells on one row sharing the same
// style. Text runs carry the grouped text; background runs are emitted as
// colored rectangles.
type Run struct {
	Row   int
	Col   int
	Cells int
	Text  string
	Style RunStyle
}

// RowLayout is the renderable content of one screen row.
type RowLayout struct {
	Row int

	// Backgrounds are the spans whose background differs from the screen
	// default, fused over adjacent equal colors.
	Backgrounds []Run

	// Texts are the styled text spans. Spans that are entirely blank with
	// default styling are absent.
	Texts []Run
}

// paintedCell is a cell with inverse video and the cursor overlay resolved
// into plain paints.
type paintedCell struct {
	text  string
	style RunStyle
}

// Layout partitions a snapshot into rows of runs. Inverse cells have their
// colors swapped before grouping; the visible cursor is rendered as an
// inverted overlay at its position, independent of the cell's own inverse
// attribute.
func Layout(snap *vt.Snapshot) []RowLayout {
	rows := make([]RowLayout, 0, snap.Rows())
	for row := 0; row < snap.Rows(); row++ {
		layout := layoutRow(snap, row)
		if len(layout.Backgrounds) > 0 || len(layout.Texts) > 0 {
			rows = append(rows, layout)
		}
	}
	return rows
}

func paintCell(snap *vt.Snapshot, row, col int) paintedCell {
	cell := snap.Cell(row, col)
	fg := resolvePaint(cell.FG, PaintForeground)
	bg := resolvePaint(cell.BG, PaintBackground)
	attrs := cell.Attrs

	if attrs.Has(vt.AttrInverse) {
		fg, bg = bg, fg
		attrs = attrs.Without(vt.AttrInverse)
	}

	cur := snap.Cursor()
	if cur.Visible && cur.Row == row && cur.Col == col {
		fg, bg = bg, fg
	}

	return paintedCell{text: cell.Ch, style: RunStyle{FG: fg, BG: bg, Attrs: attrs}}
}

func layoutRow(snap *vt.Snapshot, row int) RowLayout {
	layout := RowLayout{Row: row}

	cols := snap.Cols()
	cells := make([]paintedCell, cols)
	for col := 0; col < cols; col++ {
		cells[col] = paintCell(snap, row, col)
	}

	// Background rectangles: adjacent non-default backgrounds fuse
	// regardless of the foreground styling above them.
	for col := 0; col < cols; {
		if cells[col].style.BG == PaintBackground {
			col++
			continue
		}
		start := col
		bg := cells[col].style.BG
		for col < cols && cells[col].style.BG == bg {
			col++
		}
		layout.Backgrounds = append(layout.Backgrounds, Run{
			Row:   row,
			Col:   start,
			Cells: col - start,
			Style: RunStyle{FG: PaintForeground, BG: bg},
		})
	}

	// Text runs: maximal spans of equal (fg, bg, attrs). Continuation
	// cells extend the preceding wide glyph's run.
	for col := 0; col < cols; {
		style := cells[col].style
		start := col
		var text strings.Builder
		for col < cols {
			c := cells[col]
			if c.text == "" && col > start {
				col++
				continue
			}
			if c.style != style {
				break
			}
			text.WriteString(c.text)
			col++
		}
		run := trimRun(Run{Row: row, Col: start, Cells: col - start, Text: text.String(), Style: style})
		if !blankRun(run) {
			layout.Texts = append(layout.Texts, run)
		}
	}

	return layout
}

// trimRun drops leading and trailing spaces from runs whose spaces render
// nothing (default background, no attributes), shrinking the span so the
// remaining text keeps its position.
func trimRun(r Run) Run {
	if r.Style.Attrs != vt.AttrNone || r.Style.BG != PaintBackground {
		return r
	}
	trimmed := strings.TrimLeft(r.Text, " ")
	lead := len(r.Text) - len(trimmed)
	trimmed = strings.TrimRight(trimmed, " ")
	trail := len(r.Text) - lead - len(trimmed)

	r.Col += lead
	r.Cells -= lead + trail
	r.Text = trimmed
	return r
}

// blankRun reports whether a text run renders nothing: empty text, or all
// spaces with default colors and no attributes. Such runs rely on the
// parent background and are not emitted; a styled span over empty cells is
// already covered by its background rectangle.
func blankRun(r Run) bool {
	if r.Text == "" {
		return true
	}
	if r.Style.Attrs != vt.AttrNone || r.Style.FG != PaintForeground || r.Style.BG != PaintBackground {
		return false
	}
	return strings.TrimLeft(r.Text, " ") == ""
}
