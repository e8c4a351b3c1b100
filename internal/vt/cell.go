package vt

// Attr represents text attributes that can be combined.
type Attr uint16

// Text attribute flags.
const (
	AttrNone          Attr = 0
	AttrBold          Attr = 1 << iota
	AttrItalic             // Italic text
	AttrUnderline          // Underlined text
	AttrStrikethrough      // Strikethrough text
	AttrInverse            // Reverse video (swap fg/bg)
	AttrBlink              // Blinking text
)

// Has returns true if the attribute set contains the given attribute.
func (a Attr) Has(attr Attr) bool {
	return a&attr != 0
}

// With returns a new attribute set with the given attribute added.
func (a Attr) With(attr Attr) Attr {
	return a | attr
}

// Without returns a new attribute set with the given attribute removed.
func (a Attr) Without(attr Attr) Attr {
	return a &^ attr
}

// Cell represents a single terminal cell.
type Cell struct {
	// Ch is the user-perceived character in this cell, including any
	// combining marks. It is empty for the right half of a wide glyph.
	Ch string

	// FG and BG are the foreground and background colors.
	FG Color
	BG Color

	// Attrs is the set of text attributes.
	Attrs Attr
}

// EmptyCell returns a blank cell with default colors and no attributes.
func EmptyCell() Cell {
	return Cell{Ch: " "}
}

// IsBlank returns true if the cell is a plain space with default styling.
func (c Cell) IsBlank() bool {
	return c.Ch == " " && c.FG.IsDefault() && c.BG.IsDefault() && c.Attrs == AttrNone
}

// IsContinuation returns true if this is the right half of a wide glyph.
func (c Cell) IsContinuation() bool {
	return c.Ch == ""
}

// Style is the styling triple shared by both halves of a wide glyph.
type Style struct {
	FG    Color
	BG    Color
	Attrs Attr
}

// CellStyle extracts the style triple from a cell.
func (c Cell) CellStyle() Style {
	return Style{FG: c.FG, BG: c.BG, Attrs: c.Attrs}
}
