package vt

import (
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Cursor describes the cursor position and visibility.
type Cursor struct {
	Row     int
	Col     int
	Visible bool
}

// Screen is a fixed-size grid of cells with a cursor. It is mutated by the
// emulator and copied into immutable snapshots.
type Screen struct {
	cols, rows int
	cells      []Cell
	cursor     Cursor

	// wrapPending is set after writing to the last column; the next
	// printable character wraps to the following line first.
	wrapPending bool

	// autowrap mirrors DECAWM. When off, the cursor pins at the right
	// margin and overflow overwrites the margin cell.
	autowrap bool

	// scrollTop and scrollBottom delimit the scroll region (inclusive).
	scrollTop    int
	scrollBottom int

	// dirty tracks the rows touched since the last ClearDirty.
	dirty map[int]struct{}

	// brush is the style applied to newly written cells.
	brush Style

	savedCursor Cursor
	savedBrush  Style
}

// NewScreen creates a blank screen of the given geometry with the cursor at
// the origin, visible.
func NewScreen(cols, rows int) *Screen {
	s := &Screen{
		cols:         cols,
		rows:         rows,
		cells:        make([]Cell, cols*rows),
		cursor:       Cursor{Visible: true},
		scrollBottom: rows - 1,
		autowrap:     true,
		dirty:        make(map[int]struct{}),
	}
	for i := range s.cells {
		s.cells[i] = EmptyCell()
	}
	return s
}

// Cols returns the number of columns.
func (s *Screen) Cols() int { return s.cols }

// Rows returns the number of rows.
func (s *Screen) Rows() int { return s.rows }

// Cursor returns the current cursor state.
func (s *Screen) Cursor() Cursor { return s.cursor }

// Cell returns the cell at the given position. Out-of-range positions yield
// an empty cell.
func (s *Screen) Cell(row, col int) Cell {
	if row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		return EmptyCell()
	}
	return s.cells[row*s.cols+col]
}

func (s *Screen) setCell(row, col int, c Cell) {
	if row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		return
	}
	s.cells[row*s.cols+col] = c
	s.dirty[row] = struct{}{}
}

func (s *Screen) markDirty(row int) {
	if row >= 0 && row < s.rows {
		s.dirty[row] = struct{}{}
	}
}

// DirtyRows returns the rows touched since the last ClearDirty, in
// unspecified order.
func (s *Screen) DirtyRows() []int {
	rows := make([]int, 0, len(s.dirty))
	for r := range s.dirty {
		rows = append(rows, r)
	}
	return rows
}

// ClearDirty resets dirty-row tracking.
func (s *Screen) ClearDirty() {
	s.dirty = make(map[int]struct{})
}

// WriteText writes a chunk of printable text at the cursor, handling
// grapheme clusters, wide characters and line wrapping. Combining marks at
// the start of the chunk attach to the previously written cell.
func (s *Screen) WriteText(text string) {
	state := -1
	rest := text
	for len(rest) > 0 {
		var cluster string
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		s.writeCluster(cluster)
	}
}

func (s *Screen) writeCluster(cluster string) {
	width := runewidth.StringWidth(cluster)

	if width == 0 {
		// Combining mark or zero-width joiner: attach to the cell
		// preceding the cursor without advancing.
		row, col := s.cursor.Row, s.cursor.Col-1
		if s.wrapPending {
			col = s.cols - 1
		}
		if col < 0 {
			return
		}
		prev := s.Cell(row, col)
		if prev.IsContinuation() {
			col--
			if col < 0 {
				return
			}
			prev = s.Cell(row, col)
		}
		prev.Ch += cluster
		s.setCell(row, col, prev)
		return
	}

	if width > 2 {
		width = 2
	}

	if s.wrapPending {
		s.wrapPending = false
		s.cursor.Col = 0
		s.lineFeed()
	}

	// A wide glyph that does not fit at the end of the line wraps whole.
	if width == 2 && s.cursor.Col == s.cols-1 {
		s.setCell(s.cursor.Row, s.cursor.Col, s.styledCell(" "))
		s.cursor.Col = 0
		s.lineFeed()
	}

	cell := s.styledCell(cluster)
	s.clearWideAt(s.cursor.Row, s.cursor.Col)
	s.setCell(s.cursor.Row, s.cursor.Col, cell)
	if width == 2 {
		cont := cell
		cont.Ch = ""
		s.clearWideAt(s.cursor.Row, s.cursor.Col+1)
		s.setCell(s.cursor.Row, s.cursor.Col+1, cont)
	}

	if s.cursor.Col+width >= s.cols {
		s.cursor.Col = s.cols - 1
		s.wrapPending = s.autowrap
	} else {
		s.cursor.Col += width
	}
}

// SetAutowrap toggles automatic line wrapping (DECAWM).
func (s *Screen) SetAutowrap(on bool) {
	s.autowrap = on
	if !on {
		s.wrapPending = false
	}
}

// clearWideAt repairs a wide glyph that is about to be partially overwritten
// at the given position, blanking its other half.
func (s *Screen) clearWideAt(row, col int) {
	c := s.Cell(row, col)
	if c.IsContinuation() && col > 0 {
		left := s.Cell(row, col-1)
		left.Ch = " "
		s.setCell(row, col-1, left)
	}
	next := s.Cell(row, col+1)
	if next.IsContinuation() && !c.IsContinuation() && c.Ch != "" && runewidth.StringWidth(c.Ch) == 2 {
		next.Ch = " "
		s.setCell(row, col+1, next)
	}
}

func (s *Screen) styledCell(ch string) Cell {
	return Cell{Ch: ch, FG: s.brush.FG, BG: s.brush.BG, Attrs: s.brush.Attrs}
}

// blankCell returns an erased cell carrying the brush background, per the
// VT "erase with background color" behavior.
func (s *Screen) blankCell() Cell {
	return Cell{Ch: " ", BG: s.brush.BG}
}

// MoveTo places the cursor at the given position, clamped to the screen.
func (s *Screen) MoveTo(row, col int) {
	s.wrapPending = false
	s.markDirty(s.cursor.Row)
	s.cursor.Row = clamp(row, 0, s.rows-1)
	s.cursor.Col = clamp(col, 0, s.cols-1)
	s.markDirty(s.cursor.Row)
}

// MoveRel moves the cursor relative to its position, clamped to the screen.
func (s *Screen) MoveRel(dRow, dCol int) {
	s.MoveTo(s.cursor.Row+dRow, s.cursor.Col+dCol)
}

// SetCursorVisible toggles cursor visibility (DECTCEM).
func (s *Screen) SetCursorVisible(visible bool) {
	if s.cursor.Visible != visible {
		s.cursor.Visible = visible
		s.markDirty(s.cursor.Row)
	}
}

// SaveCursor records the cursor position and brush (DECSC).
func (s *Screen) SaveCursor() {
	s.savedCursor = s.cursor
	s.savedBrush = s.brush
}

// RestoreCursor restores the state saved by SaveCursor (DECRC).
func (s *Screen) RestoreCursor() {
	visible := s.cursor.Visible
	s.markDirty(s.cursor.Row)
	s.cursor = s.savedCursor
	s.cursor.Visible = visible
	s.brush = s.savedBrush
	s.wrapPending = false
	s.markDirty(s.cursor.Row)
}

// CarriageReturn moves the cursor to the start of the line.
func (s *Screen) CarriageReturn() {
	s.wrapPending = false
	s.cursor.Col = 0
}

// LineFeed moves the cursor down one row, scrolling the region if needed.
func (s *Screen) LineFeed() {
	s.wrapPending = false
	s.lineFeed()
}

func (s *Screen) lineFeed() {
	if s.cursor.Row == s.scrollBottom {
		s.ScrollUp(1)
		return
	}
	if s.cursor.Row < s.rows-1 {
		s.cursor.Row++
	}
	s.markDirty(s.cursor.Row)
}

// ReverseLineFeed moves the cursor up one row, scrolling down at the top of
// the region.
func (s *Screen) ReverseLineFeed() {
	s.wrapPending = false
	if s.cursor.Row == s.scrollTop {
		s.ScrollDown(1)
		return
	}
	if s.cursor.Row > 0 {
		s.cursor.Row--
	}
	s.markDirty(s.cursor.Row)
}

// Backspace moves the cursor one column left, stopping at the margin.
func (s *Screen) Backspace() {
	s.wrapPending = false
	if s.cursor.Col > 0 {
		s.cursor.Col--
	}
}

// Tab advances the cursor to the next multiple-of-8 tab stop.
func (s *Screen) Tab() {
	s.wrapPending = false
	next := (s.cursor.Col/8 + 1) * 8
	s.cursor.Col = clamp(next, 0, s.cols-1)
}

// SetScrollRegion sets the scroll region (DECSTBM). Rows are zero-based and
// inclusive. Invalid regions reset to the full screen.
func (s *Screen) SetScrollRegion(top, bottom int) {
	if top < 0 || bottom >= s.rows || top >= bottom {
		top, bottom = 0, s.rows-1
	}
	s.scrollTop = top
	s.scrollBottom = bottom
	s.MoveTo(top, 0)
}

// ScrollUp scrolls the scroll region up by n lines, discarding the top lines
// and introducing blanks at the bottom.
func (s *Screen) ScrollUp(n int) {
	if n <= 0 {
		return
	}
	if n > s.scrollBottom-s.scrollTop+1 {
		n = s.scrollBottom - s.scrollTop + 1
	}
	for row := s.scrollTop; row <= s.scrollBottom; row++ {
		for col := 0; col < s.cols; col++ {
			if row+n <= s.scrollBottom {
				s.cells[row*s.cols+col] = s.cells[(row+n)*s.cols+col]
			} else {
				s.cells[row*s.cols+col] = s.blankCell()
			}
		}
		s.markDirty(row)
	}
}

// ScrollDown scrolls the scroll region down by n lines, introducing blanks
// at the top.
func (s *Screen) ScrollDown(n int) {
	if n <= 0 {
		return
	}
	if n > s.scrollBottom-s.scrollTop+1 {
		n = s.scrollBottom - s.scrollTop + 1
	}
	for row := s.scrollBottom; row >= s.scrollTop; row-- {
		for col := 0; col < s.cols; col++ {
			if row-n >= s.scrollTop {
				s.cells[row*s.cols+col] = s.cells[(row-n)*s.cols+col]
			} else {
				s.cells[row*s.cols+col] = s.blankCell()
			}
		}
		s.markDirty(row)
	}
}

// InsertLines inserts n blank lines at the cursor row (IL).
func (s *Screen) InsertLines(n int) {
	if s.cursor.Row < s.scrollTop || s.cursor.Row > s.scrollBottom {
		return
	}
	top := s.scrollTop
	s.scrollTop = s.cursor.Row
	s.ScrollDown(n)
	s.scrollTop = top
}

// DeleteLines deletes n lines at the cursor row (DL).
func (s *Screen) DeleteLines(n int) {
	if s.cursor.Row < s.scrollTop || s.cursor.Row > s.scrollBottom {
		return
	}
	top := s.scrollTop
	s.scrollTop = s.cursor.Row
	s.ScrollUp(n)
	s.scrollTop = top
}

// InsertChars inserts n blank cells at the cursor, shifting the rest of the
// line right (ICH).
func (s *Screen) InsertChars(n int) {
	row := s.cursor.Row
	if n > s.cols-s.cursor.Col {
		n = s.cols - s.cursor.Col
	}
	for col := s.cols - 1; col >= s.cursor.Col+n; col-- {
		s.cells[row*s.cols+col] = s.cells[row*s.cols+col-n]
	}
	for col := s.cursor.Col; col < s.cursor.Col+n; col++ {
		s.cells[row*s.cols+col] = s.blankCell()
	}
	s.markDirty(row)
}

// DeleteChars deletes n cells at the cursor, shifting the rest of the line
// left (DCH).
func (s *Screen) DeleteChars(n int) {
	row := s.cursor.Row
	if n > s.cols-s.cursor.Col {
		n = s.cols - s.cursor.Col
	}
	for col := s.cursor.Col; col < s.cols; col++ {
		if col+n < s.cols {
			s.cells[row*s.cols+col] = s.cells[row*s.cols+col+n]
		} else {
			s.cells[row*s.cols+col] = s.blankCell()
		}
	}
	s.markDirty(row)
}

// EraseChars blanks n cells starting at the cursor without shifting (ECH).
func (s *Screen) EraseChars(n int) {
	for col := s.cursor.Col; col < s.cursor.Col+n && col < s.cols; col++ {
		s.setCell(s.cursor.Row, col, s.blankCell())
	}
}

// EraseInLine erases part of the cursor line (EL). Mode 0 erases from the
// cursor to the end, 1 from the start to the cursor, 2 the whole line.
func (s *Screen) EraseInLine(mode int) {
	from, to := 0, s.cols-1
	switch mode {
	case 0:
		from = s.cursor.Col
	case 1:
		to = s.cursor.Col
	case 2:
	default:
		return
	}
	for col := from; col <= to; col++ {
		s.setCell(s.cursor.Row, col, s.blankCell())
	}
}

// EraseInDisplay erases part of the screen (ED). Mode 0 erases from the
// cursor to the end, 1 from the start to the cursor, 2 and 3 the whole
// screen.
func (s *Screen) EraseInDisplay(mode int) {
	switch mode {
	case 0:
		s.EraseInLine(0)
		for row := s.cursor.Row + 1; row < s.rows; row++ {
			s.eraseRow(row)
		}
	case 1:
		s.EraseInLine(1)
		for row := 0; row < s.cursor.Row; row++ {
			s.eraseRow(row)
		}
	case 2, 3:
		for row := 0; row < s.rows; row++ {
			s.eraseRow(row)
		}
	}
}

func (s *Screen) eraseRow(row int) {
	for col := 0; col < s.cols; col++ {
		s.setCell(row, col, s.blankCell())
	}
}

// Reset restores the initial screen state (RIS).
func (s *Screen) Reset() {
	for i := range s.cells {
		s.cells[i] = EmptyCell()
	}
	s.cursor = Cursor{Visible: true}
	s.brush = Style{}
	s.wrapPending = false
	s.autowrap = true
	s.scrollTop = 0
	s.scrollBottom = s.rows - 1
	for row := 0; row < s.rows; row++ {
		s.markDirty(row)
	}
}

// Brush returns the current writing style.
func (s *Screen) Brush() Style { return s.brush }

// SetBrush replaces the current writing style.
func (s *Screen) SetBrush(b Style) { s.brush = b }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
