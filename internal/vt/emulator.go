package vt

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/castsvg/internal/logging"
)

// Emulator drives a Screen from a raw terminal byte stream. It owns the
// screen exclusively; callers observe state only through snapshots.
type Emulator struct {
	screen *Screen
	parser parser
	log    *logging.Logger

	// clockMS is the session clock, advanced by the caller before each feed.
	clockMS int64
}

// NewEmulator creates an emulator for a cols x rows screen.
func NewEmulator(cols, rows int, log *logging.Logger) *Emulator {
	if log == nil {
		log = logging.New(logging.Config{Level: logging.LevelError})
	}
	return &Emulator{
		screen: NewScreen(cols, rows),
		log:    log,
	}
}

// Advance moves the session clock to the given time. Clocks never move
// backwards; an earlier time is ignored.
func (e *Emulator) Advance(timeMS int64) {
	if timeMS > e.clockMS {
		e.clockMS = timeMS
	}
}

// ClockMS returns the current session clock.
func (e *Emulator) ClockMS() int64 { return e.clockMS }

// Snapshot materialises the current screen as an immutable snapshot stamped
// with the session clock.
func (e *Emulator) Snapshot() *Snapshot {
	return NewSnapshot(e.screen, e.clockMS)
}

// Feed consumes a chunk of terminal output and returns the rows touched by
// it. Partial escape sequences and UTF-8 runes are carried over to the next
// call.
func (e *Emulator) Feed(data []byte) []int {
	e.screen.ClearDirty()
	for _, b := range data {
		e.step(b)
	}
	e.flushText(false)
	return e.screen.DirtyRows()
}

func (e *Emulator) step(b byte) {
	switch e.parser.state {
	case stateGround:
		e.stepGround(b)
	case stateEscape:
		e.stepEscape(b)
	case stateCSI:
		e.stepCSI(b)
	case stateOSC:
		if b == 0x07 {
			e.parser.state = stateGround
		} else if b == 0x1B {
			e.parser.state = stateOSCEscape
		}
	case stateOSCEscape:
		if b == '\\' {
			e.parser.state = stateGround
		} else {
			e.parser.state = stateOSC
		}
	case stateCharset:
		// Charset designation byte; castsvg renders UTF-8 only.
		e.parser.state = stateGround
	case stateString:
		if b == 0x1B {
			e.parser.state = stateStringEscape
		}
	case stateStringEscape:
		if b == '\\' {
			e.parser.state = stateGround
		} else {
			e.parser.state = stateString
		}
	}
}

func (e *Emulator) stepGround(b byte) {
	switch {
	case b == 0x1B:
		e.flushText(true)
		e.parser.state = stateEscape
	case b == 0x0A, b == 0x0B, b == 0x0C:
		e.flushText(true)
		e.screen.LineFeed()
	case b == 0x0D:
		e.flushText(true)
		e.screen.CarriageReturn()
	case b == 0x08:
		e.flushText(true)
		e.screen.Backspace()
	case b == 0x09:
		e.flushText(true)
		e.screen.Tab()
	case b == 0x07:
		e.flushText(true)
	case b < 0x20, b == 0x7F:
		e.flushText(true)
	default:
		e.parser.text = append(e.parser.text, b)
	}
}

func (e *Emulator) stepEscape(b byte) {
	e.parser.state = stateGround
	switch b {
	case '[':
		e.parser.seq = e.parser.seq[:0]
		e.parser.state = stateCSI
	case ']':
		e.parser.state = stateOSC
	case 'P', 'X', '^', '_':
		e.parser.state = stateString
	case '(', ')', '*', '+', '#':
		e.parser.intermediate = b
		e.parser.state = stateCharset
	case '7':
		e.screen.SaveCursor()
	case '8':
		e.screen.RestoreCursor()
	case 'D':
		e.screen.LineFeed()
	case 'M':
		e.screen.ReverseLineFeed()
	case 'E':
		e.screen.CarriageReturn()
		e.screen.LineFeed()
	case 'c':
		e.screen.Reset()
	case '=', '>':
		// Keypad modes have no visual effect.
	default:
		e.log.Debugf("ignoring escape sequence ESC %q", b)
	}
}

func (e *Emulator) stepCSI(b byte) {
	if b >= 0x40 && b <= 0x7E {
		body := string(e.parser.seq)
		e.parser.state = stateGround
		e.dispatchCSI(body, b)
		return
	}
	if b >= 0x20 && b <= 0x3F {
		e.parser.seq = append(e.parser.seq, b)
		return
	}
	// Control bytes embedded in a CSI sequence execute immediately.
	if b == 0x1B {
		e.parser.state = stateEscape
		return
	}
	e.stepGround(b)
}

func (e *Emulator) dispatchCSI(body string, final byte) {
	private := strings.HasPrefix(body, "?")
	if private {
		body = body[1:]
	}

	s := e.screen
	switch final {
	case 'A':
		s.MoveRel(-csiParam(body, 1), 0)
	case 'B', 'e':
		s.MoveRel(csiParam(body, 1), 0)
	case 'C', 'a':
		s.MoveRel(0, csiParam(body, 1))
	case 'D':
		s.MoveRel(0, -csiParam(body, 1))
	case 'E':
		s.MoveRel(csiParam(body, 1), 0)
		s.CarriageReturn()
	case 'F':
		s.MoveRel(-csiParam(body, 1), 0)
		s.CarriageReturn()
	case 'G', '`':
		s.MoveTo(s.Cursor().Row, csiParam(body, 1)-1)
	case 'H', 'f':
		params := csiParams(body, 1)
		row := params[0]
		col := 1
		if len(params) > 1 {
			col = params[1]
		}
		s.MoveTo(row-1, col-1)
	case 'd':
		s.MoveTo(csiParam(body, 1)-1, s.Cursor().Col)
	case 'J':
		s.EraseInDisplay(csiParam(body, 0))
	case 'K':
		s.EraseInLine(csiParam(body, 0))
	case 'L':
		s.InsertLines(csiParam(body, 1))
	case 'M':
		s.DeleteLines(csiParam(body, 1))
	case '@':
		s.InsertChars(csiParam(body, 1))
	case 'P':
		s.DeleteChars(csiParam(body, 1))
	case 'X':
		s.EraseChars(csiParam(body, 1))
	case 'S':
		s.ScrollUp(csiParam(body, 1))
	case 'T':
		s.ScrollDown(csiParam(body, 1))
	case 'r':
		params := csiParams(body, 0)
		top := params[0]
		bottom := 0
		if len(params) > 1 {
			bottom = params[1]
		}
		if top == 0 {
			top = 1
		}
		if bottom == 0 {
			bottom = s.Rows()
		}
		s.SetScrollRegion(top-1, bottom-1)
	case 's':
		s.SaveCursor()
	case 'u':
		s.RestoreCursor()
	case 'm':
		e.dispatchSGR(body)
	case 'h':
		e.setMode(body, private, true)
	case 'l':
		e.setMode(body, private, false)
	case 'c', 'n', 't', 'g':
		// Reports and terminal queries produce no screen change.
	default:
		e.log.Debugf("ignoring CSI sequence %q final %q", body, final)
	}
}

func (e *Emulator) setMode(body string, private, on bool) {
	if !private {
		return
	}
	for _, mode := range csiParams(body, 0) {
		switch mode {
		case 25:
			// DECTCEM
			e.screen.SetCursorVisible(on)
		case 7:
			e.screen.SetAutowrap(on)
		case 47, 1047, 1049:
			// Alternate screen buffer: approximated by clearing the
			// screen on entry and exit.
			if mode == 1049 && on {
				e.screen.SaveCursor()
			}
			e.screen.EraseInDisplay(2)
			if mode == 1049 && !on {
				e.screen.RestoreCursor()
			}
		case 1, 12, 2004:
			// Cursor keys, cursor blink, bracketed paste: no-ops.
		default:
			e.log.Debugf("ignoring private mode %d", mode)
		}
	}
}

// dispatchSGR applies a Select Graphic Rendition sequence to the brush.
func (e *Emulator) dispatchSGR(body string) {
	params := csiParams(body, 0)
	brush := e.screen.Brush()
	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			brush = Style{}
		case p == 1:
			brush.Attrs = brush.Attrs.With(AttrBold)
		case p == 3:
			brush.Attrs = brush.Attrs.With(AttrItalic)
		case p == 4:
			brush.Attrs = brush.Attrs.With(AttrUnderline)
		case p == 5 || p == 6:
			brush.Attrs = brush.Attrs.With(AttrBlink)
		case p == 7:
			brush.Attrs = brush.Attrs.With(AttrInverse)
		case p == 9:
			brush.Attrs = brush.Attrs.With(AttrStrikethrough)
		case p == 21 || p == 22:
			brush.Attrs = brush.Attrs.Without(AttrBold)
		case p == 23:
			brush.Attrs = brush.Attrs.Without(AttrItalic)
		case p == 24:
			brush.Attrs = brush.Attrs.Without(AttrUnderline)
		case p == 25:
			brush.Attrs = brush.Attrs.Without(AttrBlink)
		case p == 27:
			brush.Attrs = brush.Attrs.Without(AttrInverse)
		case p == 29:
			brush.Attrs = brush.Attrs.Without(AttrStrikethrough)
		case p >= 30 && p <= 37:
			brush.FG = IndexedColor(uint8(p - 30))
		case p == 38:
			if c, skip, ok := extendedColor(params[i+1:]); ok {
				brush.FG = c
				i += skip
			} else {
				i = len(params)
			}
		case p == 39:
			brush.FG = ColorDefault
		case p >= 40 && p <= 47:
			brush.BG = IndexedColor(uint8(p - 40))
		case p == 48:
			if c, skip, ok := extendedColor(params[i+1:]); ok {
				brush.BG = c
				i += skip
			} else {
				i = len(params)
			}
		case p == 49:
			brush.BG = ColorDefault
		case p >= 90 && p <= 97:
			brush.FG = IndexedColor(uint8(p - 90 + 8))
		case p >= 100 && p <= 107:
			brush.BG = IndexedColor(uint8(p - 100 + 8))
		default:
			e.log.Debugf("ignoring SGR parameter %d", p)
		}
	}
	e.screen.SetBrush(brush)
}

// extendedColor decodes the 5;n and 2;r;g;b forms following SGR 38/48.
// It returns the color, the number of parameters consumed, and whether the
// form was valid.
func extendedColor(rest []int) (Color, int, bool) {
	if len(rest) >= 2 && rest[0] == 5 {
		return IndexedColor(uint8(rest[1])), 2, true
	}
	if len(rest) >= 4 && rest[0] == 2 {
		return RGBColor(uint8(rest[1]), uint8(rest[2]), uint8(rest[3])), 4, true
	}
	return Color{}, 0, false
}

// flushText writes the accumulated printable bytes to the screen. When
// force is false, an incomplete trailing UTF-8 rune is kept for the next
// feed.
func (e *Emulator) flushText(force bool) {
	buf := e.parser.text
	if len(buf) == 0 {
		return
	}
	n := len(buf)
	if !force {
		n = completeUTF8(buf)
	}
	if n == 0 {
		return
	}
	text := buf[:n]
	if !utf8.Valid(text) {
		text = []byte(strings.ToValidUTF8(string(text), string(utf8.RuneError)))
	}
	e.screen.WriteText(string(text))
	rest := buf[n:]
	e.parser.text = append(e.parser.text[:0], rest...)
}
