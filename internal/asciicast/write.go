package asciicast

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/sjson"
)

// Writer emits a cast in asciicast v2 format, one JSON line per record,
// flushing after every line so that a partial recording survives an abrupt
// exit.
type Writer struct {
	w          *bufio.Writer
	headerDone bool
}

// NewWriter creates a v2 cast writer on top of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line. It must be called exactly once,
// before any event.
func (w *Writer) WriteHeader(h Header) error {
	if w.headerDone {
		return fmt.Errorf("header already written")
	}
	line, err := encodeHeader(h)
	if err != nil {
		return err
	}
	w.headerDone = true
	return w.writeLine(line)
}

// WriteEvent writes one event line.
func (w *Writer) WriteEvent(ev Event) error {
	if !w.headerDone {
		return fmt.Errorf("header not written")
	}
	return w.writeLine(encodeEvent(ev))
}

func (w *Writer) writeLine(line string) error {
	if _, err := w.w.WriteString(line); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// EncodeV2 writes a whole cast in asciicast v2 format.
func EncodeV2(w io.Writer, cast *Cast) error {
	cw := NewWriter(w)
	header := cast.Header
	header.Version = 2
	if err := cw.WriteHeader(header); err != nil {
		return err
	}
	for _, ev := range cast.Events {
		if err := cw.WriteEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// encodeHeader builds the header JSON with a stable key order, emitting
// only documented fields.
func encodeHeader(h Header) (string, error) {
	line := "{}"
	var err error
	set := func(key string, value any) {
		if err != nil {
			return
		}
		line, err = sjson.Set(line, key, value)
	}

	set("version", 2)
	set("width", h.Width)
	set("height", h.Height)
	if h.Timestamp != 0 {
		set("timestamp", h.Timestamp)
	}
	if h.IdleTimeLimit != 0 {
		set("idle_time_limit", h.IdleTimeLimit)
	}
	if h.Theme != nil {
		set("theme.fg", h.Theme.FG)
		set("theme.bg", h.Theme.BG)
		set("theme.palette", strings.Join(h.Theme.Palette, ":"))
	}
	if err != nil {
		return "", err
	}
	return line, nil
}

func encodeEvent(ev Event) string {
	t := strconv.FormatFloat(float64(ev.TimeMS)/1000, 'f', -1, 64)

	var payload string
	if ev.Kind == EventResize {
		payload = fmt.Sprintf("%dx%d", ev.Cols, ev.Rows)
	} else {
		payload = string(ev.Data)
	}
	data, _ := json.Marshal(payload)

	return fmt.Sprintf("[%s, %q, %s]", t, ev.Kind.String(), data)
}
