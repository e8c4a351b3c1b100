package asciicast

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/unicode"
)

// Decode reads a cast in asciicast v1 or v2 format and returns a uniform
// event stream with millisecond timestamps sorted non-decreasing. Unknown
// header fields are ignored; structural errors abort with ErrInvalidCast.
func Decode(r io.Reader) (*Cast, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// Recordings may contain stray bytes from binary program output;
	// decode leniently so JSON parsing sees well-formed UTF-8.
	clean, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, invalidf("undecodable input: %v", err)
	}

	text := strings.TrimSpace(string(clean))
	if text == "" {
		return nil, invalidf("empty file")
	}

	// A v1 cast is a single JSON object (possibly spanning several lines)
	// with the events inline under "stdout". Anything else is parsed as
	// v2 JSON lines.
	if doc := gjson.Parse(text); doc.IsObject() && doc.Get("version").Int() == 1 {
		return decodeV1(doc)
	}
	return decodeV2(text)
}

// DecodeFile reads a cast from the given path.
func DecodeFile(path string) (*Cast, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

func decodeV1(doc gjson.Result) (*Cast, error) {
	header, err := decodeHeader(doc)
	if err != nil {
		return nil, err
	}

	stdout := doc.Get("stdout")
	if !stdout.IsArray() {
		return nil, invalidf("v1 cast missing stdout array")
	}

	cast := &Cast{Header: header}
	var clock float64
	for _, entry := range stdout.Array() {
		pair := entry.Array()
		if !entry.IsArray() || len(pair) != 2 {
			return nil, invalidf("malformed v1 stdout entry: %s", entry.Raw)
		}
		delay := pair[0].Float()
		if delay < 0 || math.IsNaN(delay) {
			return nil, invalidf("negative delay in v1 stdout entry")
		}
		clock += delay
		cast.Events = append(cast.Events, Event{
			TimeMS: int64(math.Round(clock * 1000)),
			Kind:   EventOutput,
			Data:   []byte(pair[1].String()),
		})
	}

	normalizeTimes(cast)
	return cast, nil
}

func decodeV2(text string) (*Cast, error) {
	lines := strings.Split(text, "\n")

	headerDoc := gjson.Parse(strings.TrimSpace(lines[0]))
	if !headerDoc.IsObject() {
		return nil, invalidf("v2 header is not a JSON object")
	}
	header, err := decodeHeader(headerDoc)
	if err != nil {
		return nil, err
	}

	cast := &Cast{Header: header}
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ev, ok, err := decodeEventLine(line)
		if err != nil {
			return nil, err
		}
		if ok {
			cast.Events = append(cast.Events, ev)
		}
	}

	applyIdleTimeLimit(cast)
	normalizeTimes(cast)
	return cast, nil
}

func decodeHeader(doc gjson.Result) (Header, error) {
	version := doc.Get("version")
	if !version.Exists() {
		return Header{}, invalidf("missing version field")
	}
	v := int(version.Int())
	if v != 1 && v != 2 {
		return Header{}, invalidf("unsupported version %s", version.Raw)
	}

	width := int(doc.Get("width").Int())
	height := int(doc.Get("height").Int())
	if width < 1 || height < 1 {
		return Header{}, invalidf("non-positive geometry %dx%d", width, height)
	}

	header := Header{
		Version:   v,
		Width:     width,
		Height:    height,
		Timestamp: doc.Get("timestamp").Int(),
	}

	if idle := doc.Get("idle_time_limit"); idle.Exists() {
		if idle.Float() < 0 || math.IsNaN(idle.Float()) {
			return Header{}, invalidf("negative idle_time_limit")
		}
		header.IdleTimeLimit = idle.Float()
	}

	if themeDoc := doc.Get("theme"); themeDoc.IsObject() {
		theme, err := NewTheme(
			themeDoc.Get("fg").String(),
			themeDoc.Get("bg").String(),
			themeDoc.Get("palette").String(),
		)
		if err != nil {
			return Header{}, invalidf("bad theme: %v", err)
		}
		header.Theme = theme
	}

	return header, nil
}

func decodeEventLine(line string) (Event, bool, error) {
	doc := gjson.Parse(line)
	items := doc.Array()
	if !doc.IsArray() || len(items) != 3 {
		return Event{}, false, invalidf("malformed event line: %s", line)
	}

	t := items[0].Float()
	if t < 0 || math.IsNaN(t) {
		return Event{}, false, invalidf("negative event time: %s", line)
	}
	timeMS := int64(math.Round(t * 1000))

	switch items[1].String() {
	case "o":
		return Event{TimeMS: timeMS, Kind: EventOutput, Data: []byte(items[2].String())}, true, nil
	case "i":
		return Event{TimeMS: timeMS, Kind: EventInput, Data: []byte(items[2].String())}, true, nil
	case "r":
		cols, rows, ok := parseGeometry(items[2].String())
		if !ok {
			return Event{}, false, invalidf("malformed resize event: %s", line)
		}
		return Event{TimeMS: timeMS, Kind: EventResize, Cols: cols, Rows: rows}, true, nil
	default:
		// Event kinds added by future format revisions are skipped.
		return Event{}, false, nil
	}
}

func parseGeometry(s string) (cols, rows int, ok bool) {
	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return 0, 0, false
	}
	cols, err1 := strconv.Atoi(parts[0])
	rows, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || cols < 1 || rows < 1 {
		return 0, 0, false
	}
	return cols, rows, true
}

// applyIdleTimeLimit compresses gaps longer than the header's
// idle_time_limit, shifting all subsequent events earlier.
func applyIdleTimeLimit(cast *Cast) {
	limit := cast.Header.IdleTimeLimit
	if limit <= 0 {
		return
	}
	limitMS := int64(math.Round(limit * 1000))

	var shift, prev int64
	for i := range cast.Events {
		ev := &cast.Events[i]
		gap := ev.TimeMS - prev
		prev = ev.TimeMS
		if i > 0 && gap > limitMS {
			shift += gap - limitMS
		}
		ev.TimeMS -= shift
	}
}

// normalizeTimes clamps timestamps to be non-decreasing.
func normalizeTimes(cast *Cast) {
	var prev int64
	for i := range cast.Events {
		if cast.Events[i].TimeMS < prev {
			cast.Events[i].TimeMS = prev
		}
		prev = cast.Events[i].TimeMS
	}
}
