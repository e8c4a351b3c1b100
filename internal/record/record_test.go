package record

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/dshills/castsvg/internal/asciicast"
)

// startOrSkip skips the test on hosts where PTY allocation is unavailable.
func startOrSkip(t *testing.T, opts Options) *Session {
	t.Helper()
	s, err := Start(opts)
	if err != nil {
		t.Skipf("cannot allocate pty: %v", err)
	}
	return s
}

func TestRecordCommandOutput(t *testing.T) {
	s := startOrSkip(t, Options{
		Command: []string{"/bin/sh", "-c", "printf hello-cast"},
		Cols:    80,
		Rows:    24,
	})

	devnull, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatal(err)
	}
	defer devnull.Close()

	var castBuf bytes.Buffer
	if err := s.Run(devnull, io.Discard, asciicast.NewWriter(&castBuf)); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	cast, err := asciicast.Decode(bytes.NewReader(castBuf.Bytes()))
	if err != nil {
		t.Fatalf("recorded cast does not decode: %v", err)
	}
	if cast.Header.Version != 2 {
		t.Errorf("expected v2 header, got %d", cast.Header.Version)
	}
	if cast.Header.Width != 80 || cast.Header.Height != 24 {
		t.Errorf("bad geometry: %dx%d", cast.Header.Width, cast.Header.Height)
	}

	var output strings.Builder
	for _, ev := range cast.OutputEvents() {
		output.Write(ev.Data)
	}
	if !strings.Contains(output.String(), "hello-cast") {
		t.Errorf("recorded output does not contain program output: %q", output.String())
	}

	var prev int64
	for _, ev := range cast.Events {
		if ev.TimeMS < prev {
			t.Errorf("event times must be non-decreasing: %d after %d", ev.TimeMS, prev)
		}
		prev = ev.TimeMS
	}
}

func TestRecordForwardsOutput(t *testing.T) {
	s := startOrSkip(t, Options{
		Command: []string{"/bin/sh", "-c", "printf forwarded"},
		Cols:    80,
		Rows:    24,
	})

	devnull, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatal(err)
	}
	defer devnull.Close()

	var terminal bytes.Buffer
	if err := s.Run(devnull, &terminal, asciicast.NewWriter(io.Discard)); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(terminal.String(), "forwarded") {
		t.Errorf("output not forwarded to the terminal: %q", terminal.String())
	}
}

func TestDefaultCommandUsesShellEnv(t *testing.T) {
	t.Setenv("SHELL", "/bin/true")
	opts := Options{}
	argv := opts.command()
	if argv[0] != "/bin/true" {
		t.Errorf("expected $SHELL, got %v", argv)
	}

	t.Setenv("SHELL", "")
	argv = (&Options{}).command()
	if argv[0] != "/bin/sh" {
		t.Errorf("expected /bin/sh fallback, got %v", argv)
	}
}
