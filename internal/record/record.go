// Package record runs a program under a pseudo-terminal and captures its
// output as a timestamped asciicast stream.
package record

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"

	"github.com/dshills/castsvg/internal/asciicast"
	"github.com/dshills/castsvg/internal/logging"
)

// ErrInterrupted is returned when recording was stopped by SIGINT. The
// partial cast has been flushed before it is returned.
var ErrInterrupted = errors.New("recording interrupted")

// Options configures a recording session.
type Options struct {
	// Command is the argv of the program to run. Empty means $SHELL,
	// falling back to /bin/sh.
	Command []string

	// Cols and Rows set the child terminal size. Zero means the size of
	// the controlling terminal, falling back to 80x24.
	Cols int
	Rows int

	Logger *logging.Logger
}

func (o *Options) command() []string {
	if len(o.Command) > 0 {
		return o.Command
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return []string{shell}
	}
	return []string{"/bin/sh"}
}

// Session is a live recording: a child process on a PTY with an event sink.
type Session struct {
	cmd    *exec.Cmd
	master *os.File
	cols   int
	rows   int
	log    *logging.Logger

	// mu serialises sink writes between the read loop and the signal
	// handler.
	mu    sync.Mutex
	start time.Time

	restore func()
}

func (s *Session) writeEvent(sink *asciicast.Writer, ev asciicast.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sink.WriteEvent(ev)
}

// Start spawns the command attached to a new PTY of the requested size.
func Start(opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = logging.New(logging.Config{Level: logging.LevelError})
	}

	cols, rows := opts.Cols, opts.Rows
	if cols == 0 || rows == 0 {
		cols, rows = terminalSize(os.Stdout)
	}

	argv := opts.command()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = os.Environ()

	master, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("recording %v on a %dx%d pty", argv, cols, rows)
	return &Session{cmd: cmd, master: master, cols: cols, rows: rows, log: log}, nil
}

// Cols returns the session terminal width.
func (s *Session) Cols() int { return s.cols }

// Rows returns the session terminal height.
func (s *Session) Rows() int { return s.rows }

// Run forwards input to the child and copies child output to out while
// appending timestamped events to the sink. It blocks until the child
// exits or SIGINT arrives; the end of input does not stop it. Every exit
// path restores the terminal and releases the PTY.
func (s *Session) Run(input *os.File, out io.Writer, sink *asciicast.Writer) error {
	if err := sink.WriteHeader(asciicast.Header{
		Version:   2,
		Width:     s.cols,
		Height:    s.rows,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		s.Close()
		return err
	}

	s.makeRaw(input)
	defer s.restoreTerminal()
	defer s.Close()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGWINCH)
	defer signal.Stop(signals)

	interrupted := make(chan struct{})
	go func() {
		for sig := range signals {
			switch sig {
			case syscall.SIGWINCH:
				s.resizeFromTerminal(input, sink)
			case syscall.SIGINT:
				// Closing the master unblocks the read loop; the
				// partial cast is already flushed line by line.
				close(interrupted)
				s.master.Close()
				return
			}
		}
	}()

	go func() {
		// Child exit makes this copy fail with EIO; nothing to do.
		io.Copy(s.master, input)
	}()

	s.start = time.Now()
	buf := make([]byte, 4096)
	for {
		n, err := s.master.Read(buf)
		if n > 0 {
			elapsed := time.Since(s.start).Milliseconds()
			data := make([]byte, n)
			copy(data, buf[:n])
			if _, werr := out.Write(data); werr != nil {
				return werr
			}
			ev := asciicast.Event{TimeMS: elapsed, Kind: asciicast.EventOutput, Data: data}
			if werr := s.writeEvent(sink, ev); werr != nil {
				return werr
			}
		}
		if err != nil {
			// EIO is the normal EOF indication on a Linux PTY master.
			break
		}
	}

	s.cmd.Wait()

	select {
	case <-interrupted:
		return ErrInterrupted
	default:
		return nil
	}
}

// resizeFromTerminal propagates the controlling terminal's new size to the
// child PTY and records a resize event.
func (s *Session) resizeFromTerminal(input *os.File, sink *asciicast.Writer) {
	cols, rows, err := term.GetSize(int(input.Fd()))
	if err != nil {
		return
	}
	pty.Setsize(s.master, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	s.writeEvent(sink, asciicast.Event{
		TimeMS: time.Since(s.start).Milliseconds(),
		Kind:   asciicast.EventResize,
		Cols:   cols,
		Rows:   rows,
	})
	s.log.Debugf("terminal resized to %dx%d", cols, rows)
}

// makeRaw puts the user's terminal in raw mode so keystrokes pass through
// to the child unmodified. Non-terminal inputs are left alone.
func (s *Session) makeRaw(input *os.File) {
	fd := int(input.Fd())
	if !term.IsTerminal(fd) {
		return
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return
	}
	s.restore = func() { term.Restore(fd, state) }
}

func (s *Session) restoreTerminal() {
	if s.restore != nil {
		s.restore()
		s.restore = nil
	}
}

// Close terminates the child and releases the PTY master.
func (s *Session) Close() error {
	if s.cmd.Process != nil {
		s.cmd.Process.Signal(syscall.SIGTERM)
	}
	return s.master.Close()
}

func terminalSize(f *os.File) (cols, rows int) {
	cols, rows, err := term.GetSize(int(f.Fd()))
	if err != nil || cols < 1 || rows < 1 {
		return 80, 24
	}
	return cols, rows
}
