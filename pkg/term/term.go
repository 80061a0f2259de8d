// Package term connects prompts to a real terminal.
package term

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/cancelreader"
	"golang.org/x/sys/unix"
	xterm "golang.org/x/term"
)

// ErrNotTerminal is returned by Start when input is not a terminal.
var ErrNotTerminal = errors.New("input is not a terminal")

const (
	enableBracketedPaste  = "\x1b[?2004h"
	disableBracketedPaste = "\x1b[?2004l"
)

// Terminal is a terminal backed by a pair of files. The width is queried on every call to Columns, so it is always
// current when the renderer asks for it.
type Terminal struct {
	in  *os.File
	out *os.File

	mu     sync.Mutex
	state  *xterm.State
	reader cancelreader.CancelReader
	sigCh  chan os.Signal
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a terminal reading from in and writing to out.
func New(in, out *os.File) *Terminal {
	return &Terminal{in: in, out: out}
}

// NewProcessTerminal returns the process's terminal. Output goes to stderr,
// leaving stdout for answers.
func NewProcessTerminal() *Terminal {
	return New(os.Stdin, os.Stderr)
}

// Start puts the terminal in raw mode and delivers input and resizes until
// Stop. Starting an already started terminal is an error.
func (t *Terminal) Start(onInput func([]byte), onResize func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != nil {
		return errors.New("terminal already started")
	}

	fd := int(t.in.Fd())
	if !xterm.IsTerminal(fd) {
		return ErrNotTerminal
	}
	state, err := xterm.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set raw: %w", err)
	}
	reader, err := cancelreader.NewReader(t.in)
	if err != nil {
		_ = xterm.Restore(fd, state)
		return fmt.Errorf("input reader: %w", err)
	}
	t.state = state
	t.reader = reader

	t.writeString(enableBracketedPaste)

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		buf := make([]byte, 4096)
		for {
			n, err := reader.Read(buf)
			if n > 0 {
				onInput(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	t.sigCh = make(chan os.Signal, 1)
	signal.Notify(t.sigCh, syscall.SIGWINCH)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-t.sigCh:
				onResize()
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop restores the terminal. It waits for the input goroutine, so no
// callback runs after Stop returns.
func (t *Terminal) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return
	}

	signal.Stop(t.sigCh)
	t.cancel()
	t.reader.Cancel()
	t.wg.Wait()
	_ = t.reader.Close()

	t.writeString(disableBracketedPaste)
	_ = xterm.Restore(int(t.in.Fd()), t.state)
	t.state = nil
	t.reader = nil
}

func (t *Terminal) Write(p []byte) (int, error) {
	return t.out.Write(p)
}

// HideCursor hides the hardware cursor.
func (t *Terminal) HideCursor() {
	t.writeString(ansi.HideCursor)
}

// ShowCursor shows the hardware cursor.
func (t *Terminal) ShowCursor() {
	t.writeString(ansi.ShowCursor)
}

func (t *Terminal) writeString(s string) {
	_, _ = t.out.WriteString(s)
}

// Columns returns the output's width, or 0 if it is not a terminal.
func (t *Terminal) Columns() int {
	ws, err := unix.IoctlGetWinsize(int(t.out.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0
	}
	return int(ws.Col)
}
