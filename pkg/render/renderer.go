// Package render redraws a block of styled terminal output in place.
//
// The Renderer never knows where it is on the screen. It remembers which
// physical row of its own output the cursor was left on and reaches every
// other row with relative moves, so it works on the normal scrollback
// without ever querying the terminal. Only rows that changed since the
// previous frame are rewritten.
package render

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/vito/promptline/pkg/frame"
)

// Cursor reports how many columns past the frame's anchor the cursor sits.
// Text fields implement it.
type Cursor interface {
	Columns() int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithCursor switches the renderer to auto anchor tracking: the first anchor
// marker is pinned and c supplies the cursor's offset from it.
func WithCursor(c Cursor) Option {
	return func(r *Renderer) {
		r.cursor = c
		r.builder = frame.NewBuilder(frame.TrackAuto)
	}
}

// Renderer is a differential renderer for one prompt.
//
// All methods are safe to call from multiple goroutines, but each call runs
// to completion before the next begins.
type Renderer struct {
	out    io.Writer
	width  func() int
	logger *slog.Logger

	mu      sync.Mutex
	builder *frame.Builder
	cursor  Cursor

	prev *frame.Frame

	// cursorRow is the physical row the terminal cursor is on, relative to
	// the first row of the frame.
	cursorRow int
	// cursorCol is the cursor's column, or -1 when unknown.
	cursorCol int

	closed      bool
	seq         int
	stats       Stats
	debugWriter io.Writer
}

// New creates a Renderer writing to out. The width function is called once
// per render; a result of zero or less disables wrapping. A nil width
// function is treated as always returning zero.
func New(out io.Writer, width func() int, opts ...Option) *Renderer {
	r := &Renderer{
		out:       out,
		width:     width,
		logger:    slog.Default(),
		builder:   frame.NewBuilder(frame.TrackExplicit),
		cursorCol: -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetDebugWriter enables render stats logging. Each render writes one JSON
// line to w. Pass nil to disable.
func (r *Renderer) SetDebugWriter(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debugWriter = w
}

// Width samples the terminal width.
func (r *Renderer) Width() int {
	if r.width == nil {
		return 0
	}
	return max(0, r.width())
}

// Stats returns the stats of the most recent render or reconciliation.
func (r *Renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Frame returns the most recently drawn frame.
func (r *Renderer) Frame() frame.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.prev == nil {
		return frame.Empty(0)
	}
	return *r.prev
}

// Closed reports whether Close has been called.
func (r *Renderer) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Render parses raw into a frame at the current terminal width and draws
// it. Calls after Close are ignored.
func (r *Renderer) Render(raw string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	start := time.Now()
	f := r.builder.Build(raw, r.Width())
	r.draw(f, Stats{BuildTime: time.Since(start)})
}

// Draw draws an already-built frame. Calls after Close are ignored.
func (r *Renderer) Draw(f frame.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.draw(f, Stats{})
}

// ResetAnchor forgets the pinned anchor, so the next render pins the marker
// it finds. Call it when the rows above the anchor change in number. It has
// no effect in explicit mode, where every frame carries its own anchor.
func (r *Renderer) ResetAnchor() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builder.Reset()
}

// Reconcile moves the cursor to where the Cursor says it belongs without
// redrawing anything.
func (r *Renderer) Reconcile() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.prev == nil {
		return
	}
	stats := Stats{CursorOnly: true, CascadeRow: -1}
	start := time.Now()
	var buf strings.Builder
	r.reconcile(&buf)
	stats.DiffTime = time.Since(start)
	r.finish(buf.String(), *r.prev, stats)
}

// Bell rings the terminal bell. Calls after Close are ignored.
func (r *Renderer) Bell() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.write("\a")
}

// Close leaves the cursor at the start of the row below the last frame and
// stops all further output.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.prev == nil {
		return
	}
	var buf strings.Builder
	r.moveTo(&buf, r.prev.TotalRows)
	buf.WriteString(ansi.CursorHorizontalAbsolute(1))
	r.cursorCol = 0
	r.write(buf.String())
}

func (r *Renderer) draw(f frame.Frame, stats Stats) {
	diffStart := time.Now()
	stats.Width = f.Width
	stats.Rows = len(f.Rows)
	stats.PhysicalRows = f.TotalRows
	stats.CascadeRow = -1

	var buf strings.Builder

	prev := r.prev
	if prev != nil && prev.Width != f.Width {
		// Everything drawn so far was wrapped for another width. Return to
		// the top and draw from scratch.
		r.moveTo(&buf, 0)
		buf.WriteString(ansi.CursorHorizontalAbsolute(1))
		buf.WriteString(ansi.EraseScreenBelow)
		r.cursorCol = 0
		prev = nil
		stats.Reflowed = true
	}

	cascade := false
	top := 0
	for i, row := range f.Rows {
		repaint := prev == nil || i >= len(prev.Rows) || cascade
		if !repaint {
			old := prev.Rows[i]
			switch {
			case old.PhysicalRows != row.PhysicalRows:
				cascade = true
				stats.CascadeRow = i
				repaint = true
			case old.Styled != row.Styled:
				repaint = true
			}
		}
		if !repaint {
			stats.RowsSkipped++
			top += row.PhysicalRows
			continue
		}

		r.moveTo(&buf, top)
		buf.WriteString(ansi.CursorHorizontalAbsolute(1))
		buf.WriteString(row.Styled)
		if !row.Fills(f.Width) {
			// Erasing at the right edge would take the last character
			// with it.
			buf.WriteString(ansi.EraseLineRight)
		}
		if row.Reserved {
			buf.WriteByte('\n')
			buf.WriteString(ansi.CursorHorizontalAbsolute(1))
			buf.WriteString(ansi.EraseLineRight)
		}
		buf.WriteByte('\n')
		top += row.PhysicalRows
		r.cursorRow = top
		r.cursorCol = -1
		stats.RowsRepainted++
	}

	if prev != nil && f.TotalRows < prev.TotalRows {
		r.moveTo(&buf, f.TotalRows)
		buf.WriteString(ansi.CursorHorizontalAbsolute(1))
		buf.WriteString(ansi.EraseScreenBelow)
		r.cursorCol = 0
		stats.Shrunk = true
	}

	r.prev = &f
	r.reconcile(&buf)
	stats.DiffTime = time.Since(diffStart)

	r.finish(buf.String(), f, stats)
}

// reconcile appends the moves placing the cursor at its target.
func (r *Renderer) reconcile(buf *strings.Builder) {
	offset := 0
	if r.cursor != nil {
		offset = r.cursor.Columns()
	}
	y, x := r.prev.Target(offset)
	// Never move past the row below the frame; nothing is known to exist
	// there.
	y = min(y, r.prev.TotalRows)
	r.moveTo(buf, y)
	if x != r.cursorCol {
		buf.WriteString(ansi.CursorHorizontalAbsolute(x + 1))
		r.cursorCol = x
	}
}

// moveTo appends a relative vertical move to the given physical row.
func (r *Renderer) moveTo(buf *strings.Builder, row int) {
	switch delta := row - r.cursorRow; {
	case delta > 0:
		buf.WriteString(ansi.CursorDown(delta))
	case delta < 0:
		buf.WriteString(ansi.CursorUp(-delta))
	}
	r.cursorRow = row
}

func (r *Renderer) finish(out string, f frame.Frame, stats Stats) {
	writeStart := time.Now()
	r.write(out)
	stats.WriteTime = time.Since(writeStart)
	stats.BytesWritten = len(out)

	r.seq++
	stats.Seq = r.seq
	if stats.CursorOnly {
		stats.Width = f.Width
		stats.Rows = len(f.Rows)
		stats.PhysicalRows = f.TotalRows
	}
	stats.CursorRow = r.cursorRow
	stats.CursorCol = r.cursorCol
	r.stats = stats

	r.logger.Debug("render",
		"seq", stats.Seq,
		"width", stats.Width,
		"rows", stats.Rows,
		"physical", stats.PhysicalRows,
		"repainted", stats.RowsRepainted,
		"cascade", stats.CascadeRow,
		"shrunk", stats.Shrunk,
		"cursorOnly", stats.CursorOnly,
		"bytes", stats.BytesWritten)

	if r.debugWriter != nil {
		writeStats(r.debugWriter, stats)
	}
}

func (r *Renderer) write(s string) {
	if s == "" {
		return
	}
	if _, err := io.WriteString(r.out, s); err != nil {
		r.logger.Warn("terminal write failed", "err", err)
	}
}
