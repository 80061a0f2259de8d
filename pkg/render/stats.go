package render

import (
	"encoding/json"
	"io"
	"time"
)

// Stats captures metrics for a single render or cursor reconciliation.
type Stats struct {
	// Seq counts renders made by this renderer, starting at 1.
	Seq int

	// Width is the terminal width sampled for this render. Zero means the
	// width is unknown and nothing wrapped.
	Width int

	// Rows is the number of logical rows in the frame.
	Rows int

	// PhysicalRows is the number of screen rows the frame occupies.
	PhysicalRows int

	// RowsRepainted is the number of rows written to the terminal.
	RowsRepainted int

	// RowsSkipped is the number of rows that matched the previous frame and
	// were not rewritten.
	RowsSkipped int

	// CascadeRow is the first row whose physical row count changed, forcing
	// every row after it to repaint, or -1.
	CascadeRow int

	// Shrunk is true when the frame was shorter than the previous one and
	// the stale rows below it were erased.
	Shrunk bool

	// Reflowed is true when the terminal width changed since the previous
	// render and the whole frame was redrawn.
	Reflowed bool

	// CursorOnly is true for a reconciliation that moved the cursor without
	// rendering a frame.
	CursorOnly bool

	// CursorRow and CursorCol are where the cursor was left, relative to
	// the first row of the frame.
	CursorRow int
	CursorCol int

	// BytesWritten is the number of bytes sent to the terminal.
	BytesWritten int

	// BuildTime is how long parsing the raw output into a frame took.
	BuildTime time.Duration

	// DiffTime is how long computing the escape output took.
	DiffTime time.Duration

	// WriteTime is how long writing to the terminal took.
	WriteTime time.Duration
}

// statsJSON is the JSONL record written by the debug writer.
type statsJSON struct {
	Ts            int64 `json:"ts"`
	Seq           int   `json:"seq"`
	Width         int   `json:"width"`
	Rows          int   `json:"rows"`
	PhysicalRows  int   `json:"physical_rows"`
	RowsRepainted int   `json:"rows_repainted"`
	RowsSkipped   int   `json:"rows_skipped"`
	CascadeRow    int   `json:"cascade_row"`
	Shrunk        bool  `json:"shrunk"`
	Reflowed      bool  `json:"reflowed"`
	CursorOnly    bool  `json:"cursor_only"`
	CursorRow     int   `json:"cursor_row"`
	CursorCol     int   `json:"cursor_col"`
	BytesWritten  int   `json:"bytes_written"`
	BuildUs       int64 `json:"build_us"`
	DiffUs        int64 `json:"diff_us"`
	WriteUs       int64 `json:"write_us"`
}

func (s Stats) record(now time.Time) statsJSON {
	return statsJSON{
		Ts:            now.UnixMilli(),
		Seq:           s.Seq,
		Width:         s.Width,
		Rows:          s.Rows,
		PhysicalRows:  s.PhysicalRows,
		RowsRepainted: s.RowsRepainted,
		RowsSkipped:   s.RowsSkipped,
		CascadeRow:    s.CascadeRow,
		Shrunk:        s.Shrunk,
		Reflowed:      s.Reflowed,
		CursorOnly:    s.CursorOnly,
		CursorRow:     s.CursorRow,
		CursorCol:     s.CursorCol,
		BytesWritten:  s.BytesWritten,
		BuildUs:       s.BuildTime.Microseconds(),
		DiffUs:        s.DiffTime.Microseconds(),
		WriteUs:       s.WriteTime.Microseconds(),
	}
}

func writeStats(w io.Writer, s Stats) {
	data, _ := json.Marshal(s.record(time.Now()))
	data = append(data, '\n')
	w.Write(data) //nolint:errcheck
}
