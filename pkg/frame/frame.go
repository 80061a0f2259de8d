// Package frame turns a block of styled terminal output into rows measured
// in physical screen rows, and records where the cursor anchor sits.
//
// A Frame is an immutable snapshot of one render. Renderers compare two
// frames to decide which rows need repainting.
package frame

// Row is one newline-delimited line of a frame.
type Row struct {
	// Visible is the row with every escape sequence stripped.
	Visible string
	// Styled is the row with SGR sequences kept and all other sequences
	// stripped. This is what gets written to the terminal.
	Styled string
	// Width is the display width of Visible in terminal columns.
	Width int
	// PhysicalRows is the number of screen rows the row occupies once
	// wrapped, including a reserved row when Reserved is set. Always >= 1.
	PhysicalRows int
	// Reserved is set when the row exactly fills its last physical row and
	// an extra, empty row is kept below it for the cursor to land on.
	Reserved bool
	// Anchor is set on the row that holds the cursor anchor.
	Anchor bool
	// AnchorColumn is the visible width of the row up to the anchor.
	AnchorColumn int
}

// Fills reports whether the row's text ends exactly on the terminal's right
// edge, leaving the cursor in the pending-wrap state.
func (r Row) Fills(width int) bool {
	return width > 0 && r.Width > 0 && LastRowColumn(r.Width, width) == width
}

// Frame is one complete render.
type Frame struct {
	Rows []Row
	// TotalRows is the sum of every row's PhysicalRows.
	TotalRows int
	// Width is the terminal width the frame was measured against. Zero
	// means unknown; nothing wraps.
	Width int
	// AnchorRow is the index of the anchor row, or -1 when the frame has no
	// anchor.
	AnchorRow int
	// AnchorColumn is the anchor's column within AnchorRow.
	AnchorColumn int
}

// Empty returns a frame with no rows.
func Empty(width int) Frame {
	return Frame{Width: width, AnchorRow: -1}
}

// RowTop returns the physical row, relative to the frame's first row, at
// which row i starts. Indexes past the end return TotalRows.
func (f Frame) RowTop(i int) int {
	top := 0
	for j := 0; j < i && j < len(f.Rows); j++ {
		top += f.Rows[j].PhysicalRows
	}
	return top
}

// Anchor returns the anchor row and column. Frames without an anchor report
// the start of the first row.
func (f Frame) Anchor() (row, col int) {
	if f.AnchorRow < 0 {
		return 0, 0
	}
	return f.AnchorRow, f.AnchorColumn
}

// Target returns the physical position, relative to the frame's first row,
// of the cell offset columns past the anchor. A frame without an anchor
// targets the start of the row just below it.
func (f Frame) Target(offset int) (y, x int) {
	if f.AnchorRow < 0 {
		return f.TotalRows, 0
	}
	row, col := f.Anchor()
	top := f.RowTop(row)
	n := col + max(0, offset)
	if f.Width <= 0 {
		return top, n
	}
	y = top + WrapRows(n, f.Width) - 1
	x = LastRowColumn(n, f.Width)
	if x == f.Width {
		// Past the right edge: the cursor belongs at the start of the next
		// row.
		y++
		x = 0
	}
	return y, x
}
