package frame

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/vito/promptline/pkg/ansiseq"
)

// Mode selects how the builder treats anchor markers across frames.
type Mode int

const (
	// TrackExplicit reads the anchor marker fresh from every frame. The
	// marker is the cursor position itself; nothing is added to it.
	TrackExplicit Mode = iota
	// TrackAuto pins the first anchor marker ever seen and ignores markers in
	// later frames. A tracker supplies the column offset from the pinned
	// position.
	TrackAuto
)

func (m Mode) String() string {
	if m == TrackAuto {
		return "auto"
	}
	return "explicit"
}

// Builder parses raw render output into Frames.
//
// A Builder is not safe for concurrent use; it belongs to one renderer.
type Builder struct {
	mode Mode

	pinned    bool
	pinnedRow int
	pinnedCol int
}

// NewBuilder returns a Builder using the given anchor mode.
func NewBuilder(mode Mode) *Builder {
	return &Builder{mode: mode}
}

// Mode returns the builder's anchor mode.
func (b *Builder) Mode() Mode {
	return b.mode
}

// Reset forgets a pinned anchor, so the next frame establishes a new one.
func (b *Builder) Reset() {
	b.pinned = false
	b.pinnedRow = 0
	b.pinnedCol = 0
}

// Build splits raw into rows measured against width. An empty string yields
// a frame with no rows.
func (b *Builder) Build(raw string, width int) Frame {
	f := Empty(width)
	if raw == "" {
		return f
	}

	lines := strings.Split(raw, "\n")
	f.Rows = make([]Row, 0, len(lines))

	markerRow, markerCol := -1, 0
	for i, line := range lines {
		row, col, found := parseRow(strings.TrimSuffix(line, "\r"))
		if found && markerRow < 0 {
			markerRow, markerCol = i, col
		}
		row.PhysicalRows = WrapRows(row.Width, width)
		f.Rows = append(f.Rows, row)
	}

	switch b.mode {
	case TrackExplicit:
		f.AnchorRow, f.AnchorColumn = markerRow, markerCol
	case TrackAuto:
		if !b.pinned && markerRow >= 0 {
			b.pinned = true
			b.pinnedRow, b.pinnedCol = markerRow, markerCol
		}
		if b.pinned && b.pinnedRow < len(f.Rows) {
			f.AnchorRow, f.AnchorColumn = b.pinnedRow, b.pinnedCol
		}
	}

	if f.AnchorRow >= 0 {
		anchor := &f.Rows[f.AnchorRow]
		anchor.Anchor = true
		anchor.AnchorColumn = f.AnchorColumn
		if b.mode == TrackAuto && anchor.Fills(width) {
			// The terminal parks the cursor in its pending-wrap state at
			// the edge; keep an empty row below for it to land on.
			anchor.Reserved = true
			anchor.PhysicalRows++
		}
	}

	for _, row := range f.Rows {
		f.TotalRows += row.PhysicalRows
	}
	return f
}

// parseRow classifies one logical line, returning the row and the column of
// the first anchor marker in it, if any.
func parseRow(line string) (Row, int, bool) {
	var visible, styled strings.Builder
	col, found := 0, false
	for tok := range ansiseq.Tokens(line) {
		switch tok.Kind {
		case ansiseq.Literal:
			visible.WriteString(tok.Text)
			styled.WriteString(tok.Text)
		case ansiseq.Style:
			styled.WriteString(tok.Text)
		case ansiseq.Anchor:
			if !found {
				found = true
				col = ansi.StringWidth(visible.String())
			}
		}
	}
	row := Row{
		Visible: visible.String(),
		Styled:  styled.String(),
	}
	row.Width = ansi.StringWidth(row.Visible)
	return row, col, found
}
