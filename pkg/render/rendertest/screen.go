// Package rendertest provides a virtual terminal for testing renderers.
//
// A Screen understands only the sequences a line renderer is allowed to
// emit: printable text, CR, LF, BEL, SGR, cursor up/down, move to column,
// erase line right and erase screen below. Anything else is recorded as a
// violation, as is moving above the first row or below the last row a line
// feed ever created.
package rendertest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/vito/promptline/pkg/ansiseq"
)

// wide fills the cells covered by the right half of a wide character.
const wide = "\x00"

// Screen is an unbounded-height virtual terminal. Row 0 is the row the
// cursor started on.
//
// Each Write must contain whole escape sequences.
type Screen struct {
	// Width is the number of columns. Zero disables wrapping.
	Width int

	lines  [][]string
	row    int
	col    int
	maxRow int

	// Bells counts BEL characters.
	Bells int
	// Violations lists output a line renderer must not produce.
	Violations []string
}

// NewScreen returns an empty screen width columns wide.
func NewScreen(width int) *Screen {
	return &Screen{Width: width}
}

// Write interprets p.
func (s *Screen) Write(p []byte) (int, error) {
	for tok := range ansiseq.Tokens(string(p)) {
		switch tok.Kind {
		case ansiseq.Literal:
			s.text(tok.Text)
		case ansiseq.Style:
		default:
			s.sequence(tok.Text)
		}
	}
	return len(p), nil
}

// Cursor returns the cursor position. A column equal to Width means the
// cursor is parked past the right edge, waiting to wrap.
func (s *Screen) Cursor() (row, col int) {
	return s.row, s.col
}

// Lines returns every row, with trailing blanks trimmed, up to the last
// non-empty row.
func (s *Screen) Lines() []string {
	var out []string
	for _, cells := range s.lines {
		var b strings.Builder
		for _, c := range cells {
			switch c {
			case "":
				b.WriteByte(' ')
			case wide:
			default:
				b.WriteString(c)
			}
		}
		out = append(out, strings.TrimRight(b.String(), " "))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

// String renders the screen for golden files: one line per row, followed by
// the cursor position.
func (s *Screen) String() string {
	var b strings.Builder
	for _, l := range s.Lines() {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "-- cursor %d,%d\n", s.row, s.col)
	return b.String()
}

func (s *Screen) text(t string) {
	for _, r := range t {
		switch r {
		case '\r':
			s.col = 0
		case '\n':
			s.lineFeed()
		case '\a':
			s.Bells++
		default:
			s.put(string(r))
		}
	}
}

func (s *Screen) put(ch string) {
	w := ansi.StringWidth(ch)
	if w == 0 {
		return
	}
	if s.Width > 0 && s.col+w > s.Width {
		s.lineFeed()
		s.col = 0
	}
	line := s.line(s.row)
	for len(*line) < s.col+w {
		*line = append(*line, "")
	}
	(*line)[s.col] = ch
	for i := 1; i < w; i++ {
		(*line)[s.col+i] = wide
	}
	s.col += w
}

func (s *Screen) lineFeed() {
	s.row++
	s.maxRow = max(s.maxRow, s.row)
	s.unpark()
}

// unpark leaves the pending-wrap state, which real terminals display as the
// last column.
func (s *Screen) unpark() {
	if s.Width > 0 && s.col >= s.Width {
		s.col = s.Width - 1
	}
}

func (s *Screen) line(row int) *[]string {
	for len(s.lines) <= row {
		s.lines = append(s.lines, nil)
	}
	return &s.lines[row]
}

func (s *Screen) sequence(seq string) {
	body, final := csi(seq)
	if final == 0 {
		s.violate("unexpected sequence %q", seq)
		return
	}
	n := 1
	if body != "" {
		v, err := strconv.Atoi(body)
		if err != nil {
			s.violate("bad parameter in %q", seq)
			return
		}
		n = v
	}
	switch final {
	case 'A':
		s.unpark()
		s.row -= max(n, 1)
		if s.row < 0 {
			s.violate("moved %d rows above the first row", -s.row)
			s.row = 0
		}
	case 'B':
		s.unpark()
		s.row += max(n, 1)
		if s.row > s.maxRow {
			s.violate("moved %d rows below the last row", s.row-s.maxRow)
			s.row = s.maxRow
		}
	case 'G':
		s.col = max(n, 1) - 1
		if s.Width > 0 {
			s.col = min(s.col, s.Width-1)
		}
	case 'K':
		if body != "" && body != "0" {
			s.violate("unexpected erase line %q", seq)
			return
		}
		s.unpark()
		line := s.line(s.row)
		if len(*line) > s.col {
			*line = (*line)[:s.col]
		}
	case 'J':
		if body != "" && body != "0" {
			s.violate("unexpected erase screen %q", seq)
			return
		}
		s.unpark()
		line := s.line(s.row)
		if len(*line) > s.col {
			*line = (*line)[:s.col]
		}
		s.lines = s.lines[:s.row+1]
	default:
		s.violate("unexpected sequence %q", seq)
	}
}

func (s *Screen) violate(format string, args ...any) {
	s.Violations = append(s.Violations, fmt.Sprintf(format, args...))
}

// csi splits an ESC [ sequence into its parameters and final byte. The
// final byte is zero for anything else.
func csi(seq string) (string, byte) {
	if !strings.HasPrefix(seq, "\x1b[") || len(seq) < 3 {
		return "", 0
	}
	return seq[2 : len(seq)-1], seq[len(seq)-1]
}
