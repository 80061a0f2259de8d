package render

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"

	"github.com/vito/promptline/pkg/frame"
	"github.com/vito/promptline/pkg/render/rendertest"
)

// mockTerminal feeds writes to a virtual screen and records them.
type mockTerminal struct {
	*rendertest.Screen
	cols    int
	written strings.Builder
}

func newMockTerminal(cols int) *mockTerminal {
	return &mockTerminal{Screen: rendertest.NewScreen(cols), cols: cols}
}

func (m *mockTerminal) Write(p []byte) (int, error) {
	m.written.Write(p)
	return m.Screen.Write(p)
}

func (m *mockTerminal) Columns() int { return m.cols }

func (m *mockTerminal) resize(cols int) {
	m.cols = cols
	m.Screen.Width = cols
}

func (m *mockTerminal) reset() { m.written.Reset() }

// columns is a fixed cursor offset.
type columns int

func (c *columns) Columns() int { return int(*c) }

func newTestRenderer(cols int, opts ...Option) (*Renderer, *mockTerminal) {
	term := newMockTerminal(cols)
	return New(term, term.Columns, opts...), term
}

func TestFirstRender(t *testing.T) {
	r, term := newTestRenderer(40)
	r.Render("? name › \x1b7\nhint")

	assert.Equal(t, []string{"? name ›", "hint"}, term.Lines())
	row, col := term.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 9, col)
	assert.Empty(t, term.Violations)

	stats := r.Stats()
	assert.Equal(t, 1, stats.Seq)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 2, stats.RowsRepainted)
	assert.Equal(t, -1, stats.CascadeRow)
	assert.Equal(t, len(term.written.String()), stats.BytesWritten)
}

func TestRenderKeepsStyles(t *testing.T) {
	r, term := newTestRenderer(40)
	r.Render("\x1b[1mbold\x1b[0m\x1b[?25l")

	out := term.written.String()
	assert.Contains(t, out, "\x1b[1mbold\x1b[0m")
	assert.NotContains(t, out, "\x1b[?25l")
	assert.NotContains(t, out, "\x1b7")
}

func TestIdempotentRedraw(t *testing.T) {
	r, term := newTestRenderer(40)
	raw := "? name › \x1b7bob\n\x1b[2mhint\x1b[0m"
	r.Render(raw)
	term.reset()

	r.Render(raw)
	assert.Empty(t, term.written.String())
	stats := r.Stats()
	assert.Equal(t, 0, stats.RowsRepainted)
	assert.Equal(t, 2, stats.RowsSkipped)
	assert.Equal(t, 0, stats.BytesWritten)
}

func TestOnlyChangedRowsRepaint(t *testing.T) {
	r, term := newTestRenderer(40)
	r.Render("one\ntwo\nthree")
	term.reset()

	r.Render("one\nTWO\nthree")
	out := term.written.String()
	assert.NotContains(t, out, "one")
	assert.NotContains(t, out, "three")
	assert.Contains(t, out, "TWO")
	assert.Equal(t, 1, r.Stats().RowsRepainted)
	assert.Equal(t, []string{"one", "TWO", "three"}, term.Lines())
	assert.Empty(t, term.Violations)
}

func TestCascadeRepaint(t *testing.T) {
	r, term := newTestRenderer(10)
	r.Render("> abc\nhint\nfooter")
	term.reset()

	r.Render("> " + strings.Repeat("a", 12) + "\nhint\nfooter")
	stats := r.Stats()
	assert.Equal(t, 0, stats.CascadeRow)
	assert.Equal(t, 3, stats.RowsRepainted)
	out := term.written.String()
	assert.Contains(t, out, "hint")
	assert.Contains(t, out, "footer")
	assert.Equal(t, []string{"> aaaaaaaa", "aaaa", "hint", "footer"}, term.Lines())
	assert.Empty(t, term.Violations)
}

func TestCascadeStartsAtChangedRow(t *testing.T) {
	r, term := newTestRenderer(10)
	r.Render("header\n> abc\nhint")
	term.reset()

	r.Render("header\n> " + strings.Repeat("b", 12) + "\nhint")
	stats := r.Stats()
	assert.Equal(t, 1, stats.CascadeRow)
	assert.Equal(t, 2, stats.RowsRepainted)
	assert.Equal(t, 1, stats.RowsSkipped)
	assert.NotContains(t, term.written.String(), "header")
}

func TestShrinkCleanup(t *testing.T) {
	r, term := newTestRenderer(40)
	r.Render("a\nb\nc\nd\ne")
	assert.Equal(t, 5, r.Frame().TotalRows)
	term.reset()

	r.Render("x\ny")
	out := term.written.String()
	assert.Contains(t, out, ansi.EraseScreenBelow)
	assert.Greater(t, strings.Index(out, ansi.EraseScreenBelow), strings.Index(out, "y"))
	assert.True(t, r.Stats().Shrunk)
	assert.Equal(t, []string{"x", "y"}, term.Lines())
	assert.Empty(t, term.Violations)

	golden.Assert(t, term.String(), "shrink.golden")
}

func TestShrinkWithoutRepaint(t *testing.T) {
	r, term := newTestRenderer(40)
	r.Render("keep\nstale\nstale")
	term.reset()

	r.Render("keep")
	assert.Equal(t, 0, r.Stats().RowsRepainted)
	assert.Contains(t, term.written.String(), ansi.EraseScreenBelow)
	assert.Equal(t, []string{"keep"}, term.Lines())
}

func TestGrowAfterShrink(t *testing.T) {
	r, term := newTestRenderer(20)
	r.Render("a\nb\nc")
	r.Render("a")
	r.Render("a\nb\nc\nd")
	assert.Equal(t, []string{"a", "b", "c", "d"}, term.Lines())
	assert.Empty(t, term.Violations)
}

func TestZeroRowFrame(t *testing.T) {
	r, term := newTestRenderer(20)
	r.Render("")
	assert.Empty(t, term.Lines())
	assert.Equal(t, 0, r.Stats().RowsRepainted)

	r.Render("a\nb")
	r.Render("")
	assert.Empty(t, term.Lines())
	row, col := term.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)
	assert.Empty(t, term.Violations)
}

func TestExactFillSkipsErase(t *testing.T) {
	r, term := newTestRenderer(10)
	r.Render(strings.Repeat("x", 10) + "\nnext")

	out := term.written.String()
	assert.NotContains(t, out, strings.Repeat("x", 10)+ansi.EraseLineRight)
	assert.Equal(t, []string{strings.Repeat("x", 10), "next"}, term.Lines())
	assert.Empty(t, term.Violations)
}

func TestReservedRow(t *testing.T) {
	cursor := columns(8)
	r, term := newTestRenderer(10, WithCursor(&cursor))
	r.Render("> \x1b7" + strings.Repeat("x", 8) + "\nhint")

	assert.Equal(t, 3, r.Frame().TotalRows)
	assert.Equal(t, []string{"> xxxxxxxx", "", "hint"}, term.Lines())
	row, col := term.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 0, col)
	assert.Empty(t, term.Violations)
}

func TestUnknownWidth(t *testing.T) {
	cursor := columns(0)
	r, term := newTestRenderer(0, WithCursor(&cursor))
	long := strings.Repeat("z", 300)
	r.Render("> \x1b7" + long + "\nhint")

	f := r.Frame()
	assert.Equal(t, 1, f.Rows[0].PhysicalRows)
	assert.Equal(t, 2, f.TotalRows)

	cursor = 300
	r.Reconcile()
	row, col := term.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 302, col)
	assert.Equal(t, []string{"> " + long, "hint"}, term.Lines())
}

func TestNilWidthFunc(t *testing.T) {
	term := newMockTerminal(0)
	r := New(term, nil)
	assert.Equal(t, 0, r.Width())
	r.Render("hello")
	assert.Equal(t, []string{"hello"}, term.Lines())
}

func TestReconcileCursorOnly(t *testing.T) {
	cursor := columns(3)
	r, term := newTestRenderer(40, WithCursor(&cursor))
	r.Render("? name › \x1b7bob")
	term.reset()

	cursor = 1
	r.Reconcile()
	out := term.written.String()
	assert.Equal(t, ansi.CursorHorizontalAbsolute(11), out)
	stats := r.Stats()
	assert.True(t, stats.CursorOnly)
	assert.Equal(t, 0, stats.RowsRepainted)
	assert.Equal(t, 10, stats.CursorCol)

	term.reset()
	r.Reconcile()
	assert.Empty(t, term.written.String())
}

func TestReconcileBeforeRender(t *testing.T) {
	r, term := newTestRenderer(40)
	r.Reconcile()
	assert.Empty(t, term.written.String())
}

// Typing into an empty field at width 10: once the field row wraps, the
// rows below it cascade and the cursor drops one row.
func TestTypingPastWidth(t *testing.T) {
	cursor := columns(0)
	r, term := newTestRenderer(10, WithCursor(&cursor))

	view := func(v string) string { return "> \x1b7" + v + "\nhint" }
	r.Render(view(""))
	f := r.Frame()
	require.Len(t, f.Rows, 2)
	assert.Equal(t, 1, f.Rows[0].PhysicalRows)
	assert.Equal(t, 2, f.AnchorColumn)

	value := ""
	cascaded := false
	for i := range 12 {
		value += string(rune('a' + i))
		cursor = columns(len(value))
		before := r.Stats().CursorRow
		r.Render(view(value))

		stats := r.Stats()
		if stats.CascadeRow >= 0 && !cascaded {
			cascaded = true
			assert.Equal(t, 0, stats.CascadeRow)
			assert.Equal(t, 2, stats.RowsRepainted, "hint repaints too")
			assert.Equal(t, before+1, stats.CursorRow)
		}
	}
	assert.True(t, cascaded)
	assert.Equal(t, 2, r.Frame().Rows[0].PhysicalRows)
	assert.Equal(t, []string{"> abcdefgh", "ijkl", "hint"}, term.Lines())
	row, col := term.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 4, col)
	assert.Empty(t, term.Violations)
}

func TestWrappedPromptGolden(t *testing.T) {
	cursor := columns(0)
	r, term := newTestRenderer(10, WithCursor(&cursor))
	value := ""
	for _, ch := range "abcdefghijkl" {
		value += string(ch)
		cursor = columns(len(value))
		r.Render("\x1b[36m?\x1b[0m name › \x1b7" + value + "\nhint: lowercase")
	}
	assert.Empty(t, term.Violations)
	golden.Assert(t, term.String(), "wrapped_prompt.golden")
}

func TestDeleteBackAcrossWrap(t *testing.T) {
	cursor := columns(12)
	r, term := newTestRenderer(10, WithCursor(&cursor))
	r.Render("> \x1b7" + strings.Repeat("q", 12) + "\nhint")
	for n := 11; n >= 0; n-- {
		cursor = columns(n)
		r.Render("> \x1b7" + strings.Repeat("q", n) + "\nhint")
	}
	assert.Equal(t, []string{">", "hint"}, term.Lines())
	row, col := term.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 2, col)
	assert.Empty(t, term.Violations)
}

func TestWidthChangeRedraws(t *testing.T) {
	r, term := newTestRenderer(20)
	r.Render("first line\nsecond")

	term.resize(5)
	term.reset()
	r.Render("first line\nsecond")
	stats := r.Stats()
	assert.True(t, stats.Reflowed)
	assert.Equal(t, 2, stats.RowsRepainted)
	assert.Equal(t, []string{"first", " line", "secon", "d"}, term.Lines())
	assert.Empty(t, term.Violations)
}

func TestCloseParksCursorAndIgnoresRenders(t *testing.T) {
	r, term := newTestRenderer(40)
	r.Render("? name › \x1b7bob\nhint")
	r.Render("✔ name › bob")
	r.Close()
	assert.True(t, r.Closed())

	row, col := term.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 0, col)

	term.reset()
	r.Render("garbage")
	r.Reconcile()
	r.Bell()
	r.Close()
	assert.Empty(t, term.written.String())
	assert.Equal(t, []string{"✔ name › bob"}, term.Lines())
}

func TestBell(t *testing.T) {
	r, term := newTestRenderer(40)
	r.Bell()
	assert.Equal(t, "\a", term.written.String())
	assert.Equal(t, 1, term.Bells)
}

func TestDraw(t *testing.T) {
	r, term := newTestRenderer(40)
	f := frame.NewBuilder(frame.TrackExplicit).Build("a\x1b7b", 40)
	r.Draw(f)
	assert.Equal(t, []string{"ab"}, term.Lines())
	row, col := term.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 1, col)
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriteFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	r := New(failWriter{}, func() int { return 40 }, WithLogger(logger))

	r.Render("hello")
	assert.Contains(t, logs.String(), "terminal write failed")
	assert.Contains(t, logs.String(), "broken pipe")
	assert.Equal(t, 1, r.Stats().Seq)
}

func TestDebugWriter(t *testing.T) {
	r, _ := newTestRenderer(10)
	var buf bytes.Buffer
	r.SetDebugWriter(&buf)

	r.Render("a\nb\nc")
	r.Render("a\n" + strings.Repeat("b", 15))
	r.SetDebugWriter(nil)
	r.Render("a")

	var recs []statsJSON
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec statsJSON
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		recs = append(recs, rec)
	}
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Seq)
	assert.Equal(t, 3, recs[0].RowsRepainted)
	assert.Equal(t, 2, recs[1].Seq)
	assert.Equal(t, 1, recs[1].CascadeRow)
	assert.Equal(t, 3, recs[1].PhysicalRows)
	assert.False(t, recs[1].Shrunk)
}

func TestResetAnchor(t *testing.T) {
	cursor := columns(1)
	r, term := newTestRenderer(40, WithCursor(&cursor))

	r.Render("one\n> \x1b7a")
	assert.Equal(t, 1, r.Frame().AnchorRow)

	// The pinned row stays put while lines are inserted above the field.
	r.Render("one\ntwo\n> \x1b7a")
	assert.Equal(t, 1, r.Frame().AnchorRow)

	r.ResetAnchor()
	r.Render("one\ntwo\nthree\n> \x1b7a")
	assert.Equal(t, 3, r.Frame().AnchorRow)
	row, col := term.Cursor()
	assert.Equal(t, 3, row)
	assert.Equal(t, 3, col)

	r.ResetAnchor()
	r.Render("> \x1b7a")
	assert.Equal(t, 0, r.Frame().AnchorRow)
	row, col = term.Cursor()
	assert.Equal(t, 0, row)
	assert.Equal(t, 3, col)
	assert.Equal(t, []string{"> a"}, term.Lines())
	assert.Empty(t, term.Violations)
}

func TestMultibyteWrap(t *testing.T) {
	cursor := columns(2)
	r, term := newTestRenderer(5, WithCursor(&cursor))
	r.Render("? q › \x1b7naïve")

	assert.Equal(t, []string{"? q ›", " naïv", "e"}, term.Lines())
	assert.Equal(t, expectedLines(r.Frame(), 5), term.Lines())
	row, col := term.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 3, col)
	assert.Empty(t, term.Violations)
}

// Random sequences of frames always converge to the last frame.
func TestConvergence(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	words := []string{"alpha", "beta", "gamma", "delta", "\x1b[1mbold\x1b[0m", "x", "naïve", "café"}

	for _, width := range []int{5, 8, 13, 40} {
		t.Run(fmt.Sprintf("width %d", width), func(t *testing.T) {
			cursor := columns(0)
			r, term := newTestRenderer(width, WithCursor(&cursor))
			var raw string
			for range 200 {
				raw, cursor = randomView(rng, words)
				r.Render(raw)
				require.Empty(t, term.Violations, "after %q", raw)
			}
			assert.Equal(t, expectedLines(r.Frame(), width), term.Lines(), "last frame %q", raw)
		})
	}
}

func randomView(rng *rand.Rand, words []string) (string, columns) {
	var field string
	for range rng.IntN(6) {
		field += words[rng.IntN(len(words))]
	}
	lines := []string{"? q › \x1b7" + field}
	for range rng.IntN(4) {
		var l string
		for range rng.IntN(4) {
			l += words[rng.IntN(len(words))] + " "
		}
		lines = append(lines, l)
	}
	visible := ansi.Strip(field)
	return strings.Join(lines, "\n"), columns(rng.IntN(ansi.StringWidth(visible) + 1))
}

func expectedLines(f frame.Frame, width int) []string {
	var out []string
	for _, row := range f.Rows {
		v := row.Visible
		if v == "" {
			out = append(out, "")
		}
		for v != "" {
			line := ansi.Truncate(v, width, "")
			out = append(out, strings.TrimRight(line, " "))
			v = v[len(line):]
		}
		if row.Reserved {
			out = append(out, "")
		}
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
