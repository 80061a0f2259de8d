package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/vito/promptline/pkg/ansiseq"
	"github.com/vito/promptline/pkg/input"
	"github.com/vito/promptline/pkg/ioctx"
	"github.com/vito/promptline/pkg/render"
	"github.com/vito/promptline/pkg/term"
)

func renderStressCmd(a *app) *cobra.Command {
	var (
		lines int
		seed  uint64
	)

	cmd := &cobra.Command{
		Use:   "render-stress",
		Short: "Interactive stress test for the renderer",
		Long: `Draws a block of log lines above an input field and lets you reshape it
while typing, to exercise every rendering path. Render stats are written
to the render log (` + defaultRenderLog + ` unless --render-log is set);
watch them with promptline render-debug.

Type a command and press Enter:
  +N        Append N lines (default 10).
  -N        Delete the last N lines (shrink path).
  wide      Toggle long lines that wrap (cascade path).
  color     Toggle styled lines.
  spin      Toggle a spinner on the first line (continuous repaints).
  repaint N Rewrite line N every 50ms; "repaint 0" stops.
  clear     Delete every line.
  quit      Exit (so does Ctrl+C).
Anything else is appended as a line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRenderStress(cmd.Context(), a, lines, seed)
		},
	}

	cmd.Flags().IntVar(&lines, "lines", 20, "Initial number of lines")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Random seed for generated lines")
	return cmd
}

var (
	stressLevelStyles = map[string]lipgloss.Style{
		"INFO":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"DEBUG": lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		"WARN":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"ERROR": lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
	stressMuted  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	stressLevels = []string{"INFO", "DEBUG", "WARN", "ERROR"}
	stressWords  = []string{
		"frame built", "row repainted", "cursor reconciled", "width sampled",
		"cascade started", "stale rows erased", "anchor pinned", "key decoded",
		"value changed", "validation pending", "history recalled", "bell",
	}
)

type stressEntry struct {
	level   string
	message string
}

type stress struct {
	rng     *rand.Rand
	entries []stressEntry
	wide    bool
	color   bool
	spin    bool
	ticks   int
	repaint int
	note    string

	field *input.Tracker
	r     *render.Renderer
	// fieldRow is the row the renderer has pinned the field's anchor to.
	fieldRow int
}

func newStress(out io.Writer, width func() int, seed uint64) *stress {
	s := &stress{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		field:    input.NewTracker(""),
		fieldRow: -1,
	}
	s.r = render.New(out, width, render.WithLogger(slog.Default()), render.WithCursor(s.field))
	s.field.OnChange(func(e input.Effect) {
		if !e.Changed {
			s.r.Reconcile()
		}
	})
	return s
}

func runRenderStress(ctx context.Context, a *app, lines int, seed uint64) error {
	debugOut := a.renderLog
	if debugOut == nil {
		f, err := os.OpenFile(defaultRenderLog, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("open render log: %w", err)
		}
		defer f.Close()
		debugOut = f
	}

	t := term.NewProcessTerminal()
	s := newStress(t, t.Columns, seed)
	s.r.SetDebugWriter(debugOut)
	s.append(lines)

	inputs := make(chan []byte, 64)
	resizes := make(chan struct{}, 1)
	quit := make(chan struct{})
	err := t.Start(func(data []byte) {
		buf := append([]byte(nil), data...)
		select {
		case inputs <- buf:
		case <-quit:
		}
	}, func() {
		select {
		case resizes <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	defer func() {
		close(quit)
		t.Stop()
	}()

	fmt.Fprintf(ioctx.Stderr(ctx), "Render stats → %s\r\n", debugOut.Name())

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	dec := input.NewDecoder()
	s.render()
	for {
		select {
		case <-ctx.Done():
			s.r.Close()
			return ctx.Err()
		case data := <-inputs:
			for _, ev := range dec.Decode(data) {
				if !s.handle(ev) {
					s.r.Close()
					return nil
				}
			}
		case <-resizes:
			s.render()
		case <-ticker.C:
			if s.spin || s.repaint > 0 {
				s.ticks++
				s.render()
			}
		}
	}
}

// handle reports false when the session should end.
func (s *stress) handle(ev input.Event) bool {
	switch ev.Kind {
	case input.Abort:
		return false
	case input.Submit:
		cmd := strings.TrimSpace(s.field.Value())
		s.field.Apply(input.Replace(""))
		if cmd == "quit" {
			return false
		}
		s.command(cmd)
		s.render()
	case input.Edit:
		eff := s.field.Apply(ev.Action)
		if eff.Rejected {
			s.r.Bell()
		}
		if eff.Changed {
			s.render()
		}
	default:
		s.r.Bell()
	}
	return true
}

func (s *stress) command(cmd string) {
	s.note = ""
	switch {
	case cmd == "":
	case cmd == "wide":
		s.wide = !s.wide
	case cmd == "color":
		s.color = !s.color
	case cmd == "spin":
		s.spin = !s.spin
	case cmd == "clear":
		s.entries = nil
	case strings.HasPrefix(cmd, "repaint"):
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(cmd, "repaint")))
		if err != nil || n < 0 {
			s.note = "usage: repaint N"
			return
		}
		s.repaint = n
	case cmd[0] == '+' || cmd[0] == '-':
		n := 10
		if len(cmd) > 1 {
			v, err := strconv.Atoi(cmd[1:])
			if err != nil || v < 0 {
				s.note = "usage: +N or -N"
				return
			}
			n = v
		}
		if cmd[0] == '+' {
			s.append(n)
		} else {
			s.entries = s.entries[:max(0, len(s.entries)-n)]
		}
	default:
		s.entries = append(s.entries, stressEntry{level: "INFO", message: cmd})
	}
}

func (s *stress) append(n int) {
	for range n {
		s.entries = append(s.entries, stressEntry{
			level:   stressLevels[s.rng.IntN(len(stressLevels))],
			message: fmt.Sprintf("%s id=%d", stressWords[s.rng.IntN(len(stressWords))], s.rng.IntN(10000)),
		})
	}
}

func (s *stress) render() {
	// The field moves whenever lines come or go above it.
	if row := s.lineCount(); row != s.fieldRow {
		s.r.ResetAnchor()
		s.fieldRow = row
	}
	s.r.Render(s.view())
}

// lineCount is the number of lines drawn above the field.
func (s *stress) lineCount() int {
	n := 1 + len(s.entries)
	if s.note != "" {
		n++
	}
	return n
}

func (s *stress) view() string {
	var b strings.Builder

	st := s.r.Stats()
	status := fmt.Sprintf("render %d · width %d · rows %d/%d · repainted %d · %dB",
		st.Seq, st.Width, st.Rows, st.PhysicalRows, st.RowsRepainted, st.BytesWritten)
	if s.spin {
		status = spinnerFrame(s.ticks) + " " + status
	}
	b.WriteString(stressMuted.Render(status))
	b.WriteByte('\n')

	for i, e := range s.entries {
		msg := e.message
		if s.repaint > 0 && i+1 == s.repaint {
			msg = fmt.Sprintf("%s tick=%d", msg, s.ticks)
		}
		if s.wide {
			msg = msg + " " + strings.Repeat("·", 40+(i*7)%60)
		}
		level := fmt.Sprintf("%-5s", e.level)
		if s.color {
			level = stressLevelStyles[e.level].Render(level)
		}
		fmt.Fprintf(&b, "%s %s\n", level, msg)
	}

	if s.note != "" {
		b.WriteString(stressMuted.Render(s.note))
		b.WriteByte('\n')
	}
	b.WriteString("› ")
	b.WriteString(ansiseq.SaveCursor)
	b.WriteString(s.field.Value())
	return b.String()
}

func spinnerFrame(tick int) string {
	frames := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	return frames[tick%len(frames)]
}
