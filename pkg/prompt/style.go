package prompt

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/vito/promptline/pkg/input"
)

const (
	figQuestion = "?"
	figTick     = "✔"
	figCross    = "✖"
	figPointer  = "›"
	figEllipsis = "…"
)

var (
	questionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	doneStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	abortedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	messageStyle     = lipgloss.NewStyle().Bold(true)
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	invalidStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Italic(true)
	answerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	abortAnswerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// symbol is the one-column marker in front of the message.
func symbol(st State) string {
	switch st.Status {
	case Done:
		return doneStyle.Render(figTick)
	case Aborted:
		return abortedStyle.Render(figCross)
	case Pending:
		if st.Spinner != "" {
			return pendingStyle.Render(st.Spinner)
		}
	}
	return questionStyle.Render(figQuestion)
}

// delimiter separates the message from the answer.
func delimiter(st State) string {
	if st.Status.Final() {
		return mutedStyle.Render(figEllipsis)
	}
	return mutedStyle.Render(figPointer)
}

// header renders the symbol, message and delimiter. Message lines after the
// first are indented under it.
func header(st State, message string) string {
	var b strings.Builder
	b.WriteString(symbol(st))
	b.WriteByte(' ')
	for i, line := range strings.Split(message, "\n") {
		if i > 0 {
			b.WriteString("\n  ")
		}
		b.WriteString(messageStyle.Render(line))
	}
	b.WriteByte(' ')
	b.WriteString(delimiter(st))
	b.WriteByte(' ')
	return b.String()
}

// annotation renders hint or error text below the prompt.
func annotation(text string, style lipgloss.Style) string {
	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		b.WriteByte('\n')
		if i == 0 {
			b.WriteString(mutedStyle.Render(figPointer))
		} else {
			b.WriteByte(' ')
		}
		b.WriteByte(' ')
		b.WriteString(style.Render(line))
	}
	return b.String()
}

// Mask is how typed characters are drawn.
type Mask int

const (
	// Plain draws the value as typed.
	Plain Mask = iota
	// Password draws one asterisk per character.
	Password
	// Emoji draws one two-column emoji per character.
	Emoji
	// Invisible draws nothing.
	Invisible
)

var maskNames = map[string]Mask{
	"":          Plain,
	"text":      Plain,
	"default":   Plain,
	"password":  Password,
	"emoji":     Emoji,
	"invisible": Invisible,
}

// ParseMask resolves a mask by name.
func ParseMask(name string) (Mask, error) {
	m, ok := maskNames[name]
	if !ok {
		return Plain, fmt.Errorf("unknown input style %q", name)
	}
	return m, nil
}

func (m Mask) String() string {
	switch m {
	case Password:
		return "password"
	case Emoji:
		return "emoji"
	case Invisible:
		return "invisible"
	}
	return "text"
}

// Scale is the number of columns each character is drawn with, or
// input.DisplayWidth when the value is drawn as typed.
func (m Mask) Scale() int {
	switch m {
	case Password:
		return 1
	case Emoji:
		return 2
	case Invisible:
		return 0
	}
	return input.DisplayWidth
}

// Render draws v.
func (m Mask) Render(v string) string {
	n := len([]rune(v))
	switch m {
	case Password:
		return strings.Repeat("*", n)
	case Emoji:
		return strings.Repeat("😃", n)
	case Invisible:
		return ""
	}
	return v
}
