package prompt

import (
	"context"
	"strconv"
	"strings"

	"github.com/vito/promptline/pkg/ansiseq"
	"github.com/vito/promptline/pkg/input"
)

// Confirm asks a yes/no question. Typing y or n answers immediately; Enter
// takes the default.
//
// Confirm has no text field. It marks the cursor position itself on every
// view.
type Confirm struct {
	message string
	def     bool
	answer  *bool
}

var _ Prompt = (*Confirm)(nil)

// NewConfirm returns a confirm prompt answering def on a bare Enter.
func NewConfirm(message string, def bool) *Confirm {
	return &Confirm{message: message, def: def}
}

// Confirmed returns the answer.
func (c *Confirm) Confirmed() bool {
	if c.answer != nil {
		return *c.answer
	}
	return c.def
}

func (c *Confirm) Field() *input.Tracker { return nil }

// Value is "true" or "false".
func (c *Confirm) Value() string {
	return strconv.FormatBool(c.Confirmed())
}

func (c *Confirm) View(st State) string {
	var b strings.Builder
	b.WriteString(header(st, c.message))
	switch st.Status {
	case Done:
		b.WriteString(answerStyle.Render(yesNo(c.Confirmed())))
		b.WriteString(ansiseq.SaveCursor)
	case Aborted:
		b.WriteString(abortAnswerStyle.Render(yesNo(c.Confirmed())))
		b.WriteString(ansiseq.SaveCursor)
	default:
		choices := "(y/N)"
		if c.def {
			choices = "(Y/n)"
		}
		b.WriteString(mutedStyle.Render(choices))
		b.WriteByte(' ')
		b.WriteString(ansiseq.SaveCursor)
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func (c *Confirm) Handle(ev input.Event) Outcome {
	if ev.Kind != input.Edit || ev.Action.Kind != input.Insert {
		return Outcome{Bell: true}
	}
	var v bool
	switch strings.ToLower(ev.Action.Text) {
	case "y":
		v = true
	case "n":
		v = false
	default:
		return Outcome{Bell: true}
	}
	c.answer = &v
	return Outcome{Changed: true, Submit: true}
}

func (c *Confirm) Validate(context.Context, string) error { return nil }

func (c *Confirm) Finish(Result) {}
