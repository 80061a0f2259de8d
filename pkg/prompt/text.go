package prompt

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/vito/promptline/pkg/ansiseq"
	"github.com/vito/promptline/pkg/input"
)

// DefaultErrorMessage is shown when a value fails a pattern without a
// message of its own.
const DefaultErrorMessage = "Please enter a valid value"

// TextOption configures a Text prompt.
type TextOption func(*Text)

// WithInitial sets the placeholder shown while the field is empty. It is
// the answer if the field is submitted empty, and Tab fills it in.
func WithInitial(s string) TextOption {
	return func(t *Text) { t.initial = s }
}

// WithHint sets a note shown under the field.
func WithHint(s string) TextOption {
	return func(t *Text) { t.hint = s }
}

// WithMask sets how typed characters are drawn.
func WithMask(m Mask) TextOption {
	return func(t *Text) { t.mask = m }
}

// WithAccept restricts which characters may be typed.
func WithAccept(a input.Accept) TextOption {
	return func(t *Text) { t.accept = a }
}

// WithValidate adds a validation step. A non-nil error rejects the value
// and its message is shown under the field.
func WithValidate(fn func(ctx context.Context, value string) error) TextOption {
	return func(t *Text) { t.validators = append(t.validators, fn) }
}

// WithPattern rejects values that do not match re, showing message (or
// DefaultErrorMessage).
func WithPattern(re *regexp.Regexp, message string) TextOption {
	if message == "" {
		message = DefaultErrorMessage
	}
	return WithValidate(func(_ context.Context, v string) error {
		if !re.MatchString(v) {
			return errors.New(message)
		}
		return nil
	})
}

// WithHistory lets Up and Down recall previous answers, and records the
// answer when the prompt is submitted.
func WithHistory(h *History) TextOption {
	return func(t *Text) { t.history = h }
}

// Text asks for a single line of text.
type Text struct {
	message    string
	initial    string
	hint       string
	mask       Mask
	accept     input.Accept
	validators []func(context.Context, string) error
	history    *History

	field *input.Tracker
}

var _ Prompt = (*Text)(nil)

// NewText returns a text prompt.
func NewText(message string, opts ...TextOption) *Text {
	t := &Text{message: message}
	for _, opt := range opts {
		opt(t)
	}
	t.field = input.NewTracker("",
		input.WithScale(t.mask.Scale()),
		input.WithAccept(t.accept))
	return t
}

func (t *Text) Field() *input.Tracker { return t.field }

// Value is the field's value, or the placeholder if the field is empty.
func (t *Text) Value() string {
	if v := t.field.Value(); v != "" {
		return v
	}
	return t.initial
}

func (t *Text) placeholder() bool {
	return t.field.Len() == 0 && t.initial != ""
}

func (t *Text) View(st State) string {
	var b strings.Builder
	b.WriteString(header(st, t.message))
	b.WriteString(ansiseq.SaveCursor)

	switch {
	case st.Status == Aborted:
		b.WriteString(abortAnswerStyle.Render(t.mask.Render(t.Value())))
	case st.Status == Done:
		b.WriteString(answerStyle.Render(t.mask.Render(t.Value())))
	case t.placeholder():
		b.WriteString(mutedStyle.Render(t.mask.Render(t.initial)))
	case st.Error != "":
		b.WriteString(invalidStyle.Render(t.mask.Render(t.field.Value())))
	default:
		b.WriteString(t.mask.Render(t.field.Value()))
	}

	if !st.Status.Final() {
		switch {
		case st.Error != "":
			b.WriteString(annotation(st.Error, errorStyle))
		case t.hint != "":
			b.WriteString(annotation(t.hint, hintStyle))
		}
	}
	return b.String()
}

func (t *Text) Handle(ev input.Event) Outcome {
	switch ev.Kind {
	case input.Edit:
		eff := t.field.Apply(ev.Action)
		if eff.Changed && t.history != nil {
			t.history.Reset()
		}
		return Outcome{Changed: eff.Changed, Bell: eff.Rejected}
	case input.Complete:
		if !t.placeholder() {
			return Outcome{Bell: true}
		}
		t.field.Apply(input.Replace(t.initial))
		return Outcome{Changed: true}
	case input.Previous:
		if t.history == nil {
			return Outcome{Bell: true}
		}
		v, ok := t.history.Previous(t.field.Value())
		return t.recall(v, ok)
	case input.Next:
		if t.history == nil {
			return Outcome{Bell: true}
		}
		v, ok := t.history.Next()
		return t.recall(v, ok)
	}
	return Outcome{}
}

func (t *Text) recall(v string, ok bool) Outcome {
	if !ok {
		return Outcome{Bell: true}
	}
	eff := t.field.Apply(input.Replace(v))
	return Outcome{Changed: eff.Changed}
}

func (t *Text) Validate(ctx context.Context, value string) error {
	for _, fn := range t.validators {
		if err := fn(ctx, value); err != nil {
			return err
		}
	}
	return nil
}

func (t *Text) Finish(res Result) {
	if !res.Aborted && t.history != nil {
		t.history.Add(res.Value)
	}
}
