// Package input tracks the value and cursor of a single-line text field and
// turns raw terminal input into edits.
package input

import (
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// DisplayWidth is the scale at which a tracker measures the value's display
// width instead of counting characters.
const DisplayWidth = -1

// Effect reports what an Action did.
type Effect struct {
	// Changed is set when the value changed.
	Changed bool
	// Moved is set when the cursor index changed.
	Moved bool
	// Rejected is set when the action could not be carried out, in whole
	// or in part. Callers ring the bell for it.
	Rejected bool
}

// Any reports whether the value or the cursor changed.
func (e Effect) Any() bool {
	return e.Changed || e.Moved
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithScale sets the number of columns each character is drawn with. See
// SetScale.
func WithScale(n int) TrackerOption {
	return func(t *Tracker) {
		t.scale = n
	}
}

// WithAccept restricts which characters may be inserted.
func WithAccept(accept Accept) TrackerOption {
	return func(t *Tracker) {
		t.accept = accept
	}
}

// Tracker holds a field value and the cursor's index into it. The index is
// always within [0, Len()]; edits that would leave that range are rejected
// rather than applied.
//
// A Tracker is not safe for concurrent use.
type Tracker struct {
	value []rune
	index int

	scale  int
	accept Accept

	hooks []func(Effect)
}

// NewTracker returns a tracker holding value with the cursor at its end.
func NewTracker(value string, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		value: []rune(value),
		scale: DisplayWidth,
	}
	t.index = len(t.value)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Value returns the current value.
func (t *Tracker) Value() string { return string(t.value) }

// Index returns the cursor's character index.
func (t *Tracker) Index() int { return t.index }

// Len returns the number of characters in the value.
func (t *Tracker) Len() int { return len(t.value) }

// Scale returns the column scale.
func (t *Tracker) Scale() int { return t.scale }

// SetScale sets how many columns each character occupies when drawn: 1 for
// masked input, 2 for emoji masks, 0 for invisible input. DisplayWidth
// measures the value as written.
func (t *Tracker) SetScale(n int) {
	t.scale = n
}

// Columns returns the cursor's column offset from the start of the field.
func (t *Tracker) Columns() int {
	if t.scale < 0 {
		return ansi.StringWidth(string(t.value[:t.index]))
	}
	return t.index * t.scale
}

// OnChange registers fn to be called after every action that changes the
// value or moves the cursor.
func (t *Tracker) OnChange(fn func(Effect)) {
	t.hooks = append(t.hooks, fn)
}

// Apply carries out a.
func (t *Tracker) Apply(a Action) Effect {
	var eff Effect
	switch a.Kind {
	case Insert:
		eff = t.insert(a.Text)
	case Backspace:
		if t.index == 0 {
			eff.Rejected = true
			break
		}
		t.value = append(t.value[:t.index-1], t.value[t.index:]...)
		t.index--
		eff.Changed, eff.Moved = true, true
	case DeleteForward:
		if t.index == len(t.value) {
			eff.Rejected = true
			break
		}
		t.value = append(t.value[:t.index], t.value[t.index+1:]...)
		eff.Changed = true
	case Home:
		eff = t.moveTo(0)
	case End:
		eff = t.moveTo(len(t.value))
	case Left:
		if t.index == 0 {
			eff.Rejected = true
			break
		}
		eff = t.moveTo(t.index - 1)
	case Right:
		if t.index == len(t.value) {
			eff.Rejected = true
			break
		}
		eff = t.moveTo(t.index + 1)
	case SetValue:
		old := string(t.value)
		t.value = []rune(a.Text)
		eff.Changed = old != a.Text
		eff.Moved = t.moveTo(len(t.value)).Moved
	default:
		eff.Rejected = true
	}
	if eff.Any() {
		for _, fn := range t.hooks {
			fn(eff)
		}
	}
	return eff
}

func (t *Tracker) insert(s string) Effect {
	var eff Effect
	var ins []rune
	for _, r := range s {
		if !unicode.IsPrint(r) || (t.accept != nil && !t.accept(r)) {
			eff.Rejected = true
			continue
		}
		ins = append(ins, r)
	}
	if len(ins) == 0 {
		return eff
	}
	tail := append(ins, t.value[t.index:]...)
	t.value = append(t.value[:t.index], tail...)
	t.index += len(ins)
	eff.Changed, eff.Moved = true, true
	return eff
}

func (t *Tracker) moveTo(i int) Effect {
	if i == t.index {
		return Effect{}
	}
	t.index = i
	return Effect{Moved: true}
}
