package input

import "fmt"

// ActionKind enumerates the edits a Tracker understands.
type ActionKind int

const (
	// Insert splices Action.Text in at the cursor.
	Insert ActionKind = iota
	// Backspace removes the character before the cursor.
	Backspace
	// DeleteForward removes the character under the cursor.
	DeleteForward
	// Home moves the cursor to the start of the value.
	Home
	// End moves the cursor past the last character.
	End
	// Left moves the cursor back one character.
	Left
	// Right moves the cursor forward one character.
	Right
	// SetValue replaces the whole value with Action.Text and moves the
	// cursor to its end.
	SetValue
)

var actionNames = [...]string{
	Insert:        "insert",
	Backspace:     "backspace",
	DeleteForward: "delete",
	Home:          "home",
	End:           "end",
	Left:          "left",
	Right:         "right",
	SetValue:      "set",
}

func (k ActionKind) String() string {
	if k >= 0 && int(k) < len(actionNames) {
		return actionNames[k]
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// Action is one edit. Text is only meaningful for Insert and SetValue.
type Action struct {
	Kind ActionKind
	Text string
}

// Type returns an Insert action for s.
func Type(s string) Action {
	return Action{Kind: Insert, Text: s}
}

// Replace returns a SetValue action for s.
func Replace(s string) Action {
	return Action{Kind: SetValue, Text: s}
}

func (a Action) String() string {
	switch a.Kind {
	case Insert, SetValue:
		return fmt.Sprintf("%s(%q)", a.Kind, a.Text)
	}
	return a.Kind.String()
}
