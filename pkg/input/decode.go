package input

import (
	"fmt"

	uv "github.com/charmbracelet/ultraviolet"
)

// EventKind classifies a decoded key.
type EventKind int

const (
	// Edit carries an Action for the field's Tracker.
	Edit EventKind = iota
	// Submit asks to submit the field (Enter).
	Submit
	// Abort asks to abandon the prompt (Ctrl+C, Ctrl+D, Escape).
	Abort
	// Complete asks to accept the field's suggestion (Tab).
	Complete
	// Previous steps back through history (Up, Ctrl+P).
	Previous
	// Next steps forward through history (Down, Ctrl+N).
	Next
)

func (k EventKind) String() string {
	switch k {
	case Edit:
		return "edit"
	case Submit:
		return "submit"
	case Abort:
		return "abort"
	case Complete:
		return "complete"
	case Previous:
		return "previous"
	case Next:
		return "next"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one key, resolved to what it means to a prompt.
type Event struct {
	Kind EventKind
	// Action is set for Edit events.
	Action Action
}

func (e Event) String() string {
	if e.Kind == Edit {
		return e.Action.String()
	}
	return e.Kind.String()
}

// Decoder turns raw terminal input into events. Keys with no meaning to a
// prompt are dropped.
type Decoder struct {
	dec uv.EventDecoder
}

// NewDecoder returns a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes every complete key in data.
func (d *Decoder) Decode(data []byte) []Event {
	var events []Event
	buf := data
	for len(buf) > 0 {
		n, ev := d.dec.Decode(buf)
		if n == 0 {
			break
		}
		buf = buf[n:]
		if ev == nil {
			continue
		}
		if e, ok := translate(ev); ok {
			events = append(events, e)
		}
	}
	return events
}

func translate(ev uv.Event) (Event, bool) {
	switch e := ev.(type) {
	case uv.PasteEvent:
		return Event{Kind: Edit, Action: Type(e.Content)}, true
	case uv.KeyPressEvent:
		return translateKey(uv.Key(e))
	}
	return Event{}, false
}

func edit(kind ActionKind) (Event, bool) {
	return Event{Kind: Edit, Action: Action{Kind: kind}}, true
}

func translateKey(key uv.Key) (Event, bool) {
	if key.Mod == uv.ModCtrl {
		switch key.Code {
		case 'c', 'd':
			return Event{Kind: Abort}, true
		case 'a':
			return edit(Home)
		case 'e':
			return edit(End)
		case 'b':
			return edit(Left)
		case 'f':
			return edit(Right)
		case 'h', uv.KeyBackspace:
			return edit(Backspace)
		case 'u':
			return Event{Kind: Edit, Action: Replace("")}, true
		case 'p':
			return Event{Kind: Previous}, true
		case 'n':
			return Event{Kind: Next}, true
		}
		return Event{}, false
	}

	switch key.Code {
	case uv.KeyEnter:
		return Event{Kind: Submit}, true
	case uv.KeyEscape:
		return Event{Kind: Abort}, true
	case uv.KeyTab:
		return Event{Kind: Complete}, true
	case uv.KeyBackspace:
		return edit(Backspace)
	case uv.KeyDelete:
		return edit(DeleteForward)
	case uv.KeyLeft:
		return edit(Left)
	case uv.KeyRight:
		return edit(Right)
	case uv.KeyHome:
		return edit(Home)
	case uv.KeyEnd:
		return edit(End)
	case uv.KeyUp:
		return Event{Kind: Previous}, true
	case uv.KeyDown:
		return Event{Kind: Next}, true
	}

	if key.Text != "" && key.Mod&(uv.ModCtrl|uv.ModAlt) == 0 {
		return Event{Kind: Edit, Action: Type(key.Text)}, true
	}
	return Event{}, false
}
