// Package prompt implements interactive command-line questions on top of the
// differential renderer: a session loop that owns the terminal, and the
// prompts that run inside it.
package prompt

import (
	"context"

	"github.com/vito/promptline/pkg/input"
)

// Status is the lifecycle stage of a prompt.
type Status int

const (
	// Editing accepts input.
	Editing Status = iota
	// Pending is waiting on validation. Input is queued.
	Pending
	// Done was submitted and validated.
	Done
	// Aborted was abandoned.
	Aborted
)

func (s Status) String() string {
	switch s {
	case Editing:
		return "editing"
	case Pending:
		return "pending"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Final reports whether s is a terminal state.
func (s Status) Final() bool {
	return s == Done || s == Aborted
}

// State is what a prompt needs to draw itself.
type State struct {
	Status Status
	// Error is the last validation failure, cleared by the next edit.
	Error string
	// Spinner is the current spinner frame while Pending.
	Spinner string
}

// Outcome tells the session what handling an event did.
type Outcome struct {
	// Changed asks for a re-render.
	Changed bool
	// Bell asks for the terminal bell.
	Bell bool
	// Submit submits the prompt, as if Enter had been pressed.
	Submit bool
}

// Result is the answer a prompt ends with.
type Result struct {
	Value   string
	Aborted bool
}

// Prompt is one question.
type Prompt interface {
	// View draws the prompt. The output holds an anchor marker
	// (ansiseq.SaveCursor) where the cursor or field belongs.
	View(State) string
	// Field returns the prompt's text field, or nil if the prompt places
	// the cursor itself with the anchor marker on every View.
	Field() *input.Tracker
	// Handle applies an event other than Submit and Abort.
	Handle(input.Event) Outcome
	// Value is the answer as it stands.
	Value() string
	// Validate checks a submitted value. It may block; ctx is cancelled
	// when the session ends.
	Validate(ctx context.Context, value string) error
	// Finish is called once the prompt reaches a final state.
	Finish(Result)
}
