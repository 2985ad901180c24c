package wizard

import (
	"context"
	"errors"
)

// ErrAborted is returned by Presenter.Wait when the operator abandons the
// wait; the wizard treats it as going back.
var ErrAborted = errors.New("aborted by operator")

// Prompt describes one selection screen
type Prompt struct {
	// Title is the breadcrumb path walked so far; Ahead the steps remaining
	Title string
	Ahead string

	// Info is the instruction line
	Info string

	// Options are the candidate labels, Defaults the pre-selected indices
	Options  []string
	Defaults []int

	// Filterable enables the unnamed-device toggle key
	Filterable  bool
	ShowUnnamed bool
	Hidden      int
}

// Choice is the operator's answer to a Prompt
type Choice struct {
	Outcome Outcome
	Indices []int
}

// Presenter is the abstract choice capability the wizard drives. The
// Bubble Tea and readline front ends implement it.
type Presenter interface {
	// Wait shows title while fn runs. The ctx passed to fn is cancelled if
	// the operator abandons the wait, in which case ErrAborted is returned.
	Wait(ctx context.Context, title string, fn func(ctx context.Context) error) error

	// ChooseOne presents a single-choice list
	ChooseOne(ctx context.Context, p Prompt) (Choice, error)

	// ChooseMany presents a multi-choice list with defaults pre-selected
	ChooseMany(ctx context.Context, p Prompt) (Choice, error)

	// Confirm asks a yes/no question
	Confirm(ctx context.Context, title, text string) (bool, error)
}
