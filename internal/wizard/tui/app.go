package tui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/nusig/internal/console"
	"github.com/muurk/nusig/internal/logging"
	"github.com/muurk/nusig/internal/transcript"
	"github.com/muurk/nusig/internal/wizard"
)

// Presenter drives the wizard and console as a sequence of full-screen
// Bubble Tea programs, one per prompt. It implements wizard.Presenter.
type Presenter struct {
	Version string

	opts []tea.ProgramOption

	// last known terminal size, carried between programs so a new screen
	// renders at the right size before its first WindowSizeMsg
	width  int
	height int
}

var _ wizard.Presenter = (*Presenter)(nil)

// NewPresenter creates a presenter. in and out default to the terminal
// when nil.
func NewPresenter(version string, in io.Reader, out io.Writer) *Presenter {
	p := &Presenter{Version: version}
	if in != nil {
		p.opts = append(p.opts, tea.WithInput(in))
	}
	if out != nil {
		p.opts = append(p.opts, tea.WithOutput(out))
	}
	return p
}

// sized is implemented by every screen model
type sized interface {
	tea.Model
	size() (int, int)
}

// run executes one screen until it quits
func (p *Presenter) run(ctx context.Context, m sized) (tea.Model, error) {
	opts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, p.opts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, tea.ErrProgramKilled) {
			return final, ctxErr
		}
		return final, err
	}
	if s, ok := final.(sized); ok {
		p.width, p.height = s.size()
	}
	return final, nil
}

// Wait shows a spinner with title while fn runs. Esc cancels fn and
// returns wizard.ErrAborted once fn has returned.
func (p *Presenter) Wait(ctx context.Context, title string, fn func(ctx context.Context) error) error {
	fnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fnErr error
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		fnErr = fn(fnCtx)
	}()

	final, err := p.run(ctx, newWaitModel(p.Version, title, finished, p.width, p.height))
	cancel()
	<-finished

	if err != nil {
		return err
	}
	wm := final.(waitModel)
	switch {
	case wm.interrupted:
		return wizard.ErrQuit
	case wm.aborted:
		return wizard.ErrAborted
	}
	return fnErr
}

// ChooseOne presents a single-choice list
func (p *Presenter) ChooseOne(ctx context.Context, prompt wizard.Prompt) (wizard.Choice, error) {
	return p.choose(ctx, prompt, false)
}

// ChooseMany presents a checklist
func (p *Presenter) ChooseMany(ctx context.Context, prompt wizard.Prompt) (wizard.Choice, error) {
	return p.choose(ctx, prompt, true)
}

func (p *Presenter) choose(ctx context.Context, prompt wizard.Prompt, multi bool) (wizard.Choice, error) {
	final, err := p.run(ctx, newChooserModel(prompt, multi, p.width, p.height))
	if err != nil {
		return wizard.Choice{}, err
	}
	cm := final.(chooserModel)
	if cm.interrupted {
		return wizard.Choice{}, wizard.ErrQuit
	}
	return cm.choice, nil
}

// Confirm asks a yes/no question
func (p *Presenter) Confirm(ctx context.Context, title, text string) (bool, error) {
	final, err := p.run(ctx, newConfirmModel(title, text, p.width, p.height))
	if err != nil {
		return false, err
	}
	cm := final.(confirmModel)
	return cm.interrupted || cm.answer, nil
}

// Console shows the console screen while engine runs. Leaving the screen
// closes the engine's input, which ends the session; Console returns once
// the engine has disconnected.
func (p *Presenter) Console(ctx context.Context, title string, buf *transcript.Buffer, engine console.Runner) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := console.NewQueue()
	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.Run(ctx, in) }()

	m := newConsoleModel(title, buf, in, p.width, p.height)
	_, err := p.run(ctx, m)
	m.close()
	in.Close()

	engineErr := <-engineDone
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Debug("Console screen ended with error", zap.Error(err))
		return err
	}
	return engineErr
}
