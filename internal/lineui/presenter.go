package lineui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/muurk/nusig/internal/console"
	"github.com/muurk/nusig/internal/logging"
	"github.com/muurk/nusig/internal/transcript"
	"github.com/muurk/nusig/internal/wizard"
)

const (
	choosePrompt  = "select> "
	consolePrompt = "T> "
)

// Presenter implements wizard.Presenter on a readline instance
type Presenter struct {
	rl *readline.Instance
}

var _ wizard.Presenter = (*Presenter)(nil)

// New creates a presenter. stdin and stdout default to the terminal when
// nil.
func New(stdin io.ReadCloser, stdout io.Writer) (*Presenter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 choosePrompt,
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
		Stdin:                  stdin,
		Stdout:                 stdout,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Presenter{rl: rl}, nil
}

// Close releases the terminal
func (p *Presenter) Close() error {
	return p.rl.Close()
}

func (p *Presenter) out() io.Writer { return p.rl.Stdout() }

// readLine returns the next answer; interrupt and EOF quit the wizard
func (p *Presenter) readLine(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return "", wizard.ErrQuit
		}
		return "", err
	}
	return line, nil
}

// Wait prints title and runs fn. Line mode cannot abandon a wait; ctrl+c
// ends the process instead.
func (p *Presenter) Wait(ctx context.Context, title string, fn func(ctx context.Context) error) error {
	fmt.Fprintf(p.out(), "%s...\n", title)
	return fn(ctx)
}

// ChooseOne implements wizard.Presenter
func (p *Presenter) ChooseOne(ctx context.Context, prompt wizard.Prompt) (wizard.Choice, error) {
	return p.choose(ctx, prompt, false)
}

// ChooseMany implements wizard.Presenter
func (p *Presenter) ChooseMany(ctx context.Context, prompt wizard.Prompt) (wizard.Choice, error) {
	return p.choose(ctx, prompt, true)
}

func (p *Presenter) choose(ctx context.Context, prompt wizard.Prompt, multi bool) (wizard.Choice, error) {
	renderPrompt(p.out(), prompt, multi)
	for {
		if err := ctx.Err(); err != nil {
			return wizard.Choice{}, err
		}
		line, err := p.readLine(choosePrompt)
		if err != nil {
			return wizard.Choice{}, err
		}
		choice, err := parseSelection(line, len(prompt.Options), multi, prompt.Filterable, prompt.Defaults)
		if errors.Is(err, errQuit) {
			return wizard.Choice{}, wizard.ErrQuit
		}
		if err != nil {
			fmt.Fprintf(p.out(), "  %v\n", err)
			continue
		}
		return choice, nil
	}
}

// renderPrompt prints the breadcrumbs, the instruction and the numbered
// options with their default marks
func renderPrompt(w io.Writer, prompt wizard.Prompt, multi bool) {
	fmt.Fprintf(w, "\n%s%s\n", prompt.Title, prompt.Ahead)
	fmt.Fprintln(w, prompt.Info)

	defaults := make(map[int]bool, len(prompt.Defaults))
	for _, i := range prompt.Defaults {
		defaults[i] = true
	}
	for i, label := range prompt.Options {
		mark := " "
		if defaults[i] {
			mark = "*"
		}
		fmt.Fprintf(w, " %s %2d) %s\n", mark, i+1, label)
	}
	if len(prompt.Options) == 0 {
		fmt.Fprintln(w, "  (nothing to choose from, b to go back)")
	}

	keys := []string{"enter = defaults (*)", "b = back", "r = refresh", "q = quit"}
	if multi {
		keys[0] = "numbers like 1,3 or 1-3; " + keys[0]
	}
	if prompt.Filterable {
		if prompt.ShowUnnamed {
			keys = append(keys, "s = hide unnamed")
		} else {
			keys = append(keys, fmt.Sprintf("s = show %d unnamed", prompt.Hidden))
		}
	}
	fmt.Fprintf(w, "  [%s]\n", strings.Join(keys, ", "))
}

// Confirm implements wizard.Presenter
func (p *Presenter) Confirm(ctx context.Context, title, text string) (bool, error) {
	line, err := p.readLine(fmt.Sprintf("%s: %s [y/N] ", title, text))
	if errors.Is(err, wizard.ErrQuit) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// Console prints transcript lines above a "T> " prompt while engine runs.
// EOF or ctrl+c ends the session.
func (p *Presenter) Console(ctx context.Context, title string, buf *transcript.Buffer, engine console.Runner) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(p.out(), title)

	backlog, feed, unsubscribe := buf.Tail()
	defer unsubscribe()
	for _, l := range backlog {
		fmt.Fprintln(p.out(), l.String())
	}

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		follow(ctx, p.out(), buf, len(backlog), feed)
	}()

	q := console.NewQueue()
	engineDone := make(chan error, 1)
	go func() {
		engineDone <- engine.Run(ctx, q)
		// unblock Readline if the session ended first
		cancel()
	}()

	go func() {
		<-ctx.Done()
		p.rl.Close()
	}()

	for {
		line, err := p.readLine(consolePrompt)
		if err != nil {
			break
		}
		if !q.Push(line) {
			logging.Warn("Console input dropped", zap.String("line", line))
		}
	}
	q.Close()

	err := <-engineDone
	cancel()
	<-printed
	return err
}

// follow prints the lines appended after the first seen until ctx ends or
// feed closes. The feed only signals growth; lines are read back from buf,
// so a notification dropped while the terminal lags never loses a line.
func follow(ctx context.Context, w io.Writer, buf *transcript.Buffer, seen int, feed <-chan transcript.Line) {
	flush := func() {
		for _, l := range buf.Since(seen) {
			fmt.Fprintln(w, l.String())
			seen++
		}
	}
	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case _, ok := <-feed:
			flush()
			if !ok {
				return
			}
		}
	}
}
