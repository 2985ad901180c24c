package wizard

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/nusig/internal/catalog"
	"github.com/muurk/nusig/internal/gatt"
	"github.com/muurk/nusig/internal/logging"
)

// ErrQuit is returned by Run when the operator confirms quitting
var ErrQuit = errors.New("quit by operator")

// Session is the connection opened once a device is chosen. It lists the
// device's services and is torn down when the device changes or the
// wizard quits. *link.Manager satisfies it.
type Session interface {
	Services(ctx context.Context) ([]gatt.Service, error)
	Disconnect()
}

// Config wires the wizard
type Config struct {
	Transport gatt.Transport
	// Open returns a session for the chosen device
	Open      func(d gatt.Device) Session
	Presenter Presenter

	Defaults    catalog.Defaults
	Interval    time.Duration
	ShowUnnamed bool
	// DisjointTx removes the chosen Rx characteristics from the Tx candidates
	DisjointTx bool

	Version string
}

// Wizard runs the selection flow
type Wizard struct {
	cfg       Config
	populator *catalog.Populator

	session       Session
	sessionDevice string
}

// New creates a wizard
func New(cfg Config) *Wizard {
	return &Wizard{
		cfg: cfg,
		populator: &catalog.Populator{
			Devices:  cfg.Transport,
			Interval: cfg.Interval,
		},
	}
}

var (
	infoLines = map[Step]string{
		StepDevice:   "Select the desired Bluetooth device",
		StepServices: "Select the service or services with which to interact",
		StepRx:       "Select the characteristics to listen to",
		StepTx:       "Select the characteristics to send to",
	}
	waitLines = map[Step]string{
		StepDevice:   "Scanning for Bluetooth devices",
		StepServices: "Scanning for services",
		StepRx:       "Scanning for characteristics",
	}
)

// Run walks the state machine until the operator accepts a Tx selection
// or confirms quitting. On success the returned settings are valid and the
// session opened for the chosen device is left connected; on ErrQuit or
// any other error it is disconnected.
func (w *Wizard) Run(ctx context.Context) (gatt.SessionSettings, error) {
	st := State{Step: StepDevice, ShowUnnamed: w.cfg.ShowUnnamed}

	for {
		switch st.Step {
		case StepConsole:
			settings, err := st.Settings()
			if err != nil {
				w.closeSession()
				return gatt.SessionSettings{}, err
			}
			return settings, nil
		case StepQuit:
			w.closeSession()
			return gatt.SessionSettings{}, ErrQuit
		}

		outcome, err := w.step(ctx, &st)
		if err != nil {
			w.closeSession()
			return gatt.SessionSettings{}, err
		}

		next, err := Next(st.Step, outcome)
		if err != nil {
			w.closeSession()
			return gatt.SessionSettings{}, err
		}
		logging.Debug("Wizard transition",
			zap.Stringer("from", st.Step),
			zap.Stringer("outcome", outcome),
			zap.Stringer("to", next),
		)
		if outcome == Cancelled {
			st.Catalog = catalog.Catalog{}
		}
		st.Step = next
	}
}

// step presents the current step and applies the operator's answer to st
func (w *Wizard) step(ctx context.Context, st *State) (Outcome, error) {
	if st.Step == StepQuitConfirm {
		ok, err := w.cfg.Presenter.Confirm(ctx, "Quit", "Do you really want to quit?")
		if err != nil {
			return 0, err
		}
		if ok {
			return QuitConfirmed, nil
		}
		return QuitDeclined, nil
	}

	stage, _ := st.Step.Stage()
	cat, err := w.populate(ctx, stage, st)
	if errors.Is(err, ErrAborted) {
		return Cancelled, nil
	}
	if err != nil {
		return 0, err
	}
	st.Catalog = cat

	done, ahead := Breadcrumbs(w.cfg.Version, st.Step)
	prompt := Prompt{
		Title:   done,
		Ahead:   ahead,
		Info:    infoLines[st.Step],
		Options: cat.Labels(),
	}
	defaults := cat.Defaults(w.cfg.Defaults.For(stage))

	var choice Choice
	if st.Step == StepDevice {
		if len(defaults) > 1 {
			defaults = defaults[:1]
		}
		prompt.Defaults = defaults
		prompt.Filterable = true
		prompt.ShowUnnamed = st.ShowUnnamed
		prompt.Hidden = cat.Hidden
		choice, err = w.cfg.Presenter.ChooseOne(ctx, prompt)
	} else {
		prompt.Defaults = defaults
		choice, err = w.cfg.Presenter.ChooseMany(ctx, prompt)
	}
	if err != nil {
		return 0, err
	}

	switch choice.Outcome {
	case FilterToggled:
		if st.Step != StepDevice {
			return Refreshed, nil
		}
		st.ShowUnnamed = !st.ShowUnnamed
		return FilterToggled, nil
	case Refreshed, Cancelled:
		return choice.Outcome, nil
	case Accepted:
		indices := validIndices(choice.Indices, cat.Len())
		if len(indices) == 0 {
			return Cancelled, nil
		}
		w.accept(st, indices)
		return Accepted, nil
	default:
		return Refreshed, nil
	}
}

func (w *Wizard) populate(ctx context.Context, stage catalog.Stage, st *State) (catalog.Catalog, error) {
	req := catalog.Request{ShowUnnamed: st.ShowUnnamed, Selected: st.Services}
	if stage == catalog.StageServices {
		req.Services = w.session
	}
	if stage == catalog.StageTx && w.cfg.DisjointTx {
		req.Exclude = st.Rx
	}

	title := waitLines[st.Step]
	if title == "" {
		return w.populator.Populate(ctx, stage, req)
	}

	var cat catalog.Catalog
	err := w.cfg.Presenter.Wait(ctx, title, func(ctx context.Context) error {
		var err error
		cat, err = w.populator.Populate(ctx, stage, req)
		return err
	})
	return cat, err
}

// accept freezes the chosen candidates into st
func (w *Wizard) accept(st *State, indices []int) {
	cat := st.Catalog
	switch st.Step {
	case StepDevice:
		d := cat.Devices[indices[0]]
		if w.session != nil && w.sessionDevice != d.Address {
			w.closeSession()
		}
		if w.session == nil {
			w.session = w.cfg.Open(d)
			w.sessionDevice = d.Address
		}
		st.Device = d
	case StepServices:
		st.Services = pick(cat.Services, indices)
	case StepRx:
		st.Rx = pick(cat.Chars, indices)
	case StepTx:
		st.Tx = pick(cat.Chars, indices)
	}
}

func (w *Wizard) closeSession() {
	if w.session == nil {
		return
	}
	logging.Debug("Closing wizard session", zap.String("device", w.sessionDevice))
	w.session.Disconnect()
	w.session = nil
	w.sessionDevice = ""
}

// validIndices drops out-of-range and duplicate indices, keeping order
func validIndices(indices []int, n int) []int {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	return out
}

func pick[T any](items []T, indices []int) []T {
	out := make([]T, 0, len(indices))
	for _, i := range indices {
		out = append(out, items[i])
	}
	return out
}
