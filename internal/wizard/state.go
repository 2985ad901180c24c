package wizard

import (
	"fmt"

	"github.com/muurk/nusig/internal/catalog"
	"github.com/muurk/nusig/internal/gatt"
)

// Step is a wizard state
type Step int

const (
	// StepQuit is terminal: the operator confirmed quitting
	StepQuit Step = -2
	// StepQuitConfirm asks whether to quit; reached by going back from Device
	StepQuitConfirm Step = -1
	StepDevice      Step = 0
	StepServices    Step = 1
	StepRx          Step = 2
	StepTx          Step = 3
	// StepConsole is terminal: the selection is complete
	StepConsole Step = 4
)

// String returns the step name
func (s Step) String() string {
	switch s {
	case StepQuit:
		return "Quit"
	case StepQuitConfirm:
		return "QuitConfirm"
	case StepDevice:
		return "Device"
	case StepServices:
		return "Services"
	case StepRx:
		return "Rx"
	case StepTx:
		return "Tx"
	case StepConsole:
		return "Console"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Stage returns the catalog stage a selection step presents
func (s Step) Stage() (catalog.Stage, bool) {
	switch s {
	case StepDevice:
		return catalog.StageDevice, true
	case StepServices:
		return catalog.StageServices, true
	case StepRx:
		return catalog.StageRx, true
	case StepTx:
		return catalog.StageTx, true
	default:
		return 0, false
	}
}

// Outcome is the result of presenting a step
type Outcome int

const (
	Accepted Outcome = iota
	Cancelled
	FilterToggled
	Refreshed
	QuitConfirmed
	QuitDeclined
)

// String returns the outcome name
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "Accepted"
	case Cancelled:
		return "Cancelled"
	case FilterToggled:
		return "FilterToggled"
	case Refreshed:
		return "Refreshed"
	case QuitConfirmed:
		return "QuitConfirmed"
	case QuitDeclined:
		return "QuitDeclined"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// transitions is the complete transition table. Missing entries are
// invalid transitions.
var transitions = map[Step]map[Outcome]Step{
	StepQuitConfirm: {
		QuitConfirmed: StepQuit,
		QuitDeclined:  StepDevice,
	},
	StepDevice: {
		Accepted:      StepServices,
		Cancelled:     StepQuitConfirm,
		FilterToggled: StepDevice,
		Refreshed:     StepDevice,
	},
	StepServices: {
		Accepted:  StepRx,
		Cancelled: StepDevice,
		Refreshed: StepServices,
	},
	StepRx: {
		Accepted:  StepTx,
		Cancelled: StepServices,
		Refreshed: StepRx,
	},
	StepTx: {
		Accepted:  StepConsole,
		Cancelled: StepRx,
		Refreshed: StepTx,
	},
}

// Next returns the step that follows s after outcome o
func Next(s Step, o Outcome) (Step, error) {
	next, ok := transitions[s][o]
	if !ok {
		return s, fmt.Errorf("wizard: no transition from %s on %s", s, o)
	}
	return next, nil
}

// State is the wizard's explicit state: the current step, the catalog
// presented at that step, the unnamed-device filter flag and the
// selections frozen so far.
type State struct {
	Step        Step
	Catalog     catalog.Catalog
	ShowUnnamed bool

	Device   gatt.Device
	Services []gatt.Service
	Rx       []gatt.Characteristic
	Tx       []gatt.Characteristic
}

// Settings freezes the selections into session settings
func (s State) Settings() (gatt.SessionSettings, error) {
	return gatt.NewSessionSettings(s.Device, s.Services, s.Rx, s.Tx)
}

var breadcrumbNames = []string{"Device", "Services", "Rx Characteristics", "Tx Characteristics"}

// Breadcrumbs returns the title for a step split in two: the path walked so
// far (" NUSig 1.0 > Device > Services ") and the steps still ahead
// ("> Rx Characteristics > Tx Characteristics "). Presenters render the
// second part dimmed.
func Breadcrumbs(version string, s Step) (done, ahead string) {
	done = fmt.Sprintf(" NUSig %s ", version)
	for i, name := range breadcrumbNames {
		if Step(i) <= s {
			done += "> " + name + " "
		} else {
			ahead += "> " + name + " "
		}
	}
	return done, ahead
}
