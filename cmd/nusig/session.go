package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/nusig/internal/ble"
	"github.com/muurk/nusig/internal/console"
	"github.com/muurk/nusig/internal/gatt"
	"github.com/muurk/nusig/internal/lineui"
	"github.com/muurk/nusig/internal/link"
	"github.com/muurk/nusig/internal/logging"
	"github.com/muurk/nusig/internal/mirror"
	"github.com/muurk/nusig/internal/transcript"
	"github.com/muurk/nusig/internal/ui"
	"github.com/muurk/nusig/internal/version"
	"github.com/muurk/nusig/internal/wizard"
	"github.com/muurk/nusig/internal/wizard/tui"
)

// presenter is a wizard front end that can also host the console
type presenter interface {
	wizard.Presenter
	Console(ctx context.Context, title string, buf *transcript.Buffer, engine console.Runner) error
}

// newPresenter picks the full-screen interface on a terminal and numbered
// prompts otherwise. The returned function releases the terminal.
func newPresenter() (presenter, func(), error) {
	if interactive() {
		return tui.NewPresenter(version.Short(), os.Stdin, os.Stdout), func() {}, nil
	}
	p, err := lineui.New(os.Stdin, os.Stdout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open line interface: %w", err)
	}
	return p, func() { _ = p.Close() }, nil
}

// openTransport opens the Bluetooth stack, printing troubleshooting tips
// when it is unavailable
func openTransport() (*ble.Transport, error) {
	t, err := ble.Open(cfg.BLEOptions())
	if err != nil {
		ui.NewPrinter(os.Stderr).PrintError("Bluetooth unavailable", err, ui.BluetoothTroubleshooting...)
		return nil, fmt.Errorf("failed to open Bluetooth adapter: %w", err)
	}
	return t, nil
}

func runWizard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	transport, err := openTransport()
	if err != nil {
		return err
	}

	pres, release, err := newPresenter()
	if err != nil {
		return err
	}
	defer release()

	buf := transcript.NewBuffer()

	// the wizard opens one manager per chosen device; the last one carries
	// over into the console
	var mgr *link.Manager
	w := wizard.New(wizard.Config{
		Transport: transport,
		Open: func(d gatt.Device) wizard.Session {
			mgr = link.NewManager(transport, d, buf, cfg.LinkOptions())
			return mgr
		},
		Presenter:   pres,
		Defaults:    cfg.Defaults,
		Interval:    cfg.DiscoveryInterval,
		ShowUnnamed: cfg.ShowUnnamed,
		DisjointTx:  cfg.Wizard.DisjointTx,
		Version:     version.Short(),
	})

	settings, err := w.Run(ctx)
	if err != nil {
		return err
	}
	return runSession(ctx, pres, mgr, settings, buf)
}

// runSession serves the console, and the mirror when configured, until
// the operator quits
func runSession(ctx context.Context, pres presenter, mgr *link.Manager, settings gatt.SessionSettings, buf *transcript.Buffer) error {
	d := settings.Device()
	logging.Info("Session settings frozen",
		zap.String("device", d.Address),
		zap.Int("services", len(settings.Services())),
		zap.Int("rx", len(settings.Rx())),
		zap.Int("tx", len(settings.Tx())),
	)

	if cfg.Mirror.Listen != "" {
		m, err := mirror.Start(ctx, buf, mirror.Config{
			Listen:    cfg.Mirror.Listen,
			Advertise: cfg.Mirror.Advertise,
			Instance:  "nusig " + d.Label(),
			Device:    d.Address,
			Name:      d.Name,
		})
		if err != nil {
			mgr.Disconnect()
			return fmt.Errorf("mirror: %w", err)
		}
		defer m.Stop()
		logging.Info("Mirroring transcript", zap.String("url", m.URL()))
	}

	engine := console.New(mgr, settings, buf)
	return pres.Console(ctx, console.Title(version.Short(), d), buf, engine)
}
