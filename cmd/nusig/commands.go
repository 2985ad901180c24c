package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/nusig/internal/catalog"
	"github.com/muurk/nusig/internal/config"
	"github.com/muurk/nusig/internal/gatt"
	"github.com/muurk/nusig/internal/link"
	"github.com/muurk/nusig/internal/mirror"
	"github.com/muurk/nusig/internal/transcript"
	"github.com/muurk/nusig/internal/ui"
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(watchCmd)
}

// scanCmd lists nearby devices once
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List nearby Bluetooth LE devices",
	Long: `Listen for Bluetooth LE advertisements for one scan window and list
the devices seen, with their address, name and signal strength.

Devices without an advertised name are hidden unless --show-unnamed is set.`,
	Example: `  # Scan for 5 seconds (default)
  nusig scan

  # Longer scan including unnamed devices
  nusig scan --scan-window 15s --show-unnamed`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("Device scan", "nusig scan",
		ui.Param{Key: "Adapter", Value: cfg.Adapter},
		ui.Param{Key: "Window", Value: cfg.ScanWindow.String()},
	)

	transport, err := openTransport()
	if err != nil {
		return err
	}

	p.PrintWaiting(fmt.Sprintf("Scanning for %s...", cfg.ScanWindow))
	devices, err := transport.Discover(cmd.Context())
	if err != nil {
		p.PrintError("Scan failed", err, ui.BluetoothTroubleshooting...)
		return fmt.Errorf("scan failed: %w", err)
	}

	shown, hidden := catalog.FilterNamed(devices, cfg.ShowUnnamed)
	p.Newline()
	p.Println(ui.RenderDeviceTable(shown, hidden))
	p.Newline()
	if len(shown) > 0 {
		p.Println("Use 'nusig console --device <address>' to open a console directly")
	}
	return nil
}

// Console command flags
var (
	consoleDevice string
	consoleName   string
	consoleRx     []string
	consoleTx     []string
)

// consoleCmd skips the wizard
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open a console on a known device without the wizard",
	Long: `Connect to a device by address and open the console directly.

Characteristics are chosen by UUID with --rx (listen) and --tx (write).
When omitted, the characteristics matching the configured defaults are
used, which for a Nordic UART Service peripheral means its TX and RX.`,
	Example: `  # Nordic UART Service device
  nusig console --device C8:2E:18:00:11:22

  # Explicit characteristics, mirrored on port 7777
  nusig console --device C8:2E:18:00:11:22 \
    --rx 6e400003-b5a3-f393-e0a9-e50e24dcca9e \
    --tx 6e400002-b5a3-f393-e0a9-e50e24dcca9e \
    --mirror :7777 --advertise`,
	Args: cobra.NoArgs,
	RunE: runConsoleCmd,
}

func init() {
	consoleCmd.Flags().StringVar(&consoleDevice, "device", "", "Device address (required)")
	consoleCmd.Flags().StringVar(&consoleName, "name", "", "Device name shown in the title (default: advertised name)")
	consoleCmd.Flags().StringSliceVar(&consoleRx, "rx", nil, "UUIDs of the characteristics to listen to")
	consoleCmd.Flags().StringSliceVar(&consoleTx, "tx", nil, "UUIDs of the characteristics to write to")
	_ = consoleCmd.MarkFlagRequired("device")
	addSessionFlags(consoleCmd)
}

func runConsoleCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	transport, err := openTransport()
	if err != nil {
		return err
	}

	d := gatt.Device{Address: consoleDevice, Name: consoleName}

	// one scan so the stack knows the device and its name
	if devices, err := transport.Discover(ctx); err == nil {
		for _, seen := range devices {
			if strings.EqualFold(seen.Address, d.Address) {
				d.Address = seen.Address
				if d.Name == "" {
					d.Name = seen.Name
				}
				break
			}
		}
	}

	buf := transcript.NewBuffer()
	mgr := link.NewManager(transport, d, buf, cfg.LinkOptions())
	if err := mgr.EnsureConnected(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", d.Label(), err)
	}
	services, err := mgr.Services(ctx)
	if err != nil {
		mgr.Disconnect()
		return fmt.Errorf("failed to list services: %w", err)
	}
	settings, err := catalog.Resolve(d, services, consoleRx, consoleTx, cfg.Defaults)
	if err != nil {
		mgr.Disconnect()
		return err
	}

	pres, release, err := newPresenter()
	if err != nil {
		mgr.Disconnect()
		return err
	}
	defer release()

	return runSession(ctx, pres, mgr, settings, buf)
}

var configForce bool

// configCmd manages the preferences file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinter(os.Stdout)
		path, err := config.Init(configPath, configForce)
		if errors.Is(err, config.ErrExists) {
			p.PrintWarning("Configuration file already exists",
				ui.Param{Key: "Path", Value: path},
				ui.Param{Key: "Hint", Value: "use --force to overwrite"},
			)
			return nil
		}
		if err != nil {
			return err
		}
		p.PrintSuccess("Configuration written", ui.Param{Key: "Path", Value: path})
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	// config commands must work while the file is broken
	configCmd.PersistentPreRunE = skipSetup
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// watchCmd follows a mirrored session
var watchCmd = &cobra.Command{
	Use:   "watch [url]",
	Short: "Follow a session mirrored by another nusig",
	Long: `Print the transcript of a session started with --mirror, as it happens.

Without a URL the local network is browsed for advertised mirrors and the
first one found is followed. The watch ends when the session ends.`,
	Example: `  # Follow the first advertised mirror
  nusig watch

  # Follow a mirror by address
  nusig watch ws://192.168.1.20:7777/transcript`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p := ui.NewPrinter(os.Stdout)

	url := ""
	if len(args) == 1 {
		url = args[0]
	} else {
		p.PrintWaiting(fmt.Sprintf("Browsing for %s mirrors...", mirror.ServiceType))
		endpoints, err := mirror.NewBrowser().Browse(ctx)
		if err != nil {
			return err
		}
		if len(endpoints) == 0 {
			p.PrintWarning("No mirrors found",
				ui.Param{Key: "Hint", Value: "start a session with --mirror :7777 --advertise"},
			)
			return nil
		}
		url = endpoints[0].URL()
		p.PrintHeader("Watching", endpoints[0].String(), ui.Param{Key: "URL", Value: url})
	}

	err := mirror.Watch(ctx, url, func(m mirror.Message) {
		p.PrintTranscriptLine(m.Kind, m.Line)
	})
	if err != nil {
		return err
	}
	p.PrintWaiting("Session ended")
	return nil
}
