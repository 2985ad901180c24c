package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/nusig/internal/config"
	"github.com/muurk/nusig/internal/logging"
)

// Global flags
var (
	configPath     string
	adapterName    string
	logLevel       string
	logFile        string
	plain          bool
	showUnnamed    bool
	scanWindow     time.Duration
	connectTimeout time.Duration
)

// Session flags, shared by the wizard and the console command
var (
	mirrorAddr  string
	advertise   bool
	writePacing time.Duration
	disjointTx  bool
)

// cfg is the loaded configuration with flag overrides applied
var cfg *config.Config

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default: <config dir>/nusig/config.yaml)")
	pf.StringVar(&adapterName, "adapter", "", "Bluetooth controller (default hci0)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); logging is off when unset")
	pf.StringVar(&logFile, "log-file", "", "Log file (default: <config dir>/nusig/nusig.log)")
	pf.BoolVar(&plain, "plain", false, "Use numbered prompts instead of the full-screen interface")
	pf.BoolVar(&showUnnamed, "show-unnamed", false, "List devices that advertise no name")
	pf.DurationVar(&scanWindow, "scan-window", 0, "How long each scan listens for advertisements (default 5s)")
	pf.DurationVar(&connectTimeout, "connect-timeout", 0, "Bound on connecting and resolving services (default 20s)")

	addSessionFlags(rootCmd)
}

func addSessionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&mirrorAddr, "mirror", "", "Serve a read-only copy of the transcript over WebSocket on this address (e.g. :7777)")
	f.BoolVar(&advertise, "advertise", false, "Announce the mirror over mDNS (requires --mirror)")
	f.DurationVar(&writePacing, "pacing", 0, "Delay between writes to successive Tx characteristics (default 100ms, negative disables)")
	f.BoolVar(&disjointTx, "disjoint-tx", false, "Leave characteristics chosen for Rx out of the Tx list")
}

// setup loads the configuration, applies flag overrides and starts logging
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	flags := cmd.Flags()
	if flags.Changed("adapter") {
		cfg.Adapter = adapterName
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}
	if flags.Changed("show-unnamed") {
		cfg.ShowUnnamed = showUnnamed
	}
	if flags.Changed("scan-window") {
		cfg.ScanWindow = scanWindow
	}
	if flags.Changed("connect-timeout") {
		cfg.ConnectTimeout = connectTimeout
	}
	if flags.Lookup("mirror") != nil {
		if flags.Changed("mirror") {
			cfg.Mirror.Listen = mirrorAddr
		}
		if flags.Changed("advertise") {
			cfg.Mirror.Advertise = advertise
		}
		if flags.Changed("pacing") {
			cfg.WritePacing = writePacing
		}
		if flags.Changed("disjoint-tx") {
			cfg.Wizard.DisjointTx = disjointTx
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	path := cfg.LogFile
	if path == "" && os.Getenv(logging.LogFileEnvVar) == "" {
		// the terminal belongs to the interface
		if p, err := config.GetLogPath(); err == nil {
			path = p
		}
	}
	if err := logging.Initialize(cfg.LogLevel, path); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Debug("Configuration loaded",
		zap.String("adapter", cfg.Adapter),
		zap.Duration("scan_window", cfg.ScanWindow),
		zap.Duration("write_pacing", cfg.WritePacing),
		zap.String("mirror", cfg.Mirror.Listen),
	)
	return nil
}

// skipSetup replaces setup for commands that must not read the config
func skipSetup(cmd *cobra.Command, args []string) error {
	return nil
}

// interactive reports whether the full-screen interface can be used
func interactive() bool {
	return !plain && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
