package config

import (
	"fmt"
	"time"

	"github.com/muurk/nusig/internal/ble"
	"github.com/muurk/nusig/internal/catalog"
	"github.com/muurk/nusig/internal/link"
	"github.com/muurk/nusig/internal/logging"
)

// CurrentVersion is the config file format version
const CurrentVersion = 1

// Config represents the entire user configuration file.
// Only preferences are stored; nothing about a session is persisted.
type Config struct {
	Version int `yaml:"version"`

	// Adapter is the BlueZ controller name (e.g. "hci0")
	Adapter string `yaml:"adapter"`

	DiscoveryInterval time.Duration `yaml:"discovery_interval"` // Retry cadence while a stage has no candidates
	ScanWindow        time.Duration `yaml:"scan_window"`        // Advertisement listening time per discovery
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`    // Bound on each connect attempt (0 = BlueZ default)
	WritePacing       time.Duration `yaml:"write_pacing"`       // Delay between Tx targets (0 = default, negative = none)

	// ShowUnnamed lists devices without an advertised name from the start
	ShowUnnamed bool `yaml:"show_unnamed"`

	// Defaults are the label suffixes pre-selected at each wizard stage
	Defaults catalog.Defaults `yaml:"defaults"`

	Wizard WizardPrefs `yaml:"wizard"`

	LogLevel string `yaml:"log_level,omitempty"`
	LogFile  string `yaml:"log_file,omitempty"`

	Mirror MirrorPrefs `yaml:"mirror"`
}

// WizardPrefs tunes the selection wizard
type WizardPrefs struct {
	// DisjointTx leaves characteristics already chosen for Rx out of the Tx list
	DisjointTx bool `yaml:"disjoint_tx"`
}

// MirrorPrefs configures the transcript mirror
type MirrorPrefs struct {
	Listen    string `yaml:"listen,omitempty"` // Address to serve viewers on; empty disables the mirror
	Advertise bool   `yaml:"advertise"`        // Announce the mirror over mDNS
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Version:           CurrentVersion,
		Adapter:           ble.DefaultAdapterName,
		DiscoveryInterval: catalog.DefaultInterval,
		ScanWindow:        ble.DefaultScanWindow,
		ConnectTimeout:    ble.DefaultResolveTimeout,
		WritePacing:       link.DefaultWritePacing,
		Defaults:          catalog.DefaultSuffixes,
	}
}

// Validate checks the values that cannot be corrected silently
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.DiscoveryInterval < 0 {
		return fmt.Errorf("discovery_interval must not be negative: %s", c.DiscoveryInterval)
	}
	if c.ScanWindow < 0 {
		return fmt.Errorf("scan_window must not be negative: %s", c.ScanWindow)
	}
	if c.ConnectTimeout < 0 {
		return fmt.Errorf("connect_timeout must not be negative: %s", c.ConnectTimeout)
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if c.Mirror.Advertise && c.Mirror.Listen == "" {
		return fmt.Errorf("mirror.advertise requires mirror.listen")
	}
	return nil
}

// LinkOptions returns the link manager options derived from the config
func (c *Config) LinkOptions() link.Options {
	return link.Options{
		WritePacing:    c.WritePacing,
		ConnectTimeout: c.ConnectTimeout,
	}
}

// BLEOptions returns the transport options derived from the config
func (c *Config) BLEOptions() ble.Options {
	return ble.Options{
		Adapter:        c.Adapter,
		ScanWindow:     c.ScanWindow,
		ConnectTimeout: c.ConnectTimeout,
	}
}
