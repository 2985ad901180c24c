// Package catalog builds the per-stage candidate lists shown by the
// selection wizard: discovered devices, the chosen device's services, and
// the Rx/Tx characteristic candidates of the chosen services.
package catalog

import (
	"fmt"
	"strings"

	"github.com/muurk/nusig/internal/gatt"
)

// Stage identifies which wizard stage a catalog serves
type Stage int

const (
	StageDevice Stage = iota
	StageServices
	StageRx
	StageTx
)

// String returns the breadcrumb name of the stage
func (s Stage) String() string {
	switch s {
	case StageDevice:
		return "Device"
	case StageServices:
		return "Services"
	case StageRx:
		return "Rx"
	case StageTx:
		return "Tx"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Defaults holds the label suffix pre-selected at each stage. The
// characteristic names are from the peripheral's perspective: the console
// listens to the peripheral's TX and writes to its RX.
type Defaults struct {
	Device   string `yaml:"device"`
	Services string `yaml:"services"`
	Rx       string `yaml:"rx"`
	Tx       string `yaml:"tx"`
}

// DefaultSuffixes targets a Nordic UART Service peripheral
var DefaultSuffixes = Defaults{
	Device:   "Nordic_UART_Service",
	Services: "Nordic UART Service",
	Rx:       "Nordic UART TX",
	Tx:       "Nordic UART RX",
}

// For returns the suffix for a stage
func (d Defaults) For(s Stage) string {
	switch s {
	case StageDevice:
		return d.Device
	case StageServices:
		return d.Services
	case StageRx:
		return d.Rx
	case StageTx:
		return d.Tx
	default:
		return ""
	}
}

// Catalog is an immutable snapshot of the candidates for one stage
type Catalog struct {
	Stage Stage

	// Devices are the candidates at StageDevice, after the unnamed filter
	Devices []gatt.Device
	// Hidden is the number of unnamed devices removed by the filter
	Hidden int

	// Services are the candidates at StageServices
	Services []gatt.Service

	// Chars are the candidates at StageRx or StageTx
	Chars []gatt.Characteristic
}

// Len returns the number of candidates
func (c Catalog) Len() int {
	switch c.Stage {
	case StageDevice:
		return len(c.Devices)
	case StageServices:
		return len(c.Services)
	default:
		return len(c.Chars)
	}
}

// Labels renders every candidate, in order
func (c Catalog) Labels() []string {
	labels := make([]string, 0, c.Len())
	switch c.Stage {
	case StageDevice:
		for _, d := range c.Devices {
			labels = append(labels, d.Label())
		}
	case StageServices:
		for _, s := range c.Services {
			labels = append(labels, s.Label())
		}
	default:
		for _, ch := range c.Chars {
			labels = append(labels, ch.Label())
		}
	}
	return labels
}

// Defaults returns the indices whose label ends with suffix
func (c Catalog) Defaults(suffix string) []int {
	if suffix == "" {
		return nil
	}
	var idx []int
	for i, l := range c.Labels() {
		if strings.HasSuffix(l, suffix) {
			idx = append(idx, i)
		}
	}
	return idx
}

// FilterNamed drops unnamed devices unless showUnnamed is set
func FilterNamed(devices []gatt.Device, showUnnamed bool) (shown []gatt.Device, hidden int) {
	if showUnnamed {
		return append([]gatt.Device(nil), devices...), 0
	}
	for _, d := range devices {
		if d.Named() {
			shown = append(shown, d)
		} else {
			hidden++
		}
	}
	return shown, hidden
}

// Classify splits the characteristics of services into Rx and Tx
// candidates in one pass. It has no side effects. A characteristic that is
// both readable and writable appears once in each list.
func Classify(services []gatt.Service) (rx, tx []gatt.Characteristic) {
	for _, s := range services {
		for _, c := range s.Characteristics {
			if c.IsRx() {
				rx = append(rx, c)
			}
			if c.IsTx() {
				tx = append(tx, c)
			}
		}
	}
	return rx, tx
}

// Exclude returns chars without the ones whose ID appears in drop
func Exclude(chars, drop []gatt.Characteristic) []gatt.Characteristic {
	if len(drop) == 0 {
		return chars
	}
	ids := make(map[string]bool, len(drop))
	for _, c := range drop {
		ids[c.ID] = true
	}
	out := make([]gatt.Characteristic, 0, len(chars))
	for _, c := range chars {
		if !ids[c.ID] {
			out = append(out, c)
		}
	}
	return out
}
