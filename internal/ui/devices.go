package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/nusig/internal/gatt"
)

// RenderDeviceTable renders discovered devices as an aligned table with
// address, name and signal strength columns. hidden is the number of
// unnamed devices left out; it is mentioned below the table.
func RenderDeviceTable(devices []gatt.Device, hidden int) string {
	if len(devices) == 0 {
		msg := "  No devices found."
		if hidden > 0 {
			msg += fmt.Sprintf(" %d unnamed device(s) hidden (use --show-unnamed).", hidden)
		}
		return UnnamedStyle.Render(msg)
	}

	addrWidth, nameWidth := len("ADDRESS"), len("NAME")
	for _, d := range devices {
		addrWidth = max(addrWidth, lipgloss.Width(d.Address))
		nameWidth = max(nameWidth, lipgloss.Width(deviceName(d)))
	}

	var b strings.Builder
	row := func(addr, nm, rssi string) string {
		return fmt.Sprintf("  %-*s  %-*s  %s", addrWidth, addr, nameWidth, nm, rssi)
	}

	b.WriteString(TableHeaderStyle.Render(row("ADDRESS", "NAME", "RSSI")))
	for _, d := range devices {
		line := row(d.Address, deviceName(d), rssi(d))
		b.WriteByte('\n')
		if d.Named() {
			b.WriteString(TableCellStyle.Render(line))
		} else {
			b.WriteString(UnnamedStyle.Render(line))
		}
	}
	if hidden > 0 {
		b.WriteByte('\n')
		b.WriteString(UnnamedStyle.Render(fmt.Sprintf("  %d unnamed device(s) hidden (use --show-unnamed)", hidden)))
	}
	return b.String()
}

func deviceName(d gatt.Device) string {
	if d.Named() {
		return d.Name
	}
	return "(unnamed)"
}

func rssi(d gatt.Device) string {
	if d.RSSI == 0 {
		return "-"
	}
	return fmt.Sprintf("%d dBm", d.RSSI)
}
