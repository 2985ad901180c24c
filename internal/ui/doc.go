// Package ui renders the output of the one-shot nusig commands (scan,
// config, version, watch) with Lipgloss.
//
// Unlike the interactive wizard, nothing here reads input: components are
// rendered to a string and printed by a Printer.
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Device scan", "nusig scan", ui.Param{Key: "Window", Value: "5s"})
//	p.Println(ui.RenderDeviceTable(devices, hidden))
//
// Logging stays silent unless NUSIG_LOG_LEVEL is set, so the styled
// output is not interleaved with log lines.
package ui
