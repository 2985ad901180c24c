// Package config provides user preferences for NUSig.
//
// Preferences live in a YAML file stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/nusig/config.yaml or $HOME/.config/nusig/config.yaml
//   - macOS: $HOME/.config/nusig/config.yaml
//   - Windows: %LOCALAPPDATA%\nusig\config.yaml
//
// A missing file means defaults. A partial file overrides only the keys it
// names:
//
//	version: 1
//	scan_window: 8s
//	show_unnamed: true
//	defaults:
//	  device: My_Sensor
//	mirror:
//	  listen: ":7777"
//	  advertise: true
//
// Nothing about a session (the chosen device or characteristics) is ever
// written back. Saves are atomic: the file is written to a .tmp sibling and
// renamed into place.
package config
