// Package tui implements the full-screen terminal interface for NUSig.
//
// Presenter satisfies wizard.Presenter, so the selection wizard runs
// unchanged on top of it, and adds Console for the live session. Each
// prompt is its own short-lived Bubble Tea program; all of them render
// through RenderApplicationContainer so the layout stays the same from
// screen to screen.
//
// # Screens
//
//   - Wait: spinner and elapsed time while discovery runs. Esc goes back.
//   - Chooser: single choice (device) or checklist (services, Rx, Tx) with
//     the defaults pre-selected. Enter accepts, Esc goes back, r refreshes,
//     s shows or hides unnamed devices on the device list.
//   - Confirm: the yes/no quit dialog.
//   - Console: the transcript in a viewport that follows new lines unless
//     the operator has scrolled up, with a "T> " input line. Esc quits.
//
// ctrl+c anywhere ends the wizard without asking (wizard.ErrQuit).
//
// # Usage Example
//
//	p := tui.NewPresenter(version.Version, nil, nil)
//	settings, err := wizard.New(wizard.Config{Presenter: p, ...}).Run(ctx)
//	...
//	err = p.Console(ctx, console.Title(version.Version, settings.Device()), buf, engine)
package tui
