// Package wizard drives the four-step selection flow that precedes the
// console: device, services, Rx characteristics, Tx characteristics.
//
// The flow is an explicit state machine (see Next) run by Run against an
// abstract Presenter, so the same logic backs the Bubble Tea screens in
// the tui subpackage and the line-mode prompts in internal/lineui.
package wizard
