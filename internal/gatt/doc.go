// Package gatt defines the data model shared by every NUSig component: the
// discovered Device, its Services and Characteristics, capability flags,
// the frozen SessionSettings produced by the wizard, and the Transport/Link
// contracts implemented by concrete Bluetooth backends.
//
// # Capability Classification
//
// A characteristic is an Rx candidate when it can be notified or read, and a
// Tx candidate when it can be written with or without response. A single
// characteristic may be both:
//
//	caps := gatt.ParseCapabilities([]string{"read", "write"})
//	caps.Has(gatt.RxCaps) // true
//	caps.Has(gatt.TxCaps) // true
//
// # Labels
//
// Services and characteristics render as "<uuid> (Handle: N): <Description>"
// so that well-known names such as "Nordic UART TX" sit at the end of the
// label and can be matched by suffix.
//
// # Errors
//
// Transport failures are classified with *LinkError, whose Kind is one of the
// package sentinels (ErrConnect, ErrSubscribe, ErrRead, ErrWrite, ErrLinkLost):
//
//	if errors.Is(err, gatt.ErrLinkLost) {
//	    // retried lazily on next use
//	}
package gatt
