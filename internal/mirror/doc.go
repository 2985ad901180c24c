// Package mirror publishes a live, read-only copy of the console
// transcript over WebSocket so other machines can follow a session.
//
// # Protocol
//
// A viewer connects to ws://host:port/transcript. The server first sends
// every line already in the transcript, then each new line as it is
// appended. Each WebSocket text message is one JSON object:
//
//	{"kind":"inbound","index":0,"text":"hello","at":"2026-10-19T10:00:00Z","line":"R0> hello"}
//
// kind is "status", "inbound" or "outbound"; index is the Rx or Tx slot
// (-1 for the operator echo and status lines); line is the rendered form
// shown in the console. Viewers cannot write to the session: anything they
// send is discarded.
//
// # Discovery
//
// With advertising enabled the server registers an mDNS service of type
// _nusig._tcp in the local. domain. Its TXT records carry the path and the
// peripheral being mirrored:
//
//	path=/transcript
//	device=C8:2E:18:00:11:22
//	name=Nordic_UART_Service
//
// Browser finds these advertisements and Watch follows one of them; the
// "nusig watch" command combines the two.
//
// # Slow Viewers
//
// Each viewer has its own subscription to the transcript buffer. Delivery
// never blocks the console: a viewer that falls more than
// transcript.SubscriberBuffer lines behind misses lines instead.
package mirror
