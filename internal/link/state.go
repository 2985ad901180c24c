package link

import "fmt"

// State is the link manager's view of the connection
type State int

const (
	// Disconnected means no usable connection; the next operation reconnects
	Disconnected State = iota
	// Connecting means a connect or reconnect attempt is in flight
	Connecting
	// Ready means connected with every requested subscription active
	Ready
	// Degraded means connected but at least one subscription failed
	Degraded
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Degraded:
		return "degraded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
