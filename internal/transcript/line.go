package transcript

import (
	"fmt"
	"time"
)

// Kind tags the origin of a transcript line
type Kind int

const (
	// Status lines report link events and failures
	Status Kind = iota
	// Inbound lines carry data received on an Rx characteristic
	Inbound
	// Outbound lines echo operator input sent to the Tx characteristics
	Outbound
)

// EchoIndex is the Index of an operator echo, which is not tied to one Tx target
const EchoIndex = -1

// String returns the lower-case kind name
func (k Kind) String() string {
	switch k {
	case Status:
		return "status"
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Line is one transcript entry. Lines are never mutated once appended.
type Line struct {
	Kind  Kind
	Index int
	Text  string
	At    time.Time
}

// NewStatus creates a status line
func NewStatus(text string) Line {
	return Line{Kind: Status, Index: EchoIndex, Text: text}
}

// NewStatusf creates a formatted status line
func NewStatusf(format string, args ...any) Line {
	return NewStatus(fmt.Sprintf(format, args...))
}

// NewInbound creates a line received on Rx slot i
func NewInbound(i int, text string) Line {
	return Line{Kind: Inbound, Index: i, Text: text}
}

// NewOutbound creates the echo of operator input
func NewOutbound(text string) Line {
	return Line{Kind: Outbound, Index: EchoIndex, Text: text}
}

// String renders the line as shown in the console: "R0> hello",
// "Tx> ping", or the bare status text.
func (l Line) String() string {
	switch l.Kind {
	case Inbound:
		return fmt.Sprintf("R%d> %s", l.Index, l.Text)
	case Outbound:
		if l.Index == EchoIndex {
			return "Tx> " + l.Text
		}
		return fmt.Sprintf("Tx%d> %s", l.Index, l.Text)
	default:
		return l.Text
	}
}
