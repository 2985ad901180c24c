package mirror

import (
	"time"

	"github.com/muurk/nusig/internal/transcript"
)

// Message is the JSON form of one transcript line
type Message struct {
	Kind  string    `json:"kind"`
	Index int       `json:"index"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
	Line  string    `json:"line"`
}

// FromLine converts a transcript line
func FromLine(l transcript.Line) Message {
	return Message{
		Kind:  l.Kind.String(),
		Index: l.Index,
		Text:  l.Text,
		At:    l.At,
		Line:  l.String(),
	}
}
