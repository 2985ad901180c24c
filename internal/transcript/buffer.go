// Package transcript holds the console scrollback: an append-only sequence
// of tagged lines shared by the notification path and the operator echo.
package transcript

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/nusig/internal/logging"
)

// SubscriberBuffer is the channel capacity given to each subscriber
const SubscriberBuffer = 256

// Buffer is the append-only transcript. It is safe for concurrent use; each
// Append is atomic with respect to readers and other appends.
type Buffer struct {
	mu     sync.Mutex
	lines  []Line
	text   strings.Builder
	subs   map[int]chan Line
	nextID int
	now    func() time.Time
}

// NewBuffer creates an empty transcript
func NewBuffer() *Buffer {
	return &Buffer{
		subs: make(map[int]chan Line),
		now:  time.Now,
	}
}

// Append adds a line and notifies subscribers. A zero At is stamped with
// the current time. Subscribers that are not keeping up miss the line.
func (b *Buffer) Append(l Line) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if l.At.IsZero() {
		l.At = b.now()
	}
	if len(b.lines) > 0 {
		b.text.WriteByte('\n')
	}
	b.text.WriteString(l.String())
	b.lines = append(b.lines, l)

	for id, ch := range b.subs {
		select {
		case ch <- l:
		default:
			logging.Debug("Transcript subscriber lagging, line skipped",
				zap.Int("subscriber", id),
				zap.String("kind", l.Kind.String()),
			)
		}
	}
}

// Lines returns a copy of all lines in append order
func (b *Buffer) Lines() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Line(nil), b.lines...)
}

// Since returns a copy of the lines appended after the first n. Viewers
// that treat a subscription as a change signal use it to catch up, so a
// notification missed while lagging never costs them a line.
func (b *Buffer) Since(n int) []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n >= len(b.lines) {
		return nil
	}
	return append([]Line(nil), b.lines[n:]...)
}

// Text returns the rendered transcript: one line break between lines and
// none before the first.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text.String()
}

// Len returns the number of lines appended so far
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// Subscribe returns a channel receiving every line appended from now on.
// The cancel function closes the channel.
func (b *Buffer) Subscribe() (<-chan Line, func()) {
	_, ch, cancel := b.Tail()
	return ch, cancel
}

// Tail atomically returns the current lines and a subscription to the lines
// appended after them, so a late viewer misses nothing.
func (b *Buffer) Tail() ([]Line, <-chan Line, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Line, SubscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return append([]Line(nil), b.lines...), ch, cancel
}
