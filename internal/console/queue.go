package console

import "sync"

// QueueSize bounds the submissions waiting for the engine
const QueueSize = 256

// Queue is an Input fed by a presenter. Push never blocks the UI
// goroutine; Close ends the session.
type Queue struct {
	mu     sync.Mutex
	lines  chan string
	closed bool
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{lines: make(chan string, QueueSize)}
}

// Lines implements Input
func (q *Queue) Lines() <-chan string { return q.lines }

// Push submits a line. It reports false when the queue is closed or full.
func (q *Queue) Push(text string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.lines <- text:
		return true
	default:
		return false
	}
}

// Close closes the queue; later calls are no-ops
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.lines)
	}
}
