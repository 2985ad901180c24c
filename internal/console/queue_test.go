package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	q := NewQueue()
	assert.True(t, q.Push("a"))
	assert.True(t, q.Push(""))

	assert.Equal(t, "a", <-q.Lines())
	assert.Equal(t, "", <-q.Lines())

	q.Close()
	q.Close()
	assert.False(t, q.Push("late"))

	_, ok := <-q.Lines()
	assert.False(t, ok)
}

func TestQueueFull(t *testing.T) {
	q := NewQueue()
	for i := 0; i < QueueSize; i++ {
		assert.True(t, q.Push("x"))
	}
	assert.False(t, q.Push("overflow"))
}
