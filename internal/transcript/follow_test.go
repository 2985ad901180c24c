package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeViewport shows `height` lines starting at offset.
type fakeViewport struct {
	lines  []string
	offset int
	height int
}

func (v *fakeViewport) AtBottom() bool {
	return v.offset >= v.maxOffset()
}

func (v *fakeViewport) SetContent(content string) {
	v.lines = strings.Split(content, "\n")
	if v.offset > v.maxOffset() {
		v.offset = v.maxOffset()
	}
}

func (v *fakeViewport) GotoBottom() {
	v.offset = v.maxOffset()
}

func (v *fakeViewport) maxOffset() int {
	if n := len(v.lines) - v.height; n > 0 {
		return n
	}
	return 0
}

func TestFollowSticksToBottom(t *testing.T) {
	b := NewBuffer()
	vp := &fakeViewport{height: 2}

	for i := 0; i < 5; i++ {
		b.Append(NewInbound(0, "x"))
		assert.True(t, Follow(vp, b.Text()))
	}
	assert.Equal(t, 3, vp.offset)
	assert.True(t, vp.AtBottom())
}

func TestFollowRespectsScrolledUpViewer(t *testing.T) {
	b := NewBuffer()
	vp := &fakeViewport{height: 2}
	for i := 0; i < 5; i++ {
		b.Append(NewInbound(0, "x"))
		Follow(vp, b.Text())
	}

	vp.offset = 1
	b.Append(NewInbound(0, "y"))
	assert.False(t, Follow(vp, b.Text()))
	assert.Equal(t, 1, vp.offset, "viewer reading history is not moved")
}
