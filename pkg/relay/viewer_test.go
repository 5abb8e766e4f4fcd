package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewerEnqueueSkipsWhenFull(t *testing.T) {
	v := &viewer{send: make(chan []byte, 1), done: make(chan struct{})}

	assert.True(t, v.enqueue([]byte("a")))
	assert.False(t, v.enqueue([]byte("b")), "full buffer must skip, not block")

	<-v.send
	assert.True(t, v.enqueue([]byte("c")))
}

func TestViewerEnqueueAfterDone(t *testing.T) {
	v := &viewer{send: make(chan []byte, 4), done: make(chan struct{})}
	close(v.done)

	assert.False(t, v.enqueue([]byte("a")))
	assert.Empty(t, v.send)
}
