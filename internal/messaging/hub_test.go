package messaging

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastDropsStalledClient(t *testing.T) {
	h := NewHub()
	stalled := &client{send: make(chan []byte, 1)}
	live := &client{send: make(chan []byte, sendQueue)}
	other := &client{send: make(chan []byte, sendQueue)}
	h.register("conv-1", stalled)
	h.register("conv-1", live)
	h.register("conv-2", other)

	h.Broadcast("conv-1", "message_new", map[string]string{"content": "un"})
	h.Broadcast("conv-1", "message_new", map[string]string{"content": "deux"})
	h.Broadcast("conv-2", "message_new", map[string]string{"content": "ailleurs"})

	require.Len(t, live.send, 2)
	var evt wsEvent
	require.NoError(t, json.Unmarshal(<-live.send, &evt))
	assert.Equal(t, "message_new", evt.Type)
	assert.Len(t, other.send, 1)

	// The stalled client keeps its first event, then its queue is closed.
	<-stalled.send
	_, open := <-stalled.send
	assert.False(t, open)
	assert.NotContains(t, h.rooms["conv-1"], stalled)

	// Unregistering an already dropped client is a no-op.
	assert.NotPanics(t, func() { h.unregister("conv-1", stalled) })
}
