package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelHub_JoinIsIdempotent(t *testing.T) {
	h := NewChannelHub()
	c := newClient("c1", "", 1)

	assert.True(t, h.Join("chat-1", c))
	assert.False(t, h.Join("chat-1", c))
	assert.Len(t, h.Members("chat-1"), 1)
}

func TestChannelHub_LeaveAllDropsEmptyChannels(t *testing.T) {
	h := NewChannelHub()
	a := newClient("a", "", 1)
	b := newClient("b", "", 1)

	h.Join("chat-1", a)
	h.Join("chat-2", a)
	h.Join("chat-2", b)
	assert.Equal(t, 2, h.Len())

	h.LeaveAll(a)
	assert.Empty(t, h.Members("chat-1"))
	assert.Equal(t, []*Client{b}, h.Members("chat-2"))
	assert.Equal(t, 1, h.Len())

	h.LeaveAll(b)
	assert.Equal(t, 0, h.Len())
}

func TestClient_EnqueueAfterCloseIsDropped(t *testing.T) {
	c := newClient("c1", "", 1)
	assert.True(t, c.enqueue([]byte("a")))
	assert.False(t, c.enqueue([]byte("b")), "queue full")

	c.close()
	c.close()
	assert.False(t, c.enqueue([]byte("c")))
	assert.True(t, c.isClosed())
}
