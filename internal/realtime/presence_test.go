package realtime

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresence_RegisterThenUnregister(t *testing.T) {
	p := NewPresenceRegistry()
	for i := 0; i < 20; i++ {
		user, conn := fmt.Sprintf("u%d", i), fmt.Sprintf("c%d", i)
		p.Register(user, conn)
		assert.True(t, p.IsOnline(user))

		got, removed := p.Unregister(conn)
		assert.True(t, removed)
		assert.Equal(t, user, got)
		assert.NotContains(t, p.List(), user)
	}
	assert.Empty(t, p.List())
}

func TestPresence_LatestRegistrationWins(t *testing.T) {
	p := NewPresenceRegistry()
	p.Register("alice", "c1")
	p.Register("alice", "c2")

	assert.Equal(t, []string{"alice"}, p.List())
	conn, ok := p.ConnectionOf("alice")
	assert.True(t, ok)
	assert.Equal(t, "c2", conn)

	// the superseded connection no longer owns an entry
	_, removed := p.Unregister("c1")
	assert.False(t, removed)
	assert.True(t, p.IsOnline("alice"))

	_, removed = p.Unregister("c2")
	assert.True(t, removed)
	assert.False(t, p.IsOnline("alice"))
}

func TestPresence_UnregisterUnknownIsNoop(t *testing.T) {
	p := NewPresenceRegistry()
	p.Register("bob", "c1")

	user, removed := p.Unregister("never-registered")
	assert.False(t, removed)
	assert.Empty(t, user)
	assert.Equal(t, []string{"bob"}, p.List())
}

func TestPresence_RebindConnection(t *testing.T) {
	p := NewPresenceRegistry()
	p.Register("alice", "c1")
	p.Register("mallory", "c1")

	assert.Equal(t, []string{"mallory"}, p.List())
	user, removed := p.Unregister("c1")
	assert.True(t, removed)
	assert.Equal(t, "mallory", user)
	assert.Empty(t, p.List())
}

func TestPresence_SnapshotIsCopy(t *testing.T) {
	p := NewPresenceRegistry()
	p.Register("alice", "c1")
	snap := p.Snapshot()
	snap["bob"] = "c9"
	assert.False(t, p.IsOnline("bob"))
	assert.Equal(t, map[string]string{"alice": "c1"}, p.Snapshot())
}
