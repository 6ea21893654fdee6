package presence

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence-relay/internal/chat/chattest"
)

func TestRegistry_ConnectDisconnect(t *testing.T) {
	r := NewRegistry()
	h := chattest.NewRecorder("alice")

	superseded := r.Connect("u1", "alice", h)
	assert.Empty(t, superseded)

	u, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.True(t, u.Online)
	assert.Equal(t, "alice", u.Username)
	assert.Same(t, h, r.Handle("u1"))

	u, ok = r.Disconnect("u1", h)
	require.True(t, ok)
	assert.False(t, u.Online)
	assert.False(t, u.LastSeen.IsZero())

	// record is retained after disconnect
	u, ok = r.Lookup("u1")
	require.True(t, ok)
	assert.False(t, u.Online)
	assert.Nil(t, r.Handle("u1"))
	assert.Empty(t, r.ListOnline())
}

func TestRegistry_OneOnlineEntryPerUsername(t *testing.T) {
	r := NewRegistry()
	first := chattest.NewRecorder("first")
	second := chattest.NewRecorder("second")

	r.Connect("u1", "alice", first)
	superseded := r.Connect("u2", "alice", second)

	require.Len(t, superseded, 1)
	assert.Equal(t, "u1", superseded[0].ID)

	online := r.ListOnline()
	require.Len(t, online, 1)
	assert.Equal(t, "u2", online[0].ID)

	// the old handle is dropped, not closed
	assert.False(t, first.Closed())
	assert.Nil(t, r.Handle("u1"))
}

func TestRegistry_ReconnectSameUserKeepsNewHandle(t *testing.T) {
	r := NewRegistry()
	old := chattest.NewRecorder("old")
	fresh := chattest.NewRecorder("fresh")

	r.Connect("u1", "alice", old)
	r.Connect("u1", "alice", fresh)

	// the stale connection closing must not take the user offline
	_, ok := r.Disconnect("u1", old)
	assert.False(t, ok)
	assert.Same(t, fresh, r.Handle("u1"))

	_, ok = r.Disconnect("u1", fresh)
	assert.True(t, ok)
	assert.Nil(t, r.Handle("u1"))
}

func TestRegistry_SupersededDisconnectIsNoop(t *testing.T) {
	r := NewRegistry()
	first := chattest.NewRecorder("first")
	r.Connect("u1", "alice", first)
	r.Connect("u2", "alice", chattest.NewRecorder("second"))

	// the supersede already took u1 offline
	u, ok := r.Disconnect("u1", first)
	assert.False(t, ok)
	assert.False(t, u.Online)
	assert.Len(t, r.ListOnline(), 1)
}

func TestRegistry_DisconnectTwice(t *testing.T) {
	r := NewRegistry()
	h := chattest.NewRecorder("alice")
	r.Connect("u1", "alice", h)

	_, ok := r.Disconnect("u1", h)
	assert.True(t, ok)
	_, ok = r.Disconnect("u1", h)
	assert.False(t, ok)
}

func TestRegistry_UnknownUser(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("ghost")
	assert.False(t, ok)
	_, ok = r.Disconnect("ghost", nil)
	assert.False(t, ok)
	assert.Nil(t, r.Handle("ghost"))
}

func TestRegistry_HandlesAndListOnline(t *testing.T) {
	r := NewRegistry()
	r.Connect("u2", "bob", chattest.NewRecorder("bob"))
	r.Connect("u1", "alice", chattest.NewRecorder("alice"))

	online := r.ListOnline()
	require.Len(t, online, 2)
	assert.Equal(t, "alice", online[0].Username)
	assert.Equal(t, "bob", online[1].Username)
	assert.Len(t, r.Handles(), 2)
}

func TestRegistry_ConcurrentConnectDisconnect(t *testing.T) {
	r := NewRegistry()
	const users, rounds = 16, 50

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			id := fmt.Sprintf("u%d", u)
			for i := 0; i < rounds; i++ {
				h := chattest.NewRecorder(id)
				r.Connect(id, id, h)
				_ = r.ListOnline()
				_ = r.Handles()
				_, ok := r.Disconnect(id, h)
				assert.True(t, ok)
			}
			r.Connect(id, id, chattest.NewRecorder(id))
		}(u)
	}
	wg.Wait()

	assert.Len(t, r.ListOnline(), users)
	assert.Len(t, r.Handles(), users)
}
