package typing

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_StartStop(t *testing.T) {
	tr := NewTracker()

	assert.Equal(t, []string{"bob"}, tr.Start("general", "u2", "bob"))
	assert.Equal(t, []string{"alice", "bob"}, tr.Start("general", "u1", "alice"))
	// starting twice is harmless
	assert.Equal(t, []string{"alice", "bob"}, tr.Start("general", "u1", "alice"))

	users, changed := tr.Stop("general", "u1")
	assert.True(t, changed)
	assert.Equal(t, []string{"bob"}, users)

	users, changed = tr.Stop("general", "u2")
	assert.True(t, changed)
	assert.Equal(t, []string{}, users)
	assert.Empty(t, tr.Current("general"))

	// stopping in an unknown room is a no-op
	users, changed = tr.Stop("nowhere", "u1")
	assert.False(t, changed)
	assert.Empty(t, users)
}

func TestTracker_ClearUser(t *testing.T) {
	tr := NewTracker()
	tr.Start("general", "u1", "alice")
	tr.Start("general", "u2", "bob")
	tr.Start("tech", "u1", "alice")
	tr.Start("random", "u2", "bob")

	changed := tr.ClearUser("u1")
	assert.Equal(t, map[string][]string{
		"general": {"bob"},
		"tech":    {},
	}, changed)

	assert.Equal(t, []string{"bob"}, tr.Current("general"))
	assert.Empty(t, tr.Current("tech"))
	assert.Equal(t, []string{"bob"}, tr.Current("random"))
	assert.Empty(t, tr.ClearUser("u1"))
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker()
	const users = 16

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			id := fmt.Sprintf("u%d", u)
			for i := 0; i < 50; i++ {
				tr.Start("general", id, id)
				tr.Start("tech", id, id)
				_ = tr.Current("general")
				tr.Stop("general", id)
				tr.ClearUser(id)
			}
			tr.Start("general", id, id)
		}(u)
	}
	wg.Wait()

	assert.Len(t, tr.Current("general"), users)
	assert.Empty(t, tr.Current("tech"))
}
