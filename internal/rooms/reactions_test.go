package rooms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence-relay/internal/chat"
)

func TestToggle_AddThenRemove(t *testing.T) {
	r := NewRegistry(catalog)
	msg, err := r.Post("general", "x", "xavier", "look at this", "")
	require.NoError(t, err)

	reactions, err := r.Toggle("general", msg.ID, "y", "👍")
	require.NoError(t, err)
	assert.Equal(t, chat.Reactions{"👍": {"y"}}, reactions)

	reactions, err = r.Toggle("general", msg.ID, "y", "👍")
	require.NoError(t, err)
	assert.Empty(t, reactions)
}

func TestToggle_TwiceRestoresState(t *testing.T) {
	r := NewRegistry(catalog)
	msg, err := r.Post("general", "x", "xavier", "hi", "")
	require.NoError(t, err)
	_, err = r.Toggle("general", msg.ID, "a", "🎉")
	require.NoError(t, err)
	before, err := r.Toggle("general", msg.ID, "b", "🎉")
	require.NoError(t, err)

	for _, sym := range []string{"🎉", "❤️"} {
		_, err = r.Toggle("general", msg.ID, "c", sym)
		require.NoError(t, err)
		after, err := r.Toggle("general", msg.ID, "c", sym)
		require.NoError(t, err)
		assert.Equal(t, before, after, "symbol %s", sym)
	}
}

func TestToggle_MultipleSymbols(t *testing.T) {
	r := NewRegistry(catalog)
	msg, err := r.Post("general", "x", "xavier", "hi", "")
	require.NoError(t, err)

	_, err = r.Toggle("general", msg.ID, "y", "👍")
	require.NoError(t, err)
	reactions, err := r.Toggle("general", msg.ID, "y", "😂")
	require.NoError(t, err)

	assert.Equal(t, chat.Reactions{"👍": {"y"}, "😂": {"y"}}, reactions)
}

func TestToggle_Errors(t *testing.T) {
	r := NewRegistry(catalog)
	msg, err := r.Post("general", "x", "xavier", "hi", "")
	require.NoError(t, err)

	_, err = r.Toggle("nowhere", msg.ID, "y", "👍")
	assert.ErrorIs(t, err, chat.ErrRoomNotFound)

	_, err = r.Toggle("general", "missing", "y", "👍")
	assert.ErrorIs(t, err, chat.ErrMessageNotFound)

	// a message posted elsewhere is not found in another room
	_, err = r.Toggle("random", msg.ID, "y", "👍")
	assert.ErrorIs(t, err, chat.ErrMessageNotFound)
}
