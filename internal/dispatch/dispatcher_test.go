package dispatch

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"presence-relay/internal/chat"
	"presence-relay/internal/chat/chattest"
	"presence-relay/internal/metrics"
	"presence-relay/internal/presence"
	"presence-relay/internal/rooms"
)

func setup(t *testing.T) (*Dispatcher, *presence.Registry, *rooms.Registry, map[string]*chattest.Recorder) {
	t.Helper()
	users := presence.NewRegistry()
	rms := rooms.NewRegistry([]rooms.Spec{{ID: "general", Name: "General"}, {ID: "tech", Name: "Tech"}})

	recs := map[string]*chattest.Recorder{}
	for _, id := range []string{"a", "b", "c"} {
		recs[id] = chattest.NewRecorder(id)
		users.Connect(id, "user-"+id, recs[id])
	}
	_, _, _ = rms.Join("a", "general")
	_, _, _ = rms.Join("b", "general")
	_, _, _ = rms.Join("c", "tech")

	return New(users, rms, nil), users, rms, recs
}

func TestDispatcher_ToUser(t *testing.T) {
	d, users, _, recs := setup(t)

	d.ToUser("a", chat.NewEvent("ping", nil))
	assert.Len(t, recs["a"].Events(), 1)
	assert.Empty(t, recs["b"].Events())

	// offline and unknown users are silent no-ops
	users.Disconnect("b", recs["b"])
	d.ToUser("b", chat.NewEvent("ping", nil))
	d.ToUser("ghost", chat.NewEvent("ping", nil))
	assert.Empty(t, recs["b"].Events())
}

func TestDispatcher_ToRoom(t *testing.T) {
	d, _, _, recs := setup(t)

	d.ToRoom("general", chat.NewEvent("hello", nil))
	assert.Len(t, recs["a"].OfType("hello"), 1)
	assert.Len(t, recs["b"].OfType("hello"), 1)
	assert.Empty(t, recs["c"].OfType("hello"))

	d.ToRoom("general", chat.NewEvent("others", nil), "a")
	assert.Empty(t, recs["a"].OfType("others"))
	assert.Len(t, recs["b"].OfType("others"), 1)

	d.ToRoom("nowhere", chat.NewEvent("void", nil))
	for _, r := range recs {
		assert.Empty(t, r.OfType("void"))
	}
}

func TestDispatcher_ToAll(t *testing.T) {
	d, _, _, recs := setup(t)
	d.ToAll(chat.NewEvent("all", nil))
	for id, r := range recs {
		assert.Len(t, r.OfType("all"), 1, id)
	}
}

func TestDispatcher_ClosesSlowHandle(t *testing.T) {
	d, _, _, recs := setup(t)
	recs["b"].SetFull(true)

	d.ToRoom("general", chat.NewEvent("burst", nil))

	assert.True(t, recs["b"].Closed())
	assert.False(t, recs["a"].Closed())
	assert.Len(t, recs["a"].OfType("burst"), 1)
}

func TestDispatcher_SkipsClosedHandleQuietly(t *testing.T) {
	d, _, _, recs := setup(t)
	recs["b"].Close()
	before := testutil.ToFloat64(metrics.Dropped)

	d.ToAll(chat.NewEvent("shutdown", nil))
	d.ToRoom("general", chat.NewEvent("bye", nil))

	assert.Equal(t, before, testutil.ToFloat64(metrics.Dropped))
	assert.Empty(t, recs["b"].Events())
	assert.Len(t, recs["a"].OfType("bye"), 1)
}

func TestDispatcher_CountsSlowHandleDrop(t *testing.T) {
	d, _, _, recs := setup(t)
	recs["c"].SetFull(true)
	before := testutil.ToFloat64(metrics.Dropped)

	d.ToUser("c", chat.NewEvent("burst", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Dropped))
	assert.True(t, recs["c"].Closed())
}
