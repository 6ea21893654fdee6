// Package session runs the per-connection event state machine. A Session
// starts unauthenticated, is admitted by a verified token, handles room,
// direct-message, typing and reaction events, and cleans up exactly once
// when it closes. The coordinator owns no state of its own: every read and
// write goes through the registries below.
package session

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"presence-relay/internal/chat"
)

type Verifier interface {
	Verify(token string) (chat.Identity, error)
}

type Presence interface {
	Connect(userID, username string, h chat.Handle) []chat.User
	Disconnect(userID string, h chat.Handle) (chat.User, bool)
	Lookup(userID string) (chat.User, bool)
	ListOnline() []chat.OnlineUser
}

type Rooms interface {
	List() []chat.RoomSummary
	Exists(roomID string) bool
	Join(userID, roomID string) ([]chat.Message, []string, error)
	LeaveAll(userID string) []string
	Post(roomID, userID, username, content, kind string) (chat.Message, error)
	Toggle(roomID, messageID, userID, symbol string) (chat.Reactions, error)
}

type Conversations interface {
	Append(a, b string, dm chat.DirectMessage) chat.ConversationKey
	Fetch(a, b string, limit int) []chat.DirectMessage
	MarkRead(key chat.ConversationKey, messageID, readerID string) (chat.DirectMessage, error)
}

type Typing interface {
	Start(roomID, userID, username string) []string
	Stop(roomID, userID string) ([]string, bool)
	ClearUser(userID string) map[string][]string
}

type Dispatcher interface {
	ToUser(userID string, ev chat.Event)
	ToRoom(roomID string, ev chat.Event, exclude ...string)
	ToAll(ev chat.Event)
	ToHandle(h chat.Handle, ev chat.Event)
}

// Deps wires a Coordinator to its collaborators.
type Deps struct {
	Verifier      Verifier
	Presence      Presence
	Rooms         Rooms
	Conversations Conversations
	Typing        Typing
	Dispatcher    Dispatcher
	IDs           chat.IDGenerator
	Logger        *slog.Logger

	// DefaultRoom is joined automatically on admission when set.
	DefaultRoom string
	// RateLimit and Burst bound authenticated events per connection.
	// A non-positive RateLimit disables limiting.
	RateLimit float64
	Burst     int
}

// Coordinator creates sessions and holds the shared collaborators.
type Coordinator struct {
	Deps
	now func() time.Time
}

func NewCoordinator(d Deps) *Coordinator {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.IDs == nil {
		d.IDs = chat.UUIDv7{}
	}
	return &Coordinator{Deps: d, now: time.Now}
}

// Open starts an unauthenticated session for handle h.
func (c *Coordinator) Open(h chat.Handle) *Session {
	limit, burst := rate.Inf, 0
	if c.RateLimit > 0 {
		limit, burst = rate.Limit(c.RateLimit), c.Burst
		if burst <= 0 {
			burst = 1
		}
	}
	return &Session{
		coord:   c,
		handle:  h,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (c *Coordinator) broadcastStatus(id chat.Identity, online bool) {
	c.Dispatcher.ToAll(chat.NewEvent(chat.EventUserStatus, chat.UserStatus{
		UserID:   id.UserID,
		Username: id.Username,
		Online:   online,
	}))
}

func (c *Coordinator) broadcastRooms() {
	c.Dispatcher.ToAll(chat.NewEvent(chat.EventRoomsList, c.Rooms.List()))
}

// evict removes userID from every room and typing set and tells the
// affected rooms. It reports whether any room membership changed.
func (c *Coordinator) evict(id chat.Identity) bool {
	left := c.Rooms.LeaveAll(id.UserID)
	for _, roomID := range left {
		c.Dispatcher.ToRoom(roomID, chat.NewEvent(chat.EventRoomUserLeft, chat.MemberChange{
			UserID:   id.UserID,
			Username: id.Username,
			RoomID:   roomID,
		}))
	}
	for roomID, users := range c.Typing.ClearUser(id.UserID) {
		c.Dispatcher.ToRoom(roomID, chat.NewEvent(chat.EventTypingUpdate, chat.TypingUpdate{
			RoomID: roomID,
			Users:  users,
		}))
	}
	return len(left) > 0
}
