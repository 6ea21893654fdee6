// Package rooms owns the static room catalog, room membership and the
// message history of each room, including reactions on those messages.
package rooms

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"presence-relay/internal/chat"
)

// DefaultHistoryLimit is the number of messages retained per room.
const DefaultHistoryLimit = 1000

// Spec provisions one room of the catalog.
type Spec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type room struct {
	id      string
	name    string
	members map[string]struct{}
	history []*chat.Message
}

// Registry holds the room catalog. Rooms are fixed at construction.
type Registry struct {
	mu           sync.RWMutex
	rooms        map[string]*room
	order        []string
	ids          chat.IDGenerator
	historyLimit int
	now          func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithHistoryLimit caps the messages kept per room; older ones are dropped.
func WithHistoryLimit(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.historyLimit = n
		}
	}
}

// WithIDGenerator overrides the message id source.
func WithIDGenerator(g chat.IDGenerator) Option {
	return func(r *Registry) { r.ids = g }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry provisions the given catalog. Duplicate ids keep the first entry.
func NewRegistry(catalog []Spec, opts ...Option) *Registry {
	r := &Registry{
		rooms:        make(map[string]*room, len(catalog)),
		ids:          chat.UUIDv7{},
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	for _, s := range catalog {
		if _, dup := r.rooms[s.ID]; dup {
			continue
		}
		r.rooms[s.ID] = &room{id: s.ID, name: s.Name, members: make(map[string]struct{})}
		r.order = append(r.order, s.ID)
	}
	return r
}

// Exists reports whether roomID is in the catalog.
func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// List returns every room with its current member count, in catalog order.
func (r *Registry) List() []chat.RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]chat.RoomSummary, 0, len(r.order))
	for _, id := range r.order {
		rm := r.rooms[id]
		out = append(out, chat.RoomSummary{ID: rm.id, Name: rm.name, UserCount: len(rm.members)})
	}
	return out
}

// Join moves userID into roomID, removing it from every other room first.
// It returns the tail of the room's history and the rooms that were left.
func (r *Registry) Join(userID, roomID string) ([]chat.Message, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.rooms[roomID]
	if !ok {
		return nil, nil, fmt.Errorf("join %q: %w", roomID, chat.ErrRoomNotFound)
	}

	var left []string
	for _, id := range r.order {
		if id == roomID {
			continue
		}
		rm := r.rooms[id]
		if _, in := rm.members[userID]; in {
			delete(rm.members, userID)
			left = append(left, id)
		}
	}
	target.members[userID] = struct{}{}
	return tail(target.history, chat.HistoryWindow), left, nil
}

// Leave removes userID from roomID and reports whether it was a member.
func (r *Registry) Leave(userID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, in := rm.members[userID]; !in {
		return false
	}
	delete(rm.members, userID)
	return true
}

// LeaveAll removes userID from every room and returns the rooms it left.
func (r *Registry) LeaveAll(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var left []string
	for _, id := range r.order {
		rm := r.rooms[id]
		if _, in := rm.members[userID]; in {
			delete(rm.members, userID)
			left = append(left, id)
		}
	}
	return left
}

// Members returns the user ids currently in roomID.
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(rm.members))
	for id := range rm.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsMember reports whether userID is in roomID.
func (r *Registry) IsMember(userID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	_, in := rm.members[userID]
	return in
}

// Post appends a new message to roomID's history and returns it.
func (r *Registry) Post(roomID, userID, username, content, kind string) (chat.Message, error) {
	if kind == "" {
		kind = chat.DefaultMessageType
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return chat.Message{}, fmt.Errorf("post to %q: %w", roomID, chat.ErrRoomNotFound)
	}

	msg := &chat.Message{
		ID:        r.ids.NewID(),
		UserID:    userID,
		Username:  username,
		Content:   content,
		Type:      kind,
		Timestamp: r.now(),
		RoomID:    roomID,
		Reactions: chat.Reactions{},
	}
	rm.history = append(rm.history, msg)
	if over := len(rm.history) - r.historyLimit; over > 0 {
		// drop references so trimmed messages can be collected
		clear(rm.history[:over])
		rm.history = rm.history[over:]
	}
	return copyMessage(msg), nil
}

// History returns the last limit messages of roomID; limit <= 0 means all.
func (r *Registry) History(roomID string, limit int) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("history of %q: %w", roomID, chat.ErrRoomNotFound)
	}
	if limit <= 0 {
		limit = len(rm.history)
	}
	return tail(rm.history, limit), nil
}

func tail(history []*chat.Message, limit int) []chat.Message {
	start := len(history) - limit
	if start < 0 {
		start = 0
	}
	out := make([]chat.Message, 0, len(history)-start)
	for _, m := range history[start:] {
		out = append(out, copyMessage(m))
	}
	return out
}

func copyMessage(m *chat.Message) chat.Message {
	c := *m
	c.Reactions = copyReactions(m.Reactions)
	return c
}
