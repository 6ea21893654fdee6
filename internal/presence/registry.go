// Package presence tracks who is online and through which connection.
package presence

import (
	"sort"
	"sync"
	"time"

	"presence-relay/internal/chat"
)

// Registry is the single source of truth for online state.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*chat.User
	now   func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]*chat.User),
		now:   time.Now,
	}
}

// Connect marks userID online under handle. Any other online entry with the
// same username is taken offline and its handle dropped; those entries are
// returned so the caller can announce them.
func (r *Registry) Connect(userID, username string, h chat.Handle) []chat.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var superseded []chat.User
	for id, u := range r.users {
		if id == userID || u.Username != username || !u.Online {
			continue
		}
		u.Online = false
		u.Handle = nil
		u.LastSeen = now
		superseded = append(superseded, *u)
	}

	u, ok := r.users[userID]
	if !ok {
		u = &chat.User{ID: userID}
		r.users[userID] = u
	}
	u.Username = username
	u.Handle = h
	u.Online = true
	u.LastSeen = now
	return superseded
}

// Disconnect marks userID offline. It is a no-op, returning false, when h
// no longer owns the record: the same user reconnected before the old
// connection went away, or the entry was superseded by username.
func (r *Registry) Disconnect(userID string, h chat.Handle) (chat.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return chat.User{}, false
	}
	if u.Handle != h {
		return *u, false
	}
	u.Online = false
	u.Handle = nil
	u.LastSeen = r.now()
	return *u, true
}

// Lookup returns a copy of the user record.
func (r *Registry) Lookup(userID string) (chat.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return chat.User{}, false
	}
	return *u, true
}

// ListOnline returns a snapshot of online users ordered by username.
func (r *Registry) ListOnline() []chat.OnlineUser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]chat.OnlineUser, 0, len(r.users))
	for _, u := range r.users {
		if u.Online {
			out = append(out, chat.OnlineUser{ID: u.ID, Username: u.Username})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username == out[j].Username {
			return out[i].ID < out[j].ID
		}
		return out[i].Username < out[j].Username
	})
	return out
}

// Handle returns the live handle for userID, or nil when offline.
func (r *Registry) Handle(userID string) chat.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.users[userID]; ok && u.Online {
		return u.Handle
	}
	return nil
}

// Handles returns every live handle.
func (r *Registry) Handles() []chat.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]chat.Handle, 0, len(r.users))
	for _, u := range r.users {
		if u.Online && u.Handle != nil {
			out = append(out, u.Handle)
		}
	}
	return out
}
