// Package typing tracks which users are composing a message in each room.
// Entries live until an explicit stop or until the user is cleared on
// disconnect; there is no server-side expiry.
package typing

import (
	"sort"
	"sync"
)

// Tracker maps roomID to the users typing there.
type Tracker struct {
	mu    sync.RWMutex
	rooms map[string]map[string]string // roomID -> userID -> username
}

func NewTracker() *Tracker {
	return &Tracker{rooms: make(map[string]map[string]string)}
}

// Start flags userID as typing in roomID and returns the room's usernames.
func (t *Tracker) Start(roomID, userID, username string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.rooms[roomID]
	if !ok {
		set = make(map[string]string)
		t.rooms[roomID] = set
	}
	set[userID] = username
	return names(set)
}

// Stop clears userID's flag in roomID and returns the room's usernames,
// plus whether the user had been typing there.
func (t *Tracker) Stop(roomID, userID string) ([]string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.rooms[roomID]
	_, was := set[userID]
	delete(set, userID)
	if len(set) == 0 {
		delete(t.rooms, roomID)
	}
	return names(set), was
}

// Current returns the usernames typing in roomID, sorted.
func (t *Tracker) Current(roomID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return names(t.rooms[roomID])
}

// ClearUser removes userID from every room and returns the rooms whose
// typing set changed, mapped to the set that remains.
func (t *Tracker) ClearUser(userID string) map[string][]string {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := make(map[string][]string)
	for roomID, set := range t.rooms {
		if _, ok := set[userID]; !ok {
			continue
		}
		delete(set, userID)
		changed[roomID] = names(set)
		if len(set) == 0 {
			delete(t.rooms, roomID)
		}
	}
	return changed
}

func names(set map[string]string) []string {
	out := make([]string, 0, len(set))
	for _, name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
