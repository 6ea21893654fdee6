// Package conversations stores direct-message history between pairs of users.
package conversations

import (
	"fmt"
	"sync"

	"presence-relay/internal/chat"
)

// DefaultHistoryLimit is the number of messages retained per conversation.
const DefaultHistoryLimit = 1000

// Store keeps one ordered history per ConversationKey.
type Store struct {
	mu    sync.RWMutex
	convs map[chat.ConversationKey][]*chat.DirectMessage
	limit int
}

// NewStore creates a store retaining at most limit messages per
// conversation; limit <= 0 selects DefaultHistoryLimit.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Store{
		convs: make(map[chat.ConversationKey][]*chat.DirectMessage),
		limit: limit,
	}
}

// Append adds dm to the conversation between a and b.
func (s *Store) Append(a, b string, dm chat.DirectMessage) chat.ConversationKey {
	key := chat.ConversationKeyFor(a, b)
	m := dm

	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.convs[key], &m)
	if over := len(h) - s.limit; over > 0 {
		clear(h[:over])
		h = h[over:]
	}
	s.convs[key] = h
	return key
}

// Fetch returns the last limit messages between a and b in send order.
// Argument order does not matter.
func (s *Store) Fetch(a, b string, limit int) []chat.DirectMessage {
	key := chat.ConversationKeyFor(a, b)

	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.convs[key]
	if limit <= 0 || limit > len(h) {
		limit = len(h)
	}
	out := make([]chat.DirectMessage, 0, limit)
	for _, m := range h[len(h)-limit:] {
		out = append(out, *m)
	}
	return out
}

// MarkRead flags messageID as read when readerID is its recipient. Any
// other reader gets ErrUnauthorized and nothing changes.
func (s *Store) MarkRead(key chat.ConversationKey, messageID, readerID string) (chat.DirectMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.convs[key] {
		if m.ID != messageID {
			continue
		}
		if m.To != readerID {
			return chat.DirectMessage{}, fmt.Errorf("mark %q read: %w", messageID, chat.ErrUnauthorized)
		}
		m.Read = true
		return *m, nil
	}
	return chat.DirectMessage{}, fmt.Errorf("mark %q read: %w", messageID, chat.ErrMessageNotFound)
}
