// Package chat holds the vocabulary shared by the relay's registries:
// users, rooms, messages, events and the errors they report.
package chat

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// DefaultMessageType is used when a room message arrives without a type.
const DefaultMessageType = "text"

// HistoryWindow is how many messages a join or fetch hands back.
const HistoryWindow = 50

// NotificationPreview caps the content carried by notification events.
const NotificationPreview = 50

// Handle is a live transport endpoint for one connection.
// Send must not block; it reports false when the event was dropped.
// Closed reports whether Close has been called.
type Handle interface {
	Send(ev Event) bool
	Close()
	Closed() bool
}

// Identity is what the verifier yields for a valid credential.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// User is a presence record.
type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
	Handle   Handle    `json:"-"`
}

// OnlineUser is the public projection used by users:online.
type OnlineUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RoomSummary is one entry of rooms:list.
type RoomSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UserCount int    `json:"userCount"`
}

// Reactions maps a reaction symbol to the users who attached it.
type Reactions map[string][]string

// Message is a room-scoped chat message.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RoomID    string    `json:"roomId"`
	Reactions Reactions `json:"reactions"`
}

// DirectMessage is a one-to-one message stored under a ConversationKey.
type DirectMessage struct {
	ID           string    `json:"id"`
	From         string    `json:"from"`
	FromUsername string    `json:"fromUsername"`
	To           string    `json:"to"`
	ToUsername   string    `json:"toUsername"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	Read         bool      `json:"read"`
}

// ConversationKey identifies the history between two users.
type ConversationKey string

// ConversationKeyFor derives the key for a pair of user ids. The ids are
// ordered as strings so both argument orders produce the same key; every
// reader and writer of direct messages goes through here.
func ConversationKeyFor(a, b string) ConversationKey {
	pair := []string{a, b}
	sort.Strings(pair)
	return ConversationKey(strings.Join(pair, ":"))
}

// Event is the envelope exchanged over the wire in both directions.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event. Payloads are plain structs and
// maps built by this module, so a marshal failure is a programming error.
func NewEvent(eventType string, payload any) Event {
	if payload == nil {
		return Event{Type: eventType}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		panic("chat: marshal " + eventType + ": " + err.Error())
	}
	return Event{Type: eventType, Payload: raw}
}

// Preview truncates content to the first NotificationPreview characters.
func Preview(content string) string {
	r := []rune(content)
	if len(r) <= NotificationPreview {
		return content
	}
	return string(r[:NotificationPreview])
}
