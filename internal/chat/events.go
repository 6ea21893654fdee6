package chat

// Inbound event types.
const (
	EventAuth           = "auth"
	EventRoomJoin       = "room:join"
	EventMessageSend    = "message:send"
	EventMessagePrivate = "message:private"
	EventPrivateGet     = "private:get"
	EventTypingStart    = "typing:start"
	EventTypingStop     = "typing:stop"
	EventMessageReact   = "message:react"
	EventMessageRead    = "message:read"
)

// IsInbound reports whether eventType is one clients may send.
func IsInbound(eventType string) bool {
	switch eventType {
	case EventAuth, EventRoomJoin, EventMessageSend, EventMessagePrivate, EventPrivateGet,
		EventTypingStart, EventTypingStop, EventMessageReact, EventMessageRead:
		return true
	}
	return false
}

// Outbound event types.
const (
	EventUsersOnline     = "users:online"
	EventRoomsList       = "rooms:list"
	EventUserStatus      = "user:status"
	EventRoomJoined      = "room:joined"
	EventRoomUserJoined  = "room:user-joined"
	EventRoomUserLeft    = "room:user-left"
	EventMessageNew      = "message:new"
	EventNotificationNew = "notification:new"
	EventPrivateNew      = "message:private-new"
	EventPrivateSent     = "message:private-sent"
	EventPrivateMessages = "private:messages"
	EventTypingUpdate    = "typing:update"
	EventReactionUpdate  = "message:reaction-update"
	EventReadReceipt     = "message:read-receipt"
	EventAuthenticated   = "authenticated"
	EventError           = "error"
)

// Inbound payloads.

type AuthPayload struct {
	Token string `json:"token"`
}

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type SendPayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

type PrivatePayload struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content,omitempty"`
}

type ReactPayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	Reaction  string `json:"reaction"`
}

type ReadPayload struct {
	ConversationID ConversationKey `json:"conversationId"`
	MessageID      string          `json:"messageId"`
}

// Outbound payloads.

type UserStatus struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

type RoomJoined struct {
	RoomID   string    `json:"roomId"`
	Messages []Message `json:"messages"`
}

type MemberChange struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

type Notification struct {
	Type      string `json:"type"`
	From      string `json:"from"`
	Content   string `json:"content"`
	RoomID    string `json:"roomId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type PrivateMessages struct {
	ConversationID ConversationKey `json:"conversationId"`
	Messages       []DirectMessage `json:"messages"`
}

type TypingUpdate struct {
	RoomID string   `json:"roomId"`
	Users  []string `json:"users"`
}

type ReactionUpdate struct {
	MessageID string    `json:"messageId"`
	Reactions Reactions `json:"reactions"`
}

type ReadReceipt struct {
	MessageID      string          `json:"messageId"`
	ConversationID ConversationKey `json:"conversationId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
