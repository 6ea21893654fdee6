package session

import (
	"fmt"
	"strings"

	"presence-relay/internal/chat"
)

func (s *Session) join(id chat.Identity, p chat.RoomPayload) error {
	c := s.coord
	msgs, left, err := c.Rooms.Join(id.UserID, p.RoomID)
	if err != nil {
		return err
	}

	for _, roomID := range left {
		c.Dispatcher.ToRoom(roomID, chat.NewEvent(chat.EventRoomUserLeft, chat.MemberChange{
			UserID:   id.UserID,
			Username: id.Username,
			RoomID:   roomID,
		}))
		if users, was := c.Typing.Stop(roomID, id.UserID); was {
			c.Dispatcher.ToRoom(roomID, chat.NewEvent(chat.EventTypingUpdate, chat.TypingUpdate{
				RoomID: roomID,
				Users:  users,
			}))
		}
	}

	s.reply(chat.NewEvent(chat.EventRoomJoined, chat.RoomJoined{RoomID: p.RoomID, Messages: msgs}))
	c.Dispatcher.ToRoom(p.RoomID, chat.NewEvent(chat.EventRoomUserJoined, chat.MemberChange{
		UserID:   id.UserID,
		Username: id.Username,
		RoomID:   p.RoomID,
	}), id.UserID)
	c.broadcastRooms()
	return nil
}

func (s *Session) post(id chat.Identity, p chat.SendPayload) error {
	if strings.TrimSpace(p.Content) == "" {
		return fmt.Errorf("empty message: %w", chat.ErrBadRequest)
	}
	c := s.coord
	msg, err := c.Rooms.Post(p.RoomID, id.UserID, id.Username, p.Content, p.Type)
	if err != nil {
		return err
	}

	c.Dispatcher.ToRoom(p.RoomID, chat.NewEvent(chat.EventMessageNew, msg))
	c.Dispatcher.ToRoom(p.RoomID, chat.NewEvent(chat.EventNotificationNew, chat.Notification{
		Type:      "message",
		From:      id.Username,
		Content:   chat.Preview(p.Content),
		RoomID:    p.RoomID,
		Timestamp: msg.Timestamp.UnixMilli(),
	}), id.UserID)
	return nil
}

func (s *Session) sendPrivate(id chat.Identity, p chat.PrivatePayload) error {
	if strings.TrimSpace(p.Content) == "" {
		return fmt.Errorf("empty message: %w", chat.ErrBadRequest)
	}
	c := s.coord
	recipient, ok := c.Presence.Lookup(p.RecipientID)
	if !ok {
		return fmt.Errorf("recipient %q: %w", p.RecipientID, chat.ErrUserNotFound)
	}

	dm := chat.DirectMessage{
		ID:           c.IDs.NewID(),
		From:         id.UserID,
		FromUsername: id.Username,
		To:           recipient.ID,
		ToUsername:   recipient.Username,
		Content:      p.Content,
		Timestamp:    c.now(),
	}
	c.Conversations.Append(id.UserID, recipient.ID, dm)

	c.Dispatcher.ToUser(recipient.ID, chat.NewEvent(chat.EventPrivateNew, dm))
	s.reply(chat.NewEvent(chat.EventPrivateSent, dm))
	c.Dispatcher.ToUser(recipient.ID, chat.NewEvent(chat.EventNotificationNew, chat.Notification{
		Type:      "private-message",
		From:      id.Username,
		Content:   chat.Preview(p.Content),
		Timestamp: dm.Timestamp.UnixMilli(),
	}))
	return nil
}

func (s *Session) fetchPrivate(id chat.Identity, p chat.PrivatePayload) error {
	if p.RecipientID == "" {
		return fmt.Errorf("missing recipientId: %w", chat.ErrBadRequest)
	}
	msgs := s.coord.Conversations.Fetch(id.UserID, p.RecipientID, chat.HistoryWindow)
	s.reply(chat.NewEvent(chat.EventPrivateMessages, chat.PrivateMessages{
		ConversationID: chat.ConversationKeyFor(id.UserID, p.RecipientID),
		Messages:       msgs,
	}))
	return nil
}

func (s *Session) typing(id chat.Identity, p chat.RoomPayload, start bool) error {
	c := s.coord
	if !c.Rooms.Exists(p.RoomID) {
		return fmt.Errorf("typing in %q: %w", p.RoomID, chat.ErrRoomNotFound)
	}

	var users []string
	if start {
		users = c.Typing.Start(p.RoomID, id.UserID, id.Username)
	} else {
		users, _ = c.Typing.Stop(p.RoomID, id.UserID)
	}
	c.Dispatcher.ToRoom(p.RoomID, chat.NewEvent(chat.EventTypingUpdate, chat.TypingUpdate{
		RoomID: p.RoomID,
		Users:  users,
	}), id.UserID)
	return nil
}

func (s *Session) react(id chat.Identity, p chat.ReactPayload) error {
	if p.Reaction == "" {
		return fmt.Errorf("missing reaction: %w", chat.ErrBadRequest)
	}
	c := s.coord
	reactions, err := c.Rooms.Toggle(p.RoomID, p.MessageID, id.UserID, p.Reaction)
	if err != nil {
		return err
	}
	c.Dispatcher.ToRoom(p.RoomID, chat.NewEvent(chat.EventReactionUpdate, chat.ReactionUpdate{
		MessageID: p.MessageID,
		Reactions: reactions,
	}))
	return nil
}

func (s *Session) markRead(id chat.Identity, p chat.ReadPayload) error {
	c := s.coord
	dm, err := c.Conversations.MarkRead(p.ConversationID, p.MessageID, id.UserID)
	if err != nil {
		return err
	}
	c.Dispatcher.ToUser(dm.From, chat.NewEvent(chat.EventReadReceipt, chat.ReadReceipt{
		MessageID:      p.MessageID,
		ConversationID: p.ConversationID,
	}))
	return nil
}
