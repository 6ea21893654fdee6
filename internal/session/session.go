package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"presence-relay/internal/chat"
	"presence-relay/internal/metrics"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrClosed is returned by Receive after Close.
var ErrClosed = errors.New("session closed")

// Session is the state of one connection. Receive is expected to be called
// from a single reader goroutine; Close may be called from anywhere.
type Session struct {
	coord   *Coordinator
	handle  chat.Handle
	limiter *rate.Limiter

	mu       sync.Mutex
	state    State
	identity chat.Identity

	closeOnce sync.Once
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the authenticated user, zero before admission.
func (s *Session) Identity() chat.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Authenticate verifies token and admits the session. On failure the
// caller must close the connection.
func (s *Session) Authenticate(token string) error {
	s.mu.Lock()
	if s.state != StateUnauthenticated {
		st := s.state
		s.mu.Unlock()
		if st == StateClosed {
			return ErrClosed
		}
		return fmt.Errorf("already authenticated: %w", chat.ErrBadRequest)
	}
	id, err := s.coord.Verifier.Verify(token)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = StateAuthenticated
	s.identity = id
	s.mu.Unlock()

	s.admit(id)
	return nil
}

func (s *Session) admit(id chat.Identity) {
	c := s.coord
	metrics.Sessions.Inc()
	c.Logger.Info("user connected", "userID", id.UserID, "username", id.Username)

	roomsChanged := false
	for _, old := range c.Presence.Connect(id.UserID, id.Username, s.handle) {
		prev := chat.Identity{UserID: old.ID, Username: old.Username}
		c.Logger.Info("superseded stale entry", "userID", old.ID, "username", old.Username)
		if c.evict(prev) {
			roomsChanged = true
		}
		c.broadcastStatus(prev, false)
	}
	if roomsChanged {
		c.broadcastRooms()
	}
	c.broadcastStatus(id, true)

	c.Dispatcher.ToHandle(s.handle, chat.NewEvent(chat.EventAuthenticated, id))
	c.Dispatcher.ToHandle(s.handle, chat.NewEvent(chat.EventUsersOnline, c.Presence.ListOnline()))
	c.Dispatcher.ToHandle(s.handle, chat.NewEvent(chat.EventRoomsList, c.Rooms.List()))

	if c.DefaultRoom != "" {
		if err := s.join(id, chat.RoomPayload{RoomID: c.DefaultRoom}); err != nil {
			c.Logger.Warn("auto-join failed", "roomID", c.DefaultRoom, "error", err)
		}
	}
}

// Receive handles one inbound event. Failures that concern only this event
// are reported to the client as error events and nil is returned. A non-nil
// return means the connection must be closed.
func (s *Session) Receive(ev chat.Event) error {
	c := s.coord

	switch s.State() {
	case StateClosed:
		return ErrClosed
	case StateUnauthenticated:
		metrics.Events.WithLabelValues(eventLabel(ev.Type)).Inc()
		err := fmt.Errorf("%s before auth: %w", ev.Type, chat.ErrUnauthenticated)
		if ev.Type == chat.EventAuth {
			var p chat.AuthPayload
			if derr := json.Unmarshal(ev.Payload, &p); derr != nil {
				err = fmt.Errorf("decode auth: %w", chat.ErrUnauthenticated)
			} else {
				err = s.Authenticate(p.Token)
			}
		}
		if err == nil {
			return nil
		}
		s.reject(err)
		return err
	}

	id := s.Identity()
	metrics.Events.WithLabelValues(eventLabel(ev.Type)).Inc()
	if !s.current(id) {
		err := fmt.Errorf("%s: connection superseded: %w", ev.Type, chat.ErrUnauthenticated)
		c.Logger.Info("rejecting event from superseded connection", "userID", id.UserID, "event", ev.Type)
		s.reject(err)
		return err
	}
	if !s.limiter.Allow() {
		s.reject(fmt.Errorf("%s: %w", ev.Type, chat.ErrRateLimited))
		return nil
	}

	var err error
	switch ev.Type {
	case chat.EventRoomJoin:
		var p chat.RoomPayload
		if err = decode(ev, &p); err == nil {
			err = s.join(id, p)
		}
	case chat.EventMessageSend:
		var p chat.SendPayload
		if err = decode(ev, &p); err == nil {
			err = s.post(id, p)
		}
	case chat.EventMessagePrivate:
		var p chat.PrivatePayload
		if err = decode(ev, &p); err == nil {
			err = s.sendPrivate(id, p)
		}
	case chat.EventPrivateGet:
		var p chat.PrivatePayload
		if err = decode(ev, &p); err == nil {
			err = s.fetchPrivate(id, p)
		}
	case chat.EventTypingStart:
		var p chat.RoomPayload
		if err = decode(ev, &p); err == nil {
			err = s.typing(id, p, true)
		}
	case chat.EventTypingStop:
		var p chat.RoomPayload
		if err = decode(ev, &p); err == nil {
			err = s.typing(id, p, false)
		}
	case chat.EventMessageReact:
		var p chat.ReactPayload
		if err = decode(ev, &p); err == nil {
			err = s.react(id, p)
		}
	case chat.EventMessageRead:
		var p chat.ReadPayload
		if err = decode(ev, &p); err == nil {
			err = s.markRead(id, p)
		}
	case chat.EventAuth:
		err = fmt.Errorf("already authenticated: %w", chat.ErrBadRequest)
	default:
		err = fmt.Errorf("unknown event %q: %w", ev.Type, chat.ErrBadRequest)
	}

	if err != nil {
		c.Logger.Debug("event rejected", "userID", id.UserID, "event", ev.Type, "error", err)
		s.reject(err)
	}
	return nil
}

// Close ends the session. For an admitted session it takes the user
// offline, leaves every room and clears typing flags, then announces the
// change. It runs at most once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		prev := s.state
		id := s.identity
		s.state = StateClosed
		s.mu.Unlock()

		if prev != StateAuthenticated {
			return
		}
		c := s.coord
		metrics.Sessions.Dec()

		if _, current := c.Presence.Disconnect(id.UserID, s.handle); !current {
			// a newer connection for the same user owns the shared state now
			c.Logger.Info("stale connection closed", "userID", id.UserID)
			return
		}
		c.evict(id)
		c.broadcastStatus(id, false)
		c.broadcastRooms()
		c.Logger.Info("user disconnected", "userID", id.UserID, "username", id.Username)
	})
}

// current reports whether presence still routes id to this connection. A
// later login with the same username or user id takes that over.
func (s *Session) current(id chat.Identity) bool {
	u, ok := s.coord.Presence.Lookup(id.UserID)
	return ok && u.Online && u.Handle == s.handle
}

func (s *Session) reply(ev chat.Event) {
	s.coord.Dispatcher.ToHandle(s.handle, ev)
}

func (s *Session) reject(err error) {
	metrics.Errors.WithLabelValues(chat.Code(err)).Inc()
	s.reply(chat.ErrorEvent(err))
}

// eventLabel bounds the metric label to the known inbound types.
func eventLabel(eventType string) string {
	if chat.IsInbound(eventType) {
		return eventType
	}
	return "unknown"
}

func decode(ev chat.Event, v any) error {
	if len(ev.Payload) == 0 {
		return fmt.Errorf("%s: missing payload: %w", ev.Type, chat.ErrBadRequest)
	}
	if err := json.Unmarshal(ev.Payload, v); err != nil {
		return fmt.Errorf("%s: %v: %w", ev.Type, err, chat.ErrBadRequest)
	}
	return nil
}
