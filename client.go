// Client.go
// The read goroutine decodes events from the browser and hands them to the
// client's session. The write goroutine drains the client's send channel back
// to the browser and keeps the connection alive with pings.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"presence-relay/internal/chat"
)

func newClient(socket *websocket.Conn, buffer int, logger *slog.Logger) *Client {
	if buffer <= 0 {
		buffer = 1
	}
	id := uuid.NewString()
	return &Client{
		id:     id,
		socket: socket,
		send:   make(chan chat.Event, buffer),
		logger: logger.With("clientID", id),
		done:   make(chan struct{}),
	}
}

// Send queues ev without blocking. It reports false when the buffer is full
// or the client is closed.
func (c *Client) Send(ev chat.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close asks the writer to flush and hang up. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) read(manager *ClientManager, limits connLimits) {
	defer func() {
		c.session.Close()
		manager.remove(c)
		c.Close()
	}()

	c.socket.SetReadLimit(limits.maxMessageBytes)
	_ = c.socket.SetReadDeadline(time.Now().Add(limits.pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(limits.pongWait))
	})

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read failed", "error", err)
			}
			return
		}

		var ev chat.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			c.Send(chat.ErrorEvent(fmt.Errorf("malformed frame: %w", chat.ErrBadRequest)))
			continue
		}
		if err := c.session.Receive(ev); err != nil {
			c.logger.Debug("closing connection", "error", err)
			return
		}
	}
}

func (c *Client) write(limits connLimits) {
	ticker := time.NewTicker(limits.pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			if err := c.writeEvent(ev, limits.writeWait); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(limits.writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.flush(limits.writeWait)
			_ = c.socket.SetWriteDeadline(time.Now().Add(limits.writeWait))
			_ = c.socket.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued, so a final error event reaches the
// browser before the close frame.
func (c *Client) flush(writeWait time.Duration) {
	for {
		select {
		case ev := <-c.send:
			if err := c.writeEvent(ev, writeWait); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) writeEvent(ev chat.Event, writeWait time.Duration) error {
	_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.socket.WriteJSON(ev); err != nil {
		c.logger.Debug("write failed", "event", ev.Type, "error", err)
		return err
	}
	return nil
}
