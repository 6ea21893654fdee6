// client_manager.go
package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"presence-relay/internal/chat"
	"presence-relay/internal/session"
)

// ClientManager tracks live WebSocket connections. Routing between users
// is done by the dispatcher; the manager only owns the set of sockets so it
// can report counts and close them all on shutdown.
type ClientManager struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	count      chan chan int

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

// Client represents a single WebSocket connection. It is the chat.Handle
// the registries hand to the dispatcher.
type Client struct {
	id      string
	socket  *websocket.Conn
	send    chan chat.Event
	session *session.Session
	logger  *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// connLimits are the per-socket timing and size bounds.
type connLimits struct {
	maxMessageBytes int64
	pongWait        time.Duration
	pingPeriod      time.Duration
	writeWait       time.Duration
}
