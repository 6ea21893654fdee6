// manager.go

// central event loop. The manager handles client registration and
// unregistration and closes every client when the relay stops.
package main

import (
	"context"
	"log/slog"

	"presence-relay/internal/metrics"
)

func newClientManager(logger *slog.Logger) *ClientManager {
	return &ClientManager{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (manager *ClientManager) start() {
	defer close(manager.done)
	for {
		select {
		case conn := <-manager.register:
			manager.clients[conn] = true
			metrics.Connections.Inc()
			manager.logger.Debug("client registered", "clientID", conn.id, "connections", len(manager.clients))

		case conn := <-manager.unregister:
			if _, ok := manager.clients[conn]; ok {
				delete(manager.clients, conn)
				metrics.Connections.Dec()
				manager.logger.Debug("client unregistered", "clientID", conn.id, "connections", len(manager.clients))
			}

		case reply := <-manager.count:
			reply <- len(manager.clients)

		case <-manager.quit:
			for conn := range manager.clients {
				conn.Close()
				delete(manager.clients, conn)
				metrics.Connections.Dec()
			}
			return
		}
	}
}

// add registers c. It reports false once the manager is stopping.
func (m *ClientManager) add(c *Client) bool {
	select {
	case m.register <- c:
		return true
	case <-m.quit:
		return false
	}
}

func (m *ClientManager) remove(c *Client) {
	select {
	case m.unregister <- c:
	case <-m.quit:
	}
}

// connections returns the number of registered clients.
func (m *ClientManager) connections() int {
	reply := make(chan int, 1)
	select {
	case m.count <- reply:
		return <-reply
	case <-m.quit:
		return 0
	}
}

// shutdown stops the loop and closes every client, waiting for the loop to
// finish or ctx to expire.
func (m *ClientManager) shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.quit) })
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
