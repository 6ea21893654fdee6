// Package dispatch fans events out to live connections. It is the only
// component that touches transport handles, and it resolves them at send
// time instead of caching them.
package dispatch

import (
	"log/slog"
	"slices"

	"presence-relay/internal/chat"
	"presence-relay/internal/metrics"
)

// Directory resolves user ids to live handles.
type Directory interface {
	Handle(userID string) chat.Handle
	Handles() []chat.Handle
}

// Membership lists the members of a room.
type Membership interface {
	Members(roomID string) []string
}

// Dispatcher routes events to one user, one room or everyone.
type Dispatcher struct {
	users  Directory
	rooms  Membership
	logger *slog.Logger
}

func New(users Directory, rooms Membership, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{users: users, rooms: rooms, logger: logger}
}

// ToUser sends ev to userID. Offline users are skipped silently.
func (d *Dispatcher) ToUser(userID string, ev chat.Event) {
	if h := d.users.Handle(userID); h != nil {
		d.send(h, ev)
	}
}

// ToRoom sends ev to every member of roomID except the excluded user ids.
func (d *Dispatcher) ToRoom(roomID string, ev chat.Event, exclude ...string) {
	for _, id := range d.rooms.Members(roomID) {
		if slices.Contains(exclude, id) {
			continue
		}
		d.ToUser(id, ev)
	}
}

// ToAll sends ev to every online user.
func (d *Dispatcher) ToAll(ev chat.Event) {
	for _, h := range d.users.Handles() {
		d.send(h, ev)
	}
}

// ToHandle sends ev straight to h. Used for replies to the originating
// connection, which may not be registered with presence yet.
func (d *Dispatcher) ToHandle(h chat.Handle, ev chat.Event) {
	if h != nil {
		d.send(h, ev)
	}
}

// send never blocks. A handle that cannot take the event is closed so a
// slow client cannot stall the relay; its own cleanup runs from its reader.
// Handles that are already closing are skipped quietly.
func (d *Dispatcher) send(h chat.Handle, ev chat.Event) {
	if h.Send(ev) || h.Closed() {
		return
	}
	metrics.Dropped.Inc()
	d.logger.Warn("dropping slow connection", "event", ev.Type)
	h.Close()
}
