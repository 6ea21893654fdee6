// Package chattest provides a recording chat.Handle for tests.
package chattest

import (
	"encoding/json"
	"sync"

	"presence-relay/internal/chat"
)

// Recorder is a chat.Handle that keeps every event it is sent.
type Recorder struct {
	Name string

	mu     sync.Mutex
	events []chat.Event
	closed bool
	full   bool
}

// NewRecorder returns a named recorder.
func NewRecorder(name string) *Recorder {
	return &Recorder{Name: name}
}

func (r *Recorder) Send(ev chat.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.full {
		return false
	}
	r.events = append(r.events, ev)
	return true
}

func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// SetFull makes subsequent sends fail as if the buffer were exhausted.
func (r *Recorder) SetFull(full bool) {
	r.mu.Lock()
	r.full = full
	r.mu.Unlock()
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Events returns a copy of everything received so far.
func (r *Recorder) Events() []chat.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chat.Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the received events with the given type, in order.
func (r *Recorder) OfType(eventType string) []chat.Event {
	var out []chat.Event
	for _, ev := range r.Events() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// Last decodes the payload of the most recent event of eventType into v and
// reports whether one was found.
func (r *Recorder) Last(eventType string, v any) bool {
	evs := r.OfType(eventType)
	if len(evs) == 0 {
		return false
	}
	if err := json.Unmarshal(evs[len(evs)-1].Payload, v); err != nil {
		panic("chattest: decode " + eventType + ": " + err.Error())
	}
	return true
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
