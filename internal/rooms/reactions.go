package rooms

import (
	"fmt"
	"slices"

	"presence-relay/internal/chat"
)

// Toggle flips userID's reaction symbol on a room message: it is removed
// when present and added otherwise. Symbols left without users are dropped,
// so toggling twice restores the previous mapping exactly.
func (r *Registry) Toggle(roomID, messageID, userID, symbol string) (chat.Reactions, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("react in %q: %w", roomID, chat.ErrRoomNotFound)
	}
	msg := findMessage(rm.history, messageID)
	if msg == nil {
		return nil, fmt.Errorf("react to %q: %w", messageID, chat.ErrMessageNotFound)
	}

	if msg.Reactions == nil {
		msg.Reactions = chat.Reactions{}
	}
	users := msg.Reactions[symbol]
	if i := slices.Index(users, userID); i >= 0 {
		users = slices.Delete(users, i, i+1)
	} else {
		users = append(users, userID)
	}
	if len(users) == 0 {
		delete(msg.Reactions, symbol)
	} else {
		msg.Reactions[symbol] = users
	}
	return copyReactions(msg.Reactions), nil
}

func findMessage(history []*chat.Message, id string) *chat.Message {
	// recent messages are the likeliest targets
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ID == id {
			return history[i]
		}
	}
	return nil
}

func copyReactions(in chat.Reactions) chat.Reactions {
	out := make(chat.Reactions, len(in))
	for sym, users := range in {
		out[sym] = slices.Clone(users)
	}
	return out
}
