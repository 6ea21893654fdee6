package chat

import "github.com/google/uuid"

// IDGenerator produces process-unique message ids.
type IDGenerator interface {
	NewID() string
}

// UUIDv7 issues time-ordered UUIDs. The random tail keeps ids unique even
// when several are minted inside one clock tick.
type UUIDv7 struct{}

func (UUIDv7) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewUserID returns a fresh random user id.
func NewUserID() string {
	return uuid.NewString()
}
