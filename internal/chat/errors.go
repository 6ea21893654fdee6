package chat

import "errors"

var (
	// ErrUnauthenticated is returned for a missing, malformed or expired credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrRoomNotFound is returned when a room id is not in the catalog.
	ErrRoomNotFound = errors.New("room not found")
	// ErrUserNotFound is returned for an unknown direct-message recipient.
	ErrUserNotFound = errors.New("user not found")
	// ErrMessageNotFound is returned when a message id does not resolve.
	ErrMessageNotFound = errors.New("message not found")
	// ErrUnauthorized marks an action by someone not entitled to it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBadRequest is returned for malformed or unknown events.
	ErrBadRequest = errors.New("bad request")
	// ErrRateLimited is returned when a connection exceeds its event budget.
	ErrRateLimited = errors.New("rate limited")
)

// Code maps an error onto the stable code carried by error events.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrMessageNotFound), errors.Is(err, ErrUnauthorized):
		// unauthorized access is reported as a miss so existence is not leaked
		return "message_not_found"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "internal"
	}
}

// ErrorEvent builds the error event sent back to the originating connection.
func ErrorEvent(err error) Event {
	code := Code(err)
	msg := err.Error()
	if code == "message_not_found" {
		msg = ErrMessageNotFound.Error()
	}
	return NewEvent(EventError, ErrorPayload{Code: code, Message: msg})
}
