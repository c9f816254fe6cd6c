package session

import "errors"

var (
	// ErrNotLoggedIn is returned when an operation needs a token and there is none.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrSuperseded is returned when the session changed while an operation was in flight.
	ErrSuperseded = errors.New("session changed while request was in flight")
	// ErrClosed is returned after the manager has been closed.
	ErrClosed = errors.New("session manager closed")
)

// Fallback messages used when the service gives no reason.
const (
	MsgLoginFailed        = "Login failed"
	MsgRegistrationFailed = "Registration failed"
	MsgUpdateFailed       = "Profile update failed"
)
