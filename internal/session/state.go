package session

import "github.com/fragmede/campus/internal/api"

// State is a snapshot of the session. Empty Token, Role and User mean absent.
type State struct {
	Token string
	Role  string
	User  api.Profile
	// Loading is true until the startup restoration has finished.
	Loading bool
	// ProfilePending is set when a token was committed but its profile has
	// not been fetched yet.
	ProfilePending bool
}

// LoggedIn reports whether a token is held.
func (s State) LoggedIn() bool {
	return s.Token != ""
}

// Result is what Login, Register and UpdateProfile hand back to the UI.
// Failures carry a message suitable for display; they are never returned as errors.
type Result struct {
	Success bool
	Role    string
	Error   string
}

func failure(msg string) Result {
	return Result{Error: msg}
}
