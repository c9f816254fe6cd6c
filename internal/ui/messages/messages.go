package messages

import "github.com/fragmede/campus/internal/session"

// View transition messages.
type (
	OpenLoginMsg       struct{ Email string }
	OpenRegisterMsg    struct{}
	OpenEditProfileMsg struct{}
	GoBackMsg          struct{}
)

// Data messages.
type (
	// SessionChangedMsg carries every state published by the session manager.
	SessionChangedMsg struct {
		State session.State
	}

	LoginResultMsg struct {
		Result session.Result
	}

	RegisterResultMsg struct {
		Email  string
		Result session.Result
	}

	UpdateResultMsg struct {
		Result session.Result
	}

	RefreshResultMsg struct {
		Err error
	}

	StatusMsg struct {
		Text    string
		IsError bool
	}
)
