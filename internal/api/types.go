package api

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Credentials authenticate a single request. The zero value sends no Authorization header.
type Credentials struct {
	Token string
}

// IsZero reports whether c carries no token.
func (c Credentials) IsZero() bool {
	return c.Token == ""
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the success body of POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// RegisterResponse is the success body of POST /auth/register.
type RegisterResponse struct {
	Role string `json:"role"`
}

// Profile is the user record owned by the remote service. Its shape is not
// interpreted beyond a few display fields.
type Profile json.RawMessage

var errNotObject = errors.New("profile is not a JSON object")

// MarshalJSON returns the raw profile bytes.
func (p Profile) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

// UnmarshalJSON keeps a copy of the raw object.
func (p *Profile) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotObject
	}
	*p = Profile(bytes.Clone(trimmed))
	return nil
}

// IsZero reports whether the profile is absent.
func (p Profile) IsZero() bool {
	return len(p) == 0
}

// Fields decodes the profile into a generic map.
func (p Profile) Fields() map[string]any {
	if p.IsZero() {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return nil
	}
	return m
}

// String returns the named top-level field if it is a string.
func (p Profile) String(field string) string {
	s, _ := p.Fields()[field].(string)
	return s
}

// DisplayName picks the first non-empty of name, username and email.
func (p Profile) DisplayName() string {
	for _, f := range []string{"name", "username", "email"} {
		if s := p.String(f); s != "" {
			return s
		}
	}
	return ""
}

// Equal reports whether two profiles hold the same bytes.
func (p Profile) Equal(o Profile) bool {
	return bytes.Equal(p, o)
}
