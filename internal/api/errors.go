package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fragmede/campus/internal/render"
)

// Error is a non-2xx response from the auth service.
type Error struct {
	Status int
	// Message is the "error" field of a JSON error body, if any.
	Message string
	// Detail is a short plain-text rendering of a non-JSON body, for logs only.
	Detail string
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	case e.Detail != "":
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Detail)
	default:
		return fmt.Sprintf("HTTP %d", e.Status)
	}
}

const maxDetail = 200

func newError(status int, contentType string, body []byte) *Error {
	e := &Error{Status: status}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Message = strings.TrimSpace(payload.Error)
		return e
	}

	text := string(body)
	if strings.Contains(contentType, "html") || strings.HasPrefix(strings.TrimSpace(text), "<") {
		if title := render.Title(text); title != "" {
			text = title
		} else {
			text = render.HTMLToText(text, 0)
		}
	}
	e.Detail = render.Truncate(strings.Join(strings.Fields(text), " "), maxDetail)
	return e
}

// Message returns the server-provided message carried by err, or fallback
// when err is a transport failure, a malformed response, or an error body
// without a message.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsUnauthorized reports whether err is a 401 or 403 from the service.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && (apiErr.Status == 401 || apiErr.Status == 403)
}
