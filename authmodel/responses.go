package authmodel

import "github.com/jrsteele09/portfolio-auth/users"

// MessageResponse is the generic success body
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the failure body. The token API sends detail, other
// services send message; clients prefer message.
type ErrorResponse struct {
	Message string `json:"message,omitempty"`
	Detail  any    `json:"detail,omitempty"`
}

// Text returns message, then detail when it is a string.
func (e ErrorResponse) Text() string {
	if e.Message != "" {
		return e.Message
	}
	if s, ok := e.Detail.(string); ok {
		return s
	}
	return ""
}

// StatusResponse answers GET /auth/status. User is nil for anonymous callers.
type StatusResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *users.User `json:"user,omitempty"`
}

// ValidateResponse answers POST /auth/validate
type ValidateResponse struct {
	Valid   bool        `json:"valid"`
	User    *users.User `json:"user,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ProtectedResponse answers GET /auth/protected
type ProtectedResponse struct {
	Message string `json:"message"`
	UserSub string `json:"user_sub"`
}

// HealthResponse answers GET /health
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}
