package session

import "github.com/jrsteele09/portfolio-auth/users"

// State is a snapshot of the session. IsAuthenticated is true exactly when
// User is non-nil.
type State struct {
	User            *users.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// Anonymous reports a settled, signed-out session
func (s State) Anonymous() bool {
	return !s.IsLoading && !s.IsAuthenticated
}
