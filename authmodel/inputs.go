package authmodel

import "github.com/jrsteele09/portfolio-auth/token"

// SignInInput identifies the user by email or username.
// Example: {"username": "alice", "password": "pw123456"}
type SignInInput struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

// Identifier returns whichever of username or email was supplied
func (s SignInInput) Identifier() string {
	if s.Username != "" {
		return s.Username
	}
	return s.Email
}

// SignUpInput carries the registration fields.
type SignUpInput struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`

	// ConfirmPassword is checked locally and never sent.
	ConfirmPassword string `json:"-"`
}

// ConfirmSignUpInput confirms a pending registration with the one-time code
// delivered by the managed identity provider.
type ConfirmSignUpInput struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

// SignUpResult reconciles the two registration flows. The token backend signs
// the user in immediately and Tokens is set. The managed identity provider
// leaves the account pending: ConfirmationRequired is true and Destination
// names where the code was sent.
type SignUpResult struct {
	Tokens               *token.CredentialPair `json:"-"`
	ConfirmationRequired bool                  `json:"confirmation_required"`
	Destination          string                `json:"destination,omitempty"`
	UserSub              string                `json:"user_sub,omitempty"`
}
