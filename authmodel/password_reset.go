package authmodel

// PasswordResetRequest asks for a reset token. Exactly one of Email or Username
// is expected.
type PasswordResetRequest struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

func (p PasswordResetRequest) Identifier() string {
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

// PasswordResetResponse is success shaped whether or not the identifier exists.
// Token is only populated when the server is configured to expose it
// (non-production).
type PasswordResetResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// PasswordResetConfirm sets a new password.
// Token is the reset token, or the emailed confirmation code for the managed
// identity provider, which also needs Username.
type PasswordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
	Username    string `json:"username,omitempty"`
}
