package authmodel

import "github.com/jrsteele09/portfolio-auth/token"

// BearerTokenType is the token_type returned by the API
const BearerTokenType = "bearer"

// TokenResponse is returned by the register, login and refresh endpoints.
type TokenResponse struct {
	// AccessToken is the short-lived bearer credential.
	// Example: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// RefreshToken is the longer-lived credential used only to mint a new pair.
	// Usage: Send to /auth/refresh as {"refresh_token": "..."}
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds. A hint only.
	ExpiresIn int `json:"expires_in,omitempty"`

	// IdToken is present when the backend speaks OpenID Connect.
	IdToken string `json:"id_token,omitempty"`
}

// Credentials returns the pair to persist in the token store
func (t *TokenResponse) Credentials() *token.CredentialPair {
	return &token.CredentialPair{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
}

// RefreshRequest is the body of POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
