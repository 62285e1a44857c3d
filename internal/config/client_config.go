package config

import (
	"strings"
	"time"
)

// Backend names accepted by AUTH_BACKEND
const (
	BackendToken    = "token"
	BackendIdentity = "identity"
)

type ClientConfig interface {
	GetAPIBaseURL() string
	GetAuthBackend() string
	GetProfile() string
	GetHTTPTimeout() time.Duration
	GetSingleFlightRefresh() bool
	GetUserFromClaims() bool
}

type Client struct{}

var _ ClientConfig = Client{}

// GetAPIBaseURL returns the API root that every request path is appended to,
// e.g. "http://localhost:8000/api/v1".
func (Client) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv("API_BASE_URL", "http://localhost:8000/api/v1"), "/")
}

func (Client) GetAuthBackend() string {
	return strings.ToLower(GetEnv("AUTH_BACKEND", BackendToken))
}

// GetProfile scopes stored credentials, the way a browser origin scopes local storage.
func (Client) GetProfile() string {
	return GetEnv("AUTH_PROFILE", "default")
}

func (Client) GetHTTPTimeout() time.Duration {
	return GetEnvSeconds("HTTP_TIMEOUT_SEC", 30*time.Second)
}

// GetSingleFlightRefresh makes concurrent refreshes share one backend call.
// Off by default: each refresh runs independently and the last write wins.
func (Client) GetSingleFlightRefresh() bool {
	return GetEnvBool("AUTH_SINGLE_FLIGHT_REFRESH", false)
}

// GetUserFromClaims makes the token backend read the user from the access
// token's payload instead of calling /auth/me. The signature is not checked.
func (Client) GetUserFromClaims() bool {
	return GetEnvBool("AUTH_USER_FROM_CLAIMS", false)
}
