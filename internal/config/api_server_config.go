package config

import (
	"strings"
	"time"
)

// APIServerConfig configures the development API server in cmd/server.
type APIServerConfig interface {
	GetJWTSecret() string
	GetJWTAlgorithm() string
	GetJWTPrivateKeyFile() string
	GetIssuer() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetResetTokenExpiry() time.Duration
	GetExposeResetToken() bool
	GetRotateRefreshTokens() bool
	GetSeedUserEmail() string
	GetSeedUserPassword() string
}

type APIServer struct{}

var _ APIServerConfig = APIServer{}

func (APIServer) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "dev-secret-change-me")
}

// GetJWTAlgorithm selects HS256 (JWT_SECRET) or RS256 (a key pair)
func (APIServer) GetJWTAlgorithm() string {
	return strings.ToUpper(GetEnv("JWT_ALGORITHM", "HS256"))
}

// GetJWTPrivateKeyFile is a PKCS#1 PEM file for RS256. When unset an
// ephemeral key pair is generated at startup.
func (APIServer) GetJWTPrivateKeyFile() string {
	return GetEnv("JWT_PRIVATE_KEY_FILE", "")
}

func (APIServer) GetIssuer() string {
	return GetEnv("JWT_ISSUER", "portfolio-api")
}

func (APIServer) GetAccessTokenExpiry() time.Duration {
	return GetEnvSeconds("ACCESS_TOKEN_EXPIRE_SEC", 30*time.Minute)
}

func (APIServer) GetRefreshTokenExpiry() time.Duration {
	return GetEnvSeconds("REFRESH_TOKEN_EXPIRE_SEC", 7*24*time.Hour) // 7 days
}

func (APIServer) GetResetTokenExpiry() time.Duration {
	return GetEnvSeconds("RESET_TOKEN_EXPIRE_SEC", time.Hour)
}

// GetExposeResetToken returns the reset token in the password-reset response.
// Defaults to on outside production only.
func (APIServer) GetExposeResetToken() bool {
	return GetEnvBool("EXPOSE_RESET_TOKEN", !EnvVars{}.IsProduction())
}

func (APIServer) GetRotateRefreshTokens() bool {
	return GetEnvBool("ROTATE_REFRESH_TOKENS", false)
}

// GetSeedUserEmail names an account created at startup. Empty disables seeding.
func (APIServer) GetSeedUserEmail() string {
	return GetEnv("SEED_USER_EMAIL", "")
}

// GetSeedUserPassword is the seeded account's password; a random one is
// generated and logged when unset.
func (APIServer) GetSeedUserPassword() string {
	return GetEnv("SEED_USER_PASSWORD", "")
}
