package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/jrsteele09/portfolio-auth/users"
	"github.com/pkg/errors"
)

// DefaultSeedFullName names the account created from SEED_USER_EMAIL
const DefaultSeedFullName = "Development User"

// InitialiseSystem creates the seed account when SEED_USER_EMAIL is set.
// Returns the generated password on first creation (empty string otherwise).
func (s *Server) InitialiseSystem(ctx context.Context) (generatedPassword string, err error) {
	email := s.config.GetSeedUserEmail()
	if email == "" {
		return "", nil
	}

	if existing, err := s.users.GetByEmail(email); err == nil {
		s.log.Info().Str("email", existing.Email).Msg("bootstrap: seed user already exists")
		return "", nil
	}

	password := s.config.GetSeedUserPassword()
	if password == "" {
		passwordBytes := make([]byte, 16)
		if _, err := rand.Read(passwordBytes); err != nil {
			return "", errors.Wrap(err, "[Server.InitialiseSystem] failed to generate password")
		}
		password = base64.RawURLEncoding.EncodeToString(passwordBytes)
		generatedPassword = password
	}

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return "", errors.Wrap(err, "[Server.InitialiseSystem] failed to hash password")
	}

	account := &users.Account{
		Email:        email,
		FullName:     DefaultSeedFullName,
		PasswordHash: passwordHash,
		Active:       true,
		Verified:     true,
	}
	if err := s.users.Create(account); err != nil {
		return "", errors.Wrap(err, "[Server.InitialiseSystem] failed to create seed user")
	}

	event := s.log.Info().Str("email", account.Email).Str("user_id", account.ID)
	if generatedPassword != "" && !s.config.IsProduction() {
		event = event.Str("password", generatedPassword)
	}
	event.Msg("bootstrap: created seed user")

	return generatedPassword, nil
}
