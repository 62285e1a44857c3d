// Package pgstore keeps the credential pair in a Postgres table, one row per
// profile.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/jrsteele09/portfolio-auth/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Store struct {
	db      *sql.DB
	profile string
	logger  zerolog.Logger
	nowFunc func() time.Time
}

var _ token.Store = (*Store)(nil)

// Open connects with the lib/pq driver and prepares the schema.
func Open(ctx context.Context, databaseURL, profile string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s, err := New(ctx, db, profile)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func New(ctx context.Context, db *sql.DB, profile string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if profile == "" {
		profile = "default"
	}
	s := &Store{db: db, profile: profile, logger: log.Logger, nowFunc: time.Now}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS client_credentials (
	profile TEXT PRIMARY KEY,
	access_token TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure client_credentials schema: %w", err)
	}
	return nil
}

func (s *Store) Access(ctx context.Context) (string, bool) {
	pair, ok := s.load(ctx)
	return pair.AccessToken, ok && pair.AccessToken != ""
}

func (s *Store) Refresh(ctx context.Context) (string, bool) {
	pair, ok := s.load(ctx)
	return pair.RefreshToken, ok && pair.RefreshToken != ""
}

func (s *Store) Set(ctx context.Context, access, refresh string) error {
	const q = `
INSERT INTO client_credentials (profile, access_token, refresh_token, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (profile) DO UPDATE
SET access_token = EXCLUDED.access_token,
	refresh_token = EXCLUDED.refresh_token,
	updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, q, s.profile, access, refresh, s.nowFunc().UTC()); err != nil {
		return fmt.Errorf("upsert credentials: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	const q = `DELETE FROM client_credentials WHERE profile = $1`
	if _, err := s.db.ExecContext(ctx, q, s.profile); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) load(ctx context.Context) (token.CredentialPair, bool) {
	const q = `SELECT access_token, refresh_token FROM client_credentials WHERE profile = $1`
	var pair token.CredentialPair
	err := s.db.QueryRowContext(ctx, q, s.profile).Scan(&pair.AccessToken, &pair.RefreshToken)
	if errors.Is(err, sql.ErrNoRows) {
		return token.CredentialPair{}, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("profile", s.profile).Msg("postgres token read failed")
		return token.CredentialPair{}, false
	}
	return pair, true
}
