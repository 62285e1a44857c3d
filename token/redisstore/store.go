// Package redisstore keeps the credential pair in a Redis hash so that several
// client processes on different hosts can share one signed-in profile.
package redisstore

import (
	"context"
	"fmt"

	"github.com/jrsteele09/portfolio-auth/token"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Store struct {
	rdb    redis.UniversalClient
	key    string
	logger zerolog.Logger
}

var _ token.Store = (*Store)(nil)

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New stores credentials under "<prefix>:<profile>".
func New(rdb redis.UniversalClient, prefix, profile string, opts ...Option) *Store {
	if profile == "" {
		profile = "default"
	}
	s := &Store{
		rdb:    rdb,
		key:    fmt.Sprintf("%s:%s", prefix, profile),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Access(ctx context.Context) (string, bool) {
	return s.get(ctx, token.AccessTokenKey)
}

func (s *Store) Refresh(ctx context.Context) (string, bool) {
	return s.get(ctx, token.RefreshTokenKey)
}

// Set writes both fields in one transaction so readers never see a mixed pair.
func (s *Store) Set(ctx context.Context, access, refresh string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, token.AccessTokenKey, access, token.RefreshTokenKey, refresh)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set credentials: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis clear credentials: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, field string) (string, bool) {
	v, err := s.rdb.HGet(ctx, s.key, field).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("field", field).Msg("redis token read failed")
		return "", false
	}
	return v, v != ""
}
