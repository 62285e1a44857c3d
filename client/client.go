// Package client assembles the auth client stack from configuration: token
// store, auth backend, session manager and request gateway.
package client

import (
	"context"
	"net/http"

	"github.com/jrsteele09/portfolio-auth/backend"
	"github.com/jrsteele09/portfolio-auth/backend/identity"
	"github.com/jrsteele09/portfolio-auth/backend/tokenapi"
	"github.com/jrsteele09/portfolio-auth/gateway"
	"github.com/jrsteele09/portfolio-auth/internal/config"
	"github.com/jrsteele09/portfolio-auth/session"
	"github.com/jrsteele09/portfolio-auth/token"
	"github.com/jrsteele09/portfolio-auth/token/filestore"
	"github.com/jrsteele09/portfolio-auth/token/pgstore"
	"github.com/jrsteele09/portfolio-auth/token/redisstore"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Client is the single session instance of a process and the gateway bound to it.
type Client struct {
	Session *session.Manager
	Gateway *gateway.Gateway
	Store   token.Store
	Backend backend.AuthBackend

	closers []func() error
}

type options struct {
	logger     zerolog.Logger
	httpClient *http.Client
	store      token.Store
	backend    backend.AuthBackend
	onChange   func(session.State)
}

type Option func(*options)

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithStore replaces the configured token store
func WithStore(s token.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithBackend replaces the configured auth backend
func WithBackend(b backend.AuthBackend) Option {
	return func(o *options) {
		o.backend = b
	}
}

func WithOnChange(fn func(session.State)) Option {
	return func(o *options) {
		o.onChange = fn
	}
}

// New builds the stack and restores any stored session. A stored session that
// cannot be restored is not an error: the client starts anonymous.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Client, error) {
	o := &options{logger: log.Logger}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.GetHTTPTimeout()}
	}

	c := &Client{Store: o.store, Backend: o.backend}
	if c.Store == nil {
		store, closer, err := NewStore(ctx, cfg, cfg.GetProfile(), o.logger)
		if err != nil {
			return nil, errors.Wrap(err, "[client.New] failed to open token store")
		}
		c.Store = store
		if closer != nil {
			c.closers = append(c.closers, closer)
		}
	}
	if c.Backend == nil {
		be, err := NewBackend(ctx, cfg, o.httpClient, o.logger)
		if err != nil {
			_ = c.Close()
			return nil, errors.Wrap(err, "[client.New] failed to create auth backend")
		}
		c.Backend = be
	}

	sessionOpts := []session.Option{session.WithLogger(o.logger)}
	if cfg.GetSingleFlightRefresh() {
		sessionOpts = append(sessionOpts, session.WithSingleFlightRefresh())
	}
	if o.onChange != nil {
		sessionOpts = append(sessionOpts, session.WithOnChange(o.onChange))
	}
	c.Session = session.NewManager(c.Store, c.Backend, sessionOpts...)
	c.Gateway = gateway.New(cfg.GetAPIBaseURL(), c.Session, gateway.WithHTTPClient(o.httpClient), gateway.WithLogger(o.logger))

	if err := c.Session.Initialize(ctx); err != nil {
		o.logger.Debug().Err(err).Msg("starting anonymous")
	}
	return c, nil
}

// NewStore opens the token store named by TOKEN_STORE. The returned closer is
// nil when the store holds no resources.
func NewStore(ctx context.Context, cfg config.StoreConfig, profile string, logger zerolog.Logger) (token.Store, func() error, error) {
	switch cfg.GetTokenStore() {
	case config.StoreMemory:
		return token.NewInMemoryStore(), nil, nil
	case config.StoreFile:
		s, err := filestore.New(cfg.GetTokenFile(), profile)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})
		return redisstore.New(rdb, cfg.GetRedisKeyPrefix(), profile, redisstore.WithLogger(logger)), rdb.Close, nil
	case config.StorePostgres:
		s, err := pgstore.Open(ctx, cfg.GetDatabaseURL(), profile)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, errors.Errorf("unknown token store %q", cfg.GetTokenStore())
}

// NewBackend creates the auth backend named by AUTH_BACKEND
func NewBackend(ctx context.Context, cfg config.Config, httpClient *http.Client, logger zerolog.Logger) (backend.AuthBackend, error) {
	switch cfg.GetAuthBackend() {
	case config.BackendToken:
		opts := []tokenapi.Option{
			tokenapi.WithHTTPClient(httpClient),
			tokenapi.WithUserAgent(cfg.GetAppName()),
			tokenapi.WithLogger(logger),
		}
		if cfg.GetUserFromClaims() {
			opts = append(opts, tokenapi.WithClaimsUser())
		}
		return tokenapi.New(cfg.GetAPIBaseURL(), opts...), nil
	case config.BackendIdentity:
		be, err := identity.New(ctx, cfg,
			identity.WithHTTPClient(httpClient),
			identity.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return be, nil
	}
	return nil, errors.Errorf("unknown auth backend %q", cfg.GetAuthBackend())
}

// Close releases the token store's connections
func (c *Client) Close() error {
	var firstErr error
	for _, closer := range c.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
