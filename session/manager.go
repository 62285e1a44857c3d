// Package session holds the client's authentication state and the operations
// that change it. A Manager is built once per process and passed to whatever
// needs it.
package session

import (
	"context"
	"sync"

	"github.com/jrsteele09/portfolio-auth/authmodel"
	"github.com/jrsteele09/portfolio-auth/backend"
	apperrors "github.com/jrsteele09/portfolio-auth/internal/errors"
	"github.com/jrsteele09/portfolio-auth/token"
	"github.com/jrsteele09/portfolio-auth/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// Manager owns the session. Operations are not serialized against each other:
// two concurrent sign-ins or refreshes both run and the last store write wins,
// unless WithSingleFlightRefresh is set.
type Manager struct {
	store        token.Store
	backend      backend.AuthBackend
	logger       zerolog.Logger
	onChange     func(State)
	singleFlight bool
	refreshGroup singleflight.Group

	mu      sync.Mutex
	user    *users.User
	loading int
	lastErr string

	initOnce sync.Once
	initErr  error
}

type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithSingleFlightRefresh makes concurrent RefreshAccessToken calls share one
// backend refresh; callers that arrive while it runs get its result.
func WithSingleFlightRefresh() Option {
	return func(m *Manager) {
		m.singleFlight = true
	}
}

// WithOnChange registers a callback invoked with a snapshot after every state
// change. It runs synchronously and must not call back into the Manager's
// mutating operations.
func WithOnChange(fn func(State)) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// NewManager returns a Manager in the loading state; call Initialize once at startup.
func NewManager(store token.Store, be backend.AuthBackend, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		backend: be,
		logger:  log.Logger,
		loading: 1, // released by Initialize
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize restores the session from the token store. It runs once; later
// calls return the first result. A stored session that cannot be restored
// leaves the Manager anonymous with the store cleared, and the reason is returned.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.initErr = m.derive(ctx)
		if m.initErr != nil {
			m.logger.Info().Err(m.initErr).Msg("stored session could not be restored")
		}
		m.finish(nil)
	})
	return m.initErr
}

// Reload re-derives the session from the token store, the same way Initialize does.
func (m *Manager) Reload(ctx context.Context) error {
	m.start()
	err := m.derive(ctx)
	m.finish(err)
	return err
}

// SignIn logs in and persists the returned credentials before the session shows
// the user. On failure the stored tokens are left untouched.
func (m *Manager) SignIn(ctx context.Context, input authmodel.SignInInput) error {
	m.start()
	pair, err := m.backend.Login(ctx, input)
	if err == nil {
		err = m.persistAndDerive(ctx, pair)
	}
	m.finish(err)
	return err
}

// SignUp validates the passwords locally, then registers. When the backend
// needs the account confirmed first the session stays anonymous and the
// returned result says so.
func (m *Manager) SignUp(ctx context.Context, input authmodel.SignUpInput) (*authmodel.SignUpResult, error) {
	if err := users.ValidatePassword(input.Password, input.ConfirmPassword); err != nil {
		verr := apperrors.New(apperrors.ErrValidation, err.Error())
		m.setError(verr)
		return nil, verr
	}

	m.start()
	result, err := m.backend.Register(ctx, input)
	if err == nil && result.Tokens != nil {
		err = m.persistAndDerive(ctx, result.Tokens)
	}
	m.finish(err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmSignUp completes a pending registration with its one-time code.
func (m *Manager) ConfirmSignUp(ctx context.Context, input authmodel.ConfirmSignUpInput) error {
	m.start()
	err := m.backend.ConfirmRegistration(ctx, input)
	if err == nil {
		err = m.derive(ctx)
	}
	m.finish(err)
	return err
}

// SignOut clears the stored credentials and resets the session. The backend is
// not told: issued tokens stay valid until they expire.
func (m *Manager) SignOut(ctx context.Context) error {
	m.start()
	err := m.store.Clear(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to clear token store")
	}
	m.setUser(nil)
	m.finish(err)
	return err
}

// ForgotPassword requests a reset token. The session is not touched.
func (m *Manager) ForgotPassword(ctx context.Context, req authmodel.PasswordResetRequest) (*authmodel.PasswordResetResponse, error) {
	m.start()
	resp, err := m.backend.RequestPasswordReset(ctx, req)
	m.finish(err)
	return resp, err
}

// ConfirmForgotPassword sets a new password with a reset token. The session is not touched.
func (m *Manager) ConfirmForgotPassword(ctx context.Context, req authmodel.PasswordResetConfirm) (*authmodel.MessageResponse, error) {
	m.start()
	resp, err := m.backend.ConfirmPasswordReset(ctx, req)
	m.finish(err)
	return resp, err
}

// AccessToken reads the stored access token. No network call is made.
func (m *Manager) AccessToken(ctx context.Context) (string, bool) {
	return m.store.Access(ctx)
}

// RefreshAccessToken mints a new credential pair from the stored refresh token
// and returns the new access token. Any failure ends the session: the store is
// cleared, the Manager goes anonymous and ok is false.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, bool) {
	if !m.singleFlight {
		return m.refresh(ctx)
	}
	v, _, _ := m.refreshGroup.Do(refreshKey, func() (any, error) {
		access, ok := m.refresh(ctx)
		if !ok {
			return "", nil
		}
		return access, nil
	})
	access, _ := v.(string)
	return access, access != ""
}

// State returns a snapshot of the session
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Guard applies the protected-route rules to the current state
func (m *Manager) Guard(requireAuth bool, from string) Decision {
	return m.State().Guard(requireAuth, from)
}

func (m *Manager) refresh(ctx context.Context) (string, bool) {
	m.start()
	defer m.finish(nil)

	refreshToken, ok := m.store.Refresh(ctx)
	if !ok {
		m.endSession(ctx, apperrors.New(apperrors.ErrNoRefreshToken, "No refresh token available"))
		return "", false
	}
	pair, err := m.backend.Refresh(ctx, refreshToken)
	if err != nil {
		m.endSession(ctx, err)
		return "", false
	}
	if err := m.store.Set(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		m.endSession(ctx, err)
		return "", false
	}
	return pair.AccessToken, true
}

// persistAndDerive succeeds only when the session ends up authenticated, so a
// reported sign-in always has a token in the store.
func (m *Manager) persistAndDerive(ctx context.Context, pair *token.CredentialPair) error {
	if pair == nil || pair.AccessToken == "" {
		return apperrors.New(apperrors.ErrServer, "The server did not return an access token")
	}
	if err := m.store.Set(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return err
	}
	if err := m.derive(ctx); err != nil {
		return err
	}
	if m.State().User == nil {
		err := apperrors.New(apperrors.ErrServer, "Signed in but no session could be established")
		m.endSession(ctx, err)
		return err
	}
	return nil
}

// derive resolves the user for the stored access token, refreshing once if the
// backend rejects it. When that chain fails the session is over.
func (m *Manager) derive(ctx context.Context) error {
	access, ok := m.store.Access(ctx)
	if !ok {
		m.setUser(nil)
		return nil
	}

	u, err := m.backend.GetCurrentUser(ctx, access)
	if err == nil {
		m.setUser(u)
		return nil
	}
	m.logger.Debug().Err(err).Msg("current user lookup failed, refreshing")

	refreshToken, ok := m.store.Refresh(ctx)
	if !ok {
		m.endSession(ctx, err)
		return err
	}
	pair, err := m.backend.Refresh(ctx, refreshToken)
	if err != nil {
		m.endSession(ctx, err)
		return err
	}
	if err = m.store.Set(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		m.endSession(ctx, err)
		return err
	}
	if u, err = m.backend.GetCurrentUser(ctx, pair.AccessToken); err != nil {
		m.endSession(ctx, err)
		return err
	}
	m.setUser(u)
	return nil
}

// endSession clears the store and drops the user
func (m *Manager) endSession(ctx context.Context, cause error) {
	m.logger.Debug().Err(cause).Msg("session ended")
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error().Err(err).Msg("failed to clear token store")
	}
	m.setUser(nil)
}

func (m *Manager) start() {
	m.mu.Lock()
	m.loading++
	m.lastErr = ""
	s := m.snapshot()
	m.mu.Unlock()
	m.notify(s)
}

func (m *Manager) finish(err error) {
	m.mu.Lock()
	if m.loading > 0 {
		m.loading--
	}
	if err != nil {
		m.lastErr = apperrors.Message(err)
	}
	s := m.snapshot()
	m.mu.Unlock()
	m.notify(s)
}

func (m *Manager) setUser(u *users.User) {
	m.mu.Lock()
	m.user = u
	s := m.snapshot()
	m.mu.Unlock()
	m.notify(s)
}

func (m *Manager) setError(err error) {
	m.mu.Lock()
	m.lastErr = apperrors.Message(err)
	s := m.snapshot()
	m.mu.Unlock()
	m.notify(s)
}

// snapshot must be called with mu held
func (m *Manager) snapshot() State {
	return State{
		User:            m.user,
		IsAuthenticated: m.user != nil,
		IsLoading:       m.loading > 0,
		Error:           m.lastErr,
	}
}

func (m *Manager) notify(s State) {
	if m.onChange != nil {
		m.onChange(s)
	}
}
