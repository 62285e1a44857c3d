package refresh

import (
	"time"

	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ErrRevoked is returned when a refresh token was already redeemed or revoked.
var ErrRevoked = errors.New("refresh token revoked")

// Manager makes refresh tokens single use when rotation is enabled. With
// rotation off every unexpired refresh token stays valid until it expires.
type Manager struct {
	repo   Repo
	rotate bool
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, rotate bool) *Manager {
	return &Manager{
		repo:   repo,
		rotate: rotate,
	}
}

// Rotating reports whether redeemed tokens are invalidated
func (m *Manager) Rotating() bool {
	return m.rotate
}

// Track records a newly issued refresh token
func (m *Manager) Track(jti, userID string, expiry time.Time) error {
	if !m.rotate {
		return nil
	}
	if err := m.repo.Upsert(&StoredRefreshToken{
		JTI:    jti,
		UserID: userID,
		Iat:    NowTimeFunc(),
		Expiry: expiry,
	}); err != nil {
		return errors.Wrap(err, "[refresh.Manager.Track] failed to store refresh token")
	}
	return nil
}

// Redeem consumes a refresh token. A second redemption of the same jti fails
// with ErrRevoked.
func (m *Manager) Redeem(jti, userID string) error {
	if !m.rotate {
		return nil
	}
	stored, err := m.repo.Get(jti)
	if err != nil || stored.UserID != userID {
		return ErrRevoked
	}
	if err := m.repo.Delete(jti); err != nil {
		// lost a race with a concurrent redemption
		return ErrRevoked
	}
	if m.IsExpired(stored) {
		return ErrRevoked
	}
	return nil
}

// RevokeUser drops every outstanding refresh token of a user, e.g. after a
// password reset.
func (m *Manager) RevokeUser(userID string) error {
	tokens, err := m.repo.GetByUserID(userID)
	if err != nil {
		return errors.Wrap(err, "[refresh.Manager.RevokeUser] failed to list refresh tokens")
	}
	for _, t := range tokens {
		if err := m.repo.Delete(t.JTI); err != nil && !errors.Is(err, ErrNotFound) {
			return errors.Wrap(err, "[refresh.Manager.RevokeUser] failed to delete refresh token")
		}
	}
	return nil
}

// IsExpired checks the stored expiry against NowTimeFunc
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return !rt.Expiry.IsZero() && NowTimeFunc().After(rt.Expiry)
}
