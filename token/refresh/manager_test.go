package refresh_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/portfolio-auth/token/refresh"
	refreshrepofake "github.com/jrsteele09/portfolio-auth/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

func TestRedeemIsSingleUse(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), true)
	require.NoError(t, m.Track("jti-1", "u1", time.Now().Add(time.Hour)))

	require.NoError(t, m.Redeem("jti-1", "u1"))
	require.ErrorIs(t, m.Redeem("jti-1", "u1"), refresh.ErrRevoked)
}

func TestRedeemRejectsOtherUser(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), true)
	require.NoError(t, m.Track("jti-1", "u1", time.Now().Add(time.Hour)))

	require.ErrorIs(t, m.Redeem("jti-1", "u2"), refresh.ErrRevoked)
	require.ErrorIs(t, m.Redeem("unknown", "u1"), refresh.ErrRevoked)
}

func TestRedeemExpired(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), true)
	require.NoError(t, m.Track("jti-1", "u1", time.Now().Add(time.Minute)))

	refresh.NowTimeFunc = func() time.Time { return time.Now().Add(time.Hour) }
	defer func() { refresh.NowTimeFunc = time.Now }()

	require.ErrorIs(t, m.Redeem("jti-1", "u1"), refresh.ErrRevoked)
}

func TestRotationDisabled(t *testing.T) {
	m := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), false)
	require.False(t, m.Rotating())
	require.NoError(t, m.Track("jti-1", "u1", time.Now().Add(time.Hour)))

	require.NoError(t, m.Redeem("jti-1", "u1"))
	require.NoError(t, m.Redeem("jti-1", "u1"))
}

func TestRevokeUser(t *testing.T) {
	repo := refreshrepofake.NewFakeRefreshTokenRepo()
	m := refresh.NewManager(repo, true)
	require.NoError(t, m.Track("a", "u1", time.Now().Add(time.Hour)))
	require.NoError(t, m.Track("b", "u1", time.Now().Add(time.Hour)))
	require.NoError(t, m.Track("c", "u2", time.Now().Add(time.Hour)))

	require.NoError(t, m.RevokeUser("u1"))

	left, err := repo.GetByUserID("u1")
	require.NoError(t, err)
	require.Empty(t, left)
	require.NoError(t, m.Redeem("c", "u2"))
}
