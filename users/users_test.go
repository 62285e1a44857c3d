package users_test

import (
	"testing"

	"github.com/jrsteele09/portfolio-auth/users"
	fakeuserrepo "github.com/jrsteele09/portfolio-auth/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		err := users.ValidatePassword("abc123", "abc123")
		require.Error(t, err)
		require.Contains(t, err.Error(), "at least 8 characters")
	})

	t.Run("mismatch", func(t *testing.T) {
		err := users.ValidatePassword("password123", "password124")
		require.Error(t, err)
		require.Equal(t, "Passwords do not match", err.Error())
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		require.Error(t, users.ValidatePassword("ééééééé", "ééééééé"))
		require.NoError(t, users.ValidatePassword("éééééééé", "éééééééé"))
	})

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, users.ValidatePassword("pw123456", "pw123456"))
	})
}

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("pw123456")
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash("pw123456", hash))
	require.False(t, users.CheckPasswordHash("wrong", hash))
}

func TestFromClaims(t *testing.T) {
	t.Run("managed provider claims", func(t *testing.T) {
		u := users.FromClaims(map[string]any{
			"sub":              "u1",
			"email":            "alice@x.com",
			"cognito:username": "alice",
			"cognito:groups":   []any{"investors", "admins"},
		})
		require.NotNil(t, u)
		require.Equal(t, "u1", u.Sub)
		require.Equal(t, "alice", u.Username)
		require.Equal(t, []string{"investors", "admins"}, u.Groups)
		require.True(t, u.InGroup("admins"))
	})

	t.Run("plain claims", func(t *testing.T) {
		u := users.FromClaims(map[string]any{"sub": "u2", "name": "Bob Smith"})
		require.Equal(t, "Bob Smith", u.DisplayName())
		require.Empty(t, u.Groups)
	})

	t.Run("missing subject", func(t *testing.T) {
		require.Nil(t, users.FromClaims(map[string]any{"email": "x@y.z"}))
	})
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	err := repo.Create(&users.Account{Email: "Alice@X.com", Username: "alice", PasswordHash: "h"})
	require.NoError(t, err)

	err = repo.Create(&users.Account{Email: "alice@x.com"})
	require.ErrorIs(t, err, users.ErrAlreadyExists)

	byEmail, err := repo.GetByEmail("alice@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, byEmail.ID)

	byName, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	require.Equal(t, byEmail.ID, byName.ID)

	require.NoError(t, repo.SetPasswordHash(byEmail.ID, "h2"))
	updated, err := repo.GetByID(byEmail.ID)
	require.NoError(t, err)
	require.Equal(t, "h2", updated.PasswordHash)

	_, err = repo.GetByID("missing")
	require.ErrorIs(t, err, users.ErrNotFound)
}
