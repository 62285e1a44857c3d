package users

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced locally on sign-up and password reset, before
// any request is sent.
const MinPasswordLength = 8

// User is the identity returned by the backend after authentication. It is
// replaced wholesale on every refresh, never patched.
type User struct {
	Sub      string   `json:"sub"`                 // Stable subject identifier
	Email    string   `json:"email,omitempty"`     // Email address, when the backend shares it
	Username string   `json:"username,omitempty"`  // Login name (managed provider usernames)
	FullName string   `json:"full_name,omitempty"` // Display name
	Groups   []string `json:"groups,omitempty"`    // Group memberships
}

// DisplayName returns the best human readable name for the user
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.FullName != "":
		return u.FullName
	case u.Username != "":
		return u.Username
	case u.Email != "":
		return u.Email
	}
	return u.Sub
}

func (u *User) InGroup(group string) bool {
	for _, g := range u.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Account is the server-side record behind a User, kept by the development API server.
type Account struct {
	ID           string    `json:"id,omitempty"`
	Email        string    `json:"email,omitempty"`
	Username     string    `json:"username,omitempty"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"` // never serialize
	Groups       []string  `json:"groups,omitempty"`
	Active       bool      `json:"active,omitempty"`
	Verified     bool      `json:"verified,omitempty"`
	DateJoined   time.Time `json:"date_joined,omitempty"`
	LastLogin    time.Time `json:"last_login,omitempty"`
}

// Identity projects the account onto the public User shape
func (a *Account) Identity() *User {
	return &User{
		Sub:      a.ID,
		Email:    a.Email,
		Username: a.Username,
		FullName: a.FullName,
		Groups:   append([]string(nil), a.Groups...),
	}
}

// ValidatePassword checks the sign-up rules: the confirmation must match and
// the password must be at least MinPasswordLength characters.
func ValidatePassword(password, confirm string) error {
	if password != confirm {
		return errors.New("Passwords do not match")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("Password must be at least %d characters long", MinPasswordLength)
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email for lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
