package backendfake

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/jrsteele09/portfolio-auth/authmodel"
	"github.com/jrsteele09/portfolio-auth/backend"
	apperrors "github.com/jrsteele09/portfolio-auth/internal/errors"
	"github.com/jrsteele09/portfolio-auth/token"
	"github.com/jrsteele09/portfolio-auth/users"
)

// ConfirmationCode is the only code ConfirmRegistration accepts
const ConfirmationCode = "123456"

// Operation names counted by Calls
const (
	OpRegister             = "register"
	OpConfirmRegistration  = "confirm-registration"
	OpLogin                = "login"
	OpRefresh              = "refresh"
	OpRequestPasswordReset = "request-password-reset"
	OpConfirmPasswordReset = "confirm-password-reset"
	OpGetCurrentUser       = "get-current-user"
)

var _ backend.AuthBackend = (*FakeBackend)(nil)

type fakeAccount struct {
	user      users.User
	password  string
	confirmed bool
}

// FakeBackend is an in-memory AuthBackend. Refresh tokens are single use, the
// way a rotating backend behaves. Tokens are issued as A<n>/R<n>.
type FakeBackend struct {
	// RequireConfirmation makes Register leave accounts pending
	RequireConfirmation bool
	// RefreshGate, when set, blocks Refresh until it receives or is closed
	RefreshGate chan struct{}
	// Err, when set, fails every call with a network error
	Err error

	accounts    map[string]*fakeAccount // by username and email
	access      map[string]string       // access token to sub
	refresh     map[string]string       // refresh token to sub
	resetTokens map[string]string       // reset token to sub
	calls       map[string]int
	nextToken   int
	nextUser    int
	lock        sync.Mutex
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		accounts:    make(map[string]*fakeAccount),
		access:      make(map[string]string),
		refresh:     make(map[string]string),
		resetTokens: make(map[string]string),
		calls:       make(map[string]int),
	}
}

// AddUser creates a confirmed account. Subjects are assigned as u1, u2, ...
func (fb *FakeBackend) AddUser(username, email, password string) *users.User {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	return fb.addUser(username, email, password, true)
}

// Calls returns how many times op has been invoked
func (fb *FakeBackend) Calls(op string) int {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	return fb.calls[op]
}

// ExpireAccess invalidates an access token
func (fb *FakeBackend) ExpireAccess(accessToken string) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	delete(fb.access, accessToken)
}

// ExpireAll invalidates every issued access and refresh token
func (fb *FakeBackend) ExpireAll() {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	fb.access = make(map[string]string)
	fb.refresh = make(map[string]string)
}

// IssueResetToken stores a reset token for the account, bypassing RequestPasswordReset
func (fb *FakeBackend) IssueResetToken(identifier, resetToken string) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	if a, ok := fb.accounts[identifier]; ok {
		fb.resetTokens[resetToken] = a.user.Sub
	}
}

func (fb *FakeBackend) Register(_ context.Context, input authmodel.SignUpInput) (*authmodel.SignUpResult, error) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	if err := fb.enter(OpRegister); err != nil {
		return nil, err
	}

	if _, exists := fb.accounts[users.NormalizeEmail(input.Email)]; exists {
		return nil, apperrors.FromStatus(apperrors.ErrRegistration, http.StatusBadRequest, "User with this email already exists", nil)
	}
	if _, exists := fb.accounts[input.Username]; input.Username != "" && exists {
		return nil, apperrors.FromStatus(apperrors.ErrRegistration, http.StatusBadRequest, "Username already taken", nil)
	}

	u := fb.addUser(input.Username, input.Email, input.Password, !fb.RequireConfirmation)
	u.FullName = input.FullName
	if fb.RequireConfirmation {
		return &authmodel.SignUpResult{ConfirmationRequired: true, Destination: input.Email, UserSub: u.Sub}, nil
	}
	return &authmodel.SignUpResult{Tokens: fb.issue(u.Sub), UserSub: u.Sub}, nil
}

func (fb *FakeBackend) ConfirmRegistration(_ context.Context, input authmodel.ConfirmSignUpInput) error {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	if err := fb.enter(OpConfirmRegistration); err != nil {
		return err
	}

	a, ok := fb.accounts[input.Username]
	if !ok || input.Code != ConfirmationCode {
		return apperrors.FromStatus(apperrors.ErrRegistration, http.StatusBadRequest, "Invalid verification code provided, please try again.", nil)
	}
	a.confirmed = true
	return nil
}

func (fb *FakeBackend) Login(_ context.Context, input authmodel.SignInInput) (*token.CredentialPair, error) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	if err := fb.enter(OpLogin); err != nil {
		return nil, err
	}

	a, ok := fb.accounts[input.Identifier()]
	if !ok || a.password != input.Password {
		return nil, apperrors.FromStatus(apperrors.ErrAuthentication, http.StatusUnauthorized, "Invalid email or password", nil)
	}
	if !a.confirmed {
		return nil, apperrors.FromStatus(apperrors.ErrAuthentication, http.StatusBadRequest, "User is not confirmed.", nil)
	}
	return fb.issue(a.user.Sub), nil
}

func (fb *FakeBackend) Refresh(_ context.Context, refreshToken string) (*token.CredentialPair, error) {
	fb.lock.Lock()
	gate := fb.RefreshGate
	if err := fb.enter(OpRefresh); err != nil {
		fb.lock.Unlock()
		return nil, err
	}
	fb.lock.Unlock()

	if gate != nil {
		<-gate
	}

	fb.lock.Lock()
	defer fb.lock.Unlock()
	sub, ok := fb.refresh[refreshToken]
	if !ok {
		return nil, apperrors.FromStatus(apperrors.ErrRefresh, http.StatusUnauthorized, "Invalid refresh token", nil)
	}
	delete(fb.refresh, refreshToken)
	return fb.issue(sub), nil
}

func (fb *FakeBackend) RequestPasswordReset(_ context.Context, req authmodel.PasswordResetRequest) (*authmodel.PasswordResetResponse, error) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	if err := fb.enter(OpRequestPasswordReset); err != nil {
		return nil, err
	}

	a, ok := fb.accounts[req.Identifier()]
	if !ok {
		return &authmodel.PasswordResetResponse{Message: "If the email exists, a reset token has been sent"}, nil
	}
	resetToken := fmt.Sprintf("reset-%s", a.user.Sub)
	fb.resetTokens[resetToken] = a.user.Sub
	return &authmodel.PasswordResetResponse{Message: "Password reset token generated", Token: resetToken}, nil
}

func (fb *FakeBackend) ConfirmPasswordReset(_ context.Context, req authmodel.PasswordResetConfirm) (*authmodel.MessageResponse, error) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	if err := fb.enter(OpConfirmPasswordReset); err != nil {
		return nil, err
	}

	sub, ok := fb.resetTokens[req.Token]
	if !ok {
		return nil, apperrors.FromStatus(apperrors.ErrReset, http.StatusBadRequest, "Invalid or expired reset token", nil)
	}
	delete(fb.resetTokens, req.Token)
	for _, a := range fb.accounts {
		if a.user.Sub == sub {
			a.password = req.NewPassword
		}
	}
	return &authmodel.MessageResponse{Message: "Password reset successfully"}, nil
}

func (fb *FakeBackend) GetCurrentUser(_ context.Context, accessToken string) (*users.User, error) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	if err := fb.enter(OpGetCurrentUser); err != nil {
		return nil, err
	}

	sub, ok := fb.access[accessToken]
	if !ok {
		return nil, apperrors.FromStatus(apperrors.ErrUnauthorized, http.StatusUnauthorized, "Could not validate credentials", nil)
	}
	for _, a := range fb.accounts {
		if a.user.Sub == sub {
			u := a.user
			return &u, nil
		}
	}
	return nil, apperrors.FromStatus(apperrors.ErrUnauthorized, http.StatusUnauthorized, "User not found", nil)
}

// enter must be called with the lock held
func (fb *FakeBackend) enter(op string) error {
	fb.calls[op]++
	if fb.Err != nil {
		return apperrors.Network(fb.Err)
	}
	return nil
}

// addUser must be called with the lock held
func (fb *FakeBackend) addUser(username, email, password string, confirmed bool) *users.User {
	fb.nextUser++
	a := &fakeAccount{
		user: users.User{
			Sub:      fmt.Sprintf("u%d", fb.nextUser),
			Email:    users.NormalizeEmail(email),
			Username: username,
		},
		password:  password,
		confirmed: confirmed,
	}
	if username != "" {
		fb.accounts[username] = a
	}
	if email != "" {
		fb.accounts[a.user.Email] = a
	}
	return &a.user
}

// issue must be called with the lock held
func (fb *FakeBackend) issue(sub string) *token.CredentialPair {
	fb.nextToken++
	pair := &token.CredentialPair{
		AccessToken:  fmt.Sprintf("A%d", fb.nextToken),
		RefreshToken: fmt.Sprintf("R%d", fb.nextToken),
	}
	fb.access[pair.AccessToken] = sub
	fb.refresh[pair.RefreshToken] = sub
	return pair
}
