// Package backend defines the auth operations the session manager depends on.
// Two implementations exist: tokenapi for the custom token-issuing API and
// identity for the managed identity provider.
package backend

import (
	"context"

	"github.com/jrsteele09/portfolio-auth/authmodel"
	"github.com/jrsteele09/portfolio-auth/token"
	"github.com/jrsteele09/portfolio-auth/users"
)

// AuthBackend is stateless: every call is a single request and nothing is
// cached between calls. Failures are *errors.AuthError values whose Kind names
// the operation (ErrRegistration, ErrAuthentication, ErrRefresh, ErrReset,
// ErrUnauthorized) or ErrNetwork when no response arrived.
type AuthBackend interface {
	Register(ctx context.Context, input authmodel.SignUpInput) (*authmodel.SignUpResult, error)
	ConfirmRegistration(ctx context.Context, input authmodel.ConfirmSignUpInput) error
	Login(ctx context.Context, input authmodel.SignInInput) (*token.CredentialPair, error)
	Refresh(ctx context.Context, refreshToken string) (*token.CredentialPair, error)
	RequestPasswordReset(ctx context.Context, req authmodel.PasswordResetRequest) (*authmodel.PasswordResetResponse, error)
	ConfirmPasswordReset(ctx context.Context, req authmodel.PasswordResetConfirm) (*authmodel.MessageResponse, error)
	GetCurrentUser(ctx context.Context, accessToken string) (*users.User, error)
}
