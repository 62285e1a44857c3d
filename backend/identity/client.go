// Package identity is the AuthBackend for the managed identity provider
// (a Cognito user pool). Sign-in, refresh, sign-up and password recovery use
// the provider's JSON API; ID tokens are verified and the current user is
// read through the pool's OpenID Connect endpoints.
package identity

import (
	"context"
	"net/http"
	"strconv"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/portfolio-auth/authmodel"
	"github.com/jrsteele09/portfolio-auth/backend"
	"github.com/jrsteele09/portfolio-auth/internal/config"
	apperrors "github.com/jrsteele09/portfolio-auth/internal/errors"
	"github.com/jrsteele09/portfolio-auth/token"
	"github.com/jrsteele09/portfolio-auth/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var _ backend.AuthBackend = (*Client)(nil)

type Client struct {
	clientID   string
	endpoint   string
	httpClient *http.Client
	provider   *oidc.Provider
	verifier   *oidc.IDTokenVerifier
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// New discovers the user pool's OpenID configuration and returns a ready client.
func New(ctx context.Context, cfg config.IdentityConfig, opts ...Option) (*Client, error) {
	if cfg.GetIdentityPoolID() == "" || cfg.GetIdentityClientID() == "" {
		return nil, errors.New("[identity.New] user pool id and app client id are required")
	}

	c := &Client{
		clientID:   cfg.GetIdentityClientID(),
		endpoint:   cfg.GetIdentityEndpoint(),
		httpClient: http.DefaultClient,
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	provider, err := oidc.NewProvider(c.clientContext(ctx), cfg.GetIdentityIssuerURL())
	if err != nil {
		return nil, errors.Wrap(err, "[identity.New] failed to create OIDC provider")
	}

	c.provider = provider
	c.verifier = provider.Verifier(&oidc.Config{ClientID: c.clientID})
	return c, nil
}

// Register signs the user up. Pools that auto-confirm return tokens straight
// away; otherwise the result reports ConfirmationRequired and the code's destination.
func (c *Client) Register(ctx context.Context, input authmodel.SignUpInput) (*authmodel.SignUpResult, error) {
	username := input.Username
	if username == "" {
		username = input.Email
	}
	attrs := []attributeType{{Name: "email", Value: input.Email}}
	if input.FullName != "" {
		attrs = append(attrs, attributeType{Name: "name", Value: input.FullName})
	}

	var out signUpOutput
	err := c.call(ctx, actionSignUp, signUpInput{
		ClientID:       c.clientID,
		Username:       username,
		Password:       input.Password,
		UserAttributes: attrs,
	}, &out, apperrors.ErrRegistration)
	if err != nil {
		return nil, err
	}

	if !out.UserConfirmed {
		return &authmodel.SignUpResult{
			ConfirmationRequired: true,
			Destination:          out.CodeDeliveryDetails.Destination,
			UserSub:              out.UserSub,
		}, nil
	}

	pair, err := c.Login(ctx, authmodel.SignInInput{Username: username, Password: input.Password})
	if err != nil {
		return nil, err
	}
	return &authmodel.SignUpResult{Tokens: pair, UserSub: out.UserSub}, nil
}

func (c *Client) ConfirmRegistration(ctx context.Context, input authmodel.ConfirmSignUpInput) error {
	return c.call(ctx, actionConfirmSignUp, confirmSignUpInput{
		ClientID:         c.clientID,
		Username:         input.Username,
		ConfirmationCode: input.Code,
	}, nil, apperrors.ErrRegistration)
}

// Login runs the USER_PASSWORD_AUTH flow. The app client must allow it.
func (c *Client) Login(ctx context.Context, input authmodel.SignInInput) (*token.CredentialPair, error) {
	result, err := c.initiateAuth(ctx, authFlowUserPassword, map[string]string{
		"USERNAME": input.Identifier(),
		"PASSWORD": input.Password,
	}, apperrors.ErrAuthentication)
	if err != nil {
		if providerErrorType(err) == "UserNotConfirmedException" {
			return nil, apperrors.FromStatus(apperrors.ErrConfirmationRequired, apperrors.StatusOf(err), apperrors.Message(err), nil)
		}
		return nil, err
	}
	if err := c.verifyIDToken(ctx, result.IDToken, apperrors.ErrAuthentication); err != nil {
		return nil, err
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		return nil, apperrors.New(apperrors.ErrServer, "Sign-in response is missing tokens")
	}
	return &token.CredentialPair{AccessToken: result.AccessToken, RefreshToken: result.RefreshToken}, nil
}

// Refresh runs the REFRESH_TOKEN_AUTH flow. The provider does not rotate
// refresh tokens, so the old one is kept when none is returned.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*token.CredentialPair, error) {
	result, err := c.initiateAuth(ctx, authFlowRefreshToken, map[string]string{
		"REFRESH_TOKEN": refreshToken,
	}, apperrors.ErrRefresh)
	if err != nil {
		return nil, err
	}
	if err := c.verifyIDToken(ctx, result.IDToken, apperrors.ErrRefresh); err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, apperrors.New(apperrors.ErrServer, "Refresh response is missing an access token")
	}
	pair := &token.CredentialPair{AccessToken: result.AccessToken, RefreshToken: result.RefreshToken}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

// initiateAuth returns the issued tokens. A challenge (MFA, forced password
// change) cannot be answered here and is reported as a failure of kind.
func (c *Client) initiateAuth(ctx context.Context, flow string, params map[string]string, kind error) (*authenticationResult, error) {
	var out initiateAuthOutput
	err := c.call(ctx, actionInitiateAuth, initiateAuthInput{
		ClientID:       c.clientID,
		AuthFlow:       flow,
		AuthParameters: params,
	}, &out, kind)
	if err != nil {
		return nil, err
	}
	if out.ChallengeName != "" {
		return nil, apperrors.FromStatus(kind, http.StatusUnauthorized,
			"Sign-in requires an unsupported challenge: "+out.ChallengeName, nil)
	}
	if out.AuthenticationResult == nil {
		return nil, apperrors.New(apperrors.ErrServer, "Authentication response has no result")
	}
	return out.AuthenticationResult, nil
}

// RequestPasswordReset starts the forgot-password flow. An unknown user gets the
// same response as a known one.
func (c *Client) RequestPasswordReset(ctx context.Context, req authmodel.PasswordResetRequest) (*authmodel.PasswordResetResponse, error) {
	var out forgotPasswordOutput
	err := c.call(ctx, actionForgotPassword, forgotPasswordInput{
		ClientID: c.clientID,
		Username: req.Identifier(),
	}, &out, apperrors.ErrReset)
	if err != nil {
		if providerErrorType(err) == "UserNotFoundException" {
			return &authmodel.PasswordResetResponse{Message: resetRequestedMessage}, nil
		}
		return nil, err
	}
	msg := resetRequestedMessage
	if d := out.CodeDeliveryDetails.Destination; d != "" {
		msg = "A reset code has been sent to " + d
	}
	return &authmodel.PasswordResetResponse{Message: msg}, nil
}

// ConfirmPasswordReset uses req.Token as the emailed confirmation code.
func (c *Client) ConfirmPasswordReset(ctx context.Context, req authmodel.PasswordResetConfirm) (*authmodel.MessageResponse, error) {
	if req.Username == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "Username is required to confirm a password reset")
	}
	err := c.call(ctx, actionConfirmForgotPassword, confirmForgotPasswordInput{
		ClientID:         c.clientID,
		Username:         req.Username,
		ConfirmationCode: req.Token,
		Password:         req.NewPassword,
	}, nil, apperrors.ErrReset)
	if err != nil {
		return nil, err
	}
	return &authmodel.MessageResponse{Message: "Password reset successfully"}, nil
}

func (c *Client) GetCurrentUser(ctx context.Context, accessToken string) (*users.User, error) {
	info, err := c.provider.UserInfo(c.clientContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	if err != nil {
		return nil, userInfoError(err)
	}

	claims := map[string]any{}
	if err := info.Claims(&claims); err != nil {
		return nil, apperrors.New(apperrors.ErrServer, "Invalid user info response")
	}
	claims[users.ClaimSub] = info.Subject

	u := users.FromClaims(claims)
	if u == nil {
		return nil, apperrors.New(apperrors.ErrServer, "User info response has no subject")
	}
	return u, nil
}

// verifyIDToken checks the ID token when the provider returned one
func (c *Client) verifyIDToken(ctx context.Context, raw string, kind error) error {
	if raw == "" {
		return nil
	}
	if _, err := c.verifier.Verify(c.clientContext(ctx), raw); err != nil {
		c.logger.Warn().Err(err).Msg("id token verification failed")
		return apperrors.FromStatus(kind, http.StatusUnauthorized, "Invalid ID token", err.Error())
	}
	return nil
}

func (c *Client) clientContext(ctx context.Context) context.Context {
	return oidc.ClientContext(ctx, c.httpClient)
}

const resetRequestedMessage = "If the account exists, a reset code has been sent"

// userInfoError recovers the status from the userinfo failure. go-oidc reports
// non-200 responses as "<status line>: <body>".
func userInfoError(err error) error {
	msg := err.Error()
	if len(msg) < 4 || msg[3] != ' ' {
		return apperrors.Network(err)
	}
	status, convErr := strconv.Atoi(msg[:3])
	if convErr != nil {
		return apperrors.Network(err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return apperrors.FromStatus(apperrors.ErrUnauthorized, status, "", msg)
	}
	return apperrors.FromStatus(apperrors.ErrServer, status, "", msg)
}
