// Package tokenapi talks to the custom token-issuing API under /auth.
package tokenapi

import (
	"context"
	"net/http"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/portfolio-auth/authmodel"
	"github.com/jrsteele09/portfolio-auth/backend"
	apperrors "github.com/jrsteele09/portfolio-auth/internal/errors"
	"github.com/jrsteele09/portfolio-auth/internal/httpjson"
	"github.com/jrsteele09/portfolio-auth/token"
	"github.com/jrsteele09/portfolio-auth/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Endpoint paths relative to the API base URL
const (
	RouteRegister             = "/auth/register"
	RouteLogin                = "/auth/login"
	RouteRefresh              = "/auth/refresh"
	RoutePasswordReset        = "/auth/password-reset"
	RoutePasswordResetConfirm = "/auth/password-reset/confirm"
	RouteMe                   = "/auth/me"
)

var _ backend.AuthBackend = (*Client)(nil)

type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	claimsUser bool
	nowFunc    func() time.Time
	logger     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// WithClaimsUser derives GetCurrentUser from the access token's JWT payload
// instead of calling /auth/me. The signature is NOT verified; only exp is
// checked against the local clock.
func WithClaimsUser() Option {
	return func(cl *Client) {
		cl.claimsUser = true
	}
}

// WithNowTime sets the clock used for the claims exp check (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(cl *Client) {
		cl.nowFunc = nowFunc
	}
}

// New returns a client for the API rooted at baseURL, e.g. "http://localhost:8000/api/v1".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    trimSlash(baseURL),
		httpClient: http.DefaultClient,
		nowFunc:    time.Now,
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Register(ctx context.Context, input authmodel.SignUpInput) (*authmodel.SignUpResult, error) {
	var tr authmodel.TokenResponse
	if err := c.post(ctx, RouteRegister, input, &tr, apperrors.ErrRegistration); err != nil {
		return nil, err
	}
	pair, err := credentials(&tr, "")
	if err != nil {
		return nil, err
	}
	return &authmodel.SignUpResult{Tokens: pair}, nil
}

// ConfirmRegistration is not part of the token API: registration signs the user in directly.
func (c *Client) ConfirmRegistration(_ context.Context, _ authmodel.ConfirmSignUpInput) error {
	return apperrors.New(apperrors.ErrUnsupported, "Registration confirmation is not required by this backend")
}

func (c *Client) Login(ctx context.Context, input authmodel.SignInInput) (*token.CredentialPair, error) {
	var tr authmodel.TokenResponse
	if err := c.post(ctx, RouteLogin, input, &tr, apperrors.ErrAuthentication); err != nil {
		return nil, err
	}
	return credentials(&tr, "")
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*token.CredentialPair, error) {
	var tr authmodel.TokenResponse
	if err := c.post(ctx, RouteRefresh, authmodel.RefreshRequest{RefreshToken: refreshToken}, &tr, apperrors.ErrRefresh); err != nil {
		return nil, err
	}
	return credentials(&tr, refreshToken)
}

func (c *Client) RequestPasswordReset(ctx context.Context, req authmodel.PasswordResetRequest) (*authmodel.PasswordResetResponse, error) {
	var resp authmodel.PasswordResetResponse
	if err := c.post(ctx, RoutePasswordReset, req, &resp, apperrors.ErrReset); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ConfirmPasswordReset(ctx context.Context, req authmodel.PasswordResetConfirm) (*authmodel.MessageResponse, error) {
	body := authmodel.PasswordResetConfirm{Token: req.Token, NewPassword: req.NewPassword}
	var resp authmodel.MessageResponse
	if err := c.post(ctx, RoutePasswordResetConfirm, body, &resp, apperrors.ErrReset); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetCurrentUser(ctx context.Context, accessToken string) (*users.User, error) {
	if c.claimsUser {
		return c.userFromClaims(accessToken)
	}

	header := c.header()
	header.Set("Authorization", "Bearer "+accessToken)

	var u users.User
	err := httpjson.Do(ctx, c.httpClient, httpjson.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + RouteMe,
		Header: header,
	}, &u, httpjson.UnauthorizedOrServer)
	if err != nil {
		return nil, err
	}
	if u.Sub == "" {
		return nil, apperrors.New(apperrors.ErrServer, "Current user response has no subject")
	}
	return &u, nil
}

// userFromClaims trusts the token payload as-is. Verification is the server's job.
func (c *Client) userFromClaims(accessToken string) (*users.User, error) {
	unverified, _, err := jwtlib.NewParser().ParseUnverified(accessToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, apperrors.FromStatus(apperrors.ErrUnauthorized, http.StatusUnauthorized, "Invalid access token", err.Error())
	}
	claims, ok := unverified.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, apperrors.FromStatus(apperrors.ErrUnauthorized, http.StatusUnauthorized, "Invalid access token", nil)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || (exp != nil && !c.nowFunc().Before(exp.Time)) {
		return nil, apperrors.FromStatus(apperrors.ErrUnauthorized, http.StatusUnauthorized, "Access token expired", nil)
	}

	u := users.FromClaims(claims)
	if u == nil {
		return nil, apperrors.FromStatus(apperrors.ErrUnauthorized, http.StatusUnauthorized, "Access token has no subject", nil)
	}
	return u, nil
}

// credentials checks a 2xx token response. A refresh reply without a new
// refresh token keeps the one that was presented.
func credentials(tr *authmodel.TokenResponse, presented string) (*token.CredentialPair, error) {
	pair := tr.Credentials()
	if pair.RefreshToken == "" {
		pair.RefreshToken = presented
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, apperrors.New(apperrors.ErrServer, "Token response is missing access_token or refresh_token")
	}
	return pair, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any, kind error) error {
	err := httpjson.Do(ctx, c.httpClient, httpjson.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + path,
		Header: c.header(),
		Body:   in,
	}, out, httpjson.Fixed(kind))
	if err != nil {
		c.logger.Debug().Str("path", path).Int("status", apperrors.StatusOf(err)).Msg("auth request failed")
	}
	return err
}

func (c *Client) header() http.Header {
	h := http.Header{}
	if c.userAgent != "" {
		h.Set("User-Agent", c.userAgent)
	}
	return h
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
