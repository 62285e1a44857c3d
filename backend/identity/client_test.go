package identity_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/portfolio-auth/authmodel"
	"github.com/jrsteele09/portfolio-auth/backend/identity"
	apperrors "github.com/jrsteele09/portfolio-auth/internal/errors"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "app-client"
	testKeyID    = "k1"
)

type testConfig struct {
	issuer   string
	endpoint string
}

func (c testConfig) GetIdentityPoolID() string    { return "us-east-1_test" }
func (c testConfig) GetIdentityClientID() string  { return testClientID }
func (c testConfig) GetIdentityRegion() string    { return "us-east-1" }
func (c testConfig) GetIdentityIssuerURL() string { return c.issuer }
func (c testConfig) GetIdentityEndpoint() string  { return c.endpoint }

// fakeProvider serves discovery, JWKS, token, userinfo and the JSON API.
type fakeProvider struct {
	t         *testing.T
	srv       *httptest.Server
	key       *rsa.PrivateKey
	confirmed map[string]bool
	passwords map[string]string
	badIDSig  bool
	challenge string

	// tokenCalls counts hits on /oauth2/token, which sign-in must not use
	tokenCalls int
	mu         sync.Mutex
}

func newFakeProvider(t *testing.T) *fakeProvider {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	fp := &fakeProvider{
		t:         t,
		key:       key,
		confirmed: map[string]bool{"alice": true},
		passwords: map[string]string{"alice": "pw123456"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", fp.discovery)
	mux.HandleFunc("GET /jwks", fp.jwks)
	mux.HandleFunc("POST /oauth2/token", fp.token)
	mux.HandleFunc("GET /oauth2/userInfo", fp.userInfo)
	mux.HandleFunc("POST /api", fp.api)
	fp.srv = httptest.NewServer(mux)
	t.Cleanup(fp.srv.Close)
	return fp
}

func (fp *fakeProvider) config() testConfig {
	return testConfig{issuer: fp.srv.URL, endpoint: fp.srv.URL + "/api"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (fp *fakeProvider) discovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                fp.srv.URL,
		"authorization_endpoint":                fp.srv.URL + "/oauth2/authorize",
		"token_endpoint":                        fp.srv.URL + "/oauth2/token",
		"userinfo_endpoint":                     fp.srv.URL + "/oauth2/userInfo",
		"jwks_uri":                              fp.srv.URL + "/jwks",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (fp *fakeProvider) jwks(w http.ResponseWriter, r *http.Request) {
	pub := fp.key.PublicKey
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKeyID,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (fp *fakeProvider) idToken(sub string) string {
	key := fp.key
	if fp.badIDSig {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(fp.t, err)
		key = other
	}
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, jwtlib.MapClaims{
		"iss":              fp.srv.URL,
		"aud":              testClientID,
		"sub":              sub,
		"cognito:username": sub,
		"iat":              time.Now().Unix(),
		"exp":              time.Now().Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = testKeyID
	s, err := tok.SignedString(key)
	require.NoError(fp.t, err)
	return s
}

// token mirrors the pool's /oauth2/token, which has no password grant
func (fp *fakeProvider) token(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	fp.mu.Lock()
	fp.tokenCalls++
	fp.mu.Unlock()
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
}

func (fp *fakeProvider) initiateAuth(w http.ResponseWriter, body map[string]any) {
	params := map[string]string{}
	if raw, ok := body["AuthParameters"].(map[string]any); ok {
		for k, v := range raw {
			params[k], _ = v.(string)
		}
	}
	if body["ClientId"] != testClientID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"__type": "ResourceNotFoundException", "message": "User pool client does not exist."})
		return
	}

	switch body["AuthFlow"] {
	case "USER_PASSWORD_AUTH":
		user := params["USERNAME"]
		if fp.passwords[user] != params["PASSWORD"] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"__type": "NotAuthorizedException", "message": "Incorrect username or password."})
			return
		}
		if !fp.confirmed[user] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"__type": "UserNotConfirmedException", "message": "User is not confirmed."})
			return
		}
		if fp.challenge != "" {
			writeJSON(w, http.StatusOK, map[string]any{"ChallengeName": fp.challenge, "Session": "s1"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"AuthenticationResult": map[string]any{
			"AccessToken":  "access-" + user,
			"RefreshToken": "refresh-" + user,
			"IdToken":      fp.idToken(user),
			"TokenType":    "Bearer",
			"ExpiresIn":    3600,
		}})
	case "REFRESH_TOKEN_AUTH":
		rt := params["REFRESH_TOKEN"]
		if !strings.HasPrefix(rt, "refresh-") {
			writeJSON(w, http.StatusBadRequest, map[string]string{"__type": "NotAuthorizedException", "message": "Invalid Refresh Token"})
			return
		}
		user := strings.TrimPrefix(rt, "refresh-")
		// no rotated refresh token, as the real provider
		writeJSON(w, http.StatusOK, map[string]any{"AuthenticationResult": map[string]any{
			"AccessToken": "access2-" + user,
			"IdToken":     fp.idToken(user),
			"TokenType":   "Bearer",
			"ExpiresIn":   3600,
		}})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"__type": "InvalidParameterException", "message": "Unsupported auth flow"})
	}
}

func (fp *fakeProvider) userInfo(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer access") {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_token"}`))
		return
	}
	user := auth[strings.Index(auth, "-")+1:]
	writeJSON(w, http.StatusOK, map[string]any{
		"sub":              "sub-" + user,
		"email":            user + "@x.com",
		"cognito:username": user,
		"cognito:groups":   []string{"investors"},
	})
}

func (fp *fakeProvider) api(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/x-amz-json-1.1" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"__type": "SerializationException", "message": "bad content type"})
		return
	}
	fp.mu.Lock()
	defer fp.mu.Unlock()

	body := map[string]any{}
	json.NewDecoder(r.Body).Decode(&body)
	in := map[string]string{}
	for k, v := range body {
		if s, ok := v.(string); ok {
			in[k] = s
		}
	}

	switch r.Header.Get("X-Amz-Target") {
	case "AWSCognitoIdentityProviderService.InitiateAuth":
		fp.initiateAuth(w, body)
	case "AWSCognitoIdentityProviderService.SignUp":
		user := in["Username"]
		if _, exists := fp.passwords[user]; exists {
			writeJSON(w, http.StatusBadRequest, map[string]string{"__type": "UsernameExistsException", "message": "User already exists"})
			return
		}
		fp.passwords[user] = in["Password"]
		autoConfirm := strings.HasPrefix(user, "auto")
		fp.confirmed[user] = autoConfirm
		writeJSON(w, http.StatusOK, map[string]any{
			"UserConfirmed":       autoConfirm,
			"UserSub":             "sub-" + user,
			"CodeDeliveryDetails": map[string]string{"Destination": "b***@x.com", "DeliveryMedium": "EMAIL"},
		})
	case "AWSCognitoIdentityProviderService.ConfirmSignUp":
		if in["ConfirmationCode"] != "123456" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"__type": "CodeMismatchException", "message": "Invalid verification code provided, please try again."})
			return
		}
		fp.confirmed[in["Username"]] = true
		writeJSON(w, http.StatusOK, map[string]any{})
	case "AWSCognitoIdentityProviderService.ForgotPassword":
		if _, ok := fp.passwords[in["Username"]]; !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"__type": "com.amazonaws#UserNotFoundException", "message": "Username/client id combination not found."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"CodeDeliveryDetails": map[string]string{"Destination": "a***@x.com"}})
	case "AWSCognitoIdentityProviderService.ConfirmForgotPassword":
		if in["ConfirmationCode"] != "654321" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"__type": "ExpiredCodeException", "message": "Invalid code provided, please request a code again."})
			return
		}
		fp.passwords[in["Username"]] = in["Password"]
		writeJSON(w, http.StatusOK, map[string]any{})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"__type": "UnknownOperationException"})
	}
}

func newClient(t *testing.T, fp *fakeProvider) *identity.Client {
	c, err := identity.New(context.Background(), fp.config(), identity.WithHTTPClient(fp.srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewRequiresPoolAndClient(t *testing.T) {
	_, err := identity.New(context.Background(), emptyConfig{})
	require.Error(t, err)
}

type emptyConfig struct{ testConfig }

func (emptyConfig) GetIdentityPoolID() string { return "" }

func TestLoginAndCurrentUser(t *testing.T) {
	fp := newFakeProvider(t)
	c := newClient(t, fp)
	ctx := context.Background()

	pair, err := c.Login(ctx, authmodel.SignInInput{Username: "alice", Password: "pw123456"})
	require.NoError(t, err)
	require.Equal(t, "access-alice", pair.AccessToken)
	require.Equal(t, "refresh-alice", pair.RefreshToken)
	require.Zero(t, fp.tokenCalls)

	u, err := c.GetCurrentUser(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "sub-alice", u.Sub)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, []string{"investors"}, u.Groups)
}

func TestLoginFailures(t *testing.T) {
	fp := newFakeProvider(t)
	c := newClient(t, fp)
	ctx := context.Background()

	_, err := c.Login(ctx, authmodel.SignInInput{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
	require.Equal(t, "Incorrect username or password.", apperrors.Message(err))
	require.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))

	fp.mu.Lock()
	fp.badIDSig = true
	fp.mu.Unlock()
	_, err = c.Login(ctx, authmodel.SignInInput{Username: "alice", Password: "pw123456"})
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
	require.Equal(t, "Invalid ID token", apperrors.Message(err))
}

func TestLoginChallengeAndUnconfirmed(t *testing.T) {
	fp := newFakeProvider(t)
	c := newClient(t, fp)
	ctx := context.Background()

	fp.mu.Lock()
	fp.challenge = "NEW_PASSWORD_REQUIRED"
	fp.mu.Unlock()
	_, err := c.Login(ctx, authmodel.SignInInput{Username: "alice", Password: "pw123456"})
	require.ErrorIs(t, err, apperrors.ErrAuthentication)
	require.Contains(t, apperrors.Message(err), "NEW_PASSWORD_REQUIRED")

	_, err = c.Register(ctx, authmodel.SignUpInput{Email: "bob@x.com", Username: "bob", Password: "pw123456"})
	require.NoError(t, err)
	_, err = c.Login(ctx, authmodel.SignInInput{Username: "bob", Password: "pw123456"})
	require.ErrorIs(t, err, apperrors.ErrConfirmationRequired)
	require.Equal(t, "User is not confirmed.", apperrors.Message(err))
}

func TestRefreshKeepsRefreshToken(t *testing.T) {
	c := newClient(t, newFakeProvider(t))

	pair, err := c.Refresh(context.Background(), "refresh-alice")
	require.NoError(t, err)
	require.Equal(t, "access2-alice", pair.AccessToken)
	require.Equal(t, "refresh-alice", pair.RefreshToken)

	_, err = c.Refresh(context.Background(), "junk")
	require.ErrorIs(t, err, apperrors.ErrRefresh)
	require.Equal(t, "Invalid Refresh Token", apperrors.Message(err))
}

func TestCurrentUserUnauthorized(t *testing.T) {
	c := newClient(t, newFakeProvider(t))

	_, err := c.GetCurrentUser(context.Background(), "stale")
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	require.Equal(t, http.StatusUnauthorized, apperrors.StatusOf(err))
}

func TestRegisterPendingConfirmation(t *testing.T) {
	fp := newFakeProvider(t)
	c := newClient(t, fp)
	ctx := context.Background()

	res, err := c.Register(ctx, authmodel.SignUpInput{Email: "bob@x.com", Username: "bob", Password: "pw123456"})
	require.NoError(t, err)
	require.True(t, res.ConfirmationRequired)
	require.Nil(t, res.Tokens)
	require.Equal(t, "b***@x.com", res.Destination)

	err = c.ConfirmRegistration(ctx, authmodel.ConfirmSignUpInput{Username: "bob", Code: "000000"})
	require.ErrorIs(t, err, apperrors.ErrRegistration)
	require.Equal(t, "Invalid verification code provided, please try again.", apperrors.Message(err))

	require.NoError(t, c.ConfirmRegistration(ctx, authmodel.ConfirmSignUpInput{Username: "bob", Code: "123456"}))

	pair, err := c.Login(ctx, authmodel.SignInInput{Username: "bob", Password: "pw123456"})
	require.NoError(t, err)
	require.Equal(t, "access-bob", pair.AccessToken)
}

func TestRegisterAutoConfirmedSignsIn(t *testing.T) {
	c := newClient(t, newFakeProvider(t))

	res, err := c.Register(context.Background(), authmodel.SignUpInput{Email: "auto@x.com", Username: "autouser", Password: "pw123456"})
	require.NoError(t, err)
	require.False(t, res.ConfirmationRequired)
	require.Equal(t, "access-autouser", res.Tokens.AccessToken)
}

func TestRegisterDuplicate(t *testing.T) {
	c := newClient(t, newFakeProvider(t))

	_, err := c.Register(context.Background(), authmodel.SignUpInput{Email: "alice@x.com", Username: "alice", Password: "pw123456"})
	require.ErrorIs(t, err, apperrors.ErrRegistration)
	require.Equal(t, "User already exists", apperrors.Message(err))
}

func TestPasswordReset(t *testing.T) {
	c := newClient(t, newFakeProvider(t))
	ctx := context.Background()

	resp, err := c.RequestPasswordReset(ctx, authmodel.PasswordResetRequest{Username: "alice"})
	require.NoError(t, err)
	require.Contains(t, resp.Message, "a***@x.com")

	resp, err = c.RequestPasswordReset(ctx, authmodel.PasswordResetRequest{Username: "ghost"})
	require.NoError(t, err)
	require.Equal(t, "If the account exists, a reset code has been sent", resp.Message)
	require.Empty(t, resp.Token)

	_, err = c.ConfirmPasswordReset(ctx, authmodel.PasswordResetConfirm{Token: "654321", NewPassword: "newpass123"})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = c.ConfirmPasswordReset(ctx, authmodel.PasswordResetConfirm{Token: "expired", NewPassword: "newpass123", Username: "alice"})
	require.ErrorIs(t, err, apperrors.ErrReset)
	require.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))

	msg, err := c.ConfirmPasswordReset(ctx, authmodel.PasswordResetConfirm{Token: "654321", NewPassword: "newpass123", Username: "alice"})
	require.NoError(t, err)
	require.Equal(t, "Password reset successfully", msg.Message)

	_, err = c.Login(ctx, authmodel.SignInInput{Username: "alice", Password: "newpass123"})
	require.NoError(t, err)
}
