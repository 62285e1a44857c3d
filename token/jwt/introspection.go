package jwt

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/portfolio-auth/internal/config"
	"github.com/jrsteele09/portfolio-auth/internal/utils"
	"github.com/jrsteele09/portfolio-auth/token/keys"
	"github.com/jrsteele09/portfolio-auth/users"
)

// Verification failures. The messages are returned to API callers verbatim.
var (
	ErrExpired = errors.New("Token has expired")
	ErrInvalid = errors.New("Invalid token")
)

// TokenIntrospection is what the server learns from a verified token.
type TokenIntrospection struct {
	Type     string
	Sub      string
	Email    string
	Username string
	FullName string
	Groups   []string
	JTI      string
	Expiry   time.Time
}

// User projects the token claims onto the public identity shape
func (t *TokenIntrospection) User() *users.User {
	return &users.User{
		Sub:      t.Sub,
		Email:    t.Email,
		Username: t.Username,
		FullName: t.FullName,
		Groups:   t.Groups,
	}
}

// Inspector verifies tokens signed by Creator
type Inspector struct {
	signer keys.Signer
	issuer string
}

// NewInspector creates a new JWT inspector
func NewInspector(cfg config.APIServerConfig, signer keys.Signer) *Inspector {
	return &Inspector{
		signer: signer,
		issuer: cfg.GetIssuer(),
	}
}

// Introspect verifies the signature, issuer and expiry of rawToken and checks
// that it carries the wanted type.
func (i *Inspector) Introspect(rawToken, wantType string) (*TokenIntrospection, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrInvalid
	}

	token, err := jwtlib.ParseWithClaims(rawToken, jwtlib.MapClaims{},
		i.signer.GetVerificationKey,
		jwtlib.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwtlib.WithIssuer(i.issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}

	introspection := &TokenIntrospection{}
	introspection.Type, _ = claims["type"].(string)
	introspection.Sub, _ = claims[users.ClaimSub].(string)
	introspection.Email, _ = claims[users.ClaimEmail].(string)
	introspection.Username, _ = claims[users.ClaimUsername].(string)
	introspection.FullName, _ = claims[users.ClaimFullName].(string)
	introspection.JTI, _ = claims["jti"].(string)
	if groups, ok := claims[users.ClaimGroups]; ok {
		introspection.Groups = utils.ToStringSlice(groups)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		introspection.Expiry = exp.Time
	}

	if introspection.Type != wantType || introspection.Sub == "" {
		return nil, ErrInvalid
	}
	return introspection, nil
}
