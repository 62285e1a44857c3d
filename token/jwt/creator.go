package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/portfolio-auth/internal/config"
	"github.com/jrsteele09/portfolio-auth/token/keys"
	"github.com/jrsteele09/portfolio-auth/users"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Token types carried in the "type" claim. A token is only accepted where its
// type matches.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
	TypeReset   = "password_reset"
)

// Issued is a signed token together with the identifiers the server tracks.
type Issued struct {
	Token  string
	JTI    string
	Expiry time.Time
}

// Creator issues the development server's tokens.
type Creator struct {
	config config.APIServerConfig
	signer keys.Signer
}

// NewCreator creates a new JWT creator
func NewCreator(cfg config.APIServerConfig, signer keys.Signer) *Creator {
	return &Creator{
		config: cfg,
		signer: signer,
	}
}

// CreateAccessToken issues the short-lived bearer credential for an account
func (c *Creator) CreateAccessToken(account *users.Account) (*Issued, error) {
	claims := c.userClaims(account, TypeAccess, c.config.GetAccessTokenExpiry())
	claims[users.ClaimUsername] = account.Username
	claims[users.ClaimFullName] = account.FullName
	if len(account.Groups) > 0 {
		claims[users.ClaimGroups] = account.Groups
	}
	return c.sign(claims)
}

// CreateRefreshToken issues the long-lived credential accepted only by the refresh endpoint
func (c *Creator) CreateRefreshToken(account *users.Account) (*Issued, error) {
	return c.sign(c.userClaims(account, TypeRefresh, c.config.GetRefreshTokenExpiry()))
}

// CreateResetToken issues a single purpose password reset token
func (c *Creator) CreateResetToken(account *users.Account) (*Issued, error) {
	return c.sign(c.userClaims(account, TypeReset, c.config.GetResetTokenExpiry()))
}

// AccessTokenExpiry is reported to clients as expires_in
func (c *Creator) AccessTokenExpiry() time.Duration {
	return c.config.GetAccessTokenExpiry()
}

func (c *Creator) userClaims(account *users.Account, tokenType string, expiry time.Duration) jwtlib.MapClaims {
	now := NowTimeFunc()
	return jwtlib.MapClaims{
		"iss":            c.config.GetIssuer(),
		users.ClaimSub:   account.ID,
		users.ClaimEmail: account.Email,
		"type":           tokenType,
		"iat":            now.Unix(),
		"exp":            now.Add(expiry).Unix(),
		"jti":            uuid.New().String(),
	}
}

func (c *Creator) sign(claims jwtlib.MapClaims) (*Issued, error) {
	signed, err := c.signer.Sign(claims)
	if err != nil {
		return nil, errors.Wrap(err, "[jwt.Creator.sign] failed to sign token")
	}
	exp, _ := claims["exp"].(int64)
	jti, _ := claims["jti"].(string)
	return &Issued{Token: signed, JTI: jti, Expiry: time.Unix(exp, 0)}, nil
}
