package keys

import (
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/portfolio-auth/internal/config"
	"github.com/pkg/errors"
)

// Signer is an interface for signing and verifying JWT tokens
type Signer interface {
	// Sign creates a signed JWT token from claims
	Sign(claims jwt.MapClaims) (string, error)

	// GetVerificationKey is a jwt.Keyfunc
	GetVerificationKey(token *jwt.Token) (any, error)

	// GetSigningMethod returns the JWT signing method used
	GetSigningMethod() jwt.SigningMethod

	// GetJWKS returns the public keys, or nil for symmetric signers
	GetJWKS() *JWKS
}

var (
	_ Signer = (*HMACSigner)(nil)
	_ Signer = (*KeyPairSigner)(nil)
)

// NewSigner builds the signer selected by JWT_ALGORITHM
func NewSigner(cfg config.APIServerConfig) (Signer, error) {
	switch cfg.GetJWTAlgorithm() {
	case HS256:
		if cfg.GetJWTSecret() == "" {
			return nil, errors.New("[keys.NewSigner] JWT secret is required for HS256")
		}
		return NewHMACSigner(cfg.GetJWTSecret()), nil
	case RS256:
		path := cfg.GetJWTPrivateKeyFile()
		if path == "" {
			keyPair, err := GenerateRSAKeyPair("", 2048)
			if err != nil {
				return nil, err
			}
			return NewKeyPairSigner(keyPair), nil
		}
		pemData, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "[keys.NewSigner] failed to read private key")
		}
		keyPair, err := LoadKeyPairFromPEM("", pemData)
		if err != nil {
			return nil, err
		}
		return NewKeyPairSigner(keyPair), nil
	}
	return nil, errors.Errorf("[keys.NewSigner] unsupported JWT algorithm %q", cfg.GetJWTAlgorithm())
}

// HMACSigner implements Signer using symmetric HMAC-SHA256
type HMACSigner struct {
	secret []byte
}

func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{
		secret: []byte(secret),
	}
}

func (h *HMACSigner) Sign(claims jwt.MapClaims) (string, error) {
	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signedToken, nil
}

func (h *HMACSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}

func (h *HMACSigner) GetJWKS() *JWKS {
	return nil
}

// KeyPairSigner implements Signer using an RSA key pair with RS256
type KeyPairSigner struct {
	keyPair *KeyPair
	jwks    *JWKS
}

func NewKeyPairSigner(keyPair *KeyPair) *KeyPairSigner {
	s := &KeyPairSigner{keyPair: keyPair}
	if jwk, err := keyPair.ToJWK(); err == nil {
		s.jwks = &JWKS{Keys: []JWK{*jwk}}
	}
	return s
}

func (a *KeyPairSigner) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(a.keyPair.GetSigningMethod(), claims)
	token.Header["kid"] = a.keyPair.KeyID

	signedToken, err := token.SignedString(a.keyPair.PrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with asymmetric key")
	}
	return signedToken, nil
}

func (a *KeyPairSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	if kid, ok := token.Header["kid"].(string); ok && kid != a.keyPair.KeyID {
		return nil, errors.Errorf("unknown key id %q", kid)
	}
	return a.keyPair.PublicKey, nil
}

func (a *KeyPairSigner) GetSigningMethod() jwt.SigningMethod {
	return a.keyPair.GetSigningMethod()
}

func (a *KeyPairSigner) GetJWKS() *JWKS {
	return a.jwks
}
