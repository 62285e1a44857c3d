package keys_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/portfolio-auth/internal/config"
	"github.com/jrsteele09/portfolio-auth/token/keys"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	config.APIServer
	alg     string
	secret  string
	keyFile string
}

func (c testConfig) GetJWTAlgorithm() string      { return c.alg }
func (c testConfig) GetJWTSecret() string         { return c.secret }
func (c testConfig) GetJWTPrivateKeyFile() string { return c.keyFile }

func TestPEMRoundTrip(t *testing.T) {
	keyPair, err := keys.GenerateRSAKeyPair("", 1024)
	require.NoError(t, err)
	require.NotEmpty(t, keyPair.KeyID)

	pemData, err := keyPair.ExportPrivateKeyPEM()
	require.NoError(t, err)

	loaded, err := keys.LoadKeyPairFromPEM("", pemData)
	require.NoError(t, err)
	require.Equal(t, keyPair.KeyID, loaded.KeyID)

	_, err = keys.LoadKeyPairFromPEM("", []byte("not pem"))
	require.Error(t, err)
}

func TestToJWK(t *testing.T) {
	keyPair, err := keys.GenerateRSAKeyPair("kid-1", 2048)
	require.NoError(t, err)

	jwk, err := keyPair.ToJWK()
	require.NoError(t, err)
	require.Equal(t, "RSA", jwk.Kty)
	require.Equal(t, "sig", jwk.Use)
	require.Equal(t, "kid-1", jwk.Kid)
	require.Equal(t, keys.RS256, jwk.Alg)
	require.Equal(t, "AQAB", jwk.E)
	require.NotEmpty(t, jwk.N)
}

func TestNewSigner(t *testing.T) {
	_, err := keys.NewSigner(testConfig{alg: keys.HS256})
	require.Error(t, err)

	signer, err := keys.NewSigner(testConfig{alg: keys.HS256, secret: "s3cret"})
	require.NoError(t, err)
	require.Equal(t, "HS256", signer.GetSigningMethod().Alg())
	require.Nil(t, signer.GetJWKS())

	signer, err = keys.NewSigner(testConfig{alg: keys.RS256})
	require.NoError(t, err)
	require.Equal(t, "RS256", signer.GetSigningMethod().Alg())
	require.Len(t, signer.GetJWKS().Keys, 1)

	_, err = keys.NewSigner(testConfig{alg: "none"})
	require.ErrorContains(t, err, "unsupported JWT algorithm")
}

func TestNewSignerFromKeyFile(t *testing.T) {
	keyPair, err := keys.GenerateRSAKeyPair("", 2048)
	require.NoError(t, err)
	pemData, err := keyPair.ExportPrivateKeyPEM()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "jwt.pem")
	require.NoError(t, os.WriteFile(path, pemData, 0o600))

	signer, err := keys.NewSigner(testConfig{alg: keys.RS256, keyFile: path})
	require.NoError(t, err)
	require.Equal(t, keyPair.KeyID, signer.GetJWKS().Keys[0].Kid)

	_, err = keys.NewSigner(testConfig{alg: keys.RS256, keyFile: filepath.Join(t.TempDir(), "missing.pem")})
	require.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	keyPair, err := keys.GenerateRSAKeyPair("", 2048)
	require.NoError(t, err)

	for name, signer := range map[string]keys.Signer{
		"hmac":    keys.NewHMACSigner("s3cret"),
		"keypair": keys.NewKeyPairSigner(keyPair),
	} {
		t.Run(name, func(t *testing.T) {
			signed, err := signer.Sign(jwt.MapClaims{"sub": "u1"})
			require.NoError(t, err)

			token, err := jwt.Parse(signed, signer.GetVerificationKey)
			require.NoError(t, err)
			sub, err := token.Claims.GetSubject()
			require.NoError(t, err)
			require.Equal(t, "u1", sub)
		})
	}

	// tokens from one signer type are refused by the other
	hsToken, err := keys.NewHMACSigner("s3cret").Sign(jwt.MapClaims{"sub": "u1"})
	require.NoError(t, err)
	_, err = jwt.Parse(hsToken, keys.NewKeyPairSigner(keyPair).GetVerificationKey)
	require.Error(t, err)
}
