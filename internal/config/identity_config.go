package config

import "fmt"

type IdentityConfig interface {
	GetIdentityPoolID() string
	GetIdentityClientID() string
	GetIdentityRegion() string
	GetIdentityIssuerURL() string
	GetIdentityEndpoint() string
}

type Identity struct{}

var _ IdentityConfig = Identity{}

func (Identity) GetIdentityPoolID() string {
	return GetEnv("COGNITO_USER_POOL_ID", "")
}

func (Identity) GetIdentityClientID() string {
	return GetEnv("COGNITO_APP_CLIENT_ID", "")
}

func (Identity) GetIdentityRegion() string {
	return GetEnv("AWS_REGION", "us-east-1")
}

// GetIdentityIssuerURL returns the OIDC issuer of the user pool. COGNITO_ISSUER_URL
// overrides the derived value (local emulators, tests).
func (i Identity) GetIdentityIssuerURL() string {
	return GetEnv("COGNITO_ISSUER_URL", fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", i.GetIdentityRegion(), i.GetIdentityPoolID()))
}

// GetIdentityEndpoint returns the user pool JSON API endpoint used for sign-up
// and password recovery.
func (i Identity) GetIdentityEndpoint() string {
	return GetEnv("COGNITO_ENDPOINT", fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/", i.GetIdentityRegion()))
}
