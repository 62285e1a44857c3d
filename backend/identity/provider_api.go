package identity

import (
	"context"
	"net/http"

	apperrors "github.com/jrsteele09/portfolio-auth/internal/errors"
	"github.com/jrsteele09/portfolio-auth/internal/httpjson"
)

// JSON API actions, sent in the X-Amz-Target header
const (
	targetPrefix                = "AWSCognitoIdentityProviderService."
	actionInitiateAuth          = "InitiateAuth"
	actionSignUp                = "SignUp"
	actionConfirmSignUp         = "ConfirmSignUp"
	actionForgotPassword        = "ForgotPassword"
	actionConfirmForgotPassword = "ConfirmForgotPassword"

	contentTypeAmzJSON = "application/x-amz-json-1.1"
)

// InitiateAuth flows
const (
	authFlowUserPassword = "USER_PASSWORD_AUTH"
	authFlowRefreshToken = "REFRESH_TOKEN_AUTH"
)

type initiateAuthInput struct {
	ClientID       string            `json:"ClientId"`
	AuthFlow       string            `json:"AuthFlow"`
	AuthParameters map[string]string `json:"AuthParameters"`
}

type authenticationResult struct {
	AccessToken  string `json:"AccessToken"`
	RefreshToken string `json:"RefreshToken,omitempty"`
	IDToken      string `json:"IdToken"`
	TokenType    string `json:"TokenType"`
	ExpiresIn    int    `json:"ExpiresIn"`
}

type initiateAuthOutput struct {
	AuthenticationResult *authenticationResult `json:"AuthenticationResult"`
	ChallengeName        string                `json:"ChallengeName,omitempty"`
	Session              string                `json:"Session,omitempty"`
}

type attributeType struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type codeDeliveryDetails struct {
	AttributeName  string `json:"AttributeName,omitempty"`
	DeliveryMedium string `json:"DeliveryMedium,omitempty"`
	Destination    string `json:"Destination,omitempty"`
}

type signUpInput struct {
	ClientID       string          `json:"ClientId"`
	Username       string          `json:"Username"`
	Password       string          `json:"Password"`
	UserAttributes []attributeType `json:"UserAttributes,omitempty"`
}

type signUpOutput struct {
	UserConfirmed       bool                `json:"UserConfirmed"`
	UserSub             string              `json:"UserSub"`
	CodeDeliveryDetails codeDeliveryDetails `json:"CodeDeliveryDetails"`
}

type confirmSignUpInput struct {
	ClientID         string `json:"ClientId"`
	Username         string `json:"Username"`
	ConfirmationCode string `json:"ConfirmationCode"`
}

type forgotPasswordInput struct {
	ClientID string `json:"ClientId"`
	Username string `json:"Username"`
}

type forgotPasswordOutput struct {
	CodeDeliveryDetails codeDeliveryDetails `json:"CodeDeliveryDetails"`
}

type confirmForgotPasswordInput struct {
	ClientID         string `json:"ClientId"`
	Username         string `json:"Username"`
	ConfirmationCode string `json:"ConfirmationCode"`
	Password         string `json:"Password"`
}

func (c *Client) call(ctx context.Context, action string, in, out any, kind error) error {
	header := http.Header{}
	header.Set("X-Amz-Target", targetPrefix+action)

	err := httpjson.Do(ctx, c.httpClient, httpjson.Request{
		Method:      http.MethodPost,
		URL:         c.endpoint,
		Header:      header,
		Body:        in,
		ContentType: contentTypeAmzJSON,
	}, out, httpjson.Fixed(kind))
	if err != nil {
		c.logger.Debug().Str("action", action).Str("type", providerErrorType(err)).Msg("identity provider call failed")
	}
	return err
}

// providerErrorType returns the __type of a JSON API error body, e.g.
// "UsernameExistsException".
func providerErrorType(err error) string {
	var ae *apperrors.AuthError
	if !apperrors.As(err, &ae) {
		return ""
	}
	body, ok := ae.Details.(map[string]any)
	if !ok {
		return ""
	}
	t, _ := body["__type"].(string)
	// some endpoints send "prefix#Type"
	for i := len(t) - 1; i >= 0; i-- {
		if t[i] == '#' {
			return t[i+1:]
		}
	}
	return t
}
