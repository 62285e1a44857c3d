package users

import "github.com/jrsteele09/portfolio-auth/internal/utils"

// Claim names understood by FromClaims. The managed identity provider prefixes
// its own attributes.
const (
	ClaimSub              = "sub"
	ClaimEmail            = "email"
	ClaimName             = "name"
	ClaimFullName         = "full_name"
	ClaimUsername         = "username"
	ClaimPreferredUser    = "preferred_username"
	ClaimGroups           = "groups"
	ClaimProviderUsername = "cognito:username"
	ClaimProviderGroups   = "cognito:groups"
)

// FromClaims builds a User from decoded token or userinfo claims. It returns
// nil when no subject is present.
func FromClaims(claims map[string]any) *User {
	sub, _ := claims[ClaimSub].(string)
	if sub == "" {
		return nil
	}
	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	groups := utils.ToStringSlice(claims[ClaimProviderGroups])
	if len(groups) == 0 {
		groups = utils.ToStringSlice(claims[ClaimGroups])
	}
	return &User{
		Sub:      sub,
		Email:    str(ClaimEmail),
		Username: utils.FirstNonEmpty(str(ClaimProviderUsername), str(ClaimUsername), str(ClaimPreferredUser)),
		FullName: utils.FirstNonEmpty(str(ClaimFullName), str(ClaimName)),
		Groups:   groups,
	}
}
