package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/portfolio-auth/token/jwt"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClaims stores the verified access token
	ContextKeyClaims ContextKey = "claims"
	// ContextKeyRequestID stores the request correlation id
	ContextKeyRequestID ContextKey = "request_id"
)

// Authorization failures, returned as {"detail": ...} with 401
const (
	detailMissingHeader = "Authorization header missing"
	detailBadHeader     = "Invalid authorization header format"
	detailBadCreds      = "Could not validate credentials"
)

// RequireAuth is middleware that validates a Bearer access token and stores
// its claims in the request context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, detail := bearerToken(r)
			if detail != "" {
				unauthorized(w, detail)
				return
			}

			claims, err := s.inspector.Introspect(raw, jwt.TypeAccess)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyClaims, claims)))
		}
	}
}

// OptionalAuth stores the claims of a valid bearer token and otherwise lets
// the request through anonymously.
func (s *Server) OptionalAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if raw, detail := bearerToken(r); detail == "" {
				if claims, err := s.inspector.Introspect(raw, jwt.TypeAccess); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ContextKeyClaims, claims))
				}
			}
			next(w, r)
		}
	}
}

// bearerToken extracts the token, or the detail message explaining why it could not.
func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", detailMissingHeader
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", detailBadHeader
	}
	return strings.TrimSpace(parts[1]), ""
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

func claimsFrom(ctx context.Context) *jwt.TokenIntrospection {
	claims, _ := ctx.Value(ContextKeyClaims).(*jwt.TokenIntrospection)
	return claims
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}
