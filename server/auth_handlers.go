package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/portfolio-auth/authmodel"
	"github.com/jrsteele09/portfolio-auth/token/jwt"
	"github.com/jrsteele09/portfolio-auth/users"
	"github.com/pkg/errors"
)

const (
	msgResetRequested = "If the email exists, a reset token has been sent"
	msgResetIssued    = "Password reset token generated"
	msgResetDone      = "Password reset successfully"
)

// RootHandler describes the API
func (s *Server) RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"name":    s.config.GetAppName(),
			"version": s.config.GetAppVersion(),
			"api":     RouteAPIPrefix,
		})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, authmodel.HealthResponse{
			Status:      "healthy",
			Version:     s.config.GetAppVersion(),
			Environment: s.env,
		})
	}
}

// RegisterHandler creates an account and signs it in: 201 with a token pair.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input authmodel.SignUpInput
		if !decodeBody(w, r, &input) {
			return
		}
		if detail := validateSignUp(input); detail != "" {
			writeDetail(w, http.StatusUnprocessableEntity, detail)
			return
		}

		hash, err := users.HashPassword(input.Password)
		if err != nil {
			s.serverError(w, r, errors.Wrap(err, "[Server.RegisterHandler] failed to hash password"))
			return
		}
		account := &users.Account{
			Email:        input.Email,
			Username:     strings.TrimSpace(input.Username),
			FullName:     strings.TrimSpace(input.FullName),
			PasswordHash: hash,
			Active:       true,
			Verified:     true,
		}
		if err := s.users.Create(account); err != nil {
			if errors.Is(err, users.ErrAlreadyExists) {
				writeDetail(w, http.StatusBadRequest, "User with this email already exists")
				return
			}
			s.serverError(w, r, errors.Wrap(err, "[Server.RegisterHandler] failed to create user"))
			return
		}

		s.log.Info().Str("user_id", account.ID).Msg("user registered")
		s.writeTokenPair(w, r, http.StatusCreated, account)
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input authmodel.SignInInput
		if !decodeBody(w, r, &input) {
			return
		}

		account, err := s.lookup(input.Username, input.Email)
		if err != nil || !account.Active || !users.CheckPasswordHash(input.Password, account.PasswordHash) {
			s.log.Info().Str("request_id", requestIDFrom(r.Context())).Msg("login rejected")
			writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		if err := s.users.SetLastLogin(account.ID); err != nil {
			s.log.Warn().Err(err).Str("user_id", account.ID).Msg("failed to record last login")
		}

		s.writeTokenPair(w, r, http.StatusOK, account)
	}
}

// RefreshHandler exchanges a refresh token for a new pair. With rotation on,
// each refresh token is accepted once.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input authmodel.RefreshRequest
		if !decodeBody(w, r, &input) {
			return
		}

		claims, err := s.inspector.Introspect(input.RefreshToken, jwt.TypeRefresh)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		if err := s.refresh.Redeem(claims.JTI, claims.Sub); err != nil {
			s.log.Info().Str("user_id", claims.Sub).Msg("refresh token reuse rejected")
			writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		account, err := s.users.GetByID(claims.Sub)
		if err != nil || !account.Active {
			writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}

		s.writeTokenPair(w, r, http.StatusOK, account)
	}
}

// PasswordResetHandler answers identically whether or not the account exists,
// except that the token is included when EXPOSE_RESET_TOKEN is on.
func (s *Server) PasswordResetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input authmodel.PasswordResetRequest
		if !decodeBody(w, r, &input) {
			return
		}

		account, err := s.lookup(input.Username, input.Email)
		if err != nil {
			writeJSON(w, http.StatusOK, authmodel.PasswordResetResponse{Message: msgResetRequested})
			return
		}

		issued, err := s.creator.CreateResetToken(account)
		if err != nil {
			s.serverError(w, r, err)
			return
		}

		resp := authmodel.PasswordResetResponse{Message: msgResetRequested}
		if s.config.GetExposeResetToken() {
			resp = authmodel.PasswordResetResponse{Message: msgResetIssued, Token: issued.Token}
		} else {
			// no mail transport; the token only reaches the server log
			s.log.Info().Str("user_id", account.ID).Str("request_id", requestIDFrom(r.Context())).Msg("password reset token issued")
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) PasswordResetConfirmHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input authmodel.PasswordResetConfirm
		if !decodeBody(w, r, &input) {
			return
		}

		claims, err := s.inspector.Introspect(input.Token, jwt.TypeReset)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid or expired reset token")
			return
		}
		if err := users.ValidatePassword(input.NewPassword, input.NewPassword); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		hash, err := users.HashPassword(input.NewPassword)
		if err != nil {
			s.serverError(w, r, errors.Wrap(err, "[Server.PasswordResetConfirmHandler] failed to hash password"))
			return
		}
		if err := s.users.SetPasswordHash(claims.Sub, hash); err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid or expired reset token")
			return
		}
		if err := s.refresh.RevokeUser(claims.Sub); err != nil {
			s.log.Warn().Err(err).Str("user_id", claims.Sub).Msg("failed to revoke refresh tokens")
		}

		writeJSON(w, http.StatusOK, authmodel.MessageResponse{Message: msgResetDone})
	}
}

// MeHandler returns the stored profile of the bearer
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil {
			unauthorized(w, detailBadCreds)
			return
		}
		account, err := s.users.GetByID(claims.Sub)
		if err != nil {
			writeDetail(w, http.StatusNotFound, "User not found")
			return
		}
		writeJSON(w, http.StatusOK, account.Identity())
	}
}

func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil {
			writeJSON(w, http.StatusOK, authmodel.StatusResponse{Authenticated: false})
			return
		}
		writeJSON(w, http.StatusOK, authmodel.StatusResponse{Authenticated: true, User: claims.User()})
	}
}

func (s *Server) ValidateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil {
			unauthorized(w, detailBadCreds)
			return
		}
		writeJSON(w, http.StatusOK, authmodel.ValidateResponse{Valid: true, User: claims.User()})
	}
}

func (s *Server) ProtectedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r.Context())
		if claims == nil {
			unauthorized(w, detailBadCreds)
			return
		}
		writeJSON(w, http.StatusOK, authmodel.ProtectedResponse{
			Message: "You have accessed a protected route",
			UserSub: claims.Sub,
		})
	}
}

// JWKSHandler publishes the RS256 verification key. HS256 servers have none.
func (s *Server) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks := s.signer.GetJWKS()
		if jwks == nil {
			writeDetail(w, http.StatusNotFound, "Not Found")
			return
		}
		writeJSON(w, http.StatusOK, jwks)
	}
}

func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	}
}

// writeTokenPair issues and tracks a fresh access/refresh pair
func (s *Server) writeTokenPair(w http.ResponseWriter, r *http.Request, status int, account *users.Account) {
	access, err := s.creator.CreateAccessToken(account)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	refreshToken, err := s.creator.CreateRefreshToken(account)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if err := s.refresh.Track(refreshToken.JTI, account.ID, refreshToken.Expiry); err != nil {
		s.serverError(w, r, err)
		return
	}

	writeJSON(w, status, authmodel.TokenResponse{
		AccessToken:  access.Token,
		RefreshToken: refreshToken.Token,
		TokenType:    authmodel.BearerTokenType,
		ExpiresIn:    int(s.creator.AccessTokenExpiry().Seconds()),
	})
}

// lookup prefers the username when both identifiers are supplied
func (s *Server) lookup(username, email string) (*users.Account, error) {
	if username = strings.TrimSpace(username); username != "" {
		return s.users.GetByUsername(username)
	}
	return s.users.GetByEmail(email)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("request failed")
	writeDetail(w, http.StatusInternalServerError, "Internal server error")
}

func validateSignUp(input authmodel.SignUpInput) string {
	email := users.NormalizeEmail(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return "A valid email address is required"
	}
	if err := users.ValidatePassword(input.Password, input.Password); err != nil {
		return err.Error()
	}
	return ""
}

// decodeBody reads a JSON body, answering 422 on malformed input
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Malformed JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes the {"detail": ...} error body the token API uses
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, authmodel.ErrorResponse{Detail: detail})
}
