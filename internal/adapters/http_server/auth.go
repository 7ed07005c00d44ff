package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"reputation_hub/internal/app"
	"reputation_hub/internal/domain"
)

type ctxKey string

const ctxUser ctxKey = "user"

// UserLoader resolves the token subject to the stored identity record.
type UserLoader interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
}

// SignToken issues an HS256 session token whose subject is the user id.
func SignToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}).SignedString(secret)
}

func parseToken(secret []byte, tok string) (string, error) {
	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !t.Valid || claims.Subject == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Subject, nil
}

// Authenticate requires a bearer token and puts the caller's user record in
// the request context.
func Authenticate(secret []byte, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required")
				return
			}
			uid, err := parseToken(secret, strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
				return
			}
			u, err := users.GetUser(r.Context(), uid)
			if errors.Is(err, domain.ErrNotFound) {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "unknown user")
				return
			}
			if err != nil {
				log.Error().Err(err).Str("user", uid).Msg("user lookup failed")
				writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "retry later")
				return
			}
			setActor(r.Context(), u.ID)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUser, &u)))
		})
	}
}

// RequireRoles allows the request only if the caller holds one of roles.
func RequireRoles(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := app.RequireRole(userFrom(r.Context()), roles...); err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userFrom(ctx context.Context) *domain.User {
	u, _ := ctx.Value(ctxUser).(*domain.User)
	return u
}

