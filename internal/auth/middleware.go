// Package auth resolves the current owner identity from bearer tokens
// issued by the external identity provider. Session lifecycle (sign-in,
// refresh, sign-out) is entirely the provider's concern; this package only
// ever reads the owner id.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/exportpro/exportpro/internal/shared"
)

// Verifier validates provider-issued JWTs and extracts the owner id.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier from the provider's signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// OwnerID parses and validates a raw token, returning the subject claim.
func (v *Verifier) OwnerID(raw string) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse token: %w", err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, shared.ErrUnauthorized
	}
	owner, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("subject is not a valid owner id: %w", err)
	}
	return owner, nil
}

// Middleware authenticates requests and stores the owner id in context.
func Middleware(verifier *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				shared.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")
			owner, err := verifier.OwnerID(raw)
			if err != nil {
				logger.Warn("token rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				shared.RespondError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}
			ctx := shared.ContextWithOwner(r.Context(), owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
