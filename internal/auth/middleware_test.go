package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/exportpro/exportpro/internal/shared"
)

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject})
	raw, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestMiddlewareSetsOwnerFromSubject(t *testing.T) {
	owner := uuid.New()
	var got uuid.UUID
	handler := Middleware(NewVerifier("s3cret"), slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = shared.OwnerFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "s3cret", owner.String()))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, owner, got)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	handler := Middleware(NewVerifier("s3cret"), slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/products", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	handler := Middleware(NewVerifier("s3cret"), slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other", uuid.NewString()))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestVerifierRejectsNonUUIDSubject(t *testing.T) {
	_, err := NewVerifier("s3cret").OwnerID(signToken(t, "s3cret", "not-a-uuid"))
	require.Error(t, err)
}
