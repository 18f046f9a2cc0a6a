package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"

	"github.com/memeland/memeland-server/cmd/apperrors"
)

func signTestToken(t *testing.T, subject, secret string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	var seenUserID string
	next := func(w http.ResponseWriter, r *http.Request) {
		seenUserID, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "u1", "test-secret"))
	rec := httptest.NewRecorder()
	AuthMiddleware(next)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", seenUserID)
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	next := func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a rejected request")
	}

	cases := map[string]string{
		"missing header": "",
		"garbage":        "Bearer not-a-token",
		"wrong key":      "Bearer " + signTestToken(t, "u1", "other-secret"),
	}
	for name, header := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		AuthMiddleware(next)(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	var seenUserID string
	next := func(w http.ResponseWriter, r *http.Request) {
		seenUserID = CallerID(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	// anonymous requests pass through with no identity
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	OptionalAuthMiddleware(next)(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", seenUserID)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "u2", "test-secret"))
	rec = httptest.NewRecorder()
	OptionalAuthMiddleware(next)(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2", seenUserID)
}

func TestGetUserIDFromContext(t *testing.T) {
	_, err := GetUserIDFromContext(context.Background())
	assert.Equal(t, apperrors.KindAuthentication, apperrors.KindOf(err))

	ctx := context.WithValue(context.Background(), UserIDKey, "u1")
	userID, err := GetUserIDFromContext(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestAuthorize(t *testing.T) {
	assert.NoError(t, Authorize("u1", "u1"))

	err := Authorize("u2", "u1")
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}
