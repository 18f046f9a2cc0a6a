package utils

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/memeland/memeland-server/cmd/apperrors"
)

type contextKey string

const UserIDKey contextKey = "userID"

// GetUserIDFromContext returns the authenticated caller's ID, or an
// authentication error when the request carried no valid token.
func GetUserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		return "", apperrors.Authentication("user ID not found in context")
	}
	return userID, nil
}

// CallerID returns the caller's ID or "" for anonymous requests. Used by
// read endpoints that join the viewer's own vote when an identity is known.
func CallerID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

func parseToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", apperrors.Authentication("Authorization header required")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("SECRET_KEY")), nil
	})
	if err != nil || !token.Valid {
		return "", apperrors.Authentication("Invalid token")
	}
	if claims.Subject == "" {
		return "", apperrors.Authentication("Invalid user ID in token")
	}
	return claims.Subject, nil
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller's user ID in the request context.
func AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := parseToken(r)
		if err != nil {
			WriteError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// OptionalAuthMiddleware resolves the caller identity when a valid token is
// present and lets the request through anonymously otherwise.
func OptionalAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if userID, err := parseToken(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
		}
		next.ServeHTTP(w, r)
	}
}
