package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Context key for user data
type contextKey string

const userContextKey contextKey = "user"

// JWTClaims represents the claims in tokens issued by the identity provider.
// Older tokens carry the user id in a user_id claim, newer ones only in sub.
type JWTClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
}

// AuthUser represents the authenticated user in request context
type AuthUser struct {
	ID string
}

// parseBearer validates the Authorization header and returns the caller's
// identity, or nil when the header is absent or the token is invalid.
func (r *Router) parseBearer(req *http.Request) *AuthUser {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil
	}

	token, err := jwt.ParseWithClaims(parts[1], &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(r.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok {
		return nil
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil
	}
	return &AuthUser{ID: userID}
}

// withAuth is middleware that requires a valid token from the identity provider
func (r *Router) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		user := r.parseBearer(req)
		if user == nil {
			http.Error(w, `{"error": "not authenticated"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(req.Context(), userContextKey, user)
		next.ServeHTTP(w, req.WithContext(ctx))
	}
}

// withOptionalAuth attaches the caller's identity when a valid token is
// present and treats everything else as anonymous. Conversion endpoints
// accept anonymous submissions.
func (r *Router) withOptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if user := r.parseBearer(req); user != nil {
			ctx := context.WithValue(req.Context(), userContextKey, user)
			req = req.WithContext(ctx)
		}
		next.ServeHTTP(w, req)
	}
}

// getAuthUser extracts the authenticated user from context
func getAuthUser(ctx context.Context) *AuthUser {
	user, _ := ctx.Value(userContextKey).(*AuthUser)
	return user
}
