package handlers

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims are the JWT claims the gateway trusts for grader identity.
type UserClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"` // faculty, registrar, admin
	jwt.RegisteredClaims
}

type contextKey string

const userContextKey contextKey = "user"

// ContextWithUser injects authenticated claims into a request context.
func ContextWithUser(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}

// helper to get user from context
func getUserFromContext(r *http.Request) *UserClaims {
	user, ok := r.Context().Value(userContextKey).(*UserClaims)
	if !ok {
		return nil
	}
	return user
}

// canGrade reports whether the authenticated role may write grades.
func canGrade(user *UserClaims) bool {
	if user == nil {
		return false
	}
	switch user.Role {
	case "faculty", "registrar", "admin":
		return true
	}
	return false
}
