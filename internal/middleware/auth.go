// Package middleware provides HTTP middleware for the ledger API.
package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// ClaimsKey is the context key for the verified token claims.
	ClaimsKey ContextKey = "claims"
)

// ScopeAdmin grants access to the cross-user feedback and billing routes.
const ScopeAdmin = "ledger:admin"

// Claims represents JWT claims. The subject is the ledger owner id.
type Claims struct {
	jwt.RegisteredClaims
	TenantID string   `json:"tenant_id"`
	Scopes   []string `json:"scope"`
}

// Auth creates JWT authentication middleware.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc)
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			if id, ok := r.Context().Value(identityKey).(*identity); ok {
				id.tenantID = claims.TenantID
				id.userID = claims.Subject
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims returns the verified claims, or nil when the request was not
// authenticated.
func GetClaims(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}

// GetUserID gets user ID from context.
func GetUserID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.Subject
	}
	return ""
}

// GetTenantID gets tenant ID from context.
func GetTenantID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.TenantID
	}
	return ""
}

// HasScope checks if the context has a specific scope.
func HasScope(ctx context.Context, scope string) bool {
	c := GetClaims(ctx)
	return c != nil && slices.Contains(c.Scopes, scope)
}

// CanActAs reports whether the caller may read or write ownerID's data.
// Requests without claims pass, since they only reach handlers when auth is
// disabled.
func CanActAs(ctx context.Context, ownerID string) bool {
	c := GetClaims(ctx)
	return c == nil || c.Subject == ownerID || slices.Contains(c.Scopes, ScopeAdmin)
}

// CanAccessTenant reports whether the caller may touch conversations of
// tenantID.
func CanAccessTenant(ctx context.Context, tenantID string) bool {
	c := GetClaims(ctx)
	return c == nil || c.TenantID == tenantID || slices.Contains(c.Scopes, ScopeAdmin)
}

// RequireScope creates middleware that requires a specific scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasScope(r.Context(), scope) {
				writeError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
