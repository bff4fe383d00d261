package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/savora-food/api/internal/access"
	"github.com/savora-food/api/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate validates the Bearer access token and stores its claims in
// the request context.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin admits approved admins and super-admins.
func RequireAdmin(next http.Handler) http.Handler {
	return require(access.CanActAsAdmin, next)
}

// RequireSuperAdmin admits super-admins only.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return require(access.RequireSuperAdmin, next)
}

// RequireCustomer admits customer principals only.
func RequireCustomer(next http.Handler) http.Handler {
	return require(func(p access.Principal) access.Decision {
		if p.IsCustomer() {
			return access.Decision{Allowed: true, Reason: "customer"}
		}
		return access.Decision{Reason: "customer access required"}
	}, next)
}

func require(check func(access.Principal) access.Decision, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if d := check(access.FromClaims(claims)); !d.Allowed {
			writeError(w, http.StatusForbidden, d.Reason)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// PrincipalFromContext returns the zero Principal when the request is
// unauthenticated.
func PrincipalFromContext(ctx context.Context) access.Principal {
	return access.FromClaims(ClaimsFromContext(ctx))
}

// WithClaims is used by tests and by the websocket handler, which
// authenticates from a query parameter instead of a header.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

type errorBody struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   errorBody{Message: msg},
	})
}
