package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/parchmentlabs/recall/internal/api"
	"github.com/parchmentlabs/recall/internal/domain"
)

type contextKey string

const PrincipalKey contextKey = "principal"

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.Principal, error)
}

// BearerAuth resolves the Authorization header to a principal and stores it
// in the request context. Inactive users are rejected with 403, everything
// else that fails validation with 401.
func BearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			principal, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				if err == domain.ErrInactiveUser {
					api.Error(w, http.StatusForbidden, "user account is inactive")
					return
				}
				api.Error(w, http.StatusUnauthorized, "invalid access token")
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetPrincipal(ctx context.Context) *domain.Principal {
	principal, _ := ctx.Value(PrincipalKey).(*domain.Principal)
	return principal
}

func GetUserID(ctx context.Context) string {
	if principal := GetPrincipal(ctx); principal != nil {
		return principal.UserID
	}
	return ""
}
