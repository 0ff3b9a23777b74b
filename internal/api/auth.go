package api

import (
	"net/http"
	"strings"

	"github.com/sanghalabs/kindred/internal/auth"
	"github.com/sanghalabs/kindred/internal/middleware"
)

// RequireAuth wraps a handler with bearer-token authentication. A valid
// access token puts the member ID on the request context; anything else
// gets a 401 with the standard error envelope.
func RequireAuth(jwtService *auth.JWTService, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Missing Authorization header")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authorization header must be a bearer token")
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid or expired token")
			return
		}

		// Refresh tokens cannot be used to call the API directly.
		if claims.Type != auth.TokenTypeAccess {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Access token required")
			return
		}

		ctx := middleware.SetMemberID(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
