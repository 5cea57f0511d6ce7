package middleware

import (
	"net/http"
	"strings"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/auth"
	"github.com/aegis-identity/aegis/internal/authz"
	"github.com/aegis-identity/aegis/pkg/logger"
)

// Authenticator validates the bearer token on every request and installs
// the caller identity plus a request-scoped permission cache. The cache
// never outlives the request.
func Authenticator(authSvc auth.ServiceAPI) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			validation, err := authSvc.ValidateToken(r.Context(), tokenString)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			caller := &internal.Caller{
				UserID:    validation.UserID,
				AccountID: validation.AccountID,
				DeviceID:  validation.DeviceID,
			}
			ctx := internal.ContextWithCaller(r.Context(), caller)
			ctx = authz.WithCache(ctx)
			ctx = logger.With(ctx, "user_id", caller.UserID)
			if caller.AccountID != nil {
				ctx = logger.With(ctx, "account_id", *caller.AccountID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"code":401,"message":"` + message + `"}`))
}
