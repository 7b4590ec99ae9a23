package admin

import (
	"log/slog"
	"net/http"

	"storefront/pkg/requestcontext"
)

// RoleAdmin is the role claim carried by reviewer credentials.
const RoleAdmin = "admin"

// RequireAdmin admits only requests whose authenticated role is admin.
// Mount it after auth.RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Role(ctx) != RoleAdmin {
				logger.WarnContext(ctx, "admin role required",
					"user_id", requestcontext.UserID(ctx),
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin role required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
