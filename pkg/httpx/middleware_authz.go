package httpx

import (
	"context"
	"net/http"

	"github.com/mantenix/identity/pkg/slogx"
)

// RoleResolver resolves the current role for a user id. Implementations must
// hit the profile store on every call; role changes take effect immediately
// when nothing is cached between requests.
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID string) (string, error)
}

// RequireRole allows the request through only when the authenticated caller
// currently holds the given role. Must run after AuthnMiddleware.
func RequireRole(resolver RoleResolver, role string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			userID := UserIDFromContext(ctx)
			if userID == "" {
				writeBearerError(w, "missing bearer token")
				return
			}

			have, err := resolver.ResolveRole(ctx, userID)
			if err != nil {
				log.Warn("role lookup failed", "user_id", userID, "err", err)
				WriteError(w, http.StatusForbidden, "forbidden", "role could not be resolved")
				return
			}
			if have != role {
				WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
