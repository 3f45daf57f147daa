package middleware

import (
	"fmt"
	"log"
	"net/http"

	"github.com/barkeep-bar/barkeep/cmd/barkeepapi/internal/auth"
)

// GateDependencies provides the collaborators needed for gate decisions.
type GateDependencies struct {
	Sessions auth.SessionStore
	OnError  auth.ErrorWriter
}

// RequireRole constructs a Chi middleware that admits a request only when the
// session principal holds at least the required role. The gate reads nothing
// but the session store, so a rejected request never reaches the data store.
//
// Outcomes:
//   - no principal in the session: auth.ErrNotAuthenticated
//   - principal below required: *auth.NotAuthorizedError
//   - otherwise the principal is placed on the request context and next runs
func RequireRole(deps GateDependencies, required auth.Role) func(http.Handler) http.Handler {
	onError := deps.OnError
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := deps.Sessions.Principal(r)
			if err != nil {
				onError(w, r, fmt.Errorf("read session: %w", err))
				return
			}

			if err := auth.Authorize(principal, required); err != nil {
				if principal != nil {
					log.Printf("gate: denied %s %s to %s: %v", r.Method, r.URL.Path, principal.Subject, err)
				}
				onError(w, r, err)
				return
			}

			ctx := auth.SetPrincipalContext(r.Context(), *principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
