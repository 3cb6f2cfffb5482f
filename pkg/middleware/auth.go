package middleware

import (
	"net/http"

	"github.com/craftpanel/pluginhub/pkg/httputil"
	"github.com/craftpanel/pluginhub/pkg/observability"
)

// PanelUserHeader carries the identity of the panel user the game panel is
// acting for. The panel authenticates its own users; this service trusts the
// header because it is only reachable from the panel backend.
const PanelUserHeader = "X-Panel-User"

// RequireUser rejects requests that do not carry a panel user identity and
// attaches the user ID to the request context for downstream handlers.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(PanelUserHeader)
		if userID == "" {
			httputil.WriteUnauthorized(w, "missing "+PanelUserHeader+" header")
			return
		}
		ctx := observability.WithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
