package authz

import (
	"errors"
	"net/http"

	"github.com/vyrodovalexey/authgate/internal/auth"
	"github.com/vyrodovalexey/authgate/internal/observability"
)

// HTTPMiddleware returns an HTTP middleware for authorization. The route
// identity is the http.ServeMux pattern that matched the request, so the
// middleware must wrap handlers registered on the mux rather than the mux
// itself.
func (a *Authorizer) HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := a.Authorize(r.Context(), "http", RouteOf(r), "")
			if err := decision.Err(); err != nil {
				a.handleAuthzError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RouteOf returns the route identity of r: the matched ServeMux pattern,
// or the request path when no pattern matched.
func RouteOf(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.URL.Path
}

// handleAuthzError handles authorization errors.
func (a *Authorizer) handleAuthzError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrUnauthenticated) {
		w.Header().Set(auth.HeaderWWWAuthenticate, a.challenge)
		auth.WriteJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var denied *AccessDeniedError
	if errors.As(err, &denied) {
		a.logger.Warn("access denied",
			observability.String("path", r.URL.Path),
			observability.String("method", r.Method),
			observability.String("target", denied.Target),
			observability.String("rule", denied.Rule.String()),
		)
	}
	auth.WriteJSONError(w, http.StatusForbidden, "access denied")
}
