package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vyrodovalexey/authgate/internal/auth"
)

// whoamiResponse describes the caller of a protected route.
type whoamiResponse struct {
	Authenticated bool     `json:"authenticated"`
	Principal     string   `json:"principal,omitempty"`
	Scheme        string   `json:"scheme,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	Secure        bool     `json:"secure"`
	Route         string   `json:"route"`

	// JWT callers only.
	Subject      string     `json:"subject,omitempty"`
	Issuer       string     `json:"issuer,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	RefreshCount *int       `json:"refreshCount,omitempty"`
	RefreshLimit *int       `json:"refreshLimit,omitempty"`
	Refreshable  *bool      `json:"refreshable,omitempty"`
}

// whoamiHandler reports the security context attached to the request.
// Routes that permit anonymous callers answer with authenticated=false.
func whoamiHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := whoamiResponse{Route: r.Pattern}

		if sc, ok := auth.SecurityContextFromContext(r.Context()); ok {
			resp.Authenticated = true
			resp.Principal = sc.PrincipalName()
			resp.Scheme = sc.AuthenticationScheme().Label()
			resp.Roles = sc.Roles()
			resp.Secure = sc.IsSecure()

			if jc, ok := sc.(*auth.JWTContext); ok {
				resp.Subject = jc.Subject()
				resp.Issuer = jc.Issuer()
				if exp := jc.ExpiresAt(); !exp.IsZero() {
					resp.ExpiresAt = &exp
				}
				count, limit, refreshable := jc.RefreshCount(), jc.RefreshLimit(), jc.IsEligibleForRefreshment()
				resp.RefreshCount = &count
				resp.RefreshLimit = &limit
				resp.Refreshable = &refreshable
			}
		}

		writeJSON(w, http.StatusOK, resp)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set(auth.HeaderContentType, auth.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
