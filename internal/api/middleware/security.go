package middleware

import (
	"net/http"
	"strings"

	"github.com/chargeroute/chargeroute/internal/api/models"
)

var securityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Permissions-Policy":        "camera=(), microphone=(), payment=()",
}

// SecurityHeaders sets the hardening headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range securityHeaders {
			h.Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

// opsPrefix is served over plain HTTP so load balancer probes keep working.
const opsPrefix = "/v1/ops/"

// RequireTLS rejects plain HTTP requests with 403 when required is true.
// A request counts as secure when it arrived over TLS or a proxy set
// X-Forwarded-Proto to https. Requests without the header are allowed
// through, since they reach the server directly.
func RequireTLS(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !required {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS != nil || strings.HasPrefix(r.URL.Path, opsPrefix) {
				next.ServeHTTP(w, r)
				return
			}
			proto := r.Header.Get("X-Forwarded-Proto")
			if proto == "" || strings.EqualFold(proto, "https") {
				next.ServeHTTP(w, r)
				return
			}

			problem := models.NewProblem(models.ProblemTypeTLSRequired, "TLS required", http.StatusForbidden, GetRequestID(r.Context()))
			problem.Detail = "This endpoint requires HTTPS"
			problem.Instance = r.URL.Path
			problem.Write(w)
		})
	}
}
