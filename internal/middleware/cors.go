package middleware

import (
	"net/http"
	"strings"
)

const (
	corsMethods = "GET, POST, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization"
	corsMaxAge  = "86400"
)

// CORS returns middleware that applies an origin allowlist. An entry of
// "*" allows every origin; entries like "*.example.com" match any
// subdomain. Preflight OPTIONS requests are answered directly.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if value, ok := allowOrigin(allowedOrigins, r.Header.Get("Origin")); ok {
				w.Header().Set("Access-Control-Allow-Origin", value)
				w.Header().Set("Access-Control-Allow-Methods", corsMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
				w.Header().Set("Access-Control-Max-Age", corsMaxAge)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// allowOrigin reports whether the request origin passes the allowlist and
// returns the Access-Control-Allow-Origin value to send. A configured "*"
// matches even when the Origin header is absent.
func allowOrigin(allowed []string, origin string) (string, bool) {
	for _, entry := range allowed {
		if entry == "*" {
			return "*", true
		}
		if origin == "" {
			continue
		}
		if entry == origin {
			return origin, true
		}
		if strings.HasPrefix(entry, "*.") && strings.HasSuffix(origin, strings.TrimPrefix(entry, "*")) {
			return origin, true
		}
	}
	return "", false
}
