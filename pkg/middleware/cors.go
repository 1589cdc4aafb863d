package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// WildcardOrigin admits requests from any origin.
const WildcardOrigin = "*"

// CORS returns middleware that applies CORS headers based on the config.
// Passes through without headers when disabled or no origins are configured.
// An origins entry of "*" answers every request with a wildcard
// Allow-Origin header, unless credentials are allowed, in which case the
// request origin is echoed instead.
func CORS(cfg *CORSConfig) Func {
	wildcard := slices.Contains(cfg.Origins, WildcardOrigin)
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || len(cfg.Origins) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			allowOrigin := ""

			switch {
			case wildcard && cfg.AllowCredentials && origin != "":
				allowOrigin = origin
			case wildcard:
				allowOrigin = WildcardOrigin
			case slices.Contains(cfg.Origins, origin):
				allowOrigin = origin
			}

			if allowOrigin != "" {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allowOrigin)
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if allowOrigin != WildcardOrigin {
					h.Add("Vary", "Origin")
				}

				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}

				if cfg.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
