// Package middleware provides HTTP middleware for the Sink API.
package middleware

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// OriginPolicy is a browser origin allowlist. Entries are exact origins
// ("https://sink.app"), subdomain wildcards ("https://*.sink.app") or "*".
type OriginPolicy struct {
	any       bool
	exact     map[string]struct{}
	wildcards []wildcardOrigin
}

type wildcardOrigin struct {
	scheme string
	suffix string // ".sink.app"
}

// NewOriginPolicy parses origins. Malformed entries are ignored.
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{exact: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.ToLower(strings.TrimSpace(o))
		switch {
		case o == "":
		case o == "*":
			p.any = true
		case strings.Contains(o, "://*."):
			scheme, host, _ := strings.Cut(o, "://*")
			p.wildcards = append(p.wildcards, wildcardOrigin{scheme: scheme, suffix: host})
		case strings.HasPrefix(o, "*."):
			// No scheme: accept either.
			p.wildcards = append(p.wildcards, wildcardOrigin{suffix: strings.TrimPrefix(o, "*")})
		default:
			p.exact[strings.TrimSuffix(o, "/")] = struct{}{}
		}
	}
	return p
}

// Empty reports whether the policy allows nothing.
func (p *OriginPolicy) Empty() bool {
	return !p.any && len(p.exact) == 0 && len(p.wildcards) == 0
}

// Allows reports whether origin may make cross-origin requests.
func (p *OriginPolicy) Allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.any {
		return true
	}
	origin = strings.ToLower(origin)
	if _, ok := p.exact[origin]; ok {
		return true
	}
	if len(p.wildcards) == 0 {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := "." + u.Host
	for _, w := range p.wildcards {
		if w.scheme != "" && w.scheme != u.Scheme {
			continue
		}
		// "x.sink.app" matches ".sink.app"; bare "sink.app" does not.
		if strings.HasSuffix(host, w.suffix) && len(host) > len(w.suffix) {
			return true
		}
	}
	return false
}

// CORSConfig holds CORS configuration options.
type CORSConfig struct {
	// AllowedOrigins feeds OriginPolicy. Empty denies every cross-origin request.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	// ExposedHeaders are readable by browser code, e.g. the rate limit headers.
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
}

// DefaultCORSConfig returns the settings used by the web client.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept", RequestIDHeader},
		ExposedHeaders: []string{
			RequestIDHeader,
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		MaxAge: 600,
	}
}

// CORS answers preflight requests and tags responses for allowed origins.
// Requests from other origins pass through untagged so the browser blocks
// them; their preflights get 403.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := NewOriginPolicy(cfg.AllowedOrigins)
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Origin")

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if !policy.Allows(origin) {
				if preflight {
					writeError(w, http.StatusForbidden, "ORIGIN_NOT_ALLOWED", "Origin not allowed")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			if exposed != "" {
				w.Header().Set("Access-Control-Expose-Headers", exposed)
			}

			if !preflight {
				next.ServeHTTP(w, r)
				return
			}

			if !slices.Contains(cfg.AllowedMethods, r.Header.Get("Access-Control-Request-Method")) {
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
				return
			}
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)
			if cfg.MaxAge > 0 {
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
