package middleware

import (
	"net/http"
	"strings"
)

// SecurityConfig holds configuration for security headers.
type SecurityConfig struct {
	// IsDevelopment disables HSTS so the API can be served over plain HTTP locally.
	IsDevelopment bool
	// MaxRequestBodySize caps JSON request bodies in bytes. Zero disables the cap.
	MaxRequestBodySize int64
}

// DefaultSecurityConfig returns production settings.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{MaxRequestBodySize: 1 << 20}
}

// securityHeaders is the fixed header set for JSON API responses.
func securityHeaders(cfg SecurityConfig) http.Header {
	h := http.Header{}
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "0")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()")
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("Cross-Origin-Resource-Policy", "same-origin")
	h.Set("Cache-Control", "no-store")
	if !cfg.IsDevelopment {
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
	return h
}

// Security sets the API security headers on every response.
// Responses carry session data, so none of them may be cached.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	headers := securityHeaders(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dst := w.Header()
			for k, v := range headers {
				dst[k] = append([]string(nil), v...)
			}
			dst.Del("Server")
			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize rejects request bodies larger than maxBytes with 413.
// A declared Content-Length is checked up front; chunked bodies fail on the
// read that crosses the limit. Socket upgrades carry no body and pass through.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody || isWebSocketUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
