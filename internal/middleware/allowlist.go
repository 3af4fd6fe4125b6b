package middleware

import (
	"net"
	"net/http"

	"github.com/rs/zerolog/log"
)

// IPAllowlistMiddleware rejects webhook deliveries from unexpected sources.
// An empty allowlist disables the check. Expects to run behind
// chi middleware.RealIP so RemoteAddr reflects the true client.
type IPAllowlistMiddleware struct {
	allowed map[string]bool
}

func NewIPAllowlistMiddleware(allowed []string) *IPAllowlistMiddleware {
	set := make(map[string]bool, len(allowed))
	for _, ip := range allowed {
		if ip != "" {
			set[ip] = true
		}
	}
	return &IPAllowlistMiddleware{allowed: set}
}

func (m *IPAllowlistMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.allowed) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := r.RemoteAddr
		if host, _, err := net.SplitHostPort(clientIP); err == nil {
			clientIP = host
		}

		if !m.allowed[clientIP] {
			log.Warn().Str("ip", clientIP).Msg("webhook from non-allowlisted IP rejected")
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "IP not whitelisted",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
