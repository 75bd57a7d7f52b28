package middleware

import (
	"net"
	"net/http"
	"strings"
)

// RealIP extracts the transport-level client address.
// If trustProxyHeaders is true, it checks X-Forwarded-For and X-Real-IP
// headers. Otherwise it strictly uses RemoteAddr to prevent IP spoofing.
//
// The pipeline prefers the envelope's self-reported clientIp; this helper is
// the fallback when the envelope omits it.
func RealIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		// X-Forwarded-For can contain multiple IPs, the first one is the client
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			ip := strings.TrimSpace(parts[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			ip := strings.TrimSpace(xri)
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if net.ParseIP(host) == nil {
		return "unknown"
	}
	return host
}
