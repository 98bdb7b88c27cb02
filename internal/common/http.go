package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP attempts to determine the real client IP address from the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); ip != "" {
		parts := strings.Split(ip, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
		return strings.TrimSpace(ip)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// RequestOrigin derives the public base URL of the caller. The Origin header
// wins, then the Host header (assumed https), then the local development
// default. Payment redirect targets are built from this value.
func RequestOrigin(r *http.Request, fallback string) string {
	if r != nil {
		if origin := strings.TrimSpace(r.Header.Get("Origin")); origin != "" {
			return origin
		}
		if host := strings.TrimSpace(r.Host); host != "" {
			return "https://" + host
		}
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return "http://localhost:3000"
}
