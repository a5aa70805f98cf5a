// Package httputil holds request helpers shared by the HTTP packages.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client IP address from the request.
// When trustProxy is true, the RFC 7239 Forwarded header, X-Forwarded-For
// (first entry) and X-Real-IP are checked in that order before falling back
// to RemoteAddr. Only enable trustProxy behind a trusted reverse proxy.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedFor(r.Header.Get("Forwarded")); ip != "" {
			return ip
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// The leftmost entry is the original client.
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	return stripPort(r.RemoteAddr)
}

// forwardedFor returns the for= node of the first Forwarded element, or ""
// when absent or obfuscated ("unknown", "_hidden").
func forwardedFor(header string) string {
	if header == "" {
		return ""
	}
	first, _, _ := strings.Cut(header, ",")
	for _, pair := range strings.Split(first, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || !strings.EqualFold(key, "for") {
			continue
		}
		node := strings.Trim(value, `"`)
		if node == "" || strings.EqualFold(node, "unknown") || strings.HasPrefix(node, "_") {
			return ""
		}
		return stripPort(node)
	}
	return ""
}

// stripPort drops a port and IPv6 brackets from host[:port].
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
	}
	return host
}
