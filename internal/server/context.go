package server

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const (
	contextKeyClientIP contextKey = "client_ip"
	contextKeyUser     contextKey = "auth_user"
)

// ClientIP returns the client IP stored by WithClientIP, or "unknown".
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}

// WithClientIP stores the request's client IP on the context so downstream
// code (the audit trail) can record it without holding the request.
func WithClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), contextKeyClientIP, clientIPAddress(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIPAddress(r *http.Request) string {
	// X-Forwarded-For first: the POS terminals sit behind a reverse proxy.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
