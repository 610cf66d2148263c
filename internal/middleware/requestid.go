package middleware

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// HeaderXRequestID carries the correlation ID on both the inbound
	// request (if the caller already has one) and the response.
	HeaderXRequestID = "X-Request-ID"
	// HeaderXForwardedFor is the proxy chain's client-IP header.
	HeaderXForwardedFor = "X-Forwarded-For"
	// HeaderXRealIP is an alternative single-IP proxy header.
	HeaderXRealIP = "X-Real-IP"
)

// requestIDMaxLength bounds an inbound X-Request-ID so a caller can't
// use it to smuggle an unbounded string into logs.
const requestIDMaxLength = 128

// requestIDPattern restricts an inbound X-Request-ID to characters
// that are safe to echo into a response header and a log line.
var requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)

// RequestID stamps every request with a correlation ID: an existing,
// well-formed X-Request-ID from the caller is reused, otherwise a
// fresh UUIDv4 is minted. The ID is echoed on the response and stashed
// in the request context under RequestIDKey for logging.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderXRequestID)
			if !looksLikeRequestID(id) {
				id = uuid.New().String()
			}

			w.Header().Set(HeaderXRequestID, id)
			ctx := context.WithValue(r.Context(), RequestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// looksLikeRequestID reports whether id is non-empty, within
// requestIDMaxLength, and made only of characters requestIDPattern
// allows.
func looksLikeRequestID(id string) bool {
	if id == "" || len(id) > requestIDMaxLength {
		return false
	}
	return requestIDPattern.MatchString(id)
}

// ClientIP resolves the caller's address and stashes it in the
// request context under ClientIPKey, so downstream handlers and the
// rate limiter agree on who's making the request. trustProxy gates
// whether X-Forwarded-For/X-Real-IP are honored at all; trustedProxies
// further restricts that to requests arriving from a known proxy hop.
func ClientIP(trustProxy bool, trustedProxies []string) Middleware {
	trusted := make(map[string]bool, len(trustedProxies))
	for _, ip := range trustedProxies {
		trusted[ip] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, trustProxy, trusted)
			ctx := context.WithValue(r.Context(), ClientIPKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveClientIP picks the address to treat as the caller's: the
// direct TCP peer unless trustProxy says to defer to a forwarding
// header, and then only when the peer itself is a trusted proxy hop.
func resolveClientIP(r *http.Request, trustProxy bool, trustedProxies map[string]bool) string {
	peer := hostFromAddr(r.RemoteAddr)

	if !trustProxy {
		return peer
	}
	if len(trustedProxies) > 0 && !trustedProxies[peer] {
		return peer
	}

	if xff := r.Header.Get(HeaderXForwardedFor); xff != "" {
		// The leftmost entry is the original client; the rest are the
		// proxy hops it passed through.
		if first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get(HeaderXRealIP)); xri != "" {
		return xri
	}

	return peer
}

// hostFromAddr strips a trailing ":port" from addr (typically
// r.RemoteAddr), returning addr unchanged if it carries no port.
func hostFromAddr(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
