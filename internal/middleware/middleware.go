// Package middleware wraps the HTTP handler chain that sits in front
// of the shortener's routes: request identification, client IP
// resolution, and rate limiting, composed via a small Chain type
// rather than a third-party router's built-in middleware stack.
package middleware

import (
	"context"
	"net/http"
)

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// contextKey namespaces values this package stores on a
// request.Context so they can't collide with keys other packages use.
type contextKey string

const (
	// RequestIDKey holds the per-request correlation ID set by RequestID.
	RequestIDKey contextKey = "request_id"
	// ClientIPKey holds the resolved client address set by ClientIP.
	ClientIPKey contextKey = "client_ip"
)

// GetRequestID returns the request ID stashed in ctx by RequestID, or
// "" if none is present (e.g. the middleware wasn't installed).
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GetClientIP returns the client address stashed in ctx by ClientIP,
// or "" if none is present.
func GetClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ClientIPKey).(string)
	return ip
}

// Chain is an ordered, immutable list of middlewares.
type Chain struct {
	middlewares []Middleware
}

// New builds a Chain from middlewares, applied in the order given:
// the first wraps everything after it, so it sees a request first and
// a response last.
func New(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: append([]Middleware{}, middlewares...)}
}

// Then wraps h with the chain, innermost (last middleware) first, and
// returns the composed http.Handler. A nil h falls back to
// http.DefaultServeMux rather than panicking on an unconfigured chain.
func (c *Chain) Then(h http.Handler) http.Handler {
	if h == nil {
		h = http.DefaultServeMux
	}
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		h = c.middlewares[i](h)
	}
	return h
}

// ThenFunc is Then for a plain handler function.
func (c *Chain) ThenFunc(fn http.HandlerFunc) http.Handler {
	return c.Then(fn)
}

// Append returns a new Chain with middlewares added to the end,
// leaving c untouched so callers can branch a base chain safely.
func (c *Chain) Append(middlewares ...Middleware) *Chain {
	combined := make([]Middleware, 0, len(c.middlewares)+len(middlewares))
	combined = append(combined, c.middlewares...)
	combined = append(combined, middlewares...)
	return &Chain{middlewares: combined}
}

// Extend is Append under a name that reads better at call sites that
// add several middlewares at once.
func (c *Chain) Extend(middlewares ...Middleware) *Chain {
	return c.Append(middlewares...)
}
