package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gourl/gourl/internal/metrics"
	"github.com/gourl/gourl/internal/ratelimit"
)

// RateLimitConfig controls how the rate-limit middleware identifies a
// caller and how much it trusts intermediary proxies.
type RateLimitConfig struct {
	APIKeyHeader   string   // header carrying a per-caller API key, e.g. "X-API-Key"
	TrustProxy     bool     // honor X-Forwarded-For / X-Real-IP
	TrustedProxies []string // immediate-hop IPs allowed to set those headers
}

// RateLimitResponse is the 429 response body.
type RateLimitResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retry_after"`
}

// RateLimit builds a Middleware that throttles callers against
// limiter, keyed by API key when cfg.APIKeyHeader is configured and
// present, otherwise by client IP. A limiter error fails open: the
// request proceeds rather than blocking traffic on limiter trouble.
func RateLimit(limiter ratelimit.Limiter, cfg RateLimitConfig) Middleware {
	trusted := make(map[string]bool, len(cfg.TrustedProxies))
	for _, ip := range cfg.TrustedProxies {
		trusted[ip] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := rateLimitIdentifier(r, cfg, trusted)

			result, err := limiter.Allow(r.Context(), id)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			applyRateLimitHeaders(w, result)

			if !result.Allowed {
				metrics.RecordRateLimited()
				writeRateLimitResponse(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitIdentifier picks the bucket key for a request: an API key
// wins over IP so a caller authenticating with a key gets its own
// budget regardless of which address it connects from.
func rateLimitIdentifier(r *http.Request, cfg RateLimitConfig, trusted map[string]bool) string {
	if cfg.APIKeyHeader != "" {
		if key := r.Header.Get(cfg.APIKeyHeader); key != "" {
			return "api:" + key
		}
	}
	return "ip:" + rateLimitClientIP(r, cfg.TrustProxy, trusted)
}

// rateLimitClientIP resolves the address to bucket a request under.
// It reuses whatever a preceding ClientIP middleware already resolved
// when present, so the two middlewares agree on identity.
func rateLimitClientIP(r *http.Request, trustProxy bool, trusted map[string]bool) string {
	if ip := GetClientIP(r.Context()); ip != "" {
		return ip
	}

	remote := hostOnly(r.RemoteAddr)
	if !trustProxy {
		return remote
	}

	if len(trusted) > 0 && !trusted[remote] {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return remote
}

// hostOnly strips a trailing ":port" from addr, e.g. r.RemoteAddr.
func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// applyRateLimitHeaders sets the standard X-RateLimit-* headers (and
// Retry-After when blocked) describing result.
func applyRateLimitHeaders(w http.ResponseWriter, result *ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

	if result.ResetAfter > 0 {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))
	}

	if !result.Allowed && result.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retrySecondsFloor(result.RetryAfter)))
	}
}

// writeRateLimitResponse writes the 429 envelope for a blocked request.
func writeRateLimitResponse(w http.ResponseWriter, result *ratelimit.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	resp := RateLimitResponse{
		Error:      "rate limit exceeded",
		Code:       "RATE_LIMIT_EXCEEDED",
		RetryAfter: retrySecondsFloor(result.RetryAfter),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// retrySecondsFloor converts d to whole seconds, rounding a sub-second
// duration up to 1 so Retry-After never advertises an immediate retry.
func retrySecondsFloor(d time.Duration) int {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
