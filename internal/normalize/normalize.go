// Package normalize implements the single canonicalization step used
// both as the storage key and the lookup key for the shortener core.
// It is the only place URL canonicalization happens; the repository
// and the database only ever see already-normalized values.
package normalize

import (
	"net/url"
	"strings"

	"github.com/gourl/gourl/internal/apperrors"
	"github.com/gourl/gourl/internal/security"
)

// defaultPort maps a scheme to the port implied when none is given.
var defaultPort = map[string]string{
	"http":  "80",
	"https": "443",
}

// Normalizer canonicalizes raw URL strings. It optionally runs a
// security sanitizer first to reject dangerous schemes, blocked
// hosts, and (by default) private/loopback addresses before RFC
// canonicalization runs - the normalizer is the natural place for
// this since it already owns the only URL parse in the write/read
// paths.
type Normalizer struct {
	sanitizer *security.Sanitizer
}

// New creates a Normalizer with the given sanitizer config. Callers
// wanting the core's standard hardening (reject dangerous schemes,
// private/loopback hosts) should pass security.DefaultConfig().
func New(cfg security.Config) *Normalizer {
	return &Normalizer{sanitizer: security.NewSanitizer(cfg)}
}

// Normalize canonicalizes raw per the following rules, applied in
// order:
//
//  1. Reject null/empty/whitespace-only input.
//  2. Trim leading/trailing ASCII whitespace.
//  3. Parse as an absolute URL; scheme must be http or https
//     (case-insensitive), and the URL must not carry embedded user
//     credentials.
//  4. Lowercase the scheme and host; preserve case of path, query,
//     and fragment.
//  5. Strip an explicit port that matches the scheme's default port.
//
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x)
// for any accepted x.
func (n *Normalizer) Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperrors.New(apperrors.KindInvalidURL, "url cannot be empty")
	}

	if n.sanitizer != nil {
		if err := n.sanitizer.Validate(trimmed); err != nil {
			return "", apperrors.Wrap(apperrors.KindInvalidURL, "url failed security validation", err)
		}
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindInvalidURL, "invalid URL format", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", apperrors.New(apperrors.KindInvalidURL, "scheme must be http or https")
	}

	if u.User != nil {
		return "", apperrors.New(apperrors.KindInvalidURL, "embedded user credentials are not allowed")
	}

	if u.Host == "" {
		return "", apperrors.New(apperrors.KindInvalidURL, "url must have a host")
	}

	u.Scheme = scheme
	u.Host = lowercaseHost(u.Host, scheme)

	return u.String(), nil
}

// lowercaseHost lowercases the hostname portion of host (which may
// carry a ":port" suffix) and strips the port if it is the scheme's
// default.
func lowercaseHost(host, scheme string) string {
	hostname, port, found := splitHostPort(host)
	hostname = strings.ToLower(hostname)

	if !found {
		return hostname
	}
	if port == defaultPort[scheme] {
		return hostname
	}
	return hostname + ":" + port
}

// splitHostPort splits "host:port" (or a bracketed IPv6 "[host]:port")
// into its parts. It tolerates hosts with no port, returning found =
// false in that case.
func splitHostPort(host string) (hostname, port string, found bool) {
	if strings.HasPrefix(host, "[") {
		// Bracketed IPv6 literal, e.g. "[::1]:8080" or "[::1]".
		end := strings.Index(host, "]")
		if end == -1 {
			return host, "", false
		}
		hostname = host[:end+1]
		rest := host[end+1:]
		if strings.HasPrefix(rest, ":") {
			return hostname, rest[1:], true
		}
		return hostname, "", false
	}

	idx := strings.LastIndex(host, ":")
	if idx == -1 {
		return host, "", false
	}
	return host[:idx], host[idx+1:], true
}
