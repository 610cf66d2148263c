// Package models contains the domain entity persisted by the
// shortener core.
package models

import "time"

// URLMapping is the single persisted entity: a short code bound to
// the normalized URL it redirects to. short_code is the primary
// identity; normalized_url carries a uniqueness constraint enforced
// by the repository. A mapping is created once, by whichever Shorten
// call wins the uniqueness race, and is never updated or deleted by
// the core.
type URLMapping struct {
	ShortCode     string    `json:"short_code"`
	NormalizedURL string    `json:"normalized_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// MaxShortCodeLength bounds the short_code column per the schema
// contract.
const MaxShortCodeLength = 10
