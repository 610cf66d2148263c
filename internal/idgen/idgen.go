// Package idgen handles unique short-code generation for the
// shortener core: a Snowflake-style 64-bit identifier generator
// composed with a Base62 codec behind a single ShortCodeGenerator.
package idgen

// Generator defines the interface for generating unique short codes.
// It is the seam the service depends on, so tests can substitute a
// fake without a real clock or mutex.
type Generator interface {
	// NextShortCode creates a new short code.
	NextShortCode() (string, error)
}

// ShortCodeGenerator composes a Snowflake ID generator with the
// Base62 codec: NextShortCode() = Base62.Encode(Snowflake.Next()).
// Thread-safety is inherited entirely from the wrapped Snowflake.
type ShortCodeGenerator struct {
	snowflake *Snowflake
}

// NewShortCodeGenerator wraps the given Snowflake generator.
func NewShortCodeGenerator(snowflake *Snowflake) *ShortCodeGenerator {
	return &ShortCodeGenerator{snowflake: snowflake}
}

// NextShortCode produces the next short code. Output length grows
// slowly with wall time (typically 7-11 characters) since it is a
// direct Base62 rendering of a monotonically increasing integer.
func (g *ShortCodeGenerator) NextShortCode() (string, error) {
	id, err := g.snowflake.Next()
	if err != nil {
		return "", err
	}
	return Encode(id), nil
}

var _ Generator = (*ShortCodeGenerator)(nil)
