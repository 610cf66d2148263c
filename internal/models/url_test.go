package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestURLMapping_Fields(t *testing.T) {
	now := time.Now().UTC()
	m := URLMapping{
		ShortCode:     "abc123",
		NormalizedURL: "https://example.com/path",
		CreatedAt:     now,
	}

	assert.Equal(t, "abc123", m.ShortCode)
	assert.Equal(t, "https://example.com/path", m.NormalizedURL)
	assert.True(t, m.CreatedAt.Equal(now))
	assert.LessOrEqual(t, len(m.ShortCode), MaxShortCodeLength)
}
