package repository

import (
	"context"
	"time"

	"github.com/gourl/gourl/internal/cache"
	"github.com/gourl/gourl/internal/models"
)

// CachedURLRepository wraps a URLRepository with a Redis read-through
// cache in front of FindByShortCode only. Insert and
// FindByNormalizedURL always hit the underlying store directly: the
// idempotency protocol's correctness must never depend on cache state,
// only the hot redirect path's latency should.
type CachedURLRepository struct {
	repo     URLRepository
	cache    cache.URLCacher
	cacheTTL time.Duration
}

// NewCachedURLRepository creates a new cached URL repository.
func NewCachedURLRepository(repo URLRepository, urlCache cache.URLCacher, cacheTTL time.Duration) *CachedURLRepository {
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}
	return &CachedURLRepository{
		repo:     repo,
		cache:    urlCache,
		cacheTTL: cacheTTL,
	}
}

// Insert delegates straight to the underlying repository. It does not
// populate the cache: the next resolve for this code will do that on
// its own miss, and priming here would require the write path to take
// a dependency on cache availability it doesn't otherwise need.
func (c *CachedURLRepository) Insert(ctx context.Context, mapping *models.URLMapping) error {
	return c.repo.Insert(ctx, mapping)
}

// FindByShortCode checks the cache first, falling back to the
// underlying repository on a miss or cache error and populating the
// cache for next time. A cache error never surfaces to the caller.
func (c *CachedURLRepository) FindByShortCode(ctx context.Context, shortCode string) (*models.URLMapping, error) {
	if cached, err := c.cache.Get(ctx, shortCode); err == nil {
		return cachedToMapping(cached), nil
	}

	mapping, err := c.repo.FindByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}

	_ = c.cache.Set(ctx, mappingToCached(mapping))

	return mapping, nil
}

// FindByNormalizedURL always goes straight to the underlying
// repository: it is only used on the write path to resolve an
// insert-time collision, which is not latency-sensitive.
func (c *CachedURLRepository) FindByNormalizedURL(ctx context.Context, normalizedURL string) (*models.URLMapping, error) {
	return c.repo.FindByNormalizedURL(ctx, normalizedURL)
}

func mappingToCached(m *models.URLMapping) *cache.CachedURL {
	return &cache.CachedURL{
		ShortCode:     m.ShortCode,
		NormalizedURL: m.NormalizedURL,
		CreatedAt:     m.CreatedAt,
	}
}

func cachedToMapping(c *cache.CachedURL) *models.URLMapping {
	return &models.URLMapping{
		ShortCode:     c.ShortCode,
		NormalizedURL: c.NormalizedURL,
		CreatedAt:     c.CreatedAt,
	}
}

var _ URLRepository = (*CachedURLRepository)(nil)
