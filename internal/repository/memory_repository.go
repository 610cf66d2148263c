package repository

import (
	"context"
	"sync"
	"time"

	"github.com/gourl/gourl/internal/apperrors"
	"github.com/gourl/gourl/internal/models"
)

// MemoryURLRepository is an in-memory URLRepository used by service and
// handler tests. It enforces the same two uniqueness constraints a real
// schema would (short_code primary key, normalized_url unique index) so
// tests can exercise the idempotency protocol without a database.
type MemoryURLRepository struct {
	mu           sync.Mutex
	byShortCode  map[string]models.URLMapping
	byNormalized map[string]models.URLMapping
	insertCalls  int
	FailNextN    int   // when > 0, the next N Insert calls fail with KindStorageUnavailable
	failOnceErr  error // if set, the next Insert fails with this error then clears itself
}

// NewMemoryURLRepository creates an empty repository.
func NewMemoryURLRepository() *MemoryURLRepository {
	return &MemoryURLRepository{
		byShortCode:  make(map[string]models.URLMapping),
		byNormalized: make(map[string]models.URLMapping),
	}
}

// Insert stores mapping, failing with KindDuplicateShortCode or
// KindDuplicateNormalizedURL if either key already exists, mirroring the
// unique-constraint semantics of the Postgres implementation.
func (r *MemoryURLRepository) Insert(ctx context.Context, mapping *models.URLMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertCalls++

	if r.failOnceErr != nil {
		err := r.failOnceErr
		r.failOnceErr = nil
		return err
	}
	if r.FailNextN > 0 {
		r.FailNextN--
		return apperrors.New(apperrors.KindStorageUnavailable, "simulated storage failure")
	}

	if _, exists := r.byShortCode[mapping.ShortCode]; exists {
		return apperrors.New(apperrors.KindDuplicateShortCode, mapping.ShortCode)
	}
	if _, exists := r.byNormalized[mapping.NormalizedURL]; exists {
		return apperrors.New(apperrors.KindDuplicateNormalizedURL, mapping.NormalizedURL)
	}

	stored := *mapping
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.byShortCode[stored.ShortCode] = stored
	r.byNormalized[stored.NormalizedURL] = stored
	mapping.CreatedAt = stored.CreatedAt

	return nil
}

// FindByShortCode returns the stored mapping or KindShortCodeNotFound.
func (r *MemoryURLRepository) FindByShortCode(ctx context.Context, shortCode string) (*models.URLMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byShortCode[shortCode]
	if !ok {
		return nil, apperrors.New(apperrors.KindShortCodeNotFound, shortCode)
	}
	copied := m
	return &copied, nil
}

// FindByNormalizedURL returns the stored mapping or KindShortCodeNotFound.
func (r *MemoryURLRepository) FindByNormalizedURL(ctx context.Context, normalizedURL string) (*models.URLMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byNormalized[normalizedURL]
	if !ok {
		return nil, apperrors.New(apperrors.KindShortCodeNotFound, normalizedURL)
	}
	copied := m
	return &copied, nil
}

// InsertCalls reports how many times Insert has been called, for tests
// asserting the retry count of the duplicate-short-code path.
func (r *MemoryURLRepository) InsertCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertCalls
}

// FailNextInsertWith makes the next Insert call fail with err, then
// resumes normal behavior. Useful for exercising a single duplicate
// collision without wiring the full uniqueness map.
func (r *MemoryURLRepository) FailNextInsertWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOnceErr = err
}

// Seed directly inserts a mapping, bypassing uniqueness checks, for test
// setup (e.g. pre-populating a duplicate normalized URL).
func (r *MemoryURLRepository) Seed(mapping models.URLMapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byShortCode[mapping.ShortCode] = mapping
	r.byNormalized[mapping.NormalizedURL] = mapping
}

var _ URLRepository = (*MemoryURLRepository)(nil)
