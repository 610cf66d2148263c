package services

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gourl/gourl/internal/apperrors"
	"github.com/gourl/gourl/internal/idgen"
	"github.com/gourl/gourl/internal/metrics"
	"github.com/gourl/gourl/internal/models"
	"github.com/gourl/gourl/internal/normalize"
	"github.com/gourl/gourl/internal/repository"
	"github.com/gourl/gourl/internal/security"
	"github.com/gourl/gourl/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(io.Discard, "error")
}

func testNormalizer() *normalize.Normalizer {
	return normalize.New(security.Config{MaxURLLength: 2048, AllowPrivateIPs: true})
}

// sequentialGenerator hands out codes from a fixed list, for tests
// that need to control exactly which short code a Shorten call uses.
type sequentialGenerator struct {
	mu    sync.Mutex
	codes []string
	i     int
}

func (g *sequentialGenerator) NextShortCode() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.i >= len(g.codes) {
		return "", apperrors.New(apperrors.KindInternal, "sequentialGenerator exhausted")
	}
	code := g.codes[g.i]
	g.i++
	return code, nil
}

func newRealGenerator(t *testing.T) idgen.Generator {
	t.Helper()
	sf, err := idgen.NewSnowflake(1)
	require.NoError(t, err)
	return idgen.NewShortCodeGenerator(sf)
}

// clockRegressionGenerator always fails with the same error a real
// Snowflake returns when the wall clock is observed to step
// backwards, for pinning how Shorten reacts to that failure mode.
type clockRegressionGenerator struct{}

func (clockRegressionGenerator) NextShortCode() (string, error) {
	return "", &idgen.ClockMovedBackwardsError{Last: 1000, Now: 500}
}

func TestService_Shorten_NewURL(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	svc := New(repo, newRealGenerator(t), testNormalizer(), "https://go.example.com", testLogger())

	result, err := svc.Shorten(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.NotEmpty(t, result.ShortCode)
	assert.Equal(t, "https://go.example.com/"+result.ShortCode, result.ShortURL)

	stored, err := repo.FindByShortCode(context.Background(), result.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", stored.NormalizedURL)
}

func TestService_Shorten_EmptyURL(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	svc := New(repo, newRealGenerator(t), testNormalizer(), "https://go.example.com", testLogger())

	_, err := svc.Shorten(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidURL))
}

func TestService_Shorten_InvalidURL(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	svc := New(repo, newRealGenerator(t), testNormalizer(), "https://go.example.com", testLogger())

	_, err := svc.Shorten(context.Background(), "ftp://files.example.com/a")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidURL))
}

func TestService_Shorten_IdempotentOnDuplicateNormalizedURL(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	gen := &sequentialGenerator{codes: []string{"aaa111", "bbb222"}}
	svc := New(repo, gen, testNormalizer(), "https://go.example.com", testLogger())

	first, err := svc.Shorten(context.Background(), "https://example.com/same")
	require.NoError(t, err)

	second, err := svc.Shorten(context.Background(), "https://example.com/same")
	require.NoError(t, err)

	assert.Equal(t, first.ShortCode, second.ShortCode, "both callers must converge on the winner's code")
	assert.Equal(t, "aaa111", second.ShortCode, "second call must have hit the duplicate branch, not consumed its own code")
}

func TestService_Shorten_ConcurrentSameURLConvergesOnOneCode(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	svc := New(repo, newRealGenerator(t), testNormalizer(), "https://go.example.com", testLogger())

	const n = 20
	results := make([]*ShortenResult, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Shorten(context.Background(), "https://example.com/race")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}
	for i := 1; i < n; i++ {
		assert.Equal(t, results[0].ShortCode, results[i].ShortCode, "all concurrent shorteners of the same URL must return the same code")
	}
}

func TestService_Shorten_DuplicateShortCodeRetries(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	// Seed a row occupying the first code the generator will hand out,
	// forcing the first Insert into the DuplicateShortCode branch.
	repo.Seed(models.URLMapping{ShortCode: "taken1", NormalizedURL: "https://example.com/other"})

	gen := &sequentialGenerator{codes: []string{"taken1", "free2"}}
	svc := New(repo, gen, testNormalizer(), "https://go.example.com", testLogger())

	result, err := svc.Shorten(context.Background(), "https://example.com/new")
	require.NoError(t, err)
	assert.Equal(t, "free2", result.ShortCode)
	assert.Equal(t, 2, repo.InsertCalls())
}

func TestService_Shorten_DuplicateShortCodeExhaustsRetries(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	repo.Seed(models.URLMapping{ShortCode: "x", NormalizedURL: "https://example.com/occupied"})

	gen := &sequentialGenerator{codes: []string{"x", "x", "x"}}
	svc := New(repo, gen, testNormalizer(), "https://go.example.com", testLogger())

	_, err := svc.Shorten(context.Background(), "https://example.com/new")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInternal))
}

func TestService_Shorten_StorageUnavailableSurfacesUnchanged(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	repo.FailNextN = 1
	svc := New(repo, newRealGenerator(t), testNormalizer(), "https://go.example.com", testLogger())

	_, err := svc.Shorten(context.Background(), "https://example.com/down")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindStorageUnavailable))
}

func TestService_Shorten_DuplicateWithoutVisibleRowIsInternalError(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	svc := New(repo, newRealGenerator(t), testNormalizer(), "https://go.example.com", testLogger())

	// Simulate a storage layer that reports a unique-violation but then
	// can't find the row on the follow-up select: broken isolation.
	repo.FailNextInsertWith(apperrors.New(apperrors.KindDuplicateNormalizedURL, "simulated phantom violation"))

	_, err := svc.Shorten(context.Background(), "https://example.com/phantom")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInternal))
}

func TestService_Resolve_Found(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	svc := New(repo, newRealGenerator(t), testNormalizer(), "https://go.example.com", testLogger())

	created, err := svc.Shorten(context.Background(), "https://example.com/resolve-me")
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), created.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/resolve-me", resolved)
}

func TestService_Resolve_NotFound(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	svc := New(repo, newRealGenerator(t), testNormalizer(), "https://go.example.com", testLogger())

	_, err := svc.Resolve(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindShortCodeNotFound))
}

func TestService_Resolve_EmptyCode(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	svc := New(repo, newRealGenerator(t), testNormalizer(), "https://go.example.com", testLogger())

	_, err := svc.Resolve(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidURL))
}

func TestService_Resolve_CaseSensitive(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	svc := New(repo, newRealGenerator(t), testNormalizer(), "https://go.example.com", testLogger())
	repo.Seed(models.URLMapping{ShortCode: "Ab", NormalizedURL: "https://example.com/case"})

	_, err := svc.Resolve(context.Background(), "aB")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindShortCodeNotFound))

	resolved, err := svc.Resolve(context.Background(), "Ab")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/case", resolved)
}

func TestService_Shorten_ClockMovedBackwardsRecordsMetric(t *testing.T) {
	repo := repository.NewMemoryURLRepository()
	svc := New(repo, clockRegressionGenerator{}, testNormalizer(), "https://go.example.com", testLogger())

	before := testutil.ToFloat64(metrics.ClockRegressionTotal)

	_, err := svc.Shorten(context.Background(), "https://example.com/a")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindClockMovedBackwards))

	after := testutil.ToFloat64(metrics.ClockRegressionTotal)
	assert.Equal(t, before+1, after, "clock regression should bump the counter exactly once")
}
