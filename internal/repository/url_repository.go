// Package repository implements the URL repository contract:
// point-lookup by code, insert, and lookup by normalized URL, with a
// uniqueness constraint on normalized_url that the service leans on
// for idempotency.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gourl/gourl/internal/apperrors"
	"github.com/gourl/gourl/internal/database"
	"github.com/gourl/gourl/internal/models"
)

// postgresUniqueViolation is the PostgreSQL error code for a
// unique_violation (see https://www.postgresql.org/docs/current/errcodes-appendix.html).
const postgresUniqueViolation = "23505"

// Constraint names from the schema, distinguishing which uniqueness
// constraint an Insert tripped.
const (
	shortCodePrimaryKey    = "urls_pkey"
	normalizedURLUniqueKey = "urls_normalized_url_key"
)

// URLRepository is the storage adapter the shortener service depends
// on. Implementations own the on-disk representation; the core does
// not care whether it is Postgres, an embedded store, or an in-memory
// map for tests.
type URLRepository interface {
	// Insert persists mapping atomically: either the row appears, or
	// the call fails with exactly one of DuplicateNormalizedURL,
	// DuplicateShortCode, or StorageUnavailable (all as *apperrors.Error
	// kinds). No partial state is observable on failure.
	Insert(ctx context.Context, mapping *models.URLMapping) error

	// FindByShortCode is a point-lookup by primary key. Returns
	// KindShortCodeNotFound when no row matches.
	FindByShortCode(ctx context.Context, shortCode string) (*models.URLMapping, error)

	// FindByNormalizedURL looks up a row by its (already normalized)
	// URL. Returns KindShortCodeNotFound when no row matches.
	FindByNormalizedURL(ctx context.Context, normalizedURL string) (*models.URLMapping, error)
}

// PostgresURLRepository implements URLRepository using PostgreSQL via
// pgx. Each method runs as its own atomic scope; the service composes
// Insert and the duplicate-resolution FindByNormalizedURL as two
// independent calls rather than a shared transaction, since many
// engines abort the surrounding transaction on a constraint violation.
type PostgresURLRepository struct {
	pool *database.Pool
}

// NewPostgresURLRepository creates a new PostgreSQL-backed repository.
func NewPostgresURLRepository(pool *database.Pool) *PostgresURLRepository {
	return &PostgresURLRepository{pool: pool}
}

// Insert stores a new mapping.
func (r *PostgresURLRepository) Insert(ctx context.Context, mapping *models.URLMapping) error {
	const query = `
		INSERT INTO urls (short_code, normalized_url)
		VALUES ($1, $2)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query, mapping.ShortCode, mapping.NormalizedURL).Scan(&mapping.CreatedAt)
	if err != nil {
		if kind, ok := classifyUniqueViolation(err); ok {
			return apperrors.Wrap(kind, "insert violated a uniqueness constraint", err)
		}
		return apperrors.Wrap(apperrors.KindStorageUnavailable, "failed to insert url mapping", err)
	}

	return nil
}

// FindByShortCode retrieves a mapping by its short code.
func (r *PostgresURLRepository) FindByShortCode(ctx context.Context, shortCode string) (*models.URLMapping, error) {
	const query = `
		SELECT short_code, normalized_url, created_at
		FROM urls
		WHERE short_code = $1
	`

	var m models.URLMapping
	err := r.pool.QueryRow(ctx, query, shortCode).Scan(&m.ShortCode, &m.NormalizedURL, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.KindShortCodeNotFound, shortCode)
		}
		return nil, apperrors.Wrap(apperrors.KindStorageUnavailable, "failed to query url mapping", err)
	}

	return &m, nil
}

// FindByNormalizedURL retrieves a mapping by its normalized URL.
func (r *PostgresURLRepository) FindByNormalizedURL(ctx context.Context, normalizedURL string) (*models.URLMapping, error) {
	const query = `
		SELECT short_code, normalized_url, created_at
		FROM urls
		WHERE normalized_url = $1
	`

	var m models.URLMapping
	err := r.pool.QueryRow(ctx, query, normalizedURL).Scan(&m.ShortCode, &m.NormalizedURL, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.KindShortCodeNotFound, normalizedURL)
		}
		return nil, apperrors.Wrap(apperrors.KindStorageUnavailable, "failed to query url mapping", err)
	}

	return &m, nil
}

// classifyUniqueViolation inspects err for a PostgreSQL
// unique_violation and, if found, reports which constraint it was.
func classifyUniqueViolation(err error) (apperrors.Kind, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != postgresUniqueViolation {
		return 0, false
	}

	switch pgErr.ConstraintName {
	case normalizedURLUniqueKey:
		return apperrors.KindDuplicateNormalizedURL, true
	case shortCodePrimaryKey:
		return apperrors.KindDuplicateShortCode, true
	default:
		// Unknown constraint name: treat conservatively as the
		// normalized-url case, since that is the one the idempotency
		// protocol must recover from to preserve invariant I1.
		return apperrors.KindDuplicateNormalizedURL, true
	}
}
