// Package services contains business logic: the try-insert /
// catch-duplicate / select-existing idempotency protocol that makes
// shortening safe under concurrent requests for the same URL.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gourl/gourl/internal/apperrors"
	"github.com/gourl/gourl/internal/idgen"
	"github.com/gourl/gourl/internal/metrics"
	"github.com/gourl/gourl/internal/models"
	"github.com/gourl/gourl/internal/normalize"
	"github.com/gourl/gourl/internal/repository"
	"github.com/gourl/gourl/pkg/logger"
)

// maxShortCodeRetries bounds the retries on a DuplicateShortCode
// collision. Correct generator behavior makes the path unreachable;
// this only guards against a misconfigured instance ID or a generator
// bug.
const maxShortCodeRetries = 3

// ShortenResult is the output of Shorten: the stored short code and
// its fully-qualified short URL.
type ShortenResult struct {
	ShortCode string
	ShortURL  string
}

// ShortenerService implements the shorten/resolve protocol: create a
// short code for a URL (or hand back the existing one) and resolve a
// short code back to its target.
type ShortenerService interface {
	Shorten(ctx context.Context, rawURL string) (*ShortenResult, error)
	Resolve(ctx context.Context, shortCode string) (string, error)
}

// Service wires the normalizer, generator, and repository together.
type Service struct {
	repo       repository.URLRepository
	generator  idgen.Generator
	normalizer *normalize.Normalizer
	baseURL    string
	log        *logger.Logger
}

// New creates a Service. baseURL is the externally configured prefix
// (e.g. "https://go.example.com") prepended to a short code to build
// ShortenResult.ShortURL; trailing slashes on it are trimmed and a
// single "/" joins it to the code.
func New(repo repository.URLRepository, gen idgen.Generator, normalizer *normalize.Normalizer, baseURL string, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		generator:  gen,
		normalizer: normalizer,
		baseURL:    baseURL,
		log:        log,
	}
}

// Shorten runs the full protocol: normalize, generate, insert, and -
// on a normalized_url collision - resolve to the existing row so
// concurrent callers shortening the same URL converge on one code.
func (s *Service) Shorten(ctx context.Context, rawURL string) (*ShortenResult, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, apperrors.New(apperrors.KindInvalidURL, "url cannot be empty")
	}

	normalized, err := s.normalizer.Normalize(rawURL)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxShortCodeRetries; attempt++ {
		code, err := s.generator.NextShortCode()
		if err != nil {
			if errors.Is(err, idgen.ErrClockMovedBackwards) {
				metrics.RecordClockRegression()
				return nil, apperrors.Wrap(apperrors.KindClockMovedBackwards, "short code generation failed", err)
			}
			return nil, apperrors.Wrap(apperrors.KindInternal, "short code generation failed", err)
		}

		mapping := &models.URLMapping{ShortCode: code, NormalizedURL: normalized}
		insertErr := s.repo.Insert(ctx, mapping)
		if insertErr == nil {
			metrics.RecordURLCreated()
			return s.result(mapping.ShortCode), nil
		}

		switch {
		case apperrors.Is(insertErr, apperrors.KindDuplicateNormalizedURL):
			metrics.RecordDuplicateNormalizedURL()
			existing, findErr := s.repo.FindByNormalizedURL(ctx, normalized)
			if findErr != nil {
				if apperrors.Is(findErr, apperrors.KindShortCodeNotFound) {
					s.log.Error("constraint violation without visible row", "normalized_url", normalized)
					return nil, apperrors.New(apperrors.KindInternal, "constraint violation without visible row")
				}
				return nil, findErr
			}
			return s.result(existing.ShortCode), nil

		case apperrors.Is(insertErr, apperrors.KindDuplicateShortCode):
			metrics.RecordShortCodeCollision()
			s.log.Warn("short code collision, retrying", "code", code, "attempt", attempt+1)
			continue

		case apperrors.Is(insertErr, apperrors.KindStorageUnavailable):
			return nil, insertErr

		default:
			return nil, insertErr
		}
	}

	return nil, apperrors.New(apperrors.KindInternal, "exhausted short code retries")
}

// Resolve looks up the normalized URL behind a short code. It never
// mutates stored state: no per-URL hit count, no cache write here (the
// repository's cache decorator, if any, handles that transparently);
// its only side effect is bumping the process-wide redirects metric.
func (s *Service) Resolve(ctx context.Context, shortCode string) (string, error) {
	if shortCode == "" {
		return "", apperrors.New(apperrors.KindInvalidURL, "short code cannot be empty")
	}

	mapping, err := s.repo.FindByShortCode(ctx, shortCode)
	if err != nil {
		return "", err
	}

	metrics.RecordRedirect()
	return mapping.NormalizedURL, nil
}

func (s *Service) result(shortCode string) *ShortenResult {
	return &ShortenResult{
		ShortCode: shortCode,
		ShortURL:  fmt.Sprintf("%s/%s", strings.TrimRight(s.baseURL, "/"), shortCode),
	}
}

var _ ShortenerService = (*Service)(nil)
