package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsthedamage/internal/cache"
	"whatsthedamage/internal/core"
	"whatsthedamage/internal/log"
	"whatsthedamage/internal/stats"
)

// ErrResultNotFound is returned when a result id is absent or expired.
var ErrResultNotFound = errors.New("result not found")

// ResultService stores processing results in a cache and recalculates their
// statistical metadata on demand.
type ResultService struct {
	cache      cache.ResultCache
	processing *ProcessingService
	ttl        time.Duration
	logger     *log.Logger
}

func NewResultService(store cache.ResultCache, processing *ProcessingService, ttl time.Duration) *ResultService {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &ResultService{
		cache:      store,
		processing: processing,
		ttl:        ttl,
		logger:     log.New(log.Config{Component: log.ComponentCache}),
	}
}

// Store caches a result under its id.
func (s *ResultService) Store(ctx context.Context, result *Result) error {
	if err := s.cache.Set(ctx, result.ResultID, result.CachedResult(), s.ttl); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	s.logger.DebugContext(ctx, "result stored",
		log.FieldResultID, result.ResultID,
		log.FieldOperation, log.OpStore)
	return nil
}

// Load retrieves a cached result.
func (s *ResultService) Load(ctx context.Context, resultID string) (core.CachedResult, error) {
	result, ok, err := s.cache.Get(ctx, resultID)
	if err != nil {
		return core.CachedResult{}, fmt.Errorf("load result: %w", err)
	}
	if !ok {
		return core.CachedResult{}, fmt.Errorf("load result %s: %w", resultID, ErrResultNotFound)
	}
	return result, nil
}

// Delete removes a cached result.
func (s *ResultService) Delete(ctx context.Context, resultID string) error {
	if err := s.cache.Delete(ctx, resultID); err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	return nil
}

// Recalculate loads a cached result, recomputes its statistical metadata
// against the current exclusion state, and writes it back with a fresh TTL.
// The aggregated data and row ids are untouched. A request with no
// algorithms replays the run configured in the rules.
func (s *ResultService) Recalculate(ctx context.Context, resultID string, req stats.Request) (core.CachedResult, error) {
	result, err := s.Load(ctx, resultID)
	if err != nil {
		return core.CachedResult{}, err
	}

	result.Metadata = s.processing.Recompute(result.Responses, req)
	if err := s.cache.Set(ctx, resultID, result, s.ttl); err != nil {
		return core.CachedResult{}, fmt.Errorf("store recalculated result: %w", err)
	}
	s.logger.InfoContext(ctx, "result recalculated",
		log.FieldResultID, resultID,
		log.FieldOperation, log.OpRecalculate)
	return result, nil
}
