// Package services orchestrates the processing pipeline and the lifecycle
// of stored results.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"whatsthedamage/internal/aggregate"
	"whatsthedamage/internal/config"
	"whatsthedamage/internal/core"
	"whatsthedamage/internal/datetime"
	"whatsthedamage/internal/enrich"
	"whatsthedamage/internal/log"
	"whatsthedamage/internal/rowfilter"
	"whatsthedamage/internal/stats"
)

// ProcessingService runs the full pipeline: filter rows per account and
// period, enrich categories, aggregate, and compute statistical metadata.
type ProcessingService struct {
	rules    *config.Rules
	enricher *enrich.Enricher
	engine   *stats.Engine
	logger   *log.Logger
}

// ProcessOptions narrows a processing run.
type ProcessOptions struct {
	// StartDate and EndDate select a single inclusive period instead of
	// monthly buckets. Both must be set together, in the rules date
	// format.
	StartDate string
	EndDate   string

	// CategoryFilter keeps only aggregated rows of one category.
	// Calculated rows are kept.
	CategoryFilter string
}

// Result is one completed processing run.
type Result struct {
	ResultID  string
	Responses map[string]*core.DataTablesResponse
	Metadata  map[string]*core.StatisticalMetadata
	RowCount  int
	Elapsed   time.Duration
}

// CachedResult converts the result to its cacheable form.
func (r *Result) CachedResult() core.CachedResult {
	return core.CachedResult{
		Responses: r.Responses,
		Metadata:  r.Metadata,
	}
}

func NewProcessingService(rules *config.Rules, enricher *enrich.Enricher, engine *stats.Engine) *ProcessingService {
	return &ProcessingService{
		rules:    rules,
		enricher: enricher,
		engine:   engine,
		logger:   log.New(log.Config{Component: log.ComponentProcessing}),
	}
}

// Process runs the pipeline over raw rows and returns a result with a fresh
// UUID.
func (s *ProcessingService) Process(ctx context.Context, rows []core.Row, opts ProcessOptions) (*Result, error) {
	started := time.Now()

	enriched, err := s.enricher.Apply(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("enrich rows: %w", err)
	}

	layout := s.rules.DateFormat
	responses := make(map[string]*core.DataTablesResponse)
	for account, accountRows := range rowfilter.New(enriched, layout).ByAccount() {
		periods, err := s.periodsFor(accountRows, opts)
		if err != nil {
			return nil, fmt.Errorf("filter rows for %s: %w", account, err)
		}

		builder := aggregate.NewResponseBuilder(layout, account)
		for _, period := range periods {
			for category, categoryRows := range aggregate.GroupByCategory(period.Rows) {
				builder.AddCategoryData(category, categoryRows, aggregate.SumAmounts(categoryRows), period.Period)
			}
		}
		response := builder.Build()
		s.applyCategoryFilter(&response, opts.CategoryFilter)
		responses[account] = &response
	}

	metadata := s.engine.Compute(responses, s.statsRequest())
	attachMetadata(responses, metadata)

	result := &Result{
		ResultID:  uuid.NewString(),
		Responses: responses,
		Metadata:  metadata,
		RowCount:  len(rows),
		Elapsed:   time.Since(started),
	}
	s.logger.InfoContext(ctx, "processing run complete",
		log.FieldResultID, result.ResultID,
		log.FieldRowCount, result.RowCount,
		log.FieldDuration, result.Elapsed.Milliseconds())
	return result, nil
}

func (s *ProcessingService) periodsFor(rows []core.Row, opts ProcessOptions) ([]rowfilter.PeriodRows, error) {
	filter := rowfilter.New(rows, s.rules.DateFormat)
	if opts.StartDate == "" && opts.EndDate == "" {
		return filter.ByMonth()
	}
	if opts.StartDate == "" || opts.EndDate == "" {
		return nil, fmt.Errorf("start and end date must be set together")
	}

	start, err := datetime.ToEpoch(opts.StartDate, s.rules.DateFormat)
	if err != nil {
		return nil, fmt.Errorf("parse start date: %w", err)
	}
	end, err := datetime.ToEpoch(opts.EndDate, s.rules.DateFormat)
	if err != nil {
		return nil, fmt.Errorf("parse end date: %w", err)
	}
	if end < start {
		return nil, fmt.Errorf("end date %s before start date %s", opts.EndDate, opts.StartDate)
	}
	return filter.ByDate(start, end)
}

func (s *ProcessingService) applyCategoryFilter(response *core.DataTablesResponse, category string) {
	if category == "" {
		return
	}
	kept := make([]core.AggregatedRow, 0, len(response.Data))
	for _, row := range response.Data {
		if row.IsCalculated || row.Category == category {
			kept = append(kept, row)
		}
	}
	response.Data = kept
}

func (s *ProcessingService) statsRequest() stats.Request {
	return stats.Request{
		Algorithms:           s.rules.Algorithms,
		Direction:            stats.Direction(s.rules.Direction),
		UseDefaultDirections: s.rules.UseDefaultDirections,
	}
}

// Recompute recalculates statistical metadata for already aggregated
// responses, honoring the current exclusion registry state. A request with
// no algorithms replays the run configured in the rules; otherwise the
// caller's algorithms, direction and direction flag apply as given.
func (s *ProcessingService) Recompute(responses map[string]*core.DataTablesResponse, req stats.Request) map[string]*core.StatisticalMetadata {
	if len(req.Algorithms) == 0 {
		req = s.statsRequest()
	}
	metadata := s.engine.Compute(responses, req)
	attachMetadata(responses, metadata)
	return metadata
}

// attachMetadata writes each account's metadata onto its response, so a
// response serialized on its own still carries its highlights.
func attachMetadata(responses map[string]*core.DataTablesResponse, metadata map[string]*core.StatisticalMetadata) {
	for account, resp := range responses {
		resp.Statistical = metadata[account]
	}
}

// Engine exposes the statistical engine, letting callers adjust exclusions
// between runs.
func (s *ProcessingService) Engine() *stats.Engine { return s.engine }
