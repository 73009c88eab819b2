// Package worker executes processing requests received over AMQP and batch
// runs over CSV directories.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"whatsthedamage/internal/amqp"
	"whatsthedamage/internal/csvio"
	"whatsthedamage/internal/export"
	"whatsthedamage/internal/log"
	"whatsthedamage/internal/services"
)

// ProcessWorker reads CSV exports, runs the pipeline and stores results so
// other processes can fetch them by request id.
type ProcessWorker struct {
	reader     *csvio.Reader
	processing *services.ProcessingService
	results    *services.ResultService
	// summary is optional; when set, finished results are appended there.
	summary export.SummaryWriter
}

func NewProcessWorker(reader *csvio.Reader, processing *services.ProcessingService, results *services.ResultService, summary export.SummaryWriter) *ProcessWorker {
	return &ProcessWorker{
		reader:     reader,
		processing: processing,
		results:    results,
		summary:    summary,
	}
}

// HandleProcessRequest processes a single request message. The result is
// stored under the message's request id, not a fresh one, so the publisher
// can look it up.
func (w *ProcessWorker) HandleProcessRequest(ctx context.Context, msg *amqp.ProcessRequestMessage) error {
	slog.InfoContext(ctx, "Processing request",
		log.NewFields().
			WithRequestID(msg.RequestID).
			WithFile(msg.CSVPath).
			WithOperation(log.OpProcess).
			ToSlice()...)

	rows, err := w.reader.ReadFile(msg.CSVPath)
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	result, err := w.processing.Process(ctx, rows, services.ProcessOptions{
		StartDate: msg.StartDate,
		EndDate:   msg.EndDate,
	})
	if err != nil {
		return fmt.Errorf("process rows: %w", err)
	}
	result.ResultID = msg.RequestID

	if err := w.results.Store(ctx, result); err != nil {
		return fmt.Errorf("store result: %w", err)
	}

	if w.summary != nil {
		if err := w.summary.AppendSummary(ctx, result.CachedResult()); err != nil {
			// The result is stored; export failure should not requeue.
			slog.ErrorContext(ctx, "Failed to append summary",
				log.NewFields().
					WithRequestID(msg.RequestID).
					WithError(err).
					ToSlice()...)
		}
	}

	slog.InfoContext(ctx, "Request processed",
		log.NewFields().
			WithRequestID(msg.RequestID).
			WithProcessing(msg.CSVPath, result.RowCount, result.Elapsed.Milliseconds()).
			ToSlice()...)
	return nil
}

// ProcessDirectory processes every CSV file in a directory with bounded
// concurrency and returns the result ids keyed by file path. The first
// failure cancels the remaining work.
func (w *ProcessWorker) ProcessDirectory(ctx context.Context, dir string, concurrency int) (map[string]string, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	resultIDs := make(map[string]string, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, path := range paths {
		path := path
		msg := amqp.NewProcessRequestMessage(path, "", "")
		resultIDs[path] = msg.RequestID
		g.Go(func() error {
			if err := w.HandleProcessRequest(ctx, msg); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resultIDs, nil
}
