// Package scan walks every active asset in the catalog and hands each one
// to a Processor. VerifyProcessor re-reads stored content and checks it
// against the size and digest recorded in the catalog.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-video/pkg/simplevideo"
	"golang.org/x/sync/errgroup"
)

// Processor handles one asset found during a scan. An error marks the asset
// as failed; the scan continues.
type Processor interface {
	Process(ctx context.Context, asset *simplevideo.AssetView) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, asset *simplevideo.AssetView) error

func (f ProcessorFunc) Process(ctx context.Context, asset *simplevideo.AssetView) error {
	return f(ctx, asset)
}

// Options configures a scan.
type Options struct {
	// Search narrows the scan to assets matching the term
	Search string

	// Processor is required unless DryRun is set
	Processor Processor

	// BatchSize is the listing page size (default: simplevideo.DefaultMaxPageSize)
	BatchSize int

	// Workers bounds concurrent Process calls within a batch (default: 4)
	Workers int

	// DryRun counts matching assets without processing them
	DryRun bool

	// OnProgress is called after each batch
	OnProgress func(processed, total int64)
}

// Result contains scan statistics.
type Result struct {
	TotalFound     int64
	TotalProcessed int64
	TotalFailed    int64
	Failures       map[uuid.UUID]error
}

// Scanner runs scans over a query service.
type Scanner struct {
	query  *simplevideo.QueryService
	logger *slog.Logger
}

// New creates a Scanner.
func New(query *simplevideo.QueryService, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{query: query, logger: logger}
}

// Scan lists assets oldest first in batches and processes each one. It
// stops early only when listing fails or ctx is canceled.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{Failures: make(map[uuid.UUID]error)}

	if !opts.DryRun && opts.Processor == nil {
		return result, errors.New("processor is required when DryRun is false")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = simplevideo.DefaultMaxPageSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	var mu sync.Mutex
	for page := 1; ; page++ {
		batch, err := s.query.Query(ctx, simplevideo.QueryRequest{
			Search:    opts.Search,
			SortBy:    "createdDate",
			Ascending: true,
			Page:      page,
			PageSize:  opts.BatchSize,
		})
		if err != nil {
			return result, fmt.Errorf("failed to list assets: %w", err)
		}
		result.TotalFound += int64(len(batch.Items))

		if opts.DryRun {
			for _, asset := range batch.Items {
				s.logger.InfoContext(ctx, "dry run", "asset_id", asset.ID, "title", asset.Title, "versions", asset.VersionCount)
			}
			result.TotalProcessed += int64(len(batch.Items))
		} else {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(opts.Workers)
			for _, asset := range batch.Items {
				g.Go(func() error {
					err := opts.Processor.Process(gctx, asset)

					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						result.TotalFailed++
						result.Failures[asset.ID] = err
						s.logger.WarnContext(gctx, "asset failed", "asset_id", asset.ID, "error", err)
						return nil
					}
					result.TotalProcessed++
					return nil
				})
			}
			_ = g.Wait()
		}

		if opts.OnProgress != nil {
			opts.OnProgress(result.TotalProcessed+result.TotalFailed, batch.TotalCount)
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !batch.HasNext {
			break
		}
	}

	return result, nil
}

// ForEach processes every asset with fn.
func (s *Scanner) ForEach(ctx context.Context, fn func(context.Context, *simplevideo.AssetView) error) (*Result, error) {
	return s.Scan(ctx, Options{Processor: ProcessorFunc(fn)})
}
