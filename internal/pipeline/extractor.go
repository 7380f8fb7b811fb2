package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/packmap/internal/extract"
	"github.com/nao1215/packmap/internal/framework"
	"github.com/nao1215/packmap/internal/model"
)

// DefaultConcurrency is the number of framework pages fetched at once.
// One keeps the request pattern of a single sequential reader.
const DefaultConcurrency = 1

// Extractor fetches the mapping table of every registered framework.
type Extractor struct {
	renderer    extract.PageRenderer
	registry    *framework.Registry
	baseURL     string
	concurrency int
	logger      *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithExtractorLogger sets a custom logger for extraction.
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithConcurrency sets the maximum number of pages fetched at once.
// Non-positive values keep the default.
func WithConcurrency(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewExtractor creates an Extractor for the frameworks of registry.
// Page URLs are built as baseURL + framework ID + ".html".
func NewExtractor(renderer extract.PageRenderer, registry *framework.Registry, baseURL string, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		renderer:    renderer,
		registry:    registry,
		baseURL:     baseURL,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// frameworkResult is the outcome of one framework page.
type frameworkResult struct {
	records []model.RawRecord
	failure *extract.ExtractionFailure
}

// Extract fetches every framework page and returns the records by framework.
// Frameworks that fail are left out of the mapping and reported as
// failures. The error is non-nil only when ctx ends the extraction.
func (e *Extractor) Extract(ctx context.Context) (model.ControlMapping, []*extract.ExtractionFailure, error) {
	frameworks := e.registry.All()

	e.logger.Info("starting extraction",
		"frameworks", len(frameworks),
		"concurrency", e.concurrency,
	)
	startTime := time.Now()

	// Indexed by registry position so output order does not depend on
	// goroutine scheduling.
	results := make([]frameworkResult, len(frameworks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, fw := range frameworks {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			url := framework.PageURL(e.baseURL, fw.ID)
			e.logger.Info("extracting framework",
				"framework", fw.ID,
				"index", i+1,
				"total", len(frameworks),
			)

			records, err := e.extractOne(gctx, url)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failure := &extract.ExtractionFailure{FrameworkID: fw.ID, URL: url, Err: err}
				e.logger.Warn("skipping framework", "framework", fw.ID, "error", err)
				results[i] = frameworkResult{failure: failure}
				return nil
			}

			e.logger.Info("framework extracted", "framework", fw.ID, "records", len(records))
			results[i] = frameworkResult{records: records}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	mapping := make(model.ControlMapping, len(frameworks))
	var failures []*extract.ExtractionFailure
	for i, r := range results {
		if r.failure != nil {
			failures = append(failures, r.failure)
			continue
		}
		mapping[frameworks[i].ID] = r.records
	}

	e.logger.Info("extraction complete",
		"frameworks", len(mapping),
		"failed", len(failures),
		"records", mapping.RecordCount(),
		"elapsed", time.Since(startTime),
	)

	return mapping, failures, nil
}

// extractOne renders one page and turns its table into records.
func (e *Extractor) extractOne(ctx context.Context, url string) ([]model.RawRecord, error) {
	rows, err := e.renderer.RenderTable(ctx, url)
	if err != nil {
		return nil, err
	}
	return extract.Extract(rows)
}
