package aggregate

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.uber.org/multierr"

	"github.com/nao1215/packmap/internal/framework"
	"github.com/nao1215/packmap/internal/model"
)

// Result is the output of one aggregation run.
type Result struct {
	// Entries are sorted by config rule name.
	Entries []model.ConfigRuleEntry

	// Version carries the time of the aggregation call.
	Version model.VersionStamp
}

// Output returns the persisted map form of the entries.
func (r *Result) Output() model.AggregatedOutput {
	return model.NewAggregatedOutput(r.Entries)
}

// Aggregator builds config-rule keyed entries from a ControlMapping.
type Aggregator struct {
	registry      *framework.Registry
	logger        *slog.Logger
	now           func() time.Time
	collectErrors bool
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithClock sets the time source used for the version stamp.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithCollectErrors makes resolution failures non-fatal: failing controls are
// left out, the remaining entries are returned, and every failure is reported
// in the returned error.
func WithCollectErrors(collect bool) Option {
	return func(a *Aggregator) {
		a.collectErrors = collect
	}
}

// New creates an Aggregator over registry.
func New(registry *framework.Registry, opts ...Option) *Aggregator {
	a := &Aggregator{
		registry: registry,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Aggregate groups mapping by config rule name.
//
// A framework key that is not registered fails with
// *framework.UnknownFrameworkError. In the default fail-fast mode the first
// *framework.MalformedControlIDError aborts the run and the result is nil.
// In collect mode the result is always returned and the error, if any, holds
// every resolution failure.
func (a *Aggregator) Aggregate(mapping model.ControlMapping) (*Result, error) {
	for _, id := range mapping.FrameworkIDs() {
		if _, err := a.registry.Lookup(id); err != nil {
			return nil, err
		}
	}

	index := make(map[string]int)
	var entries []model.ConfigRuleEntry
	var errs error

	for _, fw := range a.registry.All() {
		records, ok := mapping[fw.ID]
		if !ok {
			continue
		}
		a.logger.Info("aggregating framework", "framework", fw.ID, "records", len(records))

		for i, record := range records {
			link, err := fw.Resolver.Resolve(fw.ID, record.ControlID())
			if err != nil {
				err = fmt.Errorf("row %d of %s: %w", i+1, fw.ID, err)
				if !a.collectErrors {
					return nil, err
				}
				a.logger.Warn("skipping control", "framework", fw.ID, "control_id", record.ControlID(), "error", err)
				errs = multierr.Append(errs, err)
				continue
			}

			name := record.ConfigRuleName()
			pos, seen := index[name]
			if !seen {
				pos = len(entries)
				index[name] = pos
				entries = append(entries, model.ConfigRuleEntry{ConfigRuleName: name})
			}
			entries[pos].Controls = append(entries[pos].Controls, model.ControlReference{
				FrameworkID: fw.ID,
				ControlID:   record.ControlID(),
				Description: record.ControlDescription(),
				Guidance:    record.Guidance(),
				Link:        link,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ConfigRuleName < entries[j].ConfigRuleName
	})

	result := &Result{
		Entries: entries,
		Version: model.NewVersionStamp(a.now()),
	}
	if errs != nil {
		a.logger.Warn("aggregation finished with errors", "failures", len(multierr.Errors(errs)))
	}
	return result, errs
}

// Failures splits an error returned in collect mode into its parts.
func Failures(err error) []error {
	return multierr.Errors(err)
}
