package pipeline

import (
	"github.com/nao1215/packmap/internal/aggregate"
	"github.com/nao1215/packmap/internal/extract"
	"github.com/nao1215/packmap/internal/model"
)

// Run carries the state of one pipeline execution from step to step.
type Run struct {
	// Mapping is the framework keyed record set produced by extraction or
	// read back from the cache.
	Mapping model.ControlMapping

	// ExtractionFailures lists frameworks that produced no data.
	ExtractionFailures []*extract.ExtractionFailure

	// Fingerprint identifies Mapping's content once persisted.
	Fingerprint string

	// Result is the aggregation output.
	Result *aggregate.Result

	// ResolutionErrors holds the resolution failures skipped in collect mode.
	ResolutionErrors []error

	// Outputs lists the files written by the run.
	Outputs []string

	// PerformedSteps lists the names of steps that ran.
	PerformedSteps []string

	// Err is the error that stopped the run, if any.
	Err error

	// Cancelled is set when the context ended the run early.
	Cancelled bool
}

// NewRun returns an empty Run.
func NewRun() *Run {
	return &Run{}
}

// RuleCount returns the number of aggregated config rules.
func (r *Run) RuleCount() int {
	if r.Result == nil {
		return 0
	}
	return len(r.Result.Entries)
}

// ControlCount returns the number of aggregated control references.
func (r *Run) ControlCount() int {
	if r.Result == nil {
		return 0
	}
	return model.ControlCount(r.Result.Entries)
}
