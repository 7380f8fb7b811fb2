package pipeline

import (
	"context"
	"log/slog"
)

// Step is one phase of a pipeline run.
type Step interface {
	// Do executes the step. A returned error stops the pipeline unless
	// continue-on-error is enabled.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes steps in order over a Run.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// finally contains steps that run after the main steps whatever the outcome.
	finally []Step

	logger *slog.Logger

	// continueOnError keeps executing steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The last error is kept in Run.Err.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// WithFinally registers steps that run after the main steps, even when one
// of them failed or the context was cancelled. Their errors are logged only.
func WithFinally(steps ...Step) Option {
	return func(p *Pipeline) {
		p.finally = append(p.finally, steps...)
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
// Cancellation is checked between steps; steps handle their own timeouts.
// It returns the first error when continue-on-error is off, otherwise the
// last one.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	defer p.runFinally(ctx, run)

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			run.Cancelled = true
			run.Err = ctx.Err()
			return ctx.Err()
		default:
		}

		p.logger.Info("executing step", "step", step.Name())

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"error", err,
			)
			run.Err = err
			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed", "step", step.Name())
		}

		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}

	return run.Err
}

// runFinally runs the finally steps with a context that outlives cancellation.
func (p *Pipeline) runFinally(ctx context.Context, run *Run) {
	ctx = context.WithoutCancel(ctx)
	for _, step := range p.finally {
		if err := step.Do(ctx, run); err != nil {
			p.logger.Warn("finally step failed",
				"step", step.Name(),
				"error", err,
			)
			continue
		}
		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}
}

// StepCount returns the number of main steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all main steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
