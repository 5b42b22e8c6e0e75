package pipeline

import (
	"context"
	"errors"
	"log/slog"
)

// ErrStop is returned by a step that finished the job. Execute skips the
// remaining steps and returns nil.
var ErrStop = errors.New("pipeline stopped")

// Step defines the interface that all pipeline steps must implement.
type Step[T any] interface {
	// Do executes the step on v. Returning ErrStop ends the pipeline without
	// error; any other error ends it with that error.
	Do(ctx context.Context, v T) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// funcStep adapts a function to Step.
type funcStep[T any] struct {
	name string
	fn   func(ctx context.Context, v T) error
}

func (s funcStep[T]) Do(ctx context.Context, v T) error {
	return s.fn(ctx, v)
}

func (s funcStep[T]) Name() string {
	return s.name
}

// NewStep returns a Step named name that calls fn.
func NewStep[T any](name string, fn func(ctx context.Context, v T) error) Step[T] {
	return funcStep[T]{name: name, fn: fn}
}

// Pipeline orchestrates the execution of multiple steps.
// It is safe for concurrent Execute calls once all steps are added.
type Pipeline[T any] struct {
	// steps contains the ordered list of steps to execute.
	steps []Step[T]

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option[T any] func(*Pipeline[T])

// WithLogger sets a custom logger for the pipeline.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(p *Pipeline[T]) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New[T any](opts ...Option[T]) *Pipeline[T] {
	p := &Pipeline[T]{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline[T]) AddStep(step Step[T]) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline[T]) AddSteps(steps ...Step[T]) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step on v in order. It returns the first error other
// than ErrStop. attrs are added to the step log records.
func (p *Pipeline[T]) Execute(ctx context.Context, v T, attrs ...any) error {
	for _, step := range p.steps {
		err := step.Do(ctx, v)
		if errors.Is(err, ErrStop) {
			p.logger.Debug("pipeline stopped", append([]any{"step", step.Name()}, attrs...)...)
			return nil
		}
		if err != nil {
			p.logger.Error("step failed", append([]any{"step", step.Name(), "error", err}, attrs...)...)
			return err
		}
	}
	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline[T]) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
