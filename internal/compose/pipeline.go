package compose

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step names, in execution order.
const (
	StepLoadBackground = "load-background"
	StepDrawBackground = "draw-background"
	StepDrawGradient   = "draw-gradient"
	StepLoadUserImage  = "load-user-image"
	StepDrawUserImage  = "draw-user-image"
	StepDrawTextStroke = "draw-text-stroke"
	StepDrawTextFill   = "draw-text-fill"
	StepEncodePNG      = "encode-png"
)

// Step is one stage of a render. Each step sees the canvas exactly as the
// previous step left it.
type Step[S any] struct {
	Name string
	Run  func(ctx context.Context, state S) error
}

// StepResult records how one executed step went.
type StepResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// GenerationError reports the step that aborted a render.
type GenerationError struct {
	Step string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed at %s: %v", e.Step, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Pipeline runs its steps strictly in order. The first failing step stops
// the run; later steps never execute.
type Pipeline[S any] struct {
	name   string
	steps  []Step[S]
	logger *zap.Logger
}

// NewPipeline creates an empty pipeline.
func NewPipeline[S any](name string, logger *zap.Logger) *Pipeline[S] {
	return &Pipeline[S]{name: name, logger: logger}
}

// Add appends a step.
func (p *Pipeline[S]) Add(name string, run func(ctx context.Context, state S) error) *Pipeline[S] {
	p.steps = append(p.steps, Step[S]{Name: name, Run: run})
	return p
}

// Run executes the steps and returns a result for each one that ran. On
// failure the error is a *GenerationError naming the failed step.
func (p *Pipeline[S]) Run(ctx context.Context, state S) ([]StepResult, error) {
	results := make([]StepResult, 0, len(p.steps))

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			results = append(results, StepResult{Name: step.Name, Err: err})
			return results, &GenerationError{Step: step.Name, Err: err}
		}

		start := time.Now()
		err := step.Run(ctx, state)
		res := StepResult{Name: step.Name, Duration: time.Since(start), Err: err}
		results = append(results, res)

		if err != nil {
			p.logger.Error("Pipeline step failed",
				zap.String("pipeline", p.name),
				zap.String("step", step.Name),
				zap.Duration("duration", res.Duration),
				zap.Error(err))
			return results, &GenerationError{Step: step.Name, Err: err}
		}

		p.logger.Debug("Pipeline step completed",
			zap.String("pipeline", p.name),
			zap.String("step", step.Name),
			zap.Duration("duration", res.Duration))
	}

	return results, nil
}
