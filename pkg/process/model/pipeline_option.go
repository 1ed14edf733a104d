package model

import (
	"context"
	"time"
)

// PipelineOption defines the interface for options observing a pipeline.
type PipelineOption interface {
	// New initialises the pipeline option.
	New() error

	// PrepareStep runs once per step, in order, while the pipeline is built.
	PrepareStep(step *StepInfo) error
	// BeforeStep runs before the step is executed. The returned context is handed to the step.
	BeforeStep(ctx context.Context, step *StepInfo) (context.Context, error)
	// AfterStep runs after the step is executed, with the error it returned.
	AfterStep(ctx context.Context, step *StepInfo, elapsed time.Duration, stepErr error) error

	// Finish runs after the pipeline is finished.
	Finish() error
}
