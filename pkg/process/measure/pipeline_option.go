package measure

import (
	"context"
	"time"

	"github.com/askiada/go-process/pkg/process"
	"github.com/askiada/go-process/pkg/process/model"
)

type pipelineMeasure struct {
	Measure
	startTime time.Time
}

func (pm *pipelineMeasure) New() error {
	pm.startTime = time.Now()
	pm.AddMetric(model.StartStep.Name)
	pm.AddMetric(model.EndStep.Name)

	return nil
}

func (pm *pipelineMeasure) PrepareStep(step *model.StepInfo) error {
	pm.AddMetric(step.Name)

	return nil
}

func (pm *pipelineMeasure) BeforeStep(ctx context.Context, _ *model.StepInfo) (context.Context, error) {
	return ctx, nil
}

// AfterStep records the duration of every step. Early escapes are not failures.
func (pm *pipelineMeasure) AfterStep(_ context.Context, step *model.StepInfo, elapsed time.Duration, stepErr error) error {
	mt := pm.AddMetric(step.Name)
	mt.AddDuration(elapsed)
	if stepErr != nil && !process.IsEarlyEscape(stepErr) {
		mt.AddFailure()
	}

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	pm.AddMetric(model.EndStep.Name).SetTotalDuration(time.Since(pm.startTime))

	return nil
}

// PipelineMeasure records the metrics of a pipeline run into measure.
func PipelineMeasure(measure Measure) model.PipelineOption {
	return &pipelineMeasure{Measure: measure}
}
