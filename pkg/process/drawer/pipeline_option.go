package drawer

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-process/pkg/process/measure"
	"github.com/askiada/go-process/pkg/process/model"
)

type pipelineDrawer struct {
	Drawer
	m         measure.Measure
	startTime time.Time
	last      string
}

func (pd *pipelineDrawer) New() error {
	pd.startTime = time.Now()
	err := pd.AddStep(model.StartStep.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start step to drawer")
	}
	pd.last = model.StartStep.Name

	return nil
}

func (pd *pipelineDrawer) PrepareStep(step *model.StepInfo) error {
	err := pd.AddStep(step.Name)
	if err != nil {
		return err
	}
	err = pd.AddLink(pd.last, step.Name)
	if err != nil {
		return err
	}
	pd.last = step.Name

	return nil
}

func (pd *pipelineDrawer) BeforeStep(ctx context.Context, _ *model.StepInfo) (context.Context, error) {
	return ctx, nil
}

func (pd *pipelineDrawer) AfterStep(context.Context, *model.StepInfo, time.Duration, error) error {
	return nil
}

func (pd *pipelineDrawer) Finish() error {
	err := pd.AddStep(model.EndStep.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end step to drawer")
	}
	err = pd.AddLink(pd.last, model.EndStep.Name)
	if err != nil {
		return err
	}

	if pd.m != nil {
		err = pd.SetTotalTime(model.EndStep.Name, pd.startTime)
		if err != nil {
			return errors.Wrap(err, "unable to set total time")
		}
		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws the steps of a pipeline once it is finished. A non nil measure labels the steps
// with their durations; it must be registered as a hook of the same pipeline, before the drawer.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: measure}
}
