// Package report sends the errors of failing pipeline steps to Sentry.
package report

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"

	"github.com/askiada/go-process/pkg/process"
	"github.com/askiada/go-process/pkg/process/model"
)

var ErrFlushTimeout = errors.New("unable to flush reported events")

const defaultFlushTimeout = 2 * time.Second

type Option func(pr *pipelineReporter)

// FlushTimeout bounds the wait for pending events when the pipeline finishes.
func FlushTimeout(timeout time.Duration) Option {
	return func(pr *pipelineReporter) {
		pr.flushTimeout = timeout
	}
}

// Tags are added to every reported event.
func Tags(tags map[string]string) Option {
	return func(pr *pipelineReporter) {
		for k, v := range tags {
			pr.tags[k] = v
		}
	}
}

type pipelineReporter struct {
	hub          *sentry.Hub
	pipeline     string
	tags         map[string]string
	flushTimeout time.Duration
	reported     bool
}

// PipelineReporter captures the error of every failing step on hub, the current hub when nil. Early
// escapes are not reported.
func PipelineReporter(hub *sentry.Hub, pipeline string, opts ...Option) model.PipelineOption {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	pr := &pipelineReporter{hub: hub, pipeline: pipeline, tags: map[string]string{}, flushTimeout: defaultFlushTimeout}
	for _, opt := range opts {
		opt(pr)
	}

	return pr
}

func (pr *pipelineReporter) New() error {
	return nil
}

func (pr *pipelineReporter) PrepareStep(*model.StepInfo) error {
	return nil
}

func (pr *pipelineReporter) BeforeStep(ctx context.Context, step *model.StepInfo) (context.Context, error) {
	pr.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "step",
		Message:  step.Name,
		Level:    sentry.LevelInfo,
	}, nil)

	return ctx, nil
}

func (pr *pipelineReporter) AfterStep(_ context.Context, step *model.StepInfo, elapsed time.Duration, stepErr error) error {
	if stepErr == nil || process.IsEarlyEscape(stepErr) {
		return nil
	}
	pr.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(pr.tags)
		scope.SetTag("pipeline", pr.pipeline)
		scope.SetTag("step", step.Name)
		scope.SetTag("step_type", string(step.Type))
		scope.SetContext("step", sentry.Context{
			"index":   step.Index,
			"elapsed": elapsed.String(),
		})
		pr.hub.CaptureException(stepErr)
	})
	pr.reported = true

	return nil
}

func (pr *pipelineReporter) Finish() error {
	if !pr.reported {
		return nil
	}
	if !pr.hub.Flush(pr.flushTimeout) {
		return errors.Wrapf(ErrFlushTimeout, "after %s", pr.flushTimeout)
	}

	return nil
}
