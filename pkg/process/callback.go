package process

import (
	"time"

	"go.uber.org/zap"

	"github.com/askiada/go-process/pkg/process/model"
)

type Phase string

const (
	PhaseStart    Phase = "start"
	PhaseStep     Phase = "step"
	PhaseStepDone Phase = "step done"
	PhaseEscaped  Phase = "escaped"
	PhaseFinish   Phase = "finish"
)

// Event is what a Callback receives at each point of a run.
type Event struct {
	// Pipeline is the name of the pipeline or sub-process emitting the event.
	Pipeline string
	Phase    Phase
	// Step is nil for start and finish events.
	Step *model.StepInfo
	// Snapshot describes the references after a step, keyed by reference name.
	Snapshot map[string]string
	Elapsed  time.Duration
	Err      error
}

// Callback receives progress events of a run. It must not fail the run.
type Callback func(event Event)

// NopCallback ignores every event.
func NopCallback(Event) {}

// ZapCallback logs events through logger. Snapshots are logged at debug level.
func ZapCallback(logger *zap.Logger) Callback {
	if logger == nil {
		logger = zap.L()
	}

	return func(event Event) {
		fields := []zap.Field{
			zap.String("pipeline", event.Pipeline),
			zap.String("phase", string(event.Phase)),
		}
		if event.Step != nil {
			fields = append(fields,
				zap.String("step", event.Step.Name),
				zap.String("type", string(event.Step.Type)),
				zap.Int("index", event.Step.Index),
			)
		}
		if event.Elapsed > 0 {
			fields = append(fields, zap.Duration("elapsed", event.Elapsed))
		}

		switch event.Phase {
		case PhaseEscaped:
			logger.Info("pipeline escaped early", append(fields, zap.Error(event.Err))...)
		case PhaseStepDone:
			if len(event.Snapshot) > 0 && logger.Core().Enabled(zap.DebugLevel) {
				logger.Debug("references", append(fields, zap.Any("snapshot", event.Snapshot))...)
			}
			logger.Info("step done", fields...)
		case PhaseFinish:
			if event.Err != nil {
				logger.Error("pipeline failed", append(fields, zap.Error(event.Err))...)

				return
			}
			logger.Info("pipeline finished", fields...)
		default:
			logger.Info(string(event.Phase), fields...)
		}
	}
}
