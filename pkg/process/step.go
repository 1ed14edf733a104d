package process

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-process/pkg/process/model"
)

// Step is a unit of work reading and writing references bound at construction time.
type Step interface {
	Do(ctx context.Context) error
}

// Preflighter is implemented by steps that assert preconditions before any step of the pipeline runs.
type Preflighter interface {
	Preflight(ctx context.Context) error
}

// Namer gives a step a readable name in logs, snapshots and graphs.
type Namer interface {
	Name() string
}

// Kinder reports the kind of a step.
type Kinder interface {
	Kind() model.StepType
}

// StepFunc adapts a function to Step.
type StepFunc func(ctx context.Context) error

func (f StepFunc) Do(ctx context.Context) error {
	return f(ctx)
}

type namedStep struct {
	Step
	name      string
	preflight func(ctx context.Context) error
}

func (s *namedStep) Name() string {
	return s.name
}

func (s *namedStep) Preflight(ctx context.Context) error {
	if s.preflight == nil {
		return preflightOf(ctx, s.Step)
	}

	return s.preflight(ctx)
}

// NewStep names fn, optionally with a preflight assertion.
func NewStep(name string, fn func(ctx context.Context) error, preflight ...func(ctx context.Context) error) Step {
	step := &namedStep{Step: StepFunc(fn), name: name}
	if len(preflight) > 0 {
		step.preflight = preflight[0]
	}

	return step
}

// StepName returns the name of a step, falling back to its type.
func StepName(step Step) string {
	if namer, ok := step.(Namer); ok && namer.Name() != "" {
		return namer.Name()
	}

	return strings.TrimPrefix(fmt.Sprintf("%T", step), "*")
}

func stepKind(step Step) model.StepType {
	if kinder, ok := step.(Kinder); ok {
		return kinder.Kind()
	}

	return model.NormalStepType
}

func describe(idx int, step Step) *model.StepInfo {
	return &model.StepInfo{
		Index: idx,
		Name:  StepName(step),
		Type:  stepKind(step),
	}
}

func preflightOf(ctx context.Context, step Step) error {
	if pre, ok := step.(Preflighter); ok {
		return pre.Preflight(ctx)
	}

	return nil
}

// runSteps runs steps in order and stops on the first error.
func runSteps(ctx context.Context, steps []Step) error {
	for _, step := range steps {
		err := step.Do(ctx)
		if err != nil {
			return errors.Wrapf(err, "step %s", StepName(step))
		}
	}

	return nil
}
