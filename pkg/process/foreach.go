package process

import (
	"cmp"
	"context"
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-process/pkg/process/model"
)

// Process is anything that can be executed as a whole, a Pipeline or a SubProcess.
type Process interface {
	Execute(ctx context.Context) error
}

// SubProcess owns its input reference and its steps. A new instance is built for every item of a ForEach
// so nothing mutable is shared between items.
type SubProcess[T any] struct {
	name     string
	input    *Reference[T]
	steps    []Step
	callback Callback
}

type SubProcessOption[T any] func(sp *SubProcess[T])

func SubProcessCallback[T any](callback Callback) SubProcessOption[T] {
	return func(sp *SubProcess[T]) {
		sp.callback = callback
	}
}

// NewSubProcess creates a sub-process reading input. The steps are expected to be bound to input and to
// references created for this instance only.
func NewSubProcess[T any](name string, input *Reference[T], steps []Step, opts ...SubProcessOption[T]) *SubProcess[T] {
	sp := &SubProcess[T]{name: name, input: input, steps: steps, callback: NopCallback}
	for _, opt := range opts {
		opt(sp)
	}

	return sp
}

func (sp *SubProcess[T]) Input() *Reference[T] {
	return sp.input
}

func (sp *SubProcess[T]) Steps() []Step {
	return sp.steps
}

func (sp *SubProcess[T]) Execute(ctx context.Context) error {
	sp.callback(Event{Pipeline: sp.name, Phase: PhaseStart, Snapshot: sp.snapshot()})
	for i, step := range sp.steps {
		info := describe(i, step)
		sp.callback(Event{Pipeline: sp.name, Phase: PhaseStep, Step: info})
		start := time.Now()
		err := step.Do(ctx)
		if err != nil {
			return errors.Wrapf(err, "%s: step %s", sp.name, info.Name)
		}
		sp.callback(Event{Pipeline: sp.name, Phase: PhaseStepDone, Step: info, Elapsed: time.Since(start), Snapshot: sp.snapshot()})
	}
	sp.callback(Event{Pipeline: sp.name, Phase: PhaseFinish})

	return nil
}

func (sp *SubProcess[T]) snapshot() map[string]string {
	if sp.input == nil {
		return nil
	}
	name := sp.input.Name()
	if name == "" {
		name = "input"
	}

	return map[string]string{name: sp.input.String()}
}

// SubProcessBuilder builds a fresh sub-process for every item.
type SubProcessBuilder[T any] interface {
	BuildSubProcess(item T) (Process, error)
}

// BuilderBase holds what a SubProcessBuilder shares with every sub-process it builds. Embed it in builders.
type BuilderBase[S any] struct {
	Settings S
	Metadata RunMetadata
}

// BuilderFunc adapts a function to SubProcessBuilder.
type BuilderFunc[T any] func(item T) (Process, error)

func (f BuilderFunc[T]) BuildSubProcess(item T) (Process, error) {
	return f(item)
}

// ForEach executes a sub-process built for each item of a collection held by a reference.
type ForEach[C, T any] struct {
	name    string
	items   Source[C]
	builder SubProcessBuilder[T]
	iterer  func(C) iter.Seq[T]
}

// NewForEach creates a ForEach over the items iterer yields from the collection.
func NewForEach[C, T any](name string, items Source[C], builder SubProcessBuilder[T], iterer func(C) iter.Seq[T]) *ForEach[C, T] {
	return &ForEach[C, T]{name: name, items: items, builder: builder, iterer: iterer}
}

// ForEachSlice iterates the elements of a slice in order.
func ForEachSlice[T any](name string, items Source[[]T], builder SubProcessBuilder[T]) *ForEach[[]T, T] {
	return NewForEach(name, items, builder, slices.Values[[]T, T])
}

// ForEachKey iterates the keys of a map in ascending order.
func ForEachKey[K cmp.Ordered, V any](name string, items Source[map[K]V], builder SubProcessBuilder[K]) *ForEach[map[K]V, K] {
	return NewForEach(name, items, builder, func(m map[K]V) iter.Seq[K] {
		return slices.Values(slices.Sorted(maps.Keys(m)))
	})
}

func (fe *ForEach[C, T]) Name() string {
	return fe.name
}

func (fe *ForEach[C, T]) Kind() model.StepType {
	return model.ForEachStepType
}

func (fe *ForEach[C, T]) Preflight(context.Context) error {
	if fe.builder == nil {
		return errors.Wrap(ErrBuilderMustBeSet, fe.name)
	}
	if fe.iterer == nil {
		return errors.Wrapf(ErrNotInitialised, "%s: item iterer", fe.name)
	}

	return nil
}

func (fe *ForEach[C, T]) Do(ctx context.Context) error {
	items, err := fe.items.Get()
	if err != nil {
		return errors.Wrapf(err, "%s: unable to read items", fe.name)
	}
	i := 0
	for item := range fe.iterer(items) {
		proc, err := fe.builder.BuildSubProcess(item)
		if err != nil {
			return errors.Wrapf(err, "%s: unable to build sub-process for item %d", fe.name, i)
		}
		err = proc.Execute(ctx)
		if err != nil {
			return errors.Wrapf(err, "%s: item %d", fe.name, i)
		}
		i++
	}

	return nil
}

var (
	_ Process     = (*SubProcess[int])(nil)
	_ Step        = (*ForEach[[]int, int])(nil)
	_ Preflighter = (*ForEach[[]int, int])(nil)
)
