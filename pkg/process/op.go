package process

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-process/pkg/process/model"
)

// None is the input type of an operation that reads nothing.
type None struct{}

// Op produces a value, from zero or one input reference, and assigns it to a destination reference.
//
// When the destination already holds a value and the operation does not overwrite, Do is a no-op and the
// producing function is not called. A producing function may report that it produced nothing; the
// operation then assumes its effect happened elsewhere and assigns nothing.
type Op[I, O any] struct {
	name      string
	kind      model.StepType
	from      Source[I]
	to        Sink[O]
	overwrite bool
	fn        func(ctx context.Context, in I) (O, bool, error)
	preflight func(ctx context.Context) error
}

type opConfig struct {
	overwrite *bool
	preflight func(ctx context.Context) error
}

type OpOption func(cfg *opConfig)

// WithOverwrite sets whether an operation replaces a value already held by its destination.
func WithOverwrite(overwrite bool) OpOption {
	return func(cfg *opConfig) {
		cfg.overwrite = &overwrite
	}
}

// KeepExisting is WithOverwrite(false).
func KeepExisting() OpOption {
	return WithOverwrite(false)
}

// WithPreflight attaches a precondition assertion to an operation.
func WithPreflight(fn func(ctx context.Context) error) OpOption {
	return func(cfg *opConfig) {
		cfg.preflight = fn
	}
}

func newOp[I, O any](name string, kind model.StepType, from Source[I], to Sink[O], overwrite bool, fn func(context.Context, I) (O, bool, error), opts []OpOption) *Op[I, O] {
	cfg := &opConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.overwrite != nil {
		overwrite = *cfg.overwrite
	}

	return &Op[I, O]{
		name:      name,
		kind:      kind,
		from:      from,
		to:        to,
		overwrite: overwrite,
		fn:        fn,
		preflight: cfg.preflight,
	}
}

// Assign generates a value and assigns it to `to`. It overwrites by default.
func Assign[T any](name string, to Sink[T], generate func(ctx context.Context) (T, error), opts ...OpOption) *Op[None, T] {
	return newOp(name, model.AssignStepType, nil, to, true, func(ctx context.Context, _ None) (T, bool, error) {
		out, err := generate(ctx)

		return out, true, err
	}, opts)
}

// Transform reads `from`, transforms it and assigns the result to `to`. It does not overwrite by default.
// The transform returns false when it produced its effect as a side effect and has nothing to assign.
func Transform[I, O any](name string, from Source[I], to Sink[O], transform func(ctx context.Context, in I) (O, bool, error), opts ...OpOption) *Op[I, O] {
	return newOp(name, model.TransformStepType, from, to, false, transform, opts)
}

// Modify reads subject, transforms it and writes the result back into subject. Returning false means the
// value was modified in place.
func Modify[T any](name string, subject Ref[T], modify func(ctx context.Context, in T) (T, bool, error), opts ...OpOption) *Op[T, T] {
	return newOp[T, T](name, model.ModifyStepType, subject, subject, true, modify, opts)
}

// ModifyInto is Modify writing the result into another reference of the same type.
func ModifyInto[T any](name string, subject Source[T], to Sink[T], modify func(ctx context.Context, in T) (T, bool, error), opts ...OpOption) *Op[T, T] {
	return newOp(name, model.ModifyStepType, subject, to, true, modify, opts)
}

func (op *Op[I, O]) Name() string {
	return op.name
}

func (op *Op[I, O]) Kind() model.StepType {
	return op.kind
}

// Preflight checks the references are bound, then runs the attached assertion.
func (op *Op[I, O]) Preflight(ctx context.Context) error {
	if op.to == nil {
		return errors.Wrapf(ErrNotInitialised, "%s: destination reference", op.name)
	}
	if op.fn == nil {
		return errors.Wrapf(ErrNotInitialised, "%s: function", op.name)
	}
	if op.preflight != nil {
		return op.preflight(ctx)
	}

	return nil
}

func (op *Op[I, O]) Do(ctx context.Context) error {
	if op.to.HasValue() && !op.overwrite {
		return nil
	}
	var in I
	if op.from != nil {
		var err error
		in, err = op.from.Get()
		if err != nil {
			return errors.Wrapf(err, "%s: unable to read subject", op.name)
		}
	}
	out, produced, err := op.fn(ctx, in)
	if err != nil {
		return errors.Wrap(err, op.name)
	}
	if !produced {
		return nil
	}
	err = op.to.Set(out)
	if err != nil {
		return errors.Wrapf(err, "%s: unable to assign result", op.name)
	}

	return nil
}

// Target is a destination accepting dynamically typed results.
type Target interface {
	Accepts(value any) bool
	Assign(value any) error
}

type route[T any] struct {
	sink Sink[T]
}

// Route makes sink a Dispatch target accepting values of type T.
func Route[T any](sink Sink[T]) Target {
	return route[T]{sink: sink}
}

func (r route[T]) Accepts(value any) bool {
	_, ok := value.(T)

	return ok
}

func (r route[T]) Assign(value any) error {
	typed, ok := value.(T)
	if !ok {
		return errors.Wrapf(ErrTypeMismatch, "expected %s, got %T", TypeName[T](), value)
	}

	return r.sink.Set(typed)
}

// DispatchStep runs a function returning an untyped result and assigns that result to the first target
// whose type matches it. A nil result means the function had its effect elsewhere.
type DispatchStep[I any] struct {
	name    string
	from    Source[I]
	fn      func(ctx context.Context, in I) (any, error)
	targets []Target
}

func Dispatch[I any](name string, from Source[I], fn func(ctx context.Context, in I) (any, error), targets ...Target) *DispatchStep[I] {
	return &DispatchStep[I]{name: name, from: from, fn: fn, targets: targets}
}

func (d *DispatchStep[I]) Name() string {
	return d.name
}

func (d *DispatchStep[I]) Kind() model.StepType {
	return model.DispatchStepType
}

func (d *DispatchStep[I]) Do(ctx context.Context) error {
	in, err := d.from.Get()
	if err != nil {
		return errors.Wrapf(err, "%s: unable to read subject", d.name)
	}
	out, err := d.fn(ctx, in)
	if err != nil {
		return errors.Wrap(err, d.name)
	}
	if isNil(out) {
		return nil
	}
	for _, target := range d.targets {
		if target.Accepts(out) {
			return errors.Wrapf(target.Assign(out), "%s: unable to assign result", d.name)
		}
	}

	return errors.Wrapf(ErrUnhandledResult, "%s: no target accepts %T", d.name, out)
}

var (
	_ Step        = (*Op[None, int])(nil)
	_ Preflighter = (*Op[None, int])(nil)
	_ Step        = (*DispatchStep[int])(nil)
)
