package process

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Source is a readable slot.
type Source[T any] interface {
	HasValue() bool
	// Get returns the held value, or ErrMissingValue when the slot is absent.
	Get() (T, error)
}

// Sink is a writable slot.
type Sink[T any] interface {
	HasValue() bool
	Set(value T) error
	Clear() error
}

// Ref is a slot that is both readable and writable.
type Ref[T any] interface {
	Source[T]
	Sink[T]
}

// Describer is implemented by every reference so that pipelines can snapshot their state.
type Describer interface {
	HasValue() bool
	String() string
}

// OnSet observes a reference. It is called with the about-to-be-set value before the value is committed;
// present is false when the reference is being cleared. Returning an error aborts the set.
type OnSet[T any] interface {
	OnSet(ref *Reference[T], value T, present bool) error
}

// OnSetFunc adapts a function to OnSet.
type OnSetFunc[T any] func(ref *Reference[T], value T, present bool) error

func (f OnSetFunc[T]) OnSet(ref *Reference[T], value T, present bool) error {
	return f(ref, value, present)
}

// Reference is a nullable container for a single value of type T.
type Reference[T any] struct {
	name    string
	value   T
	present bool
	onSet   []OnSet[T]
}

type ReferenceOption[T any] func(r *Reference[T])

// Named sets the name used when describing the reference.
func Named[T any](name string) ReferenceOption[T] {
	return func(r *Reference[T]) {
		r.name = name
	}
}

// WithValue seeds the reference. A nil value leaves it absent.
func WithValue[T any](value T) ReferenceOption[T] {
	return func(r *Reference[T]) {
		if !isNil(value) {
			r.value = value
			r.present = true
		}
	}
}

// WithOnSet binds observers called on every successful set.
func WithOnSet[T any](observers ...OnSet[T]) ReferenceOption[T] {
	return func(r *Reference[T]) {
		r.onSet = append(r.onSet, observers...)
	}
}

func NewReference[T any](opts ...ReferenceOption[T]) *Reference[T] {
	ref := &Reference[T]{}
	for _, opt := range opts {
		opt(ref)
	}

	return ref
}

// Set stores value. Nil pointers, interfaces, maps, slices, channels and funcs clear the reference.
func (r *Reference[T]) Set(value T) error {
	if isNil(value) {
		return r.Clear()
	}
	err := r.notify(value, true)
	if err != nil {
		return err
	}
	r.value = value
	r.present = true

	return nil
}

// SetAny stores a dynamically typed value, checking it against T. A nil value clears the reference.
func (r *Reference[T]) SetAny(value any) error {
	if value == nil {
		return r.Clear()
	}
	typed, ok := value.(T)
	if !ok {
		return errors.Wrapf(ErrTypeMismatch, "%s: expected %s, got %T", r.label(), TypeName[T](), value)
	}

	return r.Set(typed)
}

func (r *Reference[T]) Clear() error {
	var zero T
	err := r.notify(zero, false)
	if err != nil {
		return err
	}
	r.value = zero
	r.present = false

	return nil
}

func (r *Reference[T]) HasValue() bool {
	return r.present
}

func (r *Reference[T]) Get() (T, error) {
	if !r.present {
		var zero T

		return zero, errors.Wrapf(ErrMissingValue, "%s has no value", r.label())
	}

	return r.value, nil
}

// Any returns the held value as an interface, or nil when absent.
func (r *Reference[T]) Any() any {
	if !r.present {
		return nil
	}

	return r.value
}

// IsInstanceOf reports whether the current value is assignable to one of types.
// It always reports false for an absent reference.
func (r *Reference[T]) IsInstanceOf(types ...reflect.Type) bool {
	return instanceOf(r.Any(), types...)
}

func (r *Reference[T]) Name() string {
	return r.name
}

func (r *Reference[T]) String() string {
	return fmt.Sprintf("Reference[%s](%s)", TypeName[T](), describeValue(r.Any()))
}

func (r *Reference[T]) label() string {
	if r.name != "" {
		return fmt.Sprintf("reference %q", r.name)
	}

	return "Reference[" + TypeName[T]() + "]"
}

func (r *Reference[T]) notify(value T, present bool) error {
	for _, observer := range r.onSet {
		err := observer.OnSet(r, value, present)
		if err != nil {
			return errors.Wrapf(err, "%s: on set", r.label())
		}
	}

	return nil
}

// InstanceOf reports whether the current value of src is a U, whatever the declared type of src.
func InstanceOf[U any](src interface{ Any() any }) bool {
	_, ok := src.Any().(U)

	return ok
}

// TypeName returns a printable name for T.
func TypeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func instanceOf(value any, types ...reflect.Type) bool {
	if value == nil {
		return false
	}
	dynamic := reflect.TypeOf(value)
	for _, typ := range types {
		if typ != nil && dynamic.AssignableTo(typ) {
			return true
		}
	}

	return false
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// describeValue summarises collections by length so snapshots stay short.
func describeValue(value any) string {
	if value == nil {
		return "<absent>"
	}
	if stringer, ok := value.(fmt.Stringer); ok {
		return stringer.String()
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("len=%d", v.Len())
	default:
		return fmt.Sprintf("%v", value)
	}
}

var (
	_ Ref[int]  = (*Reference[int])(nil)
	_ Describer = (*Reference[int])(nil)
)
