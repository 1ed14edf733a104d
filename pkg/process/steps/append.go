package steps

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-process/pkg/process"
)

// AppendStep appends the value of a reference to a list reference.
type AppendStep[T any] struct {
	name    string
	subject process.Source[T]
	list    process.Ref[[]T]
}

// Append appends subject to list, initialising list when it is absent. An absent subject is a no-op.
func Append[T any](name string, subject process.Source[T], list process.Ref[[]T]) *AppendStep[T] {
	return &AppendStep[T]{name: name, subject: subject, list: list}
}

func (a *AppendStep[T]) Name() string {
	return a.name
}

func (a *AppendStep[T]) Do(context.Context) error {
	if !a.subject.HasValue() {
		return nil
	}
	value, err := a.subject.Get()
	if err != nil {
		return errors.Wrapf(err, "%s: unable to read subject", a.name)
	}
	var list []T
	if a.list.HasValue() {
		list, err = a.list.Get()
		if err != nil {
			return errors.Wrapf(err, "%s: unable to read list", a.name)
		}
	}
	if list == nil {
		list = []T{}
	}

	return errors.Wrapf(a.list.Set(append(list, value)), "%s: unable to assign list", a.name)
}

var _ process.Step = (*AppendStep[int])(nil)
