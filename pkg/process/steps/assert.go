package steps

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/go-process/pkg/process"
)

// AssertAnyChangesStep ends the run early when there is nothing to process.
type AssertAnyChangesStep[E any] struct {
	name    string
	subject process.Source[[]E]
}

// AssertAnyChanges escapes with process.ErrNoChanges when subject holds an empty slice.
func AssertAnyChanges[E any](name string, subject process.Source[[]E]) *AssertAnyChangesStep[E] {
	return &AssertAnyChangesStep[E]{name: name, subject: subject}
}

func (a *AssertAnyChangesStep[E]) Name() string {
	return a.name
}

func (a *AssertAnyChangesStep[E]) Do(context.Context) error {
	changes, err := a.subject.Get()
	if err != nil {
		return errors.Wrapf(err, "%s: unable to read changes", a.name)
	}
	if len(changes) == 0 {
		return errors.Wrap(process.ErrNoChanges, a.name)
	}

	return nil
}

var _ process.Step = (*AssertAnyChangesStep[int])(nil)
