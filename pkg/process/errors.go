package process

import (
	"github.com/pkg/errors"
)

var (
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrMissingValue     = errors.New("missing value")
	ErrMissingColumn    = errors.New("missing column")
	ErrUnhandledResult  = errors.New("unhandled result type")
	ErrNotInitialised   = errors.New("not initialised")
	ErrAlreadyExecuted  = errors.New("pipeline already executed")
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")
	ErrBuilderMustBeSet = errors.New("builder must be set")
	ErrStepMustBeSet    = errors.New("step must be set")
)

// EarlyEscape ends a run early without failing it. The pipeline reports it and returns without error.
type EarlyEscape struct {
	Reason string
}

func (e *EarlyEscape) Error() string {
	return "early escape: " + e.Reason
}

// ErrNoChanges is raised when there is nothing to process.
var ErrNoChanges = &EarlyEscape{Reason: "no changes to update"}

// Escape returns an EarlyEscape with the given reason.
func Escape(reason string) error {
	return &EarlyEscape{Reason: reason}
}

// IsEarlyEscape reports whether err, or any error it wraps, is an EarlyEscape.
func IsEarlyEscape(err error) bool {
	var escape *EarlyEscape

	return errors.As(err, &escape)
}
