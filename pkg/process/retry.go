package process

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-process/pkg/process/model"
)

const (
	DefaultRetryMaxRetries = 10
	DefaultRetryBackoff    = 15 * time.Second
)

// RetryStep runs a wrapped step until it succeeds, at most MaxRetries+1 times, waiting a fixed backoff
// between attempts. The last error is returned once attempts are exhausted. Early escapes are not retried.
type RetryStep struct {
	step       Step
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

type RetryOption func(r *RetryStep)

func RetryLogger(logger *zap.Logger) RetryOption {
	return func(r *RetryStep) {
		r.logger = logger
	}
}

// Retry wraps step. A negative maxRetries or backoff falls back to the defaults.
func Retry(step Step, maxRetries int, backoff time.Duration, opts ...RetryOption) *RetryStep {
	if maxRetries < 0 {
		maxRetries = DefaultRetryMaxRetries
	}
	if backoff < 0 {
		backoff = DefaultRetryBackoff
	}
	r := &RetryStep{step: step, maxRetries: maxRetries, backoff: backoff}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.L()
	}

	return r
}

func (r *RetryStep) Name() string {
	return "retry(" + StepName(r.step) + ")"
}

func (r *RetryStep) Kind() model.StepType {
	return model.RetryStepType
}

func (r *RetryStep) Preflight(ctx context.Context) error {
	if r.step == nil {
		return errors.Wrap(ErrStepMustBeSet, "retry")
	}

	return preflightOf(ctx, r.step)
}

func (r *RetryStep) Do(ctx context.Context) error {
	attempt := 0
	operation := func() (None, error) {
		attempt++
		err := r.step.Do(ctx)
		if err != nil && IsEarlyEscape(err) {
			return None{}, backoff.Permanent(err)
		}

		return None{}, err
	}
	notify := func(err error, next time.Duration) {
		r.logger.Warn("retrying step",
			zap.String("step", StepName(r.step)),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", r.maxRetries),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.backoff)),
		backoff.WithMaxTries(uint(r.maxRetries)+1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err == nil {
		return nil
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if IsEarlyEscape(err) {
		return err
	}

	return errors.Wrapf(err, "%s after %d attempts", StepName(r.step), attempt)
}

var (
	_ Step        = (*RetryStep)(nil)
	_ Preflighter = (*RetryStep)(nil)
)
