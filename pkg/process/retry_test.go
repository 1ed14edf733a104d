package process_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-process/pkg/process"
	"github.com/askiada/go-process/pkg/process/model"
)

func failingStep(failures int, calls *int) process.Step {
	return process.NewStep("flaky", func(context.Context) error {
		*calls++
		if *calls <= failures {
			return assert.AnError
		}

		return nil
	})
}

func TestRetry(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		failures   int
		maxRetries int
		wantCalls  int
		wantErr    bool
	}{
		"no failure":            {failures: 0, maxRetries: 3, wantCalls: 1},
		"recovers":              {failures: 2, maxRetries: 3, wantCalls: 3},
		"recovers on last":      {failures: 3, maxRetries: 3, wantCalls: 4},
		"exhausted":             {failures: 10, maxRetries: 3, wantCalls: 4, wantErr: true},
		"no retry":              {failures: 1, maxRetries: 0, wantCalls: 1, wantErr: true},
		"no retry but no error": {failures: 0, maxRetries: 0, wantCalls: 1},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			step := process.Retry(failingStep(tc.failures, &calls), tc.maxRetries, 0)

			err := step.Do(t.Context())
			if tc.wantErr {
				require.ErrorIs(t, err, assert.AnError)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantCalls, calls)
		})
	}
}

func TestRetryDoesNotRetryEarlyEscape(t *testing.T) {
	t.Parallel()

	calls := 0
	step := process.Retry(process.NewStep("escape", func(context.Context) error {
		calls++

		return process.ErrNoChanges
	}), 5, 0)

	err := step.Do(t.Context())
	require.ErrorIs(t, err, process.ErrNoChanges)
	assert.True(t, process.IsEarlyEscape(err))
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	step := process.Retry(process.NewStep("cancel", func(context.Context) error {
		calls++
		cancel()

		return assert.AnError
	}), 5, 0)

	err := step.Do(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryDescribe(t *testing.T) {
	t.Parallel()

	step := process.Retry(process.NewStep("inner", func(context.Context) error { return nil }), -1, -1)
	assert.Equal(t, "retry(inner)", step.Name())
	assert.Equal(t, model.RetryStepType, step.Kind())

	unset := process.Retry(nil, 1, 0)
	require.ErrorIs(t, unset.Preflight(t.Context()), process.ErrStepMustBeSet)
}
