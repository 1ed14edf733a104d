package process_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-process/pkg/process"
	"github.com/askiada/go-process/pkg/process/model"
)

func TestAssign(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		seed      *int
		opts      []process.OpOption
		want      int
		wantCalls int
	}{
		"absent destination":            {want: 5, wantCalls: 1},
		"overwrite by default":          {seed: ptr(1), want: 5, wantCalls: 1},
		"keep existing":                 {seed: ptr(1), opts: []process.OpOption{process.KeepExisting()}, want: 1},
		"keep existing with no value":   {opts: []process.OpOption{process.KeepExisting()}, want: 5, wantCalls: 1},
		"explicit overwrite":            {seed: ptr(1), opts: []process.OpOption{process.WithOverwrite(true)}, want: 5, wantCalls: 1},
		"explicit overwrite with value": {seed: ptr(5), opts: []process.OpOption{process.WithOverwrite(false)}, want: 5},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ref := process.NewReference[int]()
			if tc.seed != nil {
				require.NoError(t, ref.Set(*tc.seed))
			}
			calls := 0
			step := process.Assign("five", ref, func(context.Context) (int, error) {
				calls++

				return 5, nil
			}, tc.opts...)

			require.NoError(t, step.Do(t.Context()))
			got, err := ref.Get()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantCalls, calls)
			assert.Equal(t, model.AssignStepType, step.Kind())
		})
	}
}

func TestAssignKeepExistingIsIdempotent(t *testing.T) {
	t.Parallel()

	ref := process.NewReference[int]()
	calls := 0
	step := process.Assign("counter", ref, func(context.Context) (int, error) {
		calls++

		return calls, nil
	}, process.KeepExisting())

	require.NoError(t, step.Do(t.Context()))
	require.NoError(t, step.Do(t.Context()))

	got, err := ref.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Equal(t, 1, calls)
}

func TestAssignError(t *testing.T) {
	t.Parallel()

	ref := process.NewReference[int]()
	step := process.Assign("failing", ref, func(context.Context) (int, error) {
		return 0, assert.AnError
	})

	err := step.Do(t.Context())
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failing")
	assert.False(t, ref.HasValue())
}

func TestTransform(t *testing.T) {
	t.Parallel()

	x := process.NewReference(process.WithValue(21))
	y := process.NewReference[string]()
	step := process.Transform("itoa", x, y, func(_ context.Context, in int) (string, bool, error) {
		return strconv.Itoa(in * 2), true, nil
	})

	require.NoError(t, step.Do(t.Context()))
	got, err := y.Get()
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestTransformDoesNotOverwriteByDefault(t *testing.T) {
	t.Parallel()

	x := process.NewReference(process.WithValue(21))
	y := process.NewReference(process.WithValue("kept"))
	step := process.Transform("itoa", x, y, func(_ context.Context, in int) (string, bool, error) {
		return strconv.Itoa(in), true, nil
	})

	require.NoError(t, step.Do(t.Context()))
	got, err := y.Get()
	require.NoError(t, err)
	assert.Equal(t, "kept", got)
}

func TestTransformAbsentSubject(t *testing.T) {
	t.Parallel()

	x := process.NewReference[int]()
	y := process.NewReference[string]()
	step := process.Transform("itoa", x, y, func(_ context.Context, in int) (string, bool, error) {
		return strconv.Itoa(in), true, nil
	})

	err := step.Do(t.Context())
	require.ErrorIs(t, err, process.ErrMissingValue)
	assert.False(t, y.HasValue())
}

func TestTransformSideEffect(t *testing.T) {
	t.Parallel()

	x := process.NewReference(process.WithValue(3))
	y := process.NewReference[string]()
	elsewhere := 0
	step := process.Transform("side effect", x, y, func(_ context.Context, in int) (string, bool, error) {
		elsewhere = in

		return "", false, nil
	})

	require.NoError(t, step.Do(t.Context()))
	assert.False(t, y.HasValue())
	assert.Equal(t, 3, elsewhere)
}

func TestModify(t *testing.T) {
	t.Parallel()

	list := process.NewReference(process.WithValue([]int{1, 2}))
	step := process.Modify("double", list, func(_ context.Context, in []int) ([]int, bool, error) {
		out := make([]int, len(in))
		for i, v := range in {
			out[i] = v * 2
		}

		return out, true, nil
	})

	require.NoError(t, step.Do(t.Context()))
	got, err := list.Get()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, got)
	assert.Equal(t, model.ModifyStepType, step.Kind())
}

func TestModifyInPlace(t *testing.T) {
	t.Parallel()

	counts := process.NewReference(process.WithValue(map[string]int{"a": 1}))
	step := process.Modify("increment", counts, func(_ context.Context, in map[string]int) (map[string]int, bool, error) {
		in["a"]++

		return nil, false, nil
	})

	require.NoError(t, step.Do(t.Context()))
	got, err := counts.Get()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 2}, got)
}

func TestModifyInto(t *testing.T) {
	t.Parallel()

	src := process.NewReference(process.WithValue("abc"))
	dst := process.NewReference(process.WithValue("old"))
	step := process.ModifyInto("upper", src, dst, func(_ context.Context, in string) (string, bool, error) {
		return in + in, true, nil
	})

	require.NoError(t, step.Do(t.Context()))
	got, err := dst.Get()
	require.NoError(t, err)
	assert.Equal(t, "abcabc", got)
	original, err := src.Get()
	require.NoError(t, err)
	assert.Equal(t, "abc", original)
}

func TestOpPreflight(t *testing.T) {
	t.Parallel()

	ref := process.NewReference[int]()
	generate := func(context.Context) (int, error) { return 1, nil }

	ok := process.Assign("ok", ref, generate)
	require.NoError(t, ok.Preflight(t.Context()))

	unbound := process.Assign[int]("unbound", nil, generate)
	require.ErrorIs(t, unbound.Preflight(t.Context()), process.ErrNotInitialised)

	asserted := process.Assign("asserted", ref, generate, process.WithPreflight(func(context.Context) error {
		return assert.AnError
	}))
	require.ErrorIs(t, asserted.Preflight(t.Context()), assert.AnError)
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		result  any
		wantErr error
		wantInt bool
		wantStr bool
	}{
		"int target":    {result: 4, wantInt: true},
		"string target": {result: "four", wantStr: true},
		"side effect":   {result: nil},
		"unhandled":     {result: 4.0, wantErr: process.ErrUnhandledResult},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := process.NewReference(process.WithValue(true))
			ints := process.NewReference[int]()
			strs := process.NewReference[string]()
			step := process.Dispatch("dispatch", in, func(context.Context, bool) (any, error) {
				return tc.result, nil
			}, process.Route[int](ints), process.Route[string](strs))

			err := step.Do(t.Context())
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantInt, ints.HasValue())
			assert.Equal(t, tc.wantStr, strs.HasValue())
		})
	}
}

func TestNewStep(t *testing.T) {
	t.Parallel()

	ran := false
	step := process.NewStep("custom", func(context.Context) error {
		ran = true

		return nil
	}, func(context.Context) error {
		return assert.AnError
	})

	assert.Equal(t, "custom", process.StepName(step))
	require.NoError(t, step.Do(t.Context()))
	assert.True(t, ran)

	pre, ok := step.(process.Preflighter)
	require.True(t, ok)
	require.ErrorIs(t, pre.Preflight(t.Context()), assert.AnError)

	assert.Equal(t, "process.StepFunc", process.StepName(process.StepFunc(func(context.Context) error { return nil })))
}

func ptr[T any](v T) *T {
	return &v
}
