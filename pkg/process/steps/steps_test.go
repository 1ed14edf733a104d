package steps_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/askiada/go-process/pkg/frame"
	"github.com/askiada/go-process/pkg/process"
	"github.com/askiada/go-process/pkg/process/steps"
)

func TestAppend(t *testing.T) {
	t.Parallel()

	subject := process.NewReference[string]()
	list := process.NewReference[[]string]()
	step := steps.Append("append", subject, list)

	require.NoError(t, step.Do(t.Context()))
	assert.False(t, list.HasValue())

	require.NoError(t, subject.Set("a"))
	require.NoError(t, step.Do(t.Context()))
	require.NoError(t, subject.Set("b"))
	require.NoError(t, step.Do(t.Context()))

	got, err := list.Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestAssertAnyChanges(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		changes    *process.Reference[[]any]
		wantEscape bool
		wantErr    error
	}{
		"changes":    {changes: process.NewReference(process.WithValue([]any{1}))},
		"no changes": {changes: process.NewReference(process.WithValue([]any{})), wantEscape: true},
		"absent":     {changes: process.NewReference[[]any](), wantErr: process.ErrMissingValue},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := steps.AssertAnyChanges("assert", tc.changes).Do(t.Context())
			switch {
			case tc.wantEscape:
				assert.True(t, process.IsEarlyEscape(err))
				require.ErrorIs(t, err, process.ErrNoChanges)
			case tc.wantErr != nil:
				require.ErrorIs(t, err, tc.wantErr)
				assert.False(t, process.IsEarlyEscape(err))
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestConcatenate(t *testing.T) {
	t.Parallel()

	first, err := frame.TableOf([]string{"a"}, map[string][]any{"a": {1, 2}})
	require.NoError(t, err)
	second, err := frame.TableOf([]string{"a"}, map[string][]any{"a": {3}})
	require.NoError(t, err)
	out := process.NewReference[*frame.Table]()

	step := steps.Concatenate("concat", out, []process.Source[*frame.Table]{
		process.NewReference(process.WithValue(first)),
		process.NewReference(process.WithValue(second)),
	})
	require.NoError(t, step.Do(t.Context()))

	tbl, err := out.Get()
	require.NoError(t, err)
	col, err := tbl.Column("a")
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, col.Values)

	absent := steps.Concatenate("concat", out, []process.Source[*frame.Table]{process.NewReference[*frame.Table]()})
	require.ErrorIs(t, absent.Do(t.Context()), process.ErrMissingValue)
}

func TestCompareSets(t *testing.T) {
	t.Parallel()

	a := process.NewReference(process.WithValue([]string{"x", "y", "x", "z"}))
	b := process.NewReference(process.WithValue([]string{"y"}))
	out := process.NewReference[[]string]()

	require.NoError(t, steps.CompareSets("compare", out, a, b).Do(t.Context()))
	got, err := out.Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "z"}, got)
}

func TestLog(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	tbl, err := frame.TableOf([]string{"a"}, map[string][]any{"a": {1, 2, 3, 4, 5, 6}})
	require.NoError(t, err)
	table := process.NewReference(process.WithValue(tbl))

	require.NoError(t, steps.Log("log table", table, steps.LogLogger(zap.New(core)), steps.LogLevel(zapcore.DebugLevel)).Do(t.Context()))
	require.NoError(t, steps.Log("log int", process.NewReference(process.WithValue(3)), steps.LogLogger(zap.New(core))).Do(t.Context()))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(6), fields["index_len"])
	assert.Equal(t, []any{0, 1, 2, 3, 4}, fields["index_head"])
	assert.Equal(t, "Reference[int](3)", entries[1].ContextMap()["reference"])
	assert.NotContains(t, entries[1].ContextMap(), "index_len")
}

func TestLogBelowLevel(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	step := steps.Log("quiet", process.NewReference(process.WithValue(3)), steps.LogLogger(zap.New(core)))
	require.NoError(t, step.Do(t.Context()))
	assert.Equal(t, 0, logs.Len())
}
