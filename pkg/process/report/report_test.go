package report_test

import (
	"context"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-process/pkg/process"
	"github.com/askiada/go-process/pkg/process/report"
)

type stepsBuilder []process.Step

func (b stepsBuilder) InitReferences(struct{}) (struct{}, error) { return struct{}{}, nil }

func (b stepsBuilder) InitClients(struct{}) (struct{}, error) { return struct{}{}, nil }

func (b stepsBuilder) InitSteps(struct{}, struct{}, struct{}) ([]process.Step, error) { return b, nil }

type eventRecorder struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (r *eventRecorder) beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)

	return nil
}

func newHub(t *testing.T, recorder *eventRecorder) *sentry.Hub {
	t.Helper()

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:        "https://public@example.com/1",
		BeforeSend: recorder.beforeSend,
	})
	require.NoError(t, err)

	return sentry.NewHub(client, sentry.NewScope())
}

func TestPipelineReporter(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		stepErr    error
		wantEvents int
	}{
		"success":      {wantEvents: 0},
		"failure":      {stepErr: assert.AnError, wantEvents: 1},
		"early escape": {stepErr: process.ErrNoChanges, wantEvents: 0},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			recorder := &eventRecorder{}
			hub := newHub(t, recorder)
			p, err := process.New[struct{}, struct{}, struct{}](t.Context(), struct{}{}, process.NewRunMetadata("test", "1"),
				stepsBuilder{
					process.NewStep("ok", func(context.Context) error { return nil }),
					process.NewStep("maybe", func(context.Context) error { return tc.stepErr }),
				},
				process.WithCallback(process.NopCallback),
				process.WithHooks(report.PipelineReporter(hub, "reported", report.Tags(map[string]string{"env": "test"}))),
			)
			require.NoError(t, err)

			err = p.Execute(t.Context())
			if tc.wantEvents > 0 {
				require.ErrorIs(t, err, tc.stepErr)
			} else {
				require.NoError(t, err)
			}

			require.Len(t, recorder.events, tc.wantEvents)
			if tc.wantEvents == 0 {
				return
			}
			event := recorder.events[0]
			assert.Equal(t, "reported", event.Tags["pipeline"])
			assert.Equal(t, "maybe", event.Tags["step"])
			assert.Equal(t, "test", event.Tags["env"])
			require.NotEmpty(t, event.Exception)
			assert.Equal(t, assert.AnError.Error(), event.Exception[len(event.Exception)-1].Value)
			require.Len(t, event.Breadcrumbs, 2)
			assert.Equal(t, "maybe", event.Breadcrumbs[1].Message)
		})
	}
}
