package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/geo-reverse-search/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRunner struct {
	mu      sync.Mutex
	results []error
	calls   int
	ran     chan struct{}
}

func newScriptedRunner(results ...error) *scriptedRunner {
	return &scriptedRunner{results: results, ran: make(chan struct{}, 16)}
}

func (r *scriptedRunner) Run(ctx context.Context) (pipeline.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.calls < len(r.results) {
		err = r.results[r.calls]
	}
	r.calls++
	r.ran <- struct{}{}
	if _, ok := ctx.Deadline(); !ok {
		return pipeline.Summary{}, errors.New("run context has no deadline")
	}
	return pipeline.Summary{}, err
}

func (r *scriptedRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func waitForRun(t *testing.T, r *scriptedRunner) {
	t.Helper()
	select {
	case <-r.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for run")
	}
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	fc := clockwork.NewFakeClock()
	runner := newScriptedRunner()
	s := pipeline.NewScheduler(runner, time.Minute, 10*time.Second, discardLogger(), fc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	waitForRun(t, runner)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, fc.BlockUntilContext(waitCtx, 1))
	require.NoError(t, s.CheckReadiness(ctx))
	fc.Advance(time.Minute)
	waitForRun(t, runner)

	cancel()
	require.NoError(t, <-errCh)
	assert.Equal(t, 2, runner.callCount())
}

func TestScheduler_BacksOffAfterFailedRun(t *testing.T) {
	fc := clockwork.NewFakeClock()
	runner := newScriptedRunner(errors.New("fetch failed"), errors.New("fetch failed"))
	s := pipeline.NewScheduler(runner, time.Minute, 10*time.Second, discardLogger(), fc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()

	// First failure waits 200ms, second waits 400ms.
	waitForRun(t, runner)
	require.Error(t, s.CheckReadiness(ctx))
	require.NoError(t, fc.BlockUntilContext(waitCtx, 1))
	fc.Advance(200 * time.Millisecond)

	waitForRun(t, runner)
	require.NoError(t, fc.BlockUntilContext(waitCtx, 1))
	fc.Advance(200 * time.Millisecond)
	select {
	case <-runner.ran:
		t.Fatal("second backoff should be 400ms")
	case <-time.After(50 * time.Millisecond):
	}
	fc.Advance(200 * time.Millisecond)

	waitForRun(t, runner)
	require.NoError(t, fc.BlockUntilContext(waitCtx, 1))
	require.NoError(t, s.CheckReadiness(ctx))

	cancel()
	require.NoError(t, <-errCh)
}

func TestScheduler_StopsWhenCancelled(t *testing.T) {
	runner := newScriptedRunner()
	s := pipeline.NewScheduler(runner, time.Minute, time.Second, discardLogger(), clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 0, runner.callCount())
}
