package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishcovery/api/internal/client"
	"github.com/dishcovery/api/internal/model"
)

// scriptedFetcher replays a fixed sequence of status responses; once the
// script runs out, the last step repeats.
type scriptedFetcher struct {
	steps []scriptStep
	calls int
}

type scriptStep struct {
	status *client.GenerationStatus
	err    error
}

func (f *scriptedFetcher) GetStatus(_ context.Context, _ string) (*client.GenerationStatus, error) {
	i := f.calls
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	f.calls++
	step := f.steps[i]
	return step.status, step.err
}

func running(progress int) scriptStep {
	return scriptStep{status: &client.GenerationStatus{Status: client.StatusRunning, Progress: progress}}
}

func completed(result *model.RecommendationResult) scriptStep {
	return scriptStep{status: &client.GenerationStatus{Status: client.StatusCompleted, Progress: 100, Result: result}}
}

func failed(reason string) scriptStep {
	return scriptStep{status: &client.GenerationStatus{Status: client.StatusFailed, Error: reason}}
}

func TestPhaseFor(t *testing.T) {
	assert.Equal(t, model.PhasePerception, PhaseFor(0))
	assert.Equal(t, model.PhasePerception, PhaseFor(33))
	assert.Equal(t, model.PhaseFiltering, PhaseFor(34))
	assert.Equal(t, model.PhaseFiltering, PhaseFor(66))
	assert.Equal(t, model.PhaseDecision, PhaseFor(67))
	assert.Equal(t, model.PhaseDecision, PhaseFor(100))
}

func TestPollOnce_ProgressAndPhaseNeverRegress(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []scriptStep{running(50), running(20)}}
	p := New(fetcher, Config{})

	update, err := p.PollOnce(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, 50, update.Progress)
	assert.Equal(t, model.PhaseFiltering, update.Phase)

	// An out-of-order response with lower progress changes nothing.
	update, err = p.PollOnce(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, 50, update.Progress)
	assert.Equal(t, model.PhaseFiltering, update.Phase)
}

func TestPollOnce_ReportsGuardedValuesToCallback(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []scriptStep{running(70), running(40)}}

	var progresses []int
	var phases []model.Phase
	p := New(fetcher, Config{
		OnProgress: func(progress int, phase model.Phase) {
			progresses = append(progresses, progress)
			phases = append(phases, phase)
		},
	})

	_, err := p.PollOnce(context.Background(), "job-1")
	require.NoError(t, err)
	_, err = p.PollOnce(context.Background(), "job-1")
	require.NoError(t, err)

	assert.Equal(t, []int{70, 70}, progresses)
	assert.Equal(t, []model.Phase{model.PhaseDecision, model.PhaseDecision}, phases)
}

func TestPollOnce_CompletionDeliveredExactlyOnce(t *testing.T) {
	result := &model.RecommendationResult{RecommendationID: "rec-1"}
	fetcher := &scriptedFetcher{steps: []scriptStep{completed(result)}}

	completions := 0
	p := New(fetcher, Config{
		OnComplete: func(*model.RecommendationResult) { completions++ },
	})

	update, err := p.PollOnce(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, update.Terminal)
	assert.Equal(t, client.StatusCompleted, update.Status)
	assert.Equal(t, 100, update.Progress)
	assert.Equal(t, model.PhaseDecision, update.Phase)
	assert.Same(t, result, update.Result)

	// A second poll does not fetch again and does not re-fire the callback.
	update, err = p.PollOnce(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, update.Terminal)
	assert.Equal(t, 1, completions)
	assert.Equal(t, 1, fetcher.calls)
	assert.True(t, p.Done())
}

func TestPollOnce_FailureUsesServerReason(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []scriptStep{failed("model refused the menu")}}

	var reason string
	p := New(fetcher, Config{OnFail: func(r string) { reason = r }})

	update, err := p.PollOnce(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, update.Terminal)
	assert.Equal(t, client.StatusFailed, update.Status)
	assert.Equal(t, "model refused the menu", update.Error)
	assert.Equal(t, "model refused the menu", reason)
}

func TestPollOnce_FailureWithoutReasonGetsDefault(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []scriptStep{failed("")}}
	p := New(fetcher, Config{})

	update, err := p.PollOnce(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "generation failed", update.Error)
}

func TestPollOnce_TransientErrorsAreRetryable(t *testing.T) {
	fetchErr := errors.New("connection reset")
	fetcher := &scriptedFetcher{steps: []scriptStep{
		{err: fetchErr},
		running(10),
	}}
	p := New(fetcher, Config{MaxConsecutiveFailures: 3})

	_, err := p.PollOnce(context.Background(), "job-1")
	assert.ErrorIs(t, err, fetchErr)
	assert.False(t, p.Done())

	// A successful fetch resets the failure counter.
	update, err := p.PollOnce(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, 10, update.Progress)
	assert.Equal(t, 0, p.failures)
}

func TestPollOnce_FailureBudgetEndsTheJob(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []scriptStep{{err: errors.New("boom")}}}

	failures := 0
	p := New(fetcher, Config{
		MaxConsecutiveFailures: 3,
		OnFail:                 func(string) { failures++ },
	})

	_, err := p.PollOnce(context.Background(), "job-1")
	assert.Error(t, err)
	_, err = p.PollOnce(context.Background(), "job-1")
	assert.Error(t, err)

	update, err := p.PollOnce(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, update.Terminal)
	assert.Equal(t, client.StatusFailed, update.Status)
	assert.Equal(t, 1, failures)
	assert.True(t, p.Done())
}

func TestRun_ReturnsResultOnCompletion(t *testing.T) {
	result := &model.RecommendationResult{RecommendationID: "rec-1"}
	fetcher := &scriptedFetcher{steps: []scriptStep{
		running(10),
		running(60),
		completed(result),
	}}

	var phases []model.Phase
	p := New(fetcher, Config{
		OnProgress: func(_ int, phase model.Phase) { phases = append(phases, phase) },
	})

	got, err := p.Run(context.Background(), "job-1", time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Same(t, result, got)
	assert.Equal(t, []model.Phase{model.PhasePerception, model.PhaseFiltering}, phases)
}

func TestRun_FailedJobWrapsSentinel(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []scriptStep{
		running(10),
		failed("kitchen closed"),
	}}
	p := New(fetcher, Config{})

	_, err := p.Run(context.Background(), "job-1", time.Millisecond, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.Contains(t, err.Error(), "kitchen closed")
}

func TestRun_CancellationStopsSilently(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []scriptStep{running(10)}}

	terminal := 0
	p := New(fetcher, Config{
		OnComplete: func(*model.RecommendationResult) { terminal++ },
		OnFail:     func(string) { terminal++ },
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, "job-1", time.Millisecond, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, terminal)
}

func TestRun_TimesOut(t *testing.T) {
	fetcher := &scriptedFetcher{steps: []scriptStep{running(10)}}

	var reason string
	p := New(fetcher, Config{OnFail: func(r string) { reason = r }})

	_, err := p.Run(context.Background(), "job-1", time.Millisecond, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.NotEmpty(t, reason)
}
