package poller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dishcovery/api/internal/client"
	"github.com/dishcovery/api/internal/model"
)

// ErrJobFailed wraps the server-supplied failure reason of a terminal job.
var ErrJobFailed = errors.New("generation job failed")

// StatusFetcher is the one remote call the poller needs.
type StatusFetcher interface {
	GetStatus(ctx context.Context, jobID string) (*client.GenerationStatus, error)
}

// Update is one observation after the monotonicity guards are applied.
type Update struct {
	Status   string
	Progress int
	Phase    model.Phase
	Result   *model.RecommendationResult
	Error    string
	Terminal bool
}

// Config tunes a GenerationPoller.
type Config struct {
	// OnProgress fires on every non-terminal observation with guarded values.
	OnProgress func(progress int, phase model.Phase)
	// OnComplete and OnFail each fire at most once per poller.
	OnComplete func(result *model.RecommendationResult)
	OnFail     func(reason string)
	// MaxConsecutiveFailures ends the poll loop locally after this many
	// back-to-back fetch errors. Zero means retry forever.
	MaxConsecutiveFailures int
}

// GenerationPoller drives one generation job from pending to a terminal
// state. Poll responses may arrive out of order, so progress and phase only
// ever move forward, and the terminal callbacks are delivered exactly once.
// Not safe for concurrent use; each job gets its own poller.
type GenerationPoller struct {
	fetcher StatusFetcher
	cfg     Config

	maxProgress int
	phase       model.Phase
	failures    int
	resolved    bool
	result      *model.RecommendationResult
	failReason  string
}

// New creates a poller for a single generation job.
func New(fetcher StatusFetcher, cfg Config) *GenerationPoller {
	return &GenerationPoller{fetcher: fetcher, cfg: cfg}
}

// PhaseFor maps raw backend progress to the coarse UI phase.
func PhaseFor(progress int) model.Phase {
	switch {
	case progress >= 67:
		return model.PhaseDecision
	case progress >= 34:
		return model.PhaseFiltering
	default:
		return model.PhasePerception
	}
}

// Done reports whether a terminal status has been observed.
func (p *GenerationPoller) Done() bool {
	return p.resolved
}

// PollOnce performs a single status check. Fetch errors are returned to the
// caller but counted as transient: the loop retries until the failure budget
// (if any) runs out. After a terminal status, further calls are no-ops.
func (p *GenerationPoller) PollOnce(ctx context.Context, jobID string) (*Update, error) {
	if p.resolved {
		return p.terminalUpdate(), nil
	}

	status, err := p.fetcher.GetStatus(ctx, jobID)
	if err != nil {
		p.failures++
		if p.cfg.MaxConsecutiveFailures > 0 && p.failures >= p.cfg.MaxConsecutiveFailures {
			p.fail(fmt.Sprintf("status polling gave up after %d failures: %v", p.failures, err))
			return p.terminalUpdate(), nil
		}
		return nil, err
	}
	p.failures = 0

	// Guard against reordered responses: progress and phase are high-water
	// marks, never current values.
	if status.Progress > p.maxProgress {
		p.maxProgress = status.Progress
	}
	observed := PhaseFor(p.maxProgress)
	if model.PhaseRank(observed) > model.PhaseRank(p.phase) {
		p.phase = observed
	}

	switch status.Status {
	case client.StatusCompleted:
		p.maxProgress = 100
		p.phase = model.PhaseDecision
		p.complete(status.Result)
		return p.terminalUpdate(), nil
	case client.StatusFailed:
		reason := status.Error
		if reason == "" {
			reason = "generation failed"
		}
		p.fail(reason)
		return p.terminalUpdate(), nil
	}

	if p.cfg.OnProgress != nil {
		p.cfg.OnProgress(p.maxProgress, p.phase)
	}

	return &Update{
		Status:   status.Status,
		Progress: p.maxProgress,
		Phase:    p.phase,
	}, nil
}

// Run polls on a fixed interval until the job reaches a terminal state, the
// wait budget is spent, or ctx is cancelled. Cancellation stops the loop
// silently: no terminal callback fires for discarded state.
func (p *GenerationPoller) Run(ctx context.Context, jobID string, interval, maxWait time.Duration) (*model.RecommendationResult, error) {
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		update, err := p.PollOnce(ctx, jobID)
		if err != nil {
			log.Printf("[Poller] job=%s transient poll error: %v", jobID, err)
		} else if update.Terminal {
			if update.Result != nil {
				return update.Result, nil
			}
			return nil, fmt.Errorf("%w: %s", ErrJobFailed, update.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	p.fail(fmt.Sprintf("generation timed out after %v", maxWait))
	return nil, fmt.Errorf("%w: timed out after %v", ErrJobFailed, maxWait)
}

func (p *GenerationPoller) complete(result *model.RecommendationResult) {
	if p.resolved {
		return
	}
	p.resolved = true
	p.result = result
	if p.cfg.OnComplete != nil {
		p.cfg.OnComplete(result)
	}
}

func (p *GenerationPoller) fail(reason string) {
	if p.resolved {
		return
	}
	p.resolved = true
	p.failReason = reason
	if p.cfg.OnFail != nil {
		p.cfg.OnFail(reason)
	}
}

func (p *GenerationPoller) terminalUpdate() *Update {
	u := &Update{
		Progress: p.maxProgress,
		Phase:    p.phase,
		Terminal: true,
	}
	if p.result != nil {
		u.Status = client.StatusCompleted
		u.Result = p.result
	} else {
		u.Status = client.StatusFailed
		u.Error = p.failReason
	}
	return u
}
