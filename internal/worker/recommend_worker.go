package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dishcovery/api/internal/client"
	"github.com/dishcovery/api/internal/model"
	"github.com/dishcovery/api/internal/poller"
	"github.com/dishcovery/api/internal/service"
	"github.com/dishcovery/api/internal/websocket"
)

// RecommendWorker drives generation jobs to completion
type RecommendWorker struct {
	recommendService *service.RecommendService
	sessionService   *service.SessionService
	recommender      client.Recommender
	hub              *websocket.Hub
	pollInterval     time.Duration
	pollMaxWait      time.Duration
}

// NewRecommendWorker creates a new recommendation worker
func NewRecommendWorker(
	recommendService *service.RecommendService,
	sessionService *service.SessionService,
	recommender client.Recommender,
	hub *websocket.Hub,
	pollInterval, pollMaxWait time.Duration,
) *RecommendWorker {
	return &RecommendWorker{
		recommendService: recommendService,
		sessionService:   sessionService,
		recommender:      recommender,
		hub:              hub,
		pollInterval:     pollInterval,
		pollMaxWait:      pollMaxWait,
	}
}

// ProcessTask handles one generation task
func (w *RecommendWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log.Printf("Starting recommendation job: %s", jobID)

	var payload model.RecommendJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal recommend payload: %w", err)
	}

	// Submit to the remote service
	w.updateProgress(ctx, jobID, 0, model.PhasePerception)
	genReq := &client.GenerateRequest{
		RestaurantID:   payload.RestaurantID,
		RestaurantName: payload.RestaurantName,
		PartySize:      payload.PartySize,
		DiningStyle:    string(payload.DiningStyle),
		Preferences:    payload.Preferences,
		Occasion:       payload.Occasion,
	}

	genResp, err := w.recommender.Generate(ctx, genReq)
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("Generation request failed: %v", err))
		return err
	}

	// Drive the remote job to a terminal state
	p := poller.New(w.recommender, poller.Config{
		OnProgress: func(progress int, phase model.Phase) {
			if w.recommendService.IsCanceled(ctx, jobID) {
				return
			}
			w.updateProgress(ctx, jobID, progress, phase)
		},
		MaxConsecutiveFailures: 10,
	})

	result, err := p.Run(ctx, genResp.JobID, w.pollInterval, w.pollMaxWait)
	if err != nil {
		if ctx.Err() != nil {
			// Task canceled; the job record was already marked by Cancel.
			log.Printf("Recommendation job %s canceled", jobID)
			return ctx.Err()
		}
		reason := err.Error()
		if errors.Is(err, poller.ErrJobFailed) {
			reason = failReason(err)
		}
		w.failJob(ctx, jobID, reason)
		return err
	}

	// A canceled job discards its result.
	if w.recommendService.IsCanceled(ctx, jobID) {
		log.Printf("Recommendation job %s canceled, discarding result", jobID)
		return nil
	}

	// Seed the editable session from the immutable result
	sess, err := w.sessionService.CreateFromResult(ctx, result, &payload)
	if err != nil {
		w.failJob(ctx, jobID, "Failed to create session")
		return err
	}

	jobResult := &model.RecommendResultResponse{
		SessionID: sess.ID,
		Result:    *result,
	}
	if err := w.recommendService.CompleteJob(ctx, jobID, jobResult); err != nil {
		w.failJob(ctx, jobID, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(jobID, sess.ID, result.CategorySummary)
	log.Printf("Recommendation job %s completed (session %s)", jobID, sess.ID)
	return nil
}

func (w *RecommendWorker) updateProgress(ctx context.Context, jobID string, progress int, phase model.Phase) {
	if err := w.recommendService.UpdateJobProgress(ctx, jobID, progress, phase); err != nil {
		log.Printf("Failed to update progress: %v", err)
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusRunning, phase)
}

func (w *RecommendWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.recommendService.FailJob(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job as failed: %v", err)
	}
	w.hub.BroadcastError(jobID, "JOB_FAILED", errMsg)
}

// failReason strips the ErrJobFailed prefix, leaving the server's reason.
func failReason(err error) string {
	msg := err.Error()
	prefix := poller.ErrJobFailed.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
