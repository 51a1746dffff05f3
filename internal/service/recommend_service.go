package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/dishcovery/api/internal/model"
)

const (
	TaskTypeRecommend = "recommend:process"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobNotCompleted   = errors.New("job not completed")
	ErrJobAlreadyDone    = errors.New("job already completed")
	ErrMissingRestaurant = errors.New("restaurant identifier is required")
)

// RecommendService manages generation jobs
type RecommendService struct {
	redis       *redis.Client
	asynqClient *asynq.Client
}

func NewRecommendService(redisClient *redis.Client, asynqClient *asynq.Client) *RecommendService {
	return &RecommendService{
		redis:       redisClient,
		asynqClient: asynqClient,
	}
}

// StartGeneration queues a new recommendation job. The restaurant identifier
// is checked before anything touches the network or the queue.
func (s *RecommendService) StartGeneration(ctx context.Context, req *model.RecommendStartRequest) (*model.RecommendStartResponse, error) {
	if strings.TrimSpace(req.RestaurantID) == "" {
		return nil, ErrMissingRestaurant
	}

	jobID := uuid.New().String()
	now := time.Now()

	job := &model.Job{
		ID:        jobID,
		Type:      model.JobTypeRecommend,
		Status:    model.JobStatusQueued,
		Progress:  0,
		CreatedAt: now,
	}

	payload := &model.RecommendJobPayload{
		RestaurantID:   req.RestaurantID,
		RestaurantName: req.RestaurantName,
		PartySize:      req.PartySize,
		DiningStyle:    req.DiningStyle,
		Preferences:    req.Preferences,
		Occasion:       req.Occasion,
		BudgetPerHead:  req.BudgetPerHead,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job.Payload = payloadBytes

	if err := s.saveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newRecommendTask(jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("recommend"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.RecommendStartResponse{
		JobID:             jobID,
		Status:            model.JobStatusQueued,
		EstimatedDuration: 20, // seconds; the mock completes in a few polls
		CreatedAt:         now,
	}, nil
}

// GetStatus returns the current status of a generation job
func (s *RecommendService) GetStatus(ctx context.Context, jobID string) (*model.RecommendStatusResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.RecommendStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		Phase:       job.Phase,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		RetryCount:  job.RetryCount,
	}, nil
}

// GetResult returns the result of a completed generation job
func (s *RecommendService) GetResult(ctx context.Context, jobID string) (*model.RecommendResultResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusSucceeded {
		return nil, ErrJobNotCompleted
	}

	var result model.RecommendResultResponse
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	return &result, nil
}

// Cancel cancels a queued or running generation job
func (s *RecommendService) Cancel(ctx context.Context, jobID string) (*model.RecommendCancelResponse, error) {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status == model.JobStatusSucceeded || job.Status == model.JobStatusFailed {
		return nil, ErrJobAlreadyDone
	}

	job.Status = model.JobStatusCanceled
	now := time.Now()
	job.CompletedAt = &now

	if err := s.saveJob(ctx, job); err != nil {
		return nil, err
	}

	return &model.RecommendCancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusCanceled,
	}, nil
}

// UpdateJobProgress updates job progress and phase (called by worker)
func (s *RecommendService) UpdateJobProgress(ctx context.Context, jobID string, progress int, phase model.Phase) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Progress = progress
	job.Phase = phase

	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusRunning
		now := time.Now()
		job.StartedAt = &now
	}

	return s.saveJob(ctx, job)
}

// CompleteJob marks a job as completed (called by worker)
func (s *RecommendService) CompleteJob(ctx context.Context, jobID string, result interface{}) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusSucceeded
	job.Progress = 100
	job.Phase = model.PhaseDecision
	job.Result = resultBytes
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// FailJob marks a job as failed (called by worker)
func (s *RecommendService) FailJob(ctx context.Context, jobID string, errMsg string) error {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	job.Status = model.JobStatusFailed
	job.Error = &errMsg
	now := time.Now()
	job.CompletedAt = &now

	return s.saveJob(ctx, job)
}

// IsCanceled reports whether the job was canceled by the caller. Workers
// check this between poll ticks so a discarded job stops quietly.
func (s *RecommendService) IsCanceled(ctx context.Context, jobID string) bool {
	job, err := s.getJob(ctx, jobID)
	if err != nil {
		return false
	}
	return job.Status == model.JobStatusCanceled
}

// Helper methods

func (s *RecommendService) saveJob(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("job:%s", job.ID), data, 24*time.Hour).Err()
}

func (s *RecommendService) getJob(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("job:%s", jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}

	return &job, nil
}

func newRecommendTask(jobID string, payload []byte) (*asynq.Task, error) {
	// The payload is already JSON; embed it as-is so the worker can decode
	// it directly. A plain []byte would serialize as a base64 string.
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": json.RawMessage(payload),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRecommend, data), nil
}
