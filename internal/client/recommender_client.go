package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/dishcovery/api/internal/config"
	"github.com/dishcovery/api/internal/model"
)

// Recommender defines the interface for the remote recommendation service
type Recommender interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
	GetStatus(ctx context.Context, jobID string) (*GenerationStatus, error)
	Alternatives(ctx context.Context, recommendationID, category string, excludeDishNames []string) ([]model.MenuItem, error)
	AddOn(ctx context.Context, recommendationID, category string, count int) ([]model.MenuItem, error)
	Finalize(ctx context.Context, payload *FinalizePayload) error
}

// RecommenderClient implements Recommender against the HTTP API
type RecommenderClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// GenerateRequest represents the request for recommendation generation
type GenerateRequest struct {
	RestaurantID   string   `json:"restaurant_id"`
	RestaurantName string   `json:"restaurant_name,omitempty"`
	PartySize      int      `json:"party_size"`
	DiningStyle    string   `json:"dining_style"`
	Preferences    []string `json:"preferences,omitempty"`
	Occasion       string   `json:"occasion,omitempty"`
}

// GenerateResponse represents the response from generation submission
type GenerateResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// GenerationStatus is one job-status observation. A remote 404 ("job
// unknown") is mapped to StatusPending by GetStatus, never surfaced as an
// error.
type GenerationStatus struct {
	Status   string                      `json:"status"`
	Progress int                         `json:"progress"`
	Result   *model.RecommendationResult `json:"result,omitempty"`
	Error    string                      `json:"error,omitempty"`
}

// Remote job statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// FinalizePayload is the advisory telemetry sent on finalization
type FinalizePayload struct {
	RecommendationID string           `json:"recommendation_id"`
	Selections       []model.MenuItem `json:"selections"`
	TotalPrice       float64          `json:"total_price"`
	PartySize        int              `json:"party_size"`
	DiningStyle      string           `json:"dining_style,omitempty"`
}

type alternativesRequest struct {
	Category         string   `json:"category"`
	ExcludeDishNames []string `json:"exclude_dish_names"`
}

type alternativesResponse struct {
	Dishes []model.MenuItem `json:"dishes"`
}

type addOnRequest struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type addOnResponse struct {
	NewDishes []model.MenuItem `json:"new_dishes"`
}

// APIError carries the remote status code so callers can distinguish
// "job unknown" from a real failure.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("recommender API error (status %d): %s", e.StatusCode, e.Body)
}

// NewRecommenderClient creates a new recommendation API client
func NewRecommenderClient(cfg *config.RecommenderConfig) *RecommenderClient {
	return &RecommenderClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// Generate submits a recommendation generation request
func (c *RecommenderClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	var result GenerateResponse
	if err := c.post(ctx, "/v1/recommendations/generate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetStatus retrieves the status of a generation job. A 404 means the job
// is not yet registered on the remote side and is reported as pending.
func (c *RecommenderClient) GetStatus(ctx context.Context, jobID string) (*GenerationStatus, error) {
	endpoint := fmt.Sprintf("/v1/recommendations/status/%s", jobID)
	var result GenerationStatus
	if err := c.get(ctx, endpoint, &result); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return &GenerationStatus{Status: StatusPending}, nil
		}
		return nil, err
	}
	return &result, nil
}

// Alternatives fetches more candidate dishes for a category. An empty slice
// is a valid response meaning the pool is exhausted.
func (c *RecommenderClient) Alternatives(ctx context.Context, recommendationID, category string, excludeDishNames []string) ([]model.MenuItem, error) {
	endpoint := fmt.Sprintf("/v1/recommendations/%s/alternatives", recommendationID)
	req := alternativesRequest{Category: category, ExcludeDishNames: excludeDishNames}
	var result alternativesResponse
	if err := c.post(ctx, endpoint, req, &result); err != nil {
		return nil, err
	}
	return result.Dishes, nil
}

// AddOn requests additional dishes in a category
func (c *RecommenderClient) AddOn(ctx context.Context, recommendationID, category string, count int) ([]model.MenuItem, error) {
	endpoint := fmt.Sprintf("/v1/recommendations/%s/addon", recommendationID)
	req := addOnRequest{Category: category, Count: count}
	var result addOnResponse
	if err := c.post(ctx, endpoint, req, &result); err != nil {
		return nil, err
	}
	return result.NewDishes, nil
}

// Finalize reports the finalized selection. Callers treat this as advisory
// and never block checkout on its failure.
func (c *RecommenderClient) Finalize(ctx context.Context, payload *FinalizePayload) error {
	endpoint := fmt.Sprintf("/v1/recommendations/%s/finalize", payload.RecommendationID)
	var ack struct {
		Acknowledged bool `json:"acknowledged"`
	}
	return c.post(ctx, endpoint, payload, &ack)
}

// post sends a POST request with JSON body
func (c *RecommenderClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *RecommenderClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *RecommenderClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[Recommender API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Recommender API] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Recommender API] ✗ %s %s — failed to read response: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Recommender API] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		log.Printf("[Recommender API] ✗ unmarshal error for %s %s: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *RecommenderClient) IsConfigured() bool {
	return c.apiKey != ""
}
