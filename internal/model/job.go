package model

import "time"

// Job represents a background recommendation-generation job
type Job struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Phase       Phase      `json:"phase,omitempty"`
	Error       *string    `json:"error,omitempty"`
	Payload     []byte     `json:"payload,omitempty"` // stored as JSON, never returned over the API
	Result      []byte     `json:"result,omitempty"`  // stored as JSON, never returned over the API
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
}

// Job types
const (
	JobTypeRecommend = "recommend"
)

// RecommendJobPayload contains the data for a recommendation job
type RecommendJobPayload struct {
	RestaurantID   string      `json:"restaurantId"`
	RestaurantName string      `json:"restaurantName,omitempty"`
	PartySize      int         `json:"partySize"`
	DiningStyle    DiningStyle `json:"diningStyle"`
	Preferences    []string    `json:"preferences,omitempty"`
	Occasion       string      `json:"occasion,omitempty"`
	BudgetPerHead  *float64    `json:"budgetPerHead,omitempty"`
}
