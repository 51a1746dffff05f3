package model

import "time"

// RecommendStartRequest starts a generation job
type RecommendStartRequest struct {
	RestaurantID   string      `json:"restaurantId" validate:"required"`
	RestaurantName string      `json:"restaurantName,omitempty"`
	PartySize      int         `json:"partySize" validate:"required,min=1,max=50"`
	DiningStyle    DiningStyle `json:"diningStyle" validate:"required,oneof=casual family_style sharing tasting business"`
	Preferences    []string    `json:"preferences,omitempty" validate:"max=10,dive,min=1"`
	Occasion       string      `json:"occasion,omitempty"`
	BudgetPerHead  *float64    `json:"budgetPerHead,omitempty" validate:"omitempty,gt=0"`
}

// RecommendStartResponse is returned when a job is queued
type RecommendStartResponse struct {
	JobID             string    `json:"jobId"`
	Status            JobStatus `json:"status"`
	EstimatedDuration int       `json:"estimatedDuration"` // seconds
	CreatedAt         time.Time `json:"createdAt"`
}

// RecommendStatusResponse reports job progress
type RecommendStatusResponse struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Phase       Phase      `json:"phase,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
}

// RecommendResultResponse wraps the completed recommendation with the
// session created from it.
type RecommendResultResponse struct {
	SessionID string               `json:"sessionId"`
	Result    RecommendationResult `json:"result"`
}

// RecommendCancelResponse acknowledges a cancellation
type RecommendCancelResponse struct {
	Success bool      `json:"success"`
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
}

// ToggleRequest flips a dish between pending and selected
type ToggleRequest struct {
	DishName string `json:"dishName" validate:"required"`
}

// AddOnRequest asks for extra dishes in a category
type AddOnRequest struct {
	Category string `json:"category" validate:"required"`
	Count    int    `json:"count" validate:"required,min=1,max=5"`
}

// SlotView is the wire representation of one slot
type SlotView struct {
	SlotID           string          `json:"slotId"`
	Category         string          `json:"category"`
	Display          MenuItem        `json:"display"`
	Status           SelectionStatus `json:"status"`
	AlternativeCount int             `json:"alternativeCount"`
	Swapping         bool            `json:"swapping"`
}

// CategoryGroupView groups slots for display
type CategoryGroupView struct {
	Category string     `json:"category"`
	Slots    []SlotView `json:"slots"`
}

// SessionView is the full session as seen by the UI
type SessionView struct {
	SessionID        string              `json:"sessionId"`
	RecommendationID string              `json:"recommendationId"`
	RestaurantName   string              `json:"restaurantName"`
	CuisineType      CuisineType         `json:"cuisineType"`
	Currency         string              `json:"currency"`
	PartySize        int                 `json:"partySize"`
	Categories       []CategoryGroupView `json:"categories"`
	Finalized        bool                `json:"finalized"`
}

// SwapResponse reports the outcome of a swap. Exactly one of Slot or
// Exhausted is set: a successful swap returns the refreshed slot, an
// exhausted pool returns the recovery choices instead.
type SwapResponse struct {
	Swapped   bool           `json:"swapped"`
	Slot      *SlotView      `json:"slot,omitempty"`
	Exhausted *ExhaustedView `json:"exhausted,omitempty"`
}

// ExhaustedView names the slot whose candidate pool ran dry and the
// recovery options available to the caller.
type ExhaustedView struct {
	SlotID     string `json:"slotId"`
	Category   string `json:"category"`
	CanRestore bool   `json:"canRestore"` // swapped-away history exists for this category
}

// TotalsResponse carries the derived pricing aggregates
type TotalsResponse struct {
	SelectedTotal float64 `json:"selectedTotal"`
	PerPerson     float64 `json:"perPerson"`
	SelectedCount int     `json:"selectedCount"`
	Currency      string  `json:"currency"`
	BudgetWarning string  `json:"budgetWarning,omitempty"`
}
