package client

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/dishcovery/api/internal/model"
)

// Mock dish pool, ordered so repeated runs produce identical sessions.
var mockMenu = map[string][]model.MenuItem{
	"Appetizer": {
		{DishName: "Spring Rolls", Price: 120, Quantity: 1, Category: "Appetizer", Reason: "Crispy house favorite"},
		{DishName: "Fried Wontons", Price: 140, Quantity: 1, Category: "Appetizer", Reason: "Most ordered starter"},
		{DishName: "Salt and Pepper Tofu", Price: 150, Quantity: 1, Category: "Appetizer", Reason: "Popular vegetarian pick"},
		{DishName: "Chicken Satay", Price: 160, Quantity: 1, Category: "Appetizer", Reason: "Grilled over charcoal"},
	},
	"Soup": {
		{DishName: "Hot and Sour Soup", Price: 180, Quantity: 1, Category: "Soup", Reason: "Signature of the house"},
		{DishName: "Corn Soup", Price: 160, Quantity: 1, Category: "Soup", Reason: "Mild choice for sharing"},
		{DishName: "Wonton Soup", Price: 190, Quantity: 1, Category: "Soup", Reason: "Handmade wontons"},
	},
	"Main Course": {
		{DishName: "Kung Pao Chicken", Price: 280, Quantity: 1, Category: "Main Course", Reason: "Best reviewed main"},
		{DishName: "Sweet and Sour Pork", Price: 260, Quantity: 1, Category: "Main Course", Reason: "Crowd pleaser"},
		{DishName: "Mapo Tofu", Price: 220, Quantity: 1, Category: "Main Course", Reason: "Spicy Sichuan classic"},
		{DishName: "Steamed Sea Bass", Price: 420, Quantity: 1, Category: "Main Course", Reason: "Fresh daily", PriceEstimated: true},
		{DishName: "Braised Eggplant", Price: 200, Quantity: 1, Category: "Main Course", Reason: "Vegetarian favorite"},
	},
	"Rice & Noodles": {
		{DishName: "Yangzhou Fried Rice", Price: 180, Quantity: 1, Category: "Rice & Noodles", Reason: "Pairs with any main"},
		{DishName: "Beef Chow Fun", Price: 220, Quantity: 1, Category: "Rice & Noodles", Reason: "Wok-charred noodles"},
		{DishName: "Dan Dan Noodles", Price: 190, Quantity: 1, Category: "Rice & Noodles", Reason: "For spice lovers"},
	},
	"Dessert": {
		{DishName: "Mango Pudding", Price: 110, Quantity: 1, Category: "Dessert", Reason: "Light finish"},
		{DishName: "Fried Sesame Balls", Price: 120, Quantity: 1, Category: "Dessert", Reason: "Warm and sweet"},
	},
}

// mockCategories fixes iteration order over mockMenu.
var mockCategories = []string{"Appetizer", "Soup", "Main Course", "Rice & Noodles", "Dessert"}

// mockPollsToComplete controls how many status polls a mock job takes.
const mockPollsToComplete = 4

type mockJob struct {
	req    *GenerateRequest
	polls  int
	result *model.RecommendationResult
}

// MockRecommender is an in-memory Recommender used when no API key is
// configured. Generation advances one step per status poll and every
// recommendation draws from the same fixed menu, so sessions are
// reproducible in development and tests.
type MockRecommender struct {
	mu     sync.Mutex
	jobs   map[string]*mockJob
	issued map[string]map[string]bool // recommendationID → dishName
}

// NewMockRecommender creates a mock recommendation service
func NewMockRecommender() *MockRecommender {
	return &MockRecommender{
		jobs:   make(map[string]*mockJob),
		issued: make(map[string]map[string]bool),
	}
}

// Generate registers a mock generation job
func (m *MockRecommender) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if req.RestaurantID == "" {
		return nil, fmt.Errorf("restaurant_id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	jobID := uuid.New().String()
	m.jobs[jobID] = &mockJob{req: req}
	return &GenerateResponse{JobID: jobID, Status: StatusPending}, nil
}

// GetStatus advances the mock job by one step per call
func (m *MockRecommender) GetStatus(ctx context.Context, jobID string) (*GenerationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		// Same contract as the HTTP client: unknown job reads as pending.
		return &GenerationStatus{Status: StatusPending}, nil
	}

	if job.result != nil {
		return &GenerationStatus{Status: StatusCompleted, Progress: 100, Result: job.result}, nil
	}

	job.polls++
	progress := job.polls * 100 / mockPollsToComplete
	if job.polls >= mockPollsToComplete {
		job.result = m.buildResult(job.req)
		return &GenerationStatus{Status: StatusCompleted, Progress: 100, Result: job.result}, nil
	}

	return &GenerationStatus{Status: StatusRunning, Progress: progress}, nil
}

// Alternatives returns unissued dishes for the category, honoring the
// caller's exclusion list. Empty means the pool is exhausted.
func (m *MockRecommender) Alternatives(ctx context.Context, recommendationID, category string, excludeDishNames []string) ([]model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	excluded := make(map[string]bool, len(excludeDishNames))
	for _, name := range excludeDishNames {
		excluded[name] = true
	}

	issued := m.issued[recommendationID]
	var out []model.MenuItem
	for _, item := range mockMenu[category] {
		if excluded[item.DishName] || (issued != nil && issued[item.DishName]) {
			continue
		}
		m.markIssued(recommendationID, item.DishName)
		out = append(out, item)
	}
	return out, nil
}

// AddOn returns up to count dishes in the category not yet issued anywhere
// in the session
func (m *MockRecommender) AddOn(ctx context.Context, recommendationID, category string, count int) ([]model.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	issued := m.issued[recommendationID]
	var out []model.MenuItem
	for _, item := range mockMenu[category] {
		if len(out) >= count {
			break
		}
		if issued != nil && issued[item.DishName] {
			continue
		}
		m.markIssued(recommendationID, item.DishName)
		out = append(out, item)
	}
	return out, nil
}

// Finalize logs and acknowledges
func (m *MockRecommender) Finalize(ctx context.Context, payload *FinalizePayload) error {
	log.Printf("[Mock Recommender] finalize rec=%s dishes=%d total=%.2f",
		payload.RecommendationID, len(payload.Selections), payload.TotalPrice)
	return nil
}

// buildResult seeds each category with one displayed dish and one queued
// alternative; the rest stay behind as the remote pool. Caller holds m.mu.
func (m *MockRecommender) buildResult(req *GenerateRequest) *model.RecommendationResult {
	recID := uuid.New().String()
	name := req.RestaurantName
	if name == "" {
		name = req.RestaurantID
	}

	var slots []model.RecommendedSlot
	summary := make(map[string]int)
	for _, category := range mockCategories {
		dishes := mockMenu[category]
		if len(dishes) == 0 {
			continue
		}
		slot := model.RecommendedSlot{
			Category: category,
			Display:  dishes[0],
		}
		m.markIssued(recID, dishes[0].DishName)
		if len(dishes) > 1 {
			slot.Alternatives = []model.MenuItem{dishes[1]}
			m.markIssued(recID, dishes[1].DishName)
		}
		slots = append(slots, slot)
		summary[category] = 1
	}

	return &model.RecommendationResult{
		RecommendationID: recID,
		RestaurantName:   name,
		CuisineType:      model.CuisineChinese,
		Currency:         "THB",
		CategorySummary:  summary,
		Slots:            slots,
	}
}

func (m *MockRecommender) markIssued(recommendationID, dishName string) {
	if m.issued[recommendationID] == nil {
		m.issued[recommendationID] = make(map[string]bool)
	}
	m.issued[recommendationID][dishName] = true
}
