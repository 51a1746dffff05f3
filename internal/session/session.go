package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dishcovery/api/internal/model"
)

var (
	ErrSlotNotFound     = errors.New("slot not found")
	ErrSwapInFlight     = errors.New("swap already in flight for slot")
	ErrDishNotFound     = errors.New("dish not found in session")
	ErrDuplicateDish    = errors.New("dish already present in session")
	ErrNoSelection      = errors.New("no dishes selected")
	ErrNoHistory        = errors.New("no swapped dishes to restore")
	ErrSessionFinalized = errors.New("session already finalized")
)

// Slot is one recommendation line. Its ID is a synthetic stable key assigned
// at creation; the displayed dish changes on every swap, so the ID is the
// only safe external reference to a slot.
type Slot struct {
	ID           string           `json:"id"`
	Category     string           `json:"category"`
	Display      model.MenuItem   `json:"display"`
	Alternatives []model.MenuItem `json:"alternatives"`
	Shown        []string         `json:"shown"` // every dishName ever displayed here
	Swapping     bool             `json:"swapping"`
}

// BudgetPolicy is an optional per-person spending threshold. A nil policy
// disables budget warnings entirely.
type BudgetPolicy struct {
	PerPersonLimit float64 `json:"perPersonLimit"`
}

// Session holds the full editable state of one recommendation session.
// It is a plain serializable struct; all operations are methods on it and
// perform no I/O, so the engine is testable without a transport or store.
type Session struct {
	ID               string                           `json:"id"`
	RecommendationID string                           `json:"recommendationId"`
	RestaurantName   string                           `json:"restaurantName"`
	CuisineType      model.CuisineType                `json:"cuisineType"`
	Currency         string                           `json:"currency"`
	PartySize        int                              `json:"partySize"`
	Slots            []*Slot                          `json:"slots"`
	Statuses         map[string]model.SelectionStatus `json:"statuses"`
	Swapped          map[string][]model.MenuItem      `json:"swapped"` // category → swapped-away dishes, in order
	Budget           *BudgetPolicy                    `json:"budget,omitempty"`
	Finalized        bool                             `json:"finalized"`
	CreatedAt        time.Time                        `json:"createdAt"`
}

// New seeds a session from a completed recommendation. Every displayed dish
// starts pending.
func New(result *model.RecommendationResult, partySize int) *Session {
	s := &Session{
		ID:               uuid.New().String(),
		RecommendationID: result.RecommendationID,
		RestaurantName:   result.RestaurantName,
		CuisineType:      result.CuisineType,
		Currency:         result.Currency,
		PartySize:        partySize,
		Statuses:         make(map[string]model.SelectionStatus),
		Swapped:          make(map[string][]model.MenuItem),
		CreatedAt:        time.Now(),
	}

	for _, rs := range result.Slots {
		slot := &Slot{
			ID:           newSlotID(),
			Category:     rs.Category,
			Display:      rs.Display,
			Alternatives: append([]model.MenuItem(nil), rs.Alternatives...),
			Shown:        []string{rs.Display.DishName},
		}
		s.Slots = append(s.Slots, slot)
		s.Statuses[rs.Display.DishName] = model.StatusPending
	}

	return s
}

func newSlotID() string {
	return uuid.New().String()
}

// Slot returns the slot with the given ID.
func (s *Session) Slot(slotID string) (*Slot, error) {
	for _, slot := range s.Slots {
		if slot.ID == slotID {
			return slot, nil
		}
	}
	return nil, ErrSlotNotFound
}

// CategoryGroup is one category's slots in display order.
type CategoryGroup struct {
	Category string
	Slots    []*Slot
}

// ByCategory groups slots by category, ordering categories with the given
// comparator and keeping slot order within each category.
func (s *Session) ByCategory(order CategoryOrder) []CategoryGroup {
	index := make(map[string]int)
	var groups []CategoryGroup
	for _, slot := range s.Slots {
		i, ok := index[slot.Category]
		if !ok {
			i = len(groups)
			index[slot.Category] = i
			groups = append(groups, CategoryGroup{Category: slot.Category})
		}
		groups[i].Slots = append(groups[i].Slots, slot)
	}
	sortGroups(groups, order)
	return groups
}

// knownDishNames collects every dish name the session has ever held: current
// displays, queued alternatives, shown history and swapped-away dishes.
func (s *Session) knownDishNames() map[string]bool {
	known := make(map[string]bool)
	for _, slot := range s.Slots {
		for _, name := range slot.Shown {
			known[name] = true
		}
		for _, alt := range slot.Alternatives {
			known[alt.DishName] = true
		}
	}
	for _, history := range s.Swapped {
		for _, item := range history {
			known[item.DishName] = true
		}
	}
	return known
}
