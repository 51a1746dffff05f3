package session

import (
	"time"

	"github.com/dishcovery/api/internal/model"
)

// BuildFinalOrder snapshots the selected subset into an immutable order and
// marks the session finalized. Zero selections is an error, not a no-op.
// After this, every mutating operation returns ErrSessionFinalized.
func (s *Session) BuildFinalOrder() (*model.FinalOrder, error) {
	if s.Finalized {
		return nil, ErrSessionFinalized
	}

	selected := s.SelectedItems()
	if len(selected) == 0 {
		return nil, ErrNoSelection
	}

	order := &model.FinalOrder{
		RecommendationID: s.RecommendationID,
		RestaurantName:   s.RestaurantName,
		CuisineType:      s.CuisineType,
		Currency:         s.Currency,
		Dishes:           append([]model.MenuItem(nil), selected...),
		TotalPrice:       s.SelectedTotal(),
		PartySize:        s.PartySize,
		CreatedAt:        time.Now(),
	}

	s.Finalized = true
	return order, nil
}
