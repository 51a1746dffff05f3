package model

import "time"

// MenuItem is one recommended dish. Treated as a value type; equality is by
// DishName, which is unique within a session.
type MenuItem struct {
	DishName       string  `json:"dishName"`
	Price          float64 `json:"price"`
	Quantity       int     `json:"quantity"`
	Category       string  `json:"category"`
	Reason         string  `json:"reason,omitempty"`
	ReviewCount    *int    `json:"reviewCount,omitempty"`
	PriceEstimated bool    `json:"priceEstimated,omitempty"`
}

// LineTotal returns price times quantity for this dish.
func (m MenuItem) LineTotal() float64 {
	return m.Price * float64(m.Quantity)
}

// RecommendedSlot is one recommendation line as returned by the remote
// service: the dish to show plus the unseen candidates queued behind it.
type RecommendedSlot struct {
	Category     string     `json:"category"`
	Display      MenuItem   `json:"display"`
	Alternatives []MenuItem `json:"alternatives,omitempty"`
}

// RecommendationResult is the completed output of a generation job.
// Immutable once received; it seeds the session's slot store.
type RecommendationResult struct {
	RecommendationID string            `json:"recommendationId"`
	RestaurantName   string            `json:"restaurantName"`
	CuisineType      CuisineType       `json:"cuisineType"`
	Currency         string            `json:"currency"`
	CategorySummary  map[string]int    `json:"categorySummary"`
	Slots            []RecommendedSlot `json:"slots"`
}

// FinalOrder is the immutable snapshot created at finalization from the
// selected subset of the session. It is the local source of truth for the
// checkout stage; the remote finalize call is advisory only.
type FinalOrder struct {
	RecommendationID string      `json:"recommendationId"`
	RestaurantName   string      `json:"restaurantName"`
	CuisineType      CuisineType `json:"cuisineType"`
	Currency         string      `json:"currency"`
	Dishes           []MenuItem  `json:"dishes"`
	TotalPrice       float64     `json:"totalPrice"`
	PartySize        int         `json:"partySize"`
	CreatedAt        time.Time   `json:"createdAt"`
}
