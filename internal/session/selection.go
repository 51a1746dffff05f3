package session

import (
	"fmt"
	"math"

	"github.com/dishcovery/api/internal/model"
)

// Toggle flips a displayed dish between pending and selected. Purely local.
func (s *Session) Toggle(dishName string) (model.SelectionStatus, error) {
	if s.Finalized {
		return "", ErrSessionFinalized
	}
	status, ok := s.Statuses[dishName]
	if !ok {
		return "", ErrDishNotFound
	}
	if status == model.StatusSelected {
		status = model.StatusPending
	} else {
		status = model.StatusSelected
	}
	s.Statuses[dishName] = status
	return status, nil
}

// SelectedItems returns the selected dishes in slot order.
func (s *Session) SelectedItems() []model.MenuItem {
	var items []model.MenuItem
	for _, slot := range s.Slots {
		if s.Statuses[slot.Display.DishName] == model.StatusSelected {
			items = append(items, slot.Display)
		}
	}
	return items
}

// SelectedTotal sums price times quantity over the selected dishes.
// Derived on every call, never stored.
func (s *Session) SelectedTotal() float64 {
	var total float64
	for _, item := range s.SelectedItems() {
		total += item.LineTotal()
	}
	return total
}

// PerPerson divides the selected total across the party, rounded.
func (s *Session) PerPerson() float64 {
	if s.PartySize <= 0 {
		return 0
	}
	return math.Round(s.SelectedTotal() / float64(s.PartySize))
}

// BudgetWarning reports a per-person overrun when a budget policy is set.
// Returns "" when no policy is configured or the budget holds.
func (s *Session) BudgetWarning() string {
	if s.Budget == nil || s.Budget.PerPersonLimit <= 0 {
		return ""
	}
	perPerson := s.PerPerson()
	if perPerson <= s.Budget.PerPersonLimit {
		return ""
	}
	return fmt.Sprintf("selection runs %.0f %s per person, over the %.0f budget",
		perPerson, s.Currency, s.Budget.PerPersonLimit)
}

// AddDishes appends brand-new slots for add-on dishes, each with no
// alternatives and a pending status. The batch is all-or-nothing: if any
// dish collides with one already known to the session, nothing is applied.
func (s *Session) AddDishes(category string, items []model.MenuItem) ([]*Slot, error) {
	if s.Finalized {
		return nil, ErrSessionFinalized
	}

	known := s.knownDishNames()
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if known[item.DishName] || seen[item.DishName] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDish, item.DishName)
		}
		seen[item.DishName] = true
	}

	var added []*Slot
	for _, item := range items {
		slot := &Slot{
			ID:       newSlotID(),
			Category: category,
			Display:  item,
			Shown:    []string{item.DishName},
		}
		s.Slots = append(s.Slots, slot)
		s.Statuses[item.DishName] = model.StatusPending
		added = append(added, slot)
	}
	return added, nil
}
