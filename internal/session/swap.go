package session

import "github.com/dishcovery/api/internal/model"

// ExhaustionEvent names the slot whose candidate pool ran out and whether
// the restore-history recovery option is available.
type ExhaustionEvent struct {
	SlotID     string
	Category   string
	HasHistory bool
}

// BeginSwap marks a slot as swapping. At most one swap may be in flight per
// slot; a second concurrent attempt is rejected here.
func (s *Session) BeginSwap(slotID string) error {
	if s.Finalized {
		return ErrSessionFinalized
	}
	slot, err := s.Slot(slotID)
	if err != nil {
		return err
	}
	if slot.Swapping {
		return ErrSwapInFlight
	}
	slot.Swapping = true
	return nil
}

// SwapLocal serves the swap from the slot's local queue if possible.
// Returns false when the queue is empty and a remote lookup is needed.
func (s *Session) SwapLocal(slotID string) (bool, error) {
	slot, err := s.Slot(slotID)
	if err != nil {
		return false, err
	}
	if len(slot.Alternatives) == 0 {
		return false, nil
	}

	next := slot.Alternatives[0]
	slot.Alternatives = slot.Alternatives[1:]
	s.applySwap(slot, next)
	return true, nil
}

// ExcludedNames lists every dish the remote lookup must not offer again for
// this slot: all dishes ever shown plus the queued alternatives.
func (s *Session) ExcludedNames(slotID string) ([]string, error) {
	slot, err := s.Slot(slotID)
	if err != nil {
		return nil, err
	}
	names := append([]string(nil), slot.Shown...)
	for _, alt := range slot.Alternatives {
		names = append(names, alt.DishName)
	}
	return names, nil
}

// ApplyRemote completes a swap from a non-empty remote result: the first
// dish becomes the display, the rest queue up as future alternatives.
func (s *Session) ApplyRemote(slotID string, items []model.MenuItem) error {
	slot, err := s.Slot(slotID)
	if err != nil {
		return err
	}
	s.applySwap(slot, items[0])
	slot.Alternatives = append(slot.Alternatives, items[1:]...)
	return nil
}

// MarkExhausted records that both the local queue and the remote pool are
// empty. The display is left untouched; the caller must offer the recovery
// choices from the returned event.
func (s *Session) MarkExhausted(slotID string) (*ExhaustionEvent, error) {
	slot, err := s.Slot(slotID)
	if err != nil {
		return nil, err
	}
	slot.Swapping = false
	return &ExhaustionEvent{
		SlotID:     slot.ID,
		Category:   slot.Category,
		HasHistory: len(s.Swapped[slot.Category]) > 0,
	}, nil
}

// AbortSwap clears the swapping flag without mutating anything. Used when
// the remote lookup itself failed, which is not exhaustion.
func (s *Session) AbortSwap(slotID string) error {
	slot, err := s.Slot(slotID)
	if err != nil {
		return err
	}
	slot.Swapping = false
	return nil
}

// KeepCurrent resolves an exhaustion by selecting the still-displayed dish.
func (s *Session) KeepCurrent(slotID string) error {
	if s.Finalized {
		return ErrSessionFinalized
	}
	slot, err := s.Slot(slotID)
	if err != nil {
		return err
	}
	s.Statuses[slot.Display.DishName] = model.StatusSelected
	return nil
}

// RestoreSwapped moves the category's entire swapped-away history back into
// the slot's alternatives, in original order, and clears the history. The
// caller re-invokes the swap afterwards.
func (s *Session) RestoreSwapped(slotID string) error {
	if s.Finalized {
		return ErrSessionFinalized
	}
	slot, err := s.Slot(slotID)
	if err != nil {
		return err
	}
	history := s.Swapped[slot.Category]
	if len(history) == 0 {
		return ErrNoHistory
	}
	slot.Alternatives = append(slot.Alternatives, history...)
	delete(s.Swapped, slot.Category)
	return nil
}

// applySwap replaces the slot's display and does the status bookkeeping.
// The swapping flag clears only after the status map is consistent, so
// there is no window where the displayed dish has no status entry.
func (s *Session) applySwap(slot *Slot, next model.MenuItem) {
	old := slot.Display
	s.Swapped[slot.Category] = append(s.Swapped[slot.Category], old)
	delete(s.Statuses, old.DishName)

	slot.Display = next
	if !containsString(slot.Shown, next.DishName) {
		slot.Shown = append(slot.Shown, next.DishName)
	}
	s.Statuses[next.DishName] = model.StatusPending
	slot.Swapping = false
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
