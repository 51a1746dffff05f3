package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dishcovery/api/internal/client"
	"github.com/dishcovery/api/internal/model"
	"github.com/dishcovery/api/internal/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrOrderNotFound   = errors.New("final order not found")
	// ErrRemoteLookup marks a failed remote call, as opposed to a legitimate
	// empty result. It never triggers the exhaustion recovery flow.
	ErrRemoteLookup = errors.New("recommender lookup failed")
)

// SessionService owns the stored session state and orchestrates the
// in-memory engine against the remote recommender.
type SessionService struct {
	redis       *redis.Client
	recommender client.Recommender
	sessionTTL  time.Duration
	orderTTL    time.Duration
}

func NewSessionService(redisClient *redis.Client, recommender client.Recommender, sessionTTL, orderTTL time.Duration) *SessionService {
	return &SessionService{
		redis:       redisClient,
		recommender: recommender,
		sessionTTL:  sessionTTL,
		orderTTL:    orderTTL,
	}
}

// CreateFromResult seeds and stores a session from a completed generation.
// Called by the worker exactly once per job.
func (s *SessionService) CreateFromResult(ctx context.Context, result *model.RecommendationResult, payload *model.RecommendJobPayload) (*session.Session, error) {
	sess := session.New(result, payload.PartySize)
	if payload.BudgetPerHead != nil {
		sess.Budget = &session.BudgetPolicy{PerPersonLimit: *payload.BudgetPerHead}
	}
	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session by ID
func (s *SessionService) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.loadSession(ctx, sessionID)
}

// View builds the wire representation, grouped by category in the cuisine's
// course order.
func (s *SessionService) View(sess *session.Session) *model.SessionView {
	view := &model.SessionView{
		SessionID:        sess.ID,
		RecommendationID: sess.RecommendationID,
		RestaurantName:   sess.RestaurantName,
		CuisineType:      sess.CuisineType,
		Currency:         sess.Currency,
		PartySize:        sess.PartySize,
		Finalized:        sess.Finalized,
	}
	for _, group := range sess.ByCategory(session.CategoryOrderFor(sess.CuisineType)) {
		gv := model.CategoryGroupView{Category: group.Category}
		for _, slot := range group.Slots {
			gv.Slots = append(gv.Slots, slotView(sess, slot))
		}
		view.Categories = append(view.Categories, gv)
	}
	return view
}

// Swap replaces a slot's displayed dish: from the local queue when possible,
// otherwise from the remote pool. An empty remote pool is reported as
// exhaustion with the recovery choices, not as an error.
func (s *SessionService) Swap(ctx context.Context, sessionID, slotID string) (*model.SwapResponse, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := sess.BeginSwap(slotID); err != nil {
		return nil, err
	}

	swapped, err := sess.SwapLocal(slotID)
	if err != nil {
		return nil, err
	}
	if swapped {
		if err := s.saveSession(ctx, sess); err != nil {
			return nil, err
		}
		return s.swapResponse(sess, slotID), nil
	}

	// Remote path: persist the in-flight flag before the network call so a
	// concurrent swap on the same slot is rejected while this one waits.
	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}

	slot, err := sess.Slot(slotID)
	if err != nil {
		return nil, err
	}
	excluded, err := sess.ExcludedNames(slotID)
	if err != nil {
		return nil, err
	}

	items, lookupErr := s.recommender.Alternatives(ctx, sess.RecommendationID, slot.Category, excluded)

	// Settle on a context of our own: the request context may already be
	// canceled (client gone mid-lookup), and the persisted swapping flag
	// must still be cleared or the slot stays locked until the session TTL.
	settleCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Reload before applying: the session may have been torn down while the
	// request was outstanding, in which case the response is a no-op.
	sess, err = s.loadSession(settleCtx, sessionID)
	if err != nil {
		return nil, err
	}

	if lookupErr != nil {
		if abortErr := sess.AbortSwap(slotID); abortErr == nil {
			if saveErr := s.saveSession(settleCtx, sess); saveErr != nil {
				log.Printf("Failed to clear swap flag for slot %s: %v", slotID, saveErr)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrRemoteLookup, lookupErr)
	}

	if len(items) == 0 {
		event, err := sess.MarkExhausted(slotID)
		if err != nil {
			return nil, err
		}
		if err := s.saveSession(settleCtx, sess); err != nil {
			return nil, err
		}
		return &model.SwapResponse{
			Exhausted: &model.ExhaustedView{
				SlotID:     event.SlotID,
				Category:   event.Category,
				CanRestore: event.HasHistory,
			},
		}, nil
	}

	if err := sess.ApplyRemote(slotID, items); err != nil {
		return nil, err
	}
	if err := s.saveSession(settleCtx, sess); err != nil {
		return nil, err
	}
	return s.swapResponse(sess, slotID), nil
}

// KeepCurrent resolves an exhaustion dialog by selecting the displayed dish
func (s *SessionService) KeepCurrent(ctx context.Context, sessionID, slotID string) (*model.SlotView, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.KeepCurrent(slotID); err != nil {
		return nil, err
	}
	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	slot, err := sess.Slot(slotID)
	if err != nil {
		return nil, err
	}
	view := slotView(sess, slot)
	return &view, nil
}

// RestoreSwapped moves the category's swapped-away history back into the
// slot and re-invokes the swap once; the restored queue makes it local.
func (s *SessionService) RestoreSwapped(ctx context.Context, sessionID, slotID string) (*model.SwapResponse, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.RestoreSwapped(slotID); err != nil {
		return nil, err
	}
	if err := sess.BeginSwap(slotID); err != nil {
		return nil, err
	}
	if _, err := sess.SwapLocal(slotID); err != nil {
		return nil, err
	}
	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	return s.swapResponse(sess, slotID), nil
}

// Toggle flips a dish between pending and selected
func (s *SessionService) Toggle(ctx context.Context, sessionID, dishName string) (model.SelectionStatus, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	status, err := sess.Toggle(dishName)
	if err != nil {
		return "", err
	}
	if err := s.saveSession(ctx, sess); err != nil {
		return "", err
	}
	return status, nil
}

// AddOn requests extra dishes in a category and appends them as new slots.
// A remote failure leaves the session untouched.
func (s *SessionService) AddOn(ctx context.Context, sessionID, category string, count int) ([]model.SlotView, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Finalized {
		return nil, session.ErrSessionFinalized
	}

	items, err := s.recommender.AddOn(ctx, sess.RecommendationID, category, count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteLookup, err)
	}

	// Reload: same liveness guard as Swap.
	sess, err = s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	added, err := sess.AddDishes(category, items)
	if err != nil {
		return nil, err
	}
	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}

	var views []model.SlotView
	for _, slot := range added {
		views = append(views, slotView(sess, slot))
	}
	return views, nil
}

// Totals returns the derived pricing aggregates
func (s *SessionService) Totals(ctx context.Context, sessionID string) (*model.TotalsResponse, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &model.TotalsResponse{
		SelectedTotal: sess.SelectedTotal(),
		PerPerson:     sess.PerPerson(),
		SelectedCount: len(sess.SelectedItems()),
		Currency:      sess.Currency,
		BudgetWarning: sess.BudgetWarning(),
	}, nil
}

// Finalize commits the selected subset locally, then notifies the remote
// service on a best-effort basis. The local order is the source of truth;
// the telemetry call's failure never blocks checkout.
func (s *SessionService) Finalize(ctx context.Context, sessionID string) (*model.FinalOrder, error) {
	sess, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	order, err := sess.BuildFinalOrder()
	if err != nil {
		return nil, err
	}

	if err := s.commitFinalOrderLocally(ctx, sess, order); err != nil {
		return nil, err
	}

	s.notifyFinalizeBestEffort(order)

	return order, nil
}

// GetFinalOrder serves the persisted order to the checkout stage
func (s *SessionService) GetFinalOrder(ctx context.Context, recommendationID string) (*model.FinalOrder, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("finalorder:%s", recommendationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	var order model.FinalOrder
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// commitFinalOrderLocally persists the order record and the finalized
// session state. This is the blocking half of finalization.
func (s *SessionService) commitFinalOrderLocally(ctx context.Context, sess *session.Session, order *model.FinalOrder) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("finalorder:%s", order.RecommendationID)
	if err := s.redis.Set(ctx, key, data, s.orderTTL).Err(); err != nil {
		return fmt.Errorf("failed to persist final order: %w", err)
	}
	return s.saveSession(ctx, sess)
}

// notifyFinalizeBestEffort reports the order to the remote service without
// blocking the caller. Failure is logged and nothing else.
func (s *SessionService) notifyFinalizeBestEffort(order *model.FinalOrder) {
	payload := &client.FinalizePayload{
		RecommendationID: order.RecommendationID,
		Selections:       order.Dishes,
		TotalPrice:       order.TotalPrice,
		PartySize:        order.PartySize,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.recommender.Finalize(ctx, payload); err != nil {
			log.Printf("Finalize telemetry failed for rec %s: %v", order.RecommendationID, err)
		}
	}()
}

// Helper methods

func (s *SessionService) saveSession(ctx context.Context, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("session:%s", sess.ID), data, s.sessionTTL).Err()
}

func (s *SessionService) loadSession(ctx context.Context, sessionID string) (*session.Session, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("session:%s", sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionService) swapResponse(sess *session.Session, slotID string) *model.SwapResponse {
	slot, err := sess.Slot(slotID)
	if err != nil {
		return &model.SwapResponse{}
	}
	view := slotView(sess, slot)
	return &model.SwapResponse{Swapped: true, Slot: &view}
}

func slotView(sess *session.Session, slot *session.Slot) model.SlotView {
	return model.SlotView{
		SlotID:           slot.ID,
		Category:         slot.Category,
		Display:          slot.Display,
		Status:           sess.Statuses[slot.Display.DishName],
		AlternativeCount: len(slot.Alternatives),
		Swapping:         slot.Swapping,
	}
}
