package service

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishcovery/api/internal/client"
	"github.com/dishcovery/api/internal/model"
	"github.com/dishcovery/api/internal/session"
)

// newTestRedis connects to localhost Redis on DB 15, flushed per test.
// Skips when Redis is not up.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	require.NoError(t, redisClient.FlushDB(context.Background()).Err())
	t.Cleanup(func() { redisClient.Close() })
	return redisClient
}

// newTestSessionService wires the service against test Redis and the mock
// recommender.
func newTestSessionService(t *testing.T) (*SessionService, *client.MockRecommender) {
	t.Helper()

	mock := client.NewMockRecommender()
	svc := NewSessionService(newTestRedis(t), mock, time.Hour, time.Hour)
	return svc, mock
}

// seedSession drives the mock through a full generation and creates a stored
// session from the result, the same path the worker takes.
func seedSession(t *testing.T, svc *SessionService, mock *client.MockRecommender) *session.Session {
	t.Helper()
	ctx := context.Background()

	resp, err := mock.Generate(ctx, &client.GenerateRequest{RestaurantID: "rest-1", PartySize: 4})
	require.NoError(t, err)

	var status *client.GenerationStatus
	for status == nil || status.Status != client.StatusCompleted {
		status, err = mock.GetStatus(ctx, resp.JobID)
		require.NoError(t, err)
	}

	sess, err := svc.CreateFromResult(ctx, status.Result, &model.RecommendJobPayload{
		RestaurantID: "rest-1",
		PartySize:    4,
	})
	require.NoError(t, err)
	return sess
}

func findSlot(t *testing.T, sess *session.Session, category string) *session.Slot {
	t.Helper()
	for _, slot := range sess.Slots {
		if slot.Category == category {
			return slot
		}
	}
	t.Fatalf("no slot for category %s", category)
	return nil
}

func TestSessionService_CreateAndView(t *testing.T) {
	svc, mock := newTestSessionService(t)
	sess := seedSession(t, svc, mock)

	loaded, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, 4, loaded.PartySize)

	view := svc.View(loaded)
	assert.Equal(t, sess.ID, view.SessionID)
	require.NotEmpty(t, view.Categories)
	// Chinese course order starts with the appetizers.
	assert.Equal(t, "Appetizer", view.Categories[0].Category)
	for _, group := range view.Categories {
		for _, slot := range group.Slots {
			assert.Equal(t, model.StatusPending, slot.Status)
		}
	}
}

func TestSessionService_GetMissing(t *testing.T) {
	svc, _ := newTestSessionService(t)

	_, err := svc.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_SwapUntilExhausted(t *testing.T) {
	svc, mock := newTestSessionService(t)
	sess := seedSession(t, svc, mock)
	ctx := context.Background()

	soup := findSlot(t, sess, "Soup")

	// First swap serves the queued alternative locally.
	resp, err := svc.Swap(ctx, sess.ID, soup.ID)
	require.NoError(t, err)
	require.True(t, resp.Swapped)
	assert.Equal(t, "Corn Soup", resp.Slot.Display.DishName)
	assert.Equal(t, 0, resp.Slot.AlternativeCount)

	// Second swap goes remote; the mock soup pool has one dish left.
	resp, err = svc.Swap(ctx, sess.ID, soup.ID)
	require.NoError(t, err)
	require.True(t, resp.Swapped)
	assert.Equal(t, "Wonton Soup", resp.Slot.Display.DishName)

	// Third swap finds the pool dry. The display keeps the current dish and
	// the recovery choices come back instead of an error.
	resp, err = svc.Swap(ctx, sess.ID, soup.ID)
	require.NoError(t, err)
	assert.False(t, resp.Swapped)
	require.NotNil(t, resp.Exhausted)
	assert.Equal(t, soup.ID, resp.Exhausted.SlotID)
	assert.Equal(t, "Soup", resp.Exhausted.Category)
	assert.True(t, resp.Exhausted.CanRestore)

	loaded, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	slot, err := loaded.Slot(soup.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wonton Soup", slot.Display.DishName)
	assert.False(t, slot.Swapping)
}

// failingRecommender rejects every alternatives lookup and can cancel the
// request context first, simulating a client that disconnected mid-lookup.
type failingRecommender struct {
	client.Recommender
	cancel context.CancelFunc
}

func (f *failingRecommender) Alternatives(ctx context.Context, recommendationID, category string, excludeDishNames []string) ([]model.MenuItem, error) {
	if f.cancel != nil {
		f.cancel()
	}
	return nil, context.Canceled
}

func TestSessionService_RemoteFailureClearsSwapFlag(t *testing.T) {
	redisClient := newTestRedis(t)
	mock := client.NewMockRecommender()
	svc := NewSessionService(redisClient, mock, time.Hour, time.Hour)
	sess := seedSession(t, svc, mock)

	soup := findSlot(t, sess, "Soup")

	// Drain the local queue so the next swap must go remote.
	resp, err := svc.Swap(context.Background(), sess.ID, soup.ID)
	require.NoError(t, err)
	require.True(t, resp.Swapped)

	// The remote lookup dies together with the request context. The flag was
	// persisted before the call; it must not stay locked for the session TTL.
	ctx, cancel := context.WithCancel(context.Background())
	failing := NewSessionService(redisClient, &failingRecommender{cancel: cancel}, time.Hour, time.Hour)
	_, err = failing.Swap(ctx, sess.ID, soup.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteLookup)

	loaded, err := svc.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	slot, err := loaded.Slot(soup.ID)
	require.NoError(t, err)
	assert.False(t, slot.Swapping)
	assert.Equal(t, "Corn Soup", slot.Display.DishName) // no mutation applied

	// The slot is immediately swappable again, now against the healthy pool.
	resp, err = svc.Swap(context.Background(), sess.ID, soup.ID)
	require.NoError(t, err)
	require.True(t, resp.Swapped)
	assert.Equal(t, "Wonton Soup", resp.Slot.Display.DishName)
}

func TestSessionService_RestoreAfterExhaustion(t *testing.T) {
	svc, mock := newTestSessionService(t)
	sess := seedSession(t, svc, mock)
	ctx := context.Background()

	soup := findSlot(t, sess, "Soup")
	for i := 0; i < 2; i++ {
		resp, err := svc.Swap(ctx, sess.ID, soup.ID)
		require.NoError(t, err)
		require.True(t, resp.Swapped)
	}
	resp, err := svc.Swap(ctx, sess.ID, soup.ID)
	require.NoError(t, err)
	require.NotNil(t, resp.Exhausted)

	// Restore recycles the swapped-away dishes, oldest first.
	resp, err = svc.RestoreSwapped(ctx, sess.ID, soup.ID)
	require.NoError(t, err)
	require.True(t, resp.Swapped)
	assert.Equal(t, "Hot and Sour Soup", resp.Slot.Display.DishName)
}

func TestSessionService_KeepCurrentSelectsDish(t *testing.T) {
	svc, mock := newTestSessionService(t)
	sess := seedSession(t, svc, mock)
	ctx := context.Background()

	soup := findSlot(t, sess, "Soup")
	slot, err := svc.KeepCurrent(ctx, sess.ID, soup.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSelected, slot.Status)
}

func TestSessionService_ToggleAndTotals(t *testing.T) {
	svc, mock := newTestSessionService(t)
	sess := seedSession(t, svc, mock)
	ctx := context.Background()

	status, err := svc.Toggle(ctx, sess.ID, "Kung Pao Chicken")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSelected, status)

	_, err = svc.Toggle(ctx, sess.ID, "Hot and Sour Soup")
	require.NoError(t, err)

	totals, err := svc.Totals(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 460.0, totals.SelectedTotal) // 280 + 180
	assert.Equal(t, 115.0, totals.PerPerson)
	assert.Equal(t, 2, totals.SelectedCount)
	assert.Equal(t, "THB", totals.Currency)
}

func TestSessionService_AddOnAppendsSlots(t *testing.T) {
	svc, mock := newTestSessionService(t)
	sess := seedSession(t, svc, mock)
	ctx := context.Background()

	slots, err := svc.AddOn(ctx, sess.ID, "Main Course", 2)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	for _, slot := range slots {
		assert.Equal(t, "Main Course", slot.Category)
		assert.Equal(t, model.StatusPending, slot.Status)
		assert.Equal(t, 0, slot.AlternativeCount)
	}

	loaded, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Slots, len(sess.Slots)+2)
}

func TestSessionService_FinalizeFlow(t *testing.T) {
	svc, mock := newTestSessionService(t)
	sess := seedSession(t, svc, mock)
	ctx := context.Background()

	_, err := svc.Finalize(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrNoSelection)

	_, err = svc.Toggle(ctx, sess.ID, "Kung Pao Chicken")
	require.NoError(t, err)

	order, err := svc.Finalize(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, order.Dishes, 1)
	assert.Equal(t, "Kung Pao Chicken", order.Dishes[0].DishName)
	assert.Equal(t, 280.0, order.TotalPrice)

	// The order survives as its own record for the checkout view.
	stored, err := svc.GetFinalOrder(ctx, order.RecommendationID)
	require.NoError(t, err)
	assert.Equal(t, order.TotalPrice, stored.TotalPrice)

	// The session is sealed.
	_, err = svc.Finalize(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrSessionFinalized)
	_, err = svc.Toggle(ctx, sess.ID, "Hot and Sour Soup")
	assert.ErrorIs(t, err, session.ErrSessionFinalized)
	soup := findSlot(t, sess, "Soup")
	_, err = svc.Swap(ctx, sess.ID, soup.ID)
	assert.ErrorIs(t, err, session.ErrSessionFinalized)
}

func TestSessionService_GetFinalOrderMissing(t *testing.T) {
	svc, _ := newTestSessionService(t)

	_, err := svc.GetFinalOrder(context.Background(), "no-such-rec")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
