package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishcovery/api/internal/model"
)

func completeMockJob(t *testing.T, m *MockRecommender) *model.RecommendationResult {
	t.Helper()
	ctx := context.Background()

	resp, err := m.Generate(ctx, &GenerateRequest{RestaurantID: "rest-1", PartySize: 4})
	require.NoError(t, err)

	var status *GenerationStatus
	for i := 0; i < mockPollsToComplete; i++ {
		status, err = m.GetStatus(ctx, resp.JobID)
		require.NoError(t, err)
	}
	require.Equal(t, StatusCompleted, status.Status)
	require.NotNil(t, status.Result)
	return status.Result
}

func TestMockGenerate_RequiresRestaurantID(t *testing.T) {
	m := NewMockRecommender()

	_, err := m.Generate(context.Background(), &GenerateRequest{})
	assert.Error(t, err)
}

func TestMockGetStatus_AdvancesOneStepPerPoll(t *testing.T) {
	m := NewMockRecommender()
	ctx := context.Background()

	resp, err := m.Generate(ctx, &GenerateRequest{RestaurantID: "rest-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, resp.Status)

	var progresses []int
	for i := 0; i < mockPollsToComplete-1; i++ {
		status, err := m.GetStatus(ctx, resp.JobID)
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, status.Status)
		progresses = append(progresses, status.Progress)
	}
	assert.IsIncreasing(t, progresses)

	status, err := m.GetStatus(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.Result)

	// Polling after completion keeps returning the same result.
	again, err := m.GetStatus(ctx, resp.JobID)
	require.NoError(t, err)
	assert.Same(t, status.Result, again.Result)
}

func TestMockGetStatus_UnknownJobReadsPending(t *testing.T) {
	m := NewMockRecommender()

	status, err := m.GetStatus(context.Background(), "no-such-job")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status.Status)
}

func TestMockResult_SeedsEveryCategory(t *testing.T) {
	m := NewMockRecommender()
	result := completeMockJob(t, m)

	assert.NotEmpty(t, result.RecommendationID)
	assert.Equal(t, model.CuisineChinese, result.CuisineType)
	assert.Equal(t, "THB", result.Currency)
	require.Len(t, result.Slots, len(mockCategories))

	byCategory := make(map[string]model.RecommendedSlot)
	for _, slot := range result.Slots {
		byCategory[slot.Category] = slot
	}
	soup := byCategory["Soup"]
	assert.Equal(t, "Hot and Sour Soup", soup.Display.DishName)
	require.Len(t, soup.Alternatives, 1)
	assert.Equal(t, "Corn Soup", soup.Alternatives[0].DishName)
}

func TestMockResult_CarriesRestaurantName(t *testing.T) {
	m := NewMockRecommender()
	ctx := context.Background()

	resp, err := m.Generate(ctx, &GenerateRequest{
		RestaurantID:   "rest-1",
		RestaurantName: "Golden Wok",
	})
	require.NoError(t, err)

	var status *GenerationStatus
	for i := 0; i < mockPollsToComplete; i++ {
		status, err = m.GetStatus(ctx, resp.JobID)
		require.NoError(t, err)
	}
	require.NotNil(t, status.Result)
	assert.Equal(t, "Golden Wok", status.Result.RestaurantName)

	// Without a display name, the identifier is the best the mock can do.
	resp, err = m.Generate(ctx, &GenerateRequest{RestaurantID: "rest-2"})
	require.NoError(t, err)
	for i := 0; i < mockPollsToComplete; i++ {
		status, err = m.GetStatus(ctx, resp.JobID)
		require.NoError(t, err)
	}
	require.NotNil(t, status.Result)
	assert.Equal(t, "rest-2", status.Result.RestaurantName)
}

func TestMockAlternatives_HonorsExclusionAndNeverRepeats(t *testing.T) {
	m := NewMockRecommender()
	result := completeMockJob(t, m)
	ctx := context.Background()

	// The soup pool holds three dishes; two were already issued with the
	// result, so only one remains.
	items, err := m.Alternatives(ctx, result.RecommendationID, "Soup",
		[]string{"Hot and Sour Soup", "Corn Soup"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Wonton Soup", items[0].DishName)

	// Once issued, a dish never comes back for this recommendation.
	items, err = m.Alternatives(ctx, result.RecommendationID, "Soup", nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMockAlternatives_TracksRecommendationsIndependently(t *testing.T) {
	m := NewMockRecommender()
	ctx := context.Background()

	items, err := m.Alternatives(ctx, "rec-a", "Dessert", nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// A different recommendation still sees the full pool.
	items, err = m.Alternatives(ctx, "rec-b", "Dessert", nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestMockAddOn_SkipsIssuedDishes(t *testing.T) {
	m := NewMockRecommender()
	result := completeMockJob(t, m)
	ctx := context.Background()

	// Kung Pao Chicken and Sweet and Sour Pork went out with the result.
	items, err := m.AddOn(ctx, result.RecommendationID, "Main Course", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Mapo Tofu", items[0].DishName)
	assert.Equal(t, "Steamed Sea Bass", items[1].DishName)

	// Asking for more than remains returns what is left, then nothing.
	items, err = m.AddOn(ctx, result.RecommendationID, "Main Course", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Braised Eggplant", items[0].DishName)

	items, err = m.AddOn(ctx, result.RecommendationID, "Main Course", 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMockFinalize_Acknowledges(t *testing.T) {
	m := NewMockRecommender()

	err := m.Finalize(context.Background(), &FinalizePayload{
		RecommendationID: "rec-1",
		TotalPrice:       500,
	})
	assert.NoError(t, err)
}
