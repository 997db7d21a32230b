package database

import (
	"context"
	"testing"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTourCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	beach := seedCategory(t, db, "Beach")

	tour := seedTour(t, db, beach.ID, "Bali Beach Paradise", 950)
	tour.Itinerary = []models.ItineraryDay{{Day: 1, Title: "Arrival"}}
	require.NotEmpty(t, tour.ID)

	t.Run("GetResolvesCategory", func(t *testing.T) {
		got, err := db.GetTour(ctx, tour.ID)
		require.NoError(t, err)
		assert.Equal(t, "Bali Beach Paradise", got.Title)
		assert.Equal(t, "Beach", got.CategoryName)
		assert.Equal(t, []string{"https://img.example.com/Bali Beach Paradise.jpg"}, got.Images)
		assert.Equal(t, []models.ItineraryDay{}, got.Itinerary)
		assert.True(t, got.Available)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("Update", func(t *testing.T) {
		tour.Price = 1000
		tour.Available = false
		require.NoError(t, db.UpdateTour(ctx, tour))

		got, err := db.GetTour(ctx, tour.ID)
		require.NoError(t, err)
		assert.Equal(t, 1000.0, got.Price)
		assert.False(t, got.Available)
		assert.Equal(t, []models.ItineraryDay{{Day: 1, Title: "Arrival"}}, got.Itinerary)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := db.UpdateTour(ctx, &models.Tour{ID: "missing"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, db.DeleteTour(ctx, tour.ID))
		_, err := db.GetTour(ctx, tour.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, db.DeleteTour(ctx, tour.ID), domain.ErrNotFound)
	})
}

func TestListTours_Filters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	beach := seedCategory(t, db, "Beach")
	adventure := seedCategory(t, db, "Adventure")

	bali := seedTour(t, db, beach.ID, "Bali Beach Paradise", 950)
	bali.Location = "Bali, Indonesia"
	bali.Featured = true
	require.NoError(t, db.UpdateTour(ctx, bali))

	alps := seedTour(t, db, adventure.ID, "Swiss Alps Adventure", 1800)
	alps.Location = "Swiss Alps"
	alps.Description = "Glaciers and 100% fresh air"
	require.NoError(t, db.UpdateTour(ctx, alps))

	price := func(v float64) *float64 { return &v }
	yes := true

	titles := func(tours []*models.Tour) []string {
		var out []string
		for _, tr := range tours {
			out = append(out, tr.Title)
		}
		return out
	}

	tests := []struct {
		name   string
		filter models.TourFilter
		want   []string
	}{
		{"All newest first", models.TourFilter{}, []string{"Swiss Alps Adventure", "Bali Beach Paradise"}},
		{"Category", models.TourFilter{Category: beach.ID}, []string{"Bali Beach Paradise"}},
		{"LocationCaseInsensitive", models.TourFilter{Location: "ALPS"}, []string{"Swiss Alps Adventure"}},
		{"MinPrice", models.TourFilter{MinPrice: price(1000)}, []string{"Swiss Alps Adventure"}},
		{"MaxPrice", models.TourFilter{MaxPrice: price(950)}, []string{"Bali Beach Paradise"}},
		{"Featured", models.TourFilter{Featured: &yes}, []string{"Bali Beach Paradise"}},
		{"SearchAnyKeyword", models.TourFilter{Search: "glaciers indonesia"}, []string{"Swiss Alps Adventure", "Bali Beach Paradise"}},
		{"SearchLiteralPercent", models.TourFilter{Search: "100%"}, []string{"Swiss Alps Adventure"}},
		{"Conjunction", models.TourFilter{Category: beach.ID, MinPrice: price(1000)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tours, err := db.ListTours(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(tours))
		})
	}
}

func TestListTours_UnicodeCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	lake := seedTour(t, db, "lakes", "ÖSTERREICH Alps", 1200)
	lake.Location = "ÜBERLINGEN"
	require.NoError(t, db.UpdateTour(ctx, lake))
	seedTour(t, db, "lakes", "Bali Beach Paradise", 950)

	for _, filter := range []models.TourFilter{
		{Location: "überlingen"},
		{Search: "österreich"},
		{Search: "Überlingen"},
	} {
		tours, err := db.ListTours(ctx, filter)
		require.NoError(t, err)
		require.Len(t, tours, 1, "filter %+v", filter)
		assert.Equal(t, lake.ID, tours[0].ID)
		assert.True(t, filter.Matches(tours[0]), "filter %+v", filter)
	}
}

func TestToursByCategory(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	beach := seedCategory(t, db, "Beach")
	seedTour(t, db, beach.ID, "One", 100)
	seedTour(t, db, beach.ID, "Two", 200)
	seedTour(t, db, "other", "Three", 300)

	n, err := db.CountToursByCategory(ctx, beach.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.CountToursByCategory(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)

	total, err := db.CountTours(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestGetTour_OrphanedCategory(t *testing.T) {
	db := setupTestDB(t)
	tour := seedTour(t, db, "gone", "Orphan", 100)

	got, err := db.GetTour(context.Background(), tour.ID)
	require.NoError(t, err)
	assert.Equal(t, "gone", got.CategoryID)
	assert.Empty(t, got.CategoryName)
}
