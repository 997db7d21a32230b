package service

import (
	"context"
	"testing"

	"tourbook/internal/models"
	"tourbook/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedConfigFile(t *testing.T) {
	data, err := LoadSeedData("../../configs/seed.yaml")
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	seeder := NewSeeder(store, testLogger())
	ctx := context.Background()

	first, err := seeder.Apply(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, &SeedResult{Categories: 6, Users: 2, Tours: 6}, first)

	// Applying again updates in place.
	_, err = seeder.Apply(ctx, data)
	require.NoError(t, err)

	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 6)

	tours, err := store.ListTours(ctx, models.TourFilter{})
	require.NoError(t, err)
	require.Len(t, tours, 6)

	beach, err := store.GetCategoryByName(ctx, "Beach")
	require.NoError(t, err)
	bali, err := store.ListTours(ctx, models.TourFilter{Category: beach.ID})
	require.NoError(t, err)
	require.Len(t, bali, 1)
	assert.Equal(t, 950.0, bali[0].Price)
	assert.Equal(t, 20, bali[0].MaxGroupSize)
	assert.True(t, bali[0].Available)
	assert.Equal(t, "Beach", bali[0].CategoryName)

	admin, err := store.GetUserByEmail(ctx, "admin@travelhub.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	expensive, err := store.ListTours(ctx, models.TourFilter{MinPrice: ptr(1000.0)})
	require.NoError(t, err)
	for _, tour := range expensive {
		assert.NotEqual(t, bali[0].ID, tour.ID)
	}
}

func TestSeedUnknownCategory(t *testing.T) {
	store := repository.NewMemoryStore()
	seeder := NewSeeder(store, testLogger())

	_, err := seeder.Apply(context.Background(), &SeedData{
		Tours: []models.TourInput{{Title: "Lost", Category: "Nowhere"}},
	})
	assert.Error(t, err)
}
