package service

import (
	"context"
	"io"
	"testing"

	"tourbook/internal/models"
	"tourbook/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

func testLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func ptr[T any](v T) *T {
	return &v
}

type fixture struct {
	store    *repository.MemoryStore
	beach    *models.Category
	bali     *models.Tour
	traveler *models.User
	admin    *models.User
}

// newFixture seeds a Beach category with the Bali tour (950 per guest, up to
// 20 guests), one traveller and one admin.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	beach := &models.Category{Name: "Beach", Icon: "🏖️"}
	require.NoError(t, store.CreateCategory(ctx, beach))

	bali := (&models.TourInput{
		Title:        "Bali Beach Paradise",
		Description:  "Relax on the beaches of Bali",
		Price:        950,
		Duration:     6,
		Location:     "Bali, Indonesia",
		Category:     beach.ID,
		MaxGroupSize: 20,
	}).NewTour()
	require.NoError(t, store.CreateTour(ctx, bali))

	traveler := &models.User{Name: "John Doe", Email: "john@example.com", Role: models.RoleUser}
	require.NoError(t, store.UpsertUser(ctx, traveler))
	admin := &models.User{Name: "Admin", Email: "admin@travelhub.com", Role: models.RoleAdmin}
	require.NoError(t, store.UpsertUser(ctx, admin))

	return &fixture{store: store, beach: beach, bali: bali, traveler: traveler, admin: admin}
}
