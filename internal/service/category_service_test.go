package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/events"
	"tourbook/internal/models"
	"tourbook/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// failingCascadeStore loses the store mid-way through a cascade delete.
type failingCascadeStore struct {
	*repository.MemoryStore
}

func (s failingCascadeStore) DeleteCategoryWithTours(ctx context.Context, id string) (int, error) {
	return 0, errors.New("database is locked")
}

func TestCreateCategory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewCategoryService(f.store, f.store, nil, "", testLogger())

	c, err := svc.CreateCategory(ctx, &models.Category{Name: "  Wildlife ", Icon: "🦁"})
	require.NoError(t, err)
	assert.Equal(t, "Wildlife", c.Name)
	assert.NotEmpty(t, c.ID)

	_, err = svc.CreateCategory(ctx, &models.Category{Name: "Beach"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.CreateCategory(ctx, &models.Category{Name: " "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	all, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteCategoryPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("Orphan", func(t *testing.T) {
		f := newFixture(t)
		svc := NewCategoryService(f.store, f.store, nil, models.CategoryDeleteOrphan, testLogger())

		require.NoError(t, svc.DeleteCategory(ctx, f.beach.ID, "admin"))
		tour, err := f.store.GetTour(ctx, f.bali.ID)
		require.NoError(t, err)
		assert.Equal(t, f.beach.ID, tour.CategoryID)
		assert.Empty(t, tour.CategoryName)
	})

	t.Run("Block", func(t *testing.T) {
		f := newFixture(t)
		svc := NewCategoryService(f.store, f.store, nil, models.CategoryDeleteBlock, testLogger())

		assert.ErrorIs(t, svc.DeleteCategory(ctx, f.beach.ID, "admin"), domain.ErrConflict)
		_, err := svc.GetCategory(ctx, f.beach.ID)
		assert.NoError(t, err)

		empty, err := svc.CreateCategory(ctx, &models.Category{Name: "Empty"})
		require.NoError(t, err)
		assert.NoError(t, svc.DeleteCategory(ctx, empty.ID, "admin"))
	})

	t.Run("Cascade", func(t *testing.T) {
		f := newFixture(t)
		publisher := new(mockPublisher)
		publisher.On("PublishJSON", events.EventCategoryDeleted, mock.MatchedBy(func(p events.CatalogEventPayload) bool {
			return p.CategoryID == f.beach.ID && p.ToursRemoved == 1
		})).Return(nil)
		svc := NewCategoryService(f.store, f.store, publisher, models.CategoryDeleteCascade, testLogger())

		require.NoError(t, svc.DeleteCategory(ctx, f.beach.ID, "admin"))
		_, err := f.store.GetTour(ctx, f.bali.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		publisher.AssertExpectations(t)
	})

	t.Run("CascadeFailureKeepsEverything", func(t *testing.T) {
		f := newFixture(t)
		store := failingCascadeStore{f.store}
		svc := NewCategoryService(store, store, nil, models.CategoryDeleteCascade, testLogger())

		assert.Error(t, svc.DeleteCategory(ctx, f.beach.ID, "admin"))
		_, err := f.store.GetCategory(ctx, f.beach.ID)
		assert.NoError(t, err)
		_, err = f.store.GetTour(ctx, f.bali.ID)
		assert.NoError(t, err)
	})

	t.Run("Missing", func(t *testing.T) {
		f := newFixture(t)
		svc := NewCategoryService(f.store, f.store, nil, "", testLogger())
		assert.ErrorIs(t, svc.DeleteCategory(ctx, "missing", "admin"), domain.ErrNotFound)
	})
}

func TestRenameCategoryRefreshesCachedTours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cached := repository.NewCachedTourRepository(f.store, client, time.Minute, testLogger())
	tours := NewTourService(cached, f.store, nil, testLogger())
	categories := NewCategoryService(f.store, cached, nil, "", testLogger())

	tour, err := tours.GetTour(ctx, f.bali.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beach", tour.CategoryName)

	_, err = categories.UpdateCategory(ctx, f.beach.ID, &models.CategoryPatch{Name: ptr("Coast")})
	require.NoError(t, err)

	tour, err = tours.GetTour(ctx, f.bali.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coast", tour.CategoryName)
}
