package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooking(userID, tourID string, guests int, date time.Time) *models.Booking {
	return &models.Booking{
		UserID:         userID,
		TourID:         tourID,
		GuestName:      "Guest",
		GuestEmail:     "guest@example.com",
		GuestPhone:     "+1 555 0100",
		NumberOfGuests: guests,
		BookingDate:    date,
		TotalPrice:     100 * float64(guests),
		Status:         models.StatusPending,
		PaymentStatus:  models.PaymentPending,
	}
}

func TestBookingLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tour := seedTour(t, db, "cat", "Paris City Tour", 1200)
	date := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)

	b := newBooking("user-1", tour.ID, 2, date)
	b.SpecialRequests = "vegetarian"
	require.NoError(t, db.CreateBooking(ctx, b))
	require.NotEmpty(t, b.ID)

	t.Run("GetWithTourSummary", func(t *testing.T) {
		got, err := db.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, date, got.BookingDate)
		assert.Equal(t, "vegetarian", got.SpecialRequests)
		require.NotNil(t, got.Tour)
		assert.Equal(t, "Paris City Tour", got.Tour.Title)
		assert.Equal(t, 5, got.Tour.Duration)
		assert.Len(t, got.Tour.Images, 1)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		require.NoError(t, db.UpdateBookingStatus(ctx, b.ID, models.StatusConfirmed, models.PaymentPending))
		got, err := db.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, got.Status)
		assert.Equal(t, models.PaymentPending, got.PaymentStatus)

		err = db.UpdateBookingStatus(ctx, "missing", models.StatusConfirmed, models.PaymentPaid)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("OrphanAfterTourDelete", func(t *testing.T) {
		require.NoError(t, db.DeleteTour(ctx, tour.ID))
		got, err := db.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Tour)
		assert.Equal(t, tour.ID, got.TourID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, db.DeleteBooking(ctx, b.ID))
		_, err := db.GetBooking(ctx, b.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, db.DeleteBooking(ctx, b.ID), domain.ErrNotFound)
	})
}

func TestListBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tour := seedTour(t, db, "cat", "Tokyo Family Tour", 1400)
	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

	first := newBooking("alice", tour.ID, 1, date)
	second := newBooking("bob", tour.ID, 2, date)
	third := newBooking("alice", tour.ID, 3, date)
	for _, b := range []*models.Booking{first, second, third} {
		require.NoError(t, db.CreateBooking(ctx, b))
	}

	all, err := db.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID)
	assert.Equal(t, first.ID, all[2].ID)

	mine, err := db.ListBookingsByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, third.ID, mine[0].ID)

	none, err := db.ListBookingsByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestCreateBookingWithLock_Capacity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	date := time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking("u1", "tour", 3, date), 5))

	cancelled := newBooking("u2", "tour", 4, date)
	cancelled.Status = models.StatusCancelled
	require.NoError(t, db.CreateBooking(ctx, cancelled))

	// another date does not count
	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking("u3", "tour", 5, date.AddDate(0, 0, 1)), 5))

	err := db.CreateBookingWithLock(ctx, newBooking("u4", "tour", 3, date), 5)
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking("u5", "tour", 2, date), 5))
}

func TestConcurrentBookingWithLock(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "concurrency.db"), &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	date := time.Now().UTC().AddDate(0, 0, 1).Truncate(24 * time.Hour)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			results <- db.CreateBookingWithLock(ctx, newBooking("user", "tour", 2, date), 5)
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, domain.ErrValidation)
			rejected++
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 8, rejected)
}

func TestGetBookingStats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedTour(t, db, "cat", "A", 100)
	seedTour(t, db, "cat", "B", 100)
	date := time.Date(2030, 8, 1, 0, 0, 0, 0, time.UTC)

	empty, err := db.GetBookingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.BookingStats{TotalTours: 2}, empty)

	pending := newBooking("u", "t", 2, date)
	confirmed := newBooking("u", "t", 3, date)
	confirmed.Status = models.StatusConfirmed
	cancelled := newBooking("u", "t", 4, date)
	cancelled.Status = models.StatusCancelled
	for _, b := range []*models.Booking{pending, confirmed, cancelled} {
		require.NoError(t, db.CreateBooking(ctx, b))
	}

	stats, err := db.GetBookingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTours)
	assert.Equal(t, 3, stats.TotalBookings)
	assert.Equal(t, 500.0, stats.TotalRevenue)
	assert.Equal(t, 1, stats.PendingBookings)
}
