package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tourbook/internal/events"
	"tourbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeLister struct {
	mu       sync.Mutex
	failures int
	calls    int
	bookings []*models.Booking
}

func (f *fakeLister) ListBookings(context.Context) ([]*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("store unavailable")
	}
	return f.bookings, nil
}

func (f *fakeLister) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxRetries: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func sampleBookings() []*models.Booking {
	date := time.Date(2099, 7, 1, 0, 0, 0, 0, time.UTC)
	return []*models.Booking{{
		ID:             "b-1",
		UserID:         "u-1",
		TourID:         "t-1",
		GuestName:      "John Doe",
		GuestEmail:     "john@example.com",
		GuestPhone:     "+1 555 0100",
		NumberOfGuests: 4,
		BookingDate:    date,
		TotalPrice:     3800,
		Status:         models.StatusPending,
		PaymentStatus:  models.PaymentPending,
		Tour:           &models.TourSummary{ID: "t-1", Title: "Bali Beach Paradise"},
	}}
}

func TestRefreshWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	w := NewExportWorker(&fakeLister{bookings: sampleBookings()}, dir, fastRetry(1), nil)

	require.NoError(t, w.Refresh(context.Background()))
	assert.Equal(t, filepath.Join(dir, LatestExportName), w.Path())

	f, err := excelize.OpenFile(w.Path())
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Bookings")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRefreshWithRetry(t *testing.T) {
	lister := &fakeLister{failures: 2}
	w := NewExportWorker(lister, t.TempDir(), fastRetry(3), nil)

	require.NoError(t, w.refreshWithRetry(context.Background()))
	assert.Equal(t, 3, lister.Calls())
	assert.FileExists(t, w.Path())
}

func TestRefreshWithRetryGivesUp(t *testing.T) {
	lister := &fakeLister{failures: 10}
	w := NewExportWorker(lister, t.TempDir(), fastRetry(2), nil)

	err := w.refreshWithRetry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gave up after 2 attempts")
	assert.Equal(t, 2, lister.Calls())
	assert.NoFileExists(t, w.Path())
}

func TestNotifyCoalesces(t *testing.T) {
	w := NewExportWorker(&fakeLister{}, t.TempDir(), RetryPolicy{}, nil)
	w.Notify()
	w.Notify()
	w.Notify()
	assert.Len(t, w.pending, 1)
}

func TestStartRefreshesOnBookingEvents(t *testing.T) {
	lister := &fakeLister{bookings: sampleBookings()}
	w := NewExportWorker(lister, t.TempDir(), fastRetry(1), nil)
	bus := events.NewEventBus()
	w.Subscribe(bus)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return lister.Calls() >= 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, map[string]string{"id": "b-1"}))
	require.Eventually(t, func() bool { return lister.Calls() >= 2 }, time.Second, 5*time.Millisecond)
	assert.FileExists(t, w.Path())

	require.NoError(t, bus.PublishJSON(events.EventTourCreated, map[string]string{"id": "t-2"}))
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestSubscribeNotifiesOnExportedRowChanges(t *testing.T) {
	tests := []struct {
		eventType string
		notifies  bool
	}{
		{events.EventBookingCreated, true},
		{events.EventBookingStatusChanged, true},
		{events.EventBookingDeleted, true},
		{events.EventTourUpdated, true},
		{events.EventTourDeleted, true},
		{events.EventCategoryDeleted, true},
		{events.EventTourCreated, false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			w := NewExportWorker(&fakeLister{}, t.TempDir(), RetryPolicy{}, nil)
			bus := events.NewEventBus()
			w.Subscribe(bus)

			require.NoError(t, bus.PublishJSON(tt.eventType, map[string]string{"id": "x"}))
			if tt.notifies {
				assert.Len(t, w.pending, 1)
			} else {
				assert.Empty(t, w.pending)
			}
		})
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, policy.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}

	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(1))
}

func TestRetryPolicyWaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryPolicy{InitialDelay: time.Hour}.Wait(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)

	assert.NoError(t, fastRetry(1).Wait(context.Background(), 1))
}
