package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tourbook/internal/events"
	"tourbook/internal/export"
	"tourbook/internal/models"

	"github.com/rs/zerolog"
)

// LatestExportName is the workbook the worker keeps up to date.
const LatestExportName = "bookings_latest.xlsx"

// BookingLister is the read side the worker exports from.
type BookingLister interface {
	ListBookings(ctx context.Context) ([]*models.Booking, error)
}

// ExportWorker rebuilds the latest bookings workbook whenever it is notified.
// Notifications that arrive while a rebuild is pending are coalesced.
type ExportWorker struct {
	source      BookingLister
	dir         string
	retryPolicy RetryPolicy
	pending     chan struct{}
	logger      *zerolog.Logger
	now         func() time.Time
}

// NewExportWorker builds a worker with sane defaults.
func NewExportWorker(source BookingLister, dir string, retry RetryPolicy, logger *zerolog.Logger) *ExportWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &ExportWorker{
		source:      source,
		dir:         dir,
		retryPolicy: retry,
		pending:     make(chan struct{}, 1),
		logger:      logger,
		now:         time.Now,
	}
}

// Path returns the workbook location.
func (w *ExportWorker) Path() string {
	return filepath.Join(w.dir, LatestExportName)
}

// Notify schedules a rebuild without blocking.
func (w *ExportWorker) Notify() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

// Subscribe triggers a rebuild on every event that changes exported rows.
func (w *ExportWorker) Subscribe(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingStatusChanged,
		events.EventBookingDeleted,
		events.EventTourUpdated,
		events.EventTourDeleted,
		events.EventCategoryDeleted,
	} {
		bus.Subscribe(eventType, func(*events.Event) error {
			w.Notify()
			return nil
		})
	}
}

// Start blocks until ctx is cancelled. It writes one workbook up front.
func (w *ExportWorker) Start(ctx context.Context) {
	w.logger.Info().Str("path", w.Path()).Msg("Export worker started")
	w.Notify()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Export worker stopped")
			return
		case <-w.pending:
			if err := w.refreshWithRetry(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("Export refresh failed")
			}
		}
	}
}

func (w *ExportWorker) refreshWithRetry(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		if err = w.Refresh(ctx); err == nil {
			return nil
		}
		if attempt == w.retryPolicy.MaxRetries {
			break
		}

		w.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", w.retryPolicy.NextDelay(attempt)).Msg("Export refresh failed, retrying")
		if werr := w.retryPolicy.Wait(ctx, attempt); werr != nil {
			return werr
		}
	}
	return fmt.Errorf("export refresh gave up after %d attempts: %w", w.retryPolicy.MaxRetries, err)
}

// Refresh writes the workbook to a temp file and renames it into place so
// readers never see a partial file.
func (w *ExportWorker) Refresh(ctx context.Context) error {
	bookings, err := w.source.ListBookings(ctx)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, LatestExportName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := export.Write(tmp, bookings, w.now()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp workbook: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.Path()); err != nil {
		return fmt.Errorf("replace workbook: %w", err)
	}

	w.logger.Debug().Int("bookings", len(bookings)).Str("path", w.Path()).Msg("Bookings workbook refreshed")
	return nil
}
