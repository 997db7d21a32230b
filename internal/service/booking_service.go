package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/events"
	"tourbook/internal/models"
	"tourbook/internal/validation"

	"github.com/rs/zerolog"
)

// BookingOptions tunes the booking rules that vary between deployments.
type BookingOptions struct {
	CapacityMode      string
	StrictTransitions bool
}

type BookingService struct {
	bookings domain.BookingRepository
	tours    domain.TourRepository
	eventBus domain.EventPublisher
	opts     BookingOptions
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(bookings domain.BookingRepository, tours domain.TourRepository, eventBus domain.EventPublisher, opts BookingOptions, logger *zerolog.Logger) *BookingService {
	if opts.CapacityMode == "" {
		opts.CapacityMode = models.CapacityPerBooking
	}
	return &BookingService{
		bookings: bookings,
		tours:    tours,
		eventBus: eventBus,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// transitions lists the moves allowed when strict transitions are enabled.
var transitions = map[string][]string{
	models.StatusPending:   {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed: {models.StatusCompleted, models.StatusCancelled},
}

func canTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseBookingDate accepts a plain date or an RFC 3339 timestamp and returns
// the calendar day in UTC.
func ParseBookingDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.Parse(models.DateLayout, raw); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return truncateDay(ts), nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CreateBooking prices and stores a pending booking for userID.
func (s *BookingService) CreateBooking(ctx context.Context, userID string, req *models.BookingRequest) (*models.Booking, error) {
	if strings.TrimSpace(req.TourID) == "" {
		return nil, domain.Validation("validation failed", map[string]string{"tourId": "is required"})
	}

	tour, err := s.tours.GetTour(ctx, req.TourID)
	if err != nil {
		return nil, err
	}
	if !tour.Available {
		return nil, domain.Validation("tour is not available for booking", map[string]string{"tourId": "tour is not available"})
	}

	fields := map[string]string{}
	if err := validation.Struct(req); err != nil {
		var verr *domain.Error
		if !errors.As(err, &verr) {
			return nil, err
		}
		for k, v := range verr.Fields {
			fields[k] = v
		}
	}
	if _, bad := fields["numberOfGuests"]; !bad && req.NumberOfGuests > tour.MaxGroupSize {
		fields["numberOfGuests"] = fmt.Sprintf("must be at most %d", tour.MaxGroupSize)
	}

	var date time.Time
	if _, bad := fields["bookingDate"]; !bad {
		date, err = ParseBookingDate(req.BookingDate)
		switch {
		case err != nil:
			fields["bookingDate"] = "must be a date in YYYY-MM-DD format"
		case date.Before(truncateDay(s.now())):
			fields["bookingDate"] = "must not be in the past"
		}
	}
	if len(fields) > 0 {
		return nil, domain.Validation("validation failed", fields)
	}

	booking := &models.Booking{
		UserID:          userID,
		TourID:          tour.ID,
		GuestName:       strings.TrimSpace(req.GuestName),
		GuestEmail:      strings.TrimSpace(req.GuestEmail),
		GuestPhone:      strings.TrimSpace(req.GuestPhone),
		NumberOfGuests:  req.NumberOfGuests,
		BookingDate:     date,
		TotalPrice:      tour.Price * float64(req.NumberOfGuests),
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		SpecialRequests: req.SpecialRequests,
	}

	if s.opts.CapacityMode == models.CapacityCumulative {
		err = s.bookings.CreateBookingWithLock(ctx, booking, tour.MaxGroupSize)
	} else {
		err = s.bookings.CreateBooking(ctx, booking)
	}
	if err != nil {
		return nil, err
	}
	booking.Tour = tour.Summary()

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("user_id", userID).
		Str("tour_id", tour.ID).
		Int("guests", booking.NumberOfGuests).
		Float64("total_price", booking.TotalPrice).
		Msg("Booking created")
	s.publishEvent(events.EventBookingCreated, booking, nil, userID)

	return booking, nil
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	return s.bookings.ListBookingsByUser(ctx, userID)
}

func (s *BookingService) ListAllBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.bookings.ListBookings(ctx)
}

// GetBooking returns the booking if requester owns it or is an admin.
func (s *BookingService) GetBooking(ctx context.Context, id string, requester *models.User) (*models.Booking, error) {
	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.IsAdmin() && booking.UserID != requester.ID {
		return nil, domain.Forbidden("not authorized to view this booking")
	}
	return booking, nil
}

// UpdateStatus applies an admin change to status and/or paymentStatus. The two
// fields are independent; a field left out keeps its value.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, update models.StatusUpdate, changedBy string) (*models.Booking, error) {
	fields := map[string]string{}
	if update.Status != nil && !models.IsValidStatus(*update.Status) {
		fields["status"] = "must be one of: " + strings.Join(models.BookingStatuses, ", ")
	}
	if update.PaymentStatus != nil && !models.IsValidPaymentStatus(*update.PaymentStatus) {
		fields["paymentStatus"] = "must be one of: " + strings.Join(models.PaymentStatuses, ", ")
	}

	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, domain.Validation("validation failed", fields)
	}
	if update.Empty() {
		return booking, nil
	}

	prev := *booking
	status, payment := booking.Status, booking.PaymentStatus
	if update.Status != nil {
		status = *update.Status
	}
	if update.PaymentStatus != nil {
		payment = *update.PaymentStatus
	}

	if s.opts.StrictTransitions && !canTransition(prev.Status, status) {
		return nil, domain.Validation(
			fmt.Sprintf("cannot change status from %s to %s", prev.Status, status),
			map[string]string{"status": "transition not allowed"},
		)
	}

	if err := s.bookings.UpdateBookingStatus(ctx, id, status, payment); err != nil {
		return nil, err
	}

	updated, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", id).
		Str("status", status).
		Str("payment_status", payment).
		Str("changed_by", changedBy).
		Msg("Booking status updated")
	s.publishEvent(events.EventBookingStatusChanged, updated, &prev, changedBy)

	return updated, nil
}

func (s *BookingService) DeleteBooking(ctx context.Context, id, changedBy string) error {
	booking, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if err := s.bookings.DeleteBooking(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("booking_id", id).Str("changed_by", changedBy).Msg("Booking deleted")
	s.publishEvent(events.EventBookingDeleted, booking, nil, changedBy)
	return nil
}

func (s *BookingService) Stats(ctx context.Context) (*models.BookingStats, error) {
	return s.bookings.GetBookingStats(ctx)
}

func (s *BookingService) publishEvent(eventType string, booking, prev *models.Booking, changedBy string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:      booking.ID,
		UserID:         booking.UserID,
		TourID:         booking.TourID,
		NumberOfGuests: booking.NumberOfGuests,
		TotalPrice:     booking.TotalPrice,
		BookingDate:    booking.BookingDate,
		Status:         booking.Status,
		PaymentStatus:  booking.PaymentStatus,
		ChangedBy:      changedBy,
	}
	if prev != nil {
		payload.PrevStatus = prev.Status
		payload.PrevPayment = prev.PaymentStatus
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("Failed to publish booking event")
	}
}
