package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/google/uuid"
)

const bookingSelect = `SELECT b.id, b.user_id, b.tour_id, b.guest_name, b.guest_email, b.guest_phone,
        b.number_of_guests, b.booking_date, b.total_price, b.status, b.payment_status,
        b.special_requests, b.created_at, b.updated_at,
        t.id, t.title, t.location, t.images, t.duration
    FROM bookings b LEFT JOIN tours t ON t.id = b.tour_id`

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b           models.Booking
		bookingDate string
		tourID      sql.NullString
		title       sql.NullString
		location    sql.NullString
		images      sql.NullString
		duration    sql.NullInt64
	)
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.TourID,
		&b.GuestName,
		&b.GuestEmail,
		&b.GuestPhone,
		&b.NumberOfGuests,
		&bookingDate,
		&b.TotalPrice,
		&b.Status,
		&b.PaymentStatus,
		&b.SpecialRequests,
		&b.CreatedAt,
		&b.UpdatedAt,
		&tourID,
		&title,
		&location,
		&images,
		&duration,
	)
	if err != nil {
		return nil, err
	}

	if b.BookingDate, err = time.Parse(models.DateLayout, bookingDate); err != nil {
		return nil, fmt.Errorf("failed to parse booking date %q: %w", bookingDate, err)
	}

	if tourID.Valid {
		summary := &models.TourSummary{
			ID:       tourID.String,
			Title:    title.String,
			Location: location.String,
			Duration: int(duration.Int64),
			Images:   []string{},
		}
		if images.Valid {
			if err := json.Unmarshal([]byte(images.String), &summary.Images); err != nil {
				return nil, fmt.Errorf("failed to decode tour images: %w", err)
			}
		}
		b.Tour = summary
	}
	return &b, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []*models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

const insertBooking = `INSERT INTO bookings (
            id, user_id, tour_id, guest_name, guest_email, guest_phone, number_of_guests,
            booking_date, total_price, status, payment_status, special_requests, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertBookingRow(ctx context.Context, ex execer, b *models.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := ex.ExecContext(ctx, insertBooking,
		b.ID,
		b.UserID,
		b.TourID,
		b.GuestName,
		b.GuestEmail,
		b.GuestPhone,
		b.NumberOfGuests,
		b.BookingDate.Format(models.DateLayout),
		b.TotalPrice,
		b.Status,
		b.PaymentStatus,
		b.SpecialRequests,
		now,
		now,
	)
	if err != nil {
		return err
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	if err := insertBookingRow(ctx, db, b); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (db *DB) CreateBookingWithLock(ctx context.Context, b *models.Booking, capacity int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Sum guests already holding seats on this tour date
	var booked int
	queryCount := `SELECT COALESCE(SUM(number_of_guests), 0) FROM bookings
        WHERE tour_id = ? AND booking_date = ? AND status IN (?, ?)`
	err = tx.QueryRowContext(ctx, queryCount,
		b.TourID, b.BookingDate.Format(models.DateLayout), models.StatusPending, models.StatusConfirmed,
	).Scan(&booked)
	if err != nil {
		return fmt.Errorf("failed to check capacity in tx: %w", err)
	}

	if booked+b.NumberOfGuests > capacity {
		return domain.Validation(
			fmt.Sprintf("only %d of %d places left for this date", max(capacity-booked, 0), capacity),
			map[string]string{"numberOfGuests": "exceeds remaining capacity"},
		)
	}

	// 2. Create booking
	if err := insertBookingRow(ctx, tx, b); err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("booking")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return db.queryBookings(ctx, bookingSelect+` ORDER BY b.created_at DESC, b.rowid DESC`)
}

func (db *DB) ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	return db.queryBookings(ctx, bookingSelect+` WHERE b.user_id = ? ORDER BY b.created_at DESC, b.rowid DESC`, userID)
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id, status, paymentStatus string) error {
	query := `UPDATE bookings SET status = ?, payment_status = ?, updated_at = ? WHERE id = ?`
	res, err := db.ExecContext(ctx, query, status, paymentStatus, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return expectAffected(res, "booking")
}

func (db *DB) DeleteBooking(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return expectAffected(res, "booking")
}

// GetBookingStats aggregates the admin dashboard figures. Revenue excludes
// cancelled bookings.
func (db *DB) GetBookingStats(ctx context.Context) (*models.BookingStats, error) {
	query := `SELECT
            (SELECT COUNT(*) FROM tours),
            COUNT(*),
            COALESCE(SUM(CASE WHEN status != ? THEN total_price ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
        FROM bookings`

	var stats models.BookingStats
	err := db.QueryRowContext(ctx, query, models.StatusCancelled, models.StatusPending).Scan(
		&stats.TotalTours,
		&stats.TotalBookings,
		&stats.TotalRevenue,
		&stats.PendingBookings,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}
	return &stats, nil
}
