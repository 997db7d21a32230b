package models

import "time"

type Booking struct {
	ID              string       `json:"id"`
	UserID          string       `json:"userId"`
	TourID          string       `json:"tourId"`
	GuestName       string       `json:"guestName" validate:"notblank"`
	GuestEmail      string       `json:"guestEmail" validate:"notblank,email"`
	GuestPhone      string       `json:"guestPhone" validate:"notblank"`
	NumberOfGuests  int          `json:"numberOfGuests" validate:"gte=1"`
	BookingDate     time.Time    `json:"bookingDate"`
	TotalPrice      float64      `json:"totalPrice" validate:"gte=0"`
	Status          string       `json:"status"`        // pending, confirmed, cancelled, completed
	PaymentStatus   string       `json:"paymentStatus"` // pending, paid, refunded
	SpecialRequests string       `json:"specialRequests"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
	Tour            *TourSummary `json:"tour"` // nil once the tour is deleted
}

// IsActive reports whether the booking still holds seats on its tour date.
func (b *Booking) IsActive() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// BookingRequest is what a traveller submits to reserve a tour.
type BookingRequest struct {
	TourID          string `json:"tourId" validate:"notblank"`
	GuestName       string `json:"guestName" validate:"notblank"`
	GuestEmail      string `json:"guestEmail" validate:"notblank,email"`
	GuestPhone      string `json:"guestPhone" validate:"notblank"`
	NumberOfGuests  int    `json:"numberOfGuests" validate:"gte=1"`
	BookingDate     string `json:"bookingDate" validate:"notblank"`
	SpecialRequests string `json:"specialRequests"`
}

// StatusUpdate is an admin change of either status field; both are optional.
type StatusUpdate struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"paymentStatus"`
}

// Empty reports whether neither field was supplied.
func (u StatusUpdate) Empty() bool {
	return u.Status == nil && u.PaymentStatus == nil
}

// BookingStats feeds the admin dashboard.
type BookingStats struct {
	TotalTours      int     `json:"totalTours"`
	TotalBookings   int     `json:"totalBookings"`
	TotalRevenue    float64 `json:"totalRevenue"`
	PendingBookings int     `json:"pendingBookings"`
}
