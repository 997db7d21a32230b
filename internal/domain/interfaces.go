package domain

import (
	"context"

	"tourbook/internal/models"
)

// Repositories return ErrNotFound-kind errors for missing records.

type TourRepository interface {
	ListTours(ctx context.Context, filter models.TourFilter) ([]*models.Tour, error)
	GetTour(ctx context.Context, id string) (*models.Tour, error)
	CreateTour(ctx context.Context, tour *models.Tour) error
	UpdateTour(ctx context.Context, tour *models.Tour) error
	DeleteTour(ctx context.Context, id string) error
	CountTours(ctx context.Context) (int, error)
	CountToursByCategory(ctx context.Context, categoryID string) (int, error)
}

type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) error
	// DeleteCategoryWithTours removes the category and its tours atomically
	// and returns how many tours went with it.
	DeleteCategoryWithTours(ctx context.Context, id string) (int, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	// CreateBookingWithLock inserts the booking only if the guests of active
	// bookings for the same tour and date stay within capacity.
	CreateBookingWithLock(ctx context.Context, booking *models.Booking, capacity int) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, status, paymentStatus string) error
	DeleteBooking(ctx context.Context, id string) error
	GetBookingStats(ctx context.Context) (*models.BookingStats, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error
	SoftDeleteUser(ctx context.Context, id string) error
}

// Store bundles every repository behind one backend.
type Store interface {
	TourRepository
	CategoryRepository
	BookingRepository
	UserRepository
	Ping(ctx context.Context) error
	Close() error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// RateLimiter decides whether a caller identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
