package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Capacity modes for booking creation.
const (
	// CapacityPerBooking checks each booking against maxGroupSize on its own.
	CapacityPerBooking = "per_booking"
	// CapacityCumulative sums active bookings of a tour for the same date.
	CapacityCumulative = "cumulative"
)

// Category delete policies.
const (
	CategoryDeleteOrphan  = "orphan"
	CategoryDeleteBlock   = "block"
	CategoryDeleteCascade = "cascade"
)

const (
	// DefaultTourCacheTTL is how long a tour stays cached in Redis, in seconds
	DefaultTourCacheTTL = 10 * 60

	// DateLayout is the wire format of a booking date
	DateLayout = "2006-01-02"
)

var (
	BookingStatuses = []string{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}
	PaymentStatuses = []string{PaymentPending, PaymentPaid, PaymentRefunded}
)

// IsValidStatus reports whether s is a known booking status.
func IsValidStatus(s string) bool {
	return contains(BookingStatuses, s)
}

// IsValidPaymentStatus reports whether s is a known payment status.
func IsValidPaymentStatus(s string) bool {
	return contains(PaymentStatuses, s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
