package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps every repository in process memory. It backs the
// "memory" database driver and service tests.
type MemoryStore struct {
	mu         sync.RWMutex
	seq        int64
	tours      map[string]*storedTour
	categories map[string]*models.Category
	bookings   map[string]*storedBooking
	users      map[string]*models.User
}

type storedTour struct {
	tour models.Tour
	seq  int64
}

type storedBooking struct {
	booking models.Booking
	seq     int64
}

var _ domain.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tours:      make(map[string]*storedTour),
		categories: make(map[string]*models.Category),
		bookings:   make(map[string]*storedBooking),
		users:      make(map[string]*models.User),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) next() int64 {
	s.seq++
	return s.seq
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// tourView copies a stored tour and resolves its category name. Caller holds mu.
func (s *MemoryStore) tourView(st *storedTour) *models.Tour {
	t := st.tour
	t.Images = cloneStrings(st.tour.Images)
	t.Included = cloneStrings(st.tour.Included)
	t.Excluded = cloneStrings(st.tour.Excluded)
	t.Itinerary = make([]models.ItineraryDay, len(st.tour.Itinerary))
	copy(t.Itinerary, st.tour.Itinerary)
	t.CategoryName = ""
	if c, ok := s.categories[t.CategoryID]; ok {
		t.CategoryName = c.Name
	}
	return &t
}

// bookingView copies a stored booking and resolves its tour summary. Caller holds mu.
func (s *MemoryStore) bookingView(sb *storedBooking) *models.Booking {
	b := sb.booking
	b.Tour = nil
	if st, ok := s.tours[b.TourID]; ok {
		b.Tour = s.tourView(st).Summary()
	}
	return &b
}

// Tours

func (s *MemoryStore) ListTours(ctx context.Context, filter models.TourFilter) ([]*models.Tour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*storedTour, 0, len(s.tours))
	for _, st := range s.tours {
		if filter.Matches(&st.tour) {
			matched = append(matched, st)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].tour.CreatedAt.Equal(matched[j].tour.CreatedAt) {
			return matched[i].tour.CreatedAt.After(matched[j].tour.CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})

	tours := make([]*models.Tour, 0, len(matched))
	for _, st := range matched {
		tours = append(tours, s.tourView(st))
	}
	return tours, nil
}

func (s *MemoryStore) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.tours[id]
	if !ok {
		return nil, domain.NotFound("tour")
	}
	return s.tourView(st), nil
}

func (s *MemoryStore) CreateTour(ctx context.Context, t *models.Tour) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, exists := s.tours[t.ID]; exists {
		return domain.Conflict(fmt.Sprintf("tour %s already exists", t.ID))
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tours[t.ID] = &storedTour{tour: *s.detach(t), seq: s.next()}
	return nil
}

func (s *MemoryStore) UpdateTour(ctx context.Context, t *models.Tour) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.tours[t.ID]
	if !ok {
		return domain.NotFound("tour")
	}
	t.CreatedAt = st.tour.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	st.tour = *s.detach(t)
	return nil
}

// detach copies t so later caller mutations do not leak into the store.
func (s *MemoryStore) detach(t *models.Tour) *models.Tour {
	st := &storedTour{tour: *t}
	c := s.tourView(st)
	c.CategoryName = ""
	return c
}

func (s *MemoryStore) DeleteTour(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tours[id]; !ok {
		return domain.NotFound("tour")
	}
	delete(s.tours, id)
	return nil
}

func (s *MemoryStore) CountTours(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tours), nil
}

func (s *MemoryStore) CountToursByCategory(ctx context.Context, categoryID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, st := range s.tours {
		if st.tour.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// Categories

func (s *MemoryStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, domain.NotFound("category")
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.NotFound("category")
}

// nameTaken reports whether another category already uses name. Caller holds mu.
func (s *MemoryStore) nameTaken(name, exceptID string) bool {
	for id, c := range s.categories {
		if id != exceptID && c.Name == name {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateCategory(ctx context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken(c.Name, "") {
		return domain.Conflict(fmt.Sprintf("category %q already exists", c.Name))
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateCategory(ctx context.Context, c *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[c.ID]
	if !ok {
		return domain.NotFound("category")
	}
	if s.nameTaken(c.Name, c.ID) {
		return domain.Conflict(fmt.Sprintf("category %q already exists", c.Name))
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	s.categories[c.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return domain.NotFound("category")
	}
	delete(s.categories, id)
	return nil
}

func (s *MemoryStore) DeleteCategoryWithTours(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return 0, domain.NotFound("category")
	}
	n := 0
	for tourID, st := range s.tours {
		if st.tour.CategoryID == id {
			delete(s.tours, tourID)
			n++
		}
	}
	delete(s.categories, id)
	return n, nil
}

// Bookings

func (s *MemoryStore) insertBooking(b *models.Booking) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	stored := *b
	stored.Tour = nil
	s.bookings[b.ID] = &storedBooking{booking: stored, seq: s.next()}
}

func (s *MemoryStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertBooking(b)
	return nil
}

func (s *MemoryStore) CreateBookingWithLock(ctx context.Context, b *models.Booking, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	booked := 0
	for _, sb := range s.bookings {
		other := &sb.booking
		if other.TourID == b.TourID && other.BookingDate.Equal(b.BookingDate) && other.IsActive() {
			booked += other.NumberOfGuests
		}
	}
	if booked+b.NumberOfGuests > capacity {
		return domain.Validation(
			fmt.Sprintf("only %d of %d places left for this date", max(capacity-booked, 0), capacity),
			map[string]string{"numberOfGuests": "exceeds remaining capacity"},
		)
	}
	s.insertBooking(b)
	return nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sb, ok := s.bookings[id]
	if !ok {
		return nil, domain.NotFound("booking")
	}
	return s.bookingView(sb), nil
}

func (s *MemoryStore) listBookings(keep func(*models.Booking) bool) []*models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*storedBooking, 0, len(s.bookings))
	for _, sb := range s.bookings {
		if keep(&sb.booking) {
			matched = append(matched, sb)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].booking.CreatedAt.Equal(matched[j].booking.CreatedAt) {
			return matched[i].booking.CreatedAt.After(matched[j].booking.CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})

	out := make([]*models.Booking, 0, len(matched))
	for _, sb := range matched {
		out = append(out, s.bookingView(sb))
	}
	return out
}

func (s *MemoryStore) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.listBookings(func(*models.Booking) bool { return true }), nil
}

func (s *MemoryStore) ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	return s.listBookings(func(b *models.Booking) bool { return b.UserID == userID }), nil
}

func (s *MemoryStore) UpdateBookingStatus(ctx context.Context, id, status, paymentStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sb, ok := s.bookings[id]
	if !ok {
		return domain.NotFound("booking")
	}
	sb.booking.Status = status
	sb.booking.PaymentStatus = paymentStatus
	sb.booking.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return domain.NotFound("booking")
	}
	delete(s.bookings, id)
	return nil
}

func (s *MemoryStore) GetBookingStats(ctx context.Context) (*models.BookingStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.BookingStats{
		TotalTours:    len(s.tours),
		TotalBookings: len(s.bookings),
	}
	for _, sb := range s.bookings {
		if sb.booking.Status != models.StatusCancelled {
			stats.TotalRevenue += sb.booking.TotalPrice
		}
		if sb.booking.Status == models.StatusPending {
			stats.PendingBookings++
		}
	}
	return stats, nil
}

// Users

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.NotFound("user")
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpsertUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := time.Now().UTC()

	for _, u := range s.users {
		if u.Email == user.Email {
			u.Name = user.Name
			u.Role = user.Role
			u.UpdatedAt = now
			u.DeletedAt = nil
			*user = *u
			return nil
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	user.DeletedAt = nil
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) SoftDeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.DeletedAt != nil {
		return domain.NotFound("user")
	}
	now := time.Now().UTC()
	u.DeletedAt = &now
	u.UpdatedAt = now
	return nil
}
