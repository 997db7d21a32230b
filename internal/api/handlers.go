package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tourbook/internal/export"
	"tourbook/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "database": "ok"}
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Health check: store unreachable")
			status["status"] = "degraded"
			status["database"] = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Data: status})
			return
		}
	}
	writeData(w, http.StatusOK, status)
}

// Tours

// tourFilter reads catalog filters from the query string. Prices that do not
// parse are dropped; featured applies only to "true" or "false".
func tourFilter(q url.Values, logger *zerolog.Logger) models.TourFilter {
	filter := models.TourFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Location: strings.TrimSpace(q.Get("location")),
		Search:   strings.TrimSpace(q.Get("search")),
	}
	filter.MinPrice = parsePrice(q, "minPrice", logger)
	filter.MaxPrice = parsePrice(q, "maxPrice", logger)

	switch q.Get("featured") {
	case "true":
		v := true
		filter.Featured = &v
	case "false":
		v := false
		filter.Featured = &v
	}
	return filter
}

func parsePrice(q url.Values, key string, logger *zerolog.Logger) *float64 {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Debug().Str("param", key).Str("value", raw).Msg("Ignoring unparseable price filter")
		return nil
	}
	return &v
}

func (s *HTTPServer) handleListTours(w http.ResponseWriter, r *http.Request) {
	tours, err := s.tours.ListTours(r.Context(), tourFilter(r.URL.Query(), s.logger))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, tours)
}

func (s *HTTPServer) handleGetTour(w http.ResponseWriter, r *http.Request) {
	tour, err := s.tours.GetTour(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tour)
}

func (s *HTTPServer) handleCreateTour(w http.ResponseWriter, r *http.Request) {
	var in models.TourInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	tour, err := s.tours.CreateTour(r.Context(), &in, currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, tour)
}

func (s *HTTPServer) handleUpdateTour(w http.ResponseWriter, r *http.Request) {
	var patch models.TourPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	tour, err := s.tours.UpdateTour(r.Context(), chi.URLParam(r, "id"), &patch, currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tour)
}

func (s *HTTPServer) handleDeleteTour(w http.ResponseWriter, r *http.Request) {
	if err := s.tours.DeleteTour(r.Context(), chi.URLParam(r, "id"), currentUser(r).ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, "Tour deleted successfully")
}

// Categories

func (s *HTTPServer) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, categories)
}

func (s *HTTPServer) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.categories.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, category)
}

func (s *HTTPServer) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in models.Category
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.ID = ""
	category, err := s.categories.CreateCategory(r.Context(), &in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, category)
}

func (s *HTTPServer) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var patch models.CategoryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := s.categories.UpdateCategory(r.Context(), chi.URLParam(r, "id"), &patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, category)
}

func (s *HTTPServer) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.categories.DeleteCategory(r.Context(), chi.URLParam(r, "id"), currentUser(r).ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, "Category deleted successfully")
}

// Bookings

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	booking, err := s.bookings.CreateBooking(r.Context(), currentUser(r).ID, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleListMyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListUserBookings(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, bookings)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListAllBookings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, bookings)
}

func (s *HTTPServer) handleBookingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.bookings.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.bookings.ListAllBookings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := export.Write(&buf, bookings, now); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(now)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := s.bookings.GetBooking(r.Context(), chi.URLParam(r, "id"), currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	var update models.StatusUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		s.writeError(w, r, err)
		return
	}
	booking, err := s.bookings.UpdateStatus(r.Context(), chi.URLParam(r, "id"), update, currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := s.bookings.DeleteBooking(r.Context(), chi.URLParam(r, "id"), currentUser(r).ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, "Booking deleted successfully")
}
