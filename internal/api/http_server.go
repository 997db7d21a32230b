package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tourbook/internal/config"
	"tourbook/internal/domain"
	"tourbook/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups what the HTTP handlers call into.
type Services struct {
	Tours      *service.TourService
	Bookings   *service.BookingService
	Categories *service.CategoryService
	Users      *service.UserService
	Store      Pinger
}

// HTTPServer serves the JSON API under /api.
type HTTPServer struct {
	cfg        config.APIConfig
	tours      *service.TourService
	bookings   *service.BookingService
	categories *service.CategoryService
	users      *service.UserService
	store      Pinger
	limiter    domain.RateLimiter
	logger     *zerolog.Logger
	server     *http.Server
}

func NewHTTPServer(cfg config.APIConfig, svc Services, limiter domain.RateLimiter, logger *zerolog.Logger) *HTTPServer {
	httpLogger := logger.With().Str("component", "http").Logger()
	s := &HTTPServer{
		cfg:        cfg,
		tours:      svc.Tours,
		bookings:   svc.Bookings,
		categories: svc.Categories,
		users:      svc.Users,
		store:      svc.Store,
		limiter:    limiter,
		logger:     &httpLogger,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Routes builds the chi router with the full middleware stack.
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.cfg.CORS.AllowedOrigins))
	r.Use(rateLimit(s.limiter, s.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, codeMethod, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/tours", func(r chi.Router) {
			r.Get("/", s.handleListTours)
			r.Get("/{id}", s.handleGetTour)
			r.Group(func(r chi.Router) {
				r.Use(s.authenticate, s.requireAdmin)
				r.Post("/", s.handleCreateTour)
				r.Put("/{id}", s.handleUpdateTour)
				r.Delete("/{id}", s.handleDeleteTour)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Get("/{id}", s.handleGetCategory)
			r.Group(func(r chi.Router) {
				r.Use(s.authenticate, s.requireAdmin)
				r.Post("/", s.handleCreateCategory)
				r.Put("/{id}", s.handleUpdateCategory)
				r.Delete("/{id}", s.handleDeleteCategory)
			})
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/", s.handleCreateBooking)
			r.Get("/user", s.handleListMyBookings)
			r.Get("/{id}", s.handleGetBooking)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/", s.handleListBookings)
				r.Get("/stats", s.handleBookingStats)
				r.Get("/export", s.handleExportBookings)
				r.Put("/{id}", s.handleUpdateBooking)
				r.Delete("/{id}", s.handleDeleteBooking)
			})
		})
	})

	return r
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
