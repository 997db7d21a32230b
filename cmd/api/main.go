package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourbook/internal/api"
	"tourbook/internal/auth"
	"tourbook/internal/bootstrap"
	"tourbook/internal/config"
	"tourbook/internal/database"
	"tourbook/internal/domain"
	"tourbook/internal/events"
	"tourbook/internal/logging"
	"tourbook/internal/metrics"
	"tourbook/internal/repository"
	"tourbook/internal/service"
	"tourbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := bootstrap.LoadConfigAndLogger(bootstrap.ConfigPath(), "api-main")
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	store, db, err := bootstrap.OpenStore(cfg.Database, logger)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("open store")
		return err
	}
	defer store.Close()

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	bus := events.NewEventBus()
	events.RegisterAuditLog(bus, logging.Component(logger, "audit"))
	events.RegisterMetrics(bus)

	svc := buildServices(cfg, store, redisClient, bus, logger)
	limiter := buildRateLimiter(cfg, redisClient, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, logger)
	startBackups(ctx, cfg, db, logger)
	startExportWorker(ctx, cfg, store, bus, logger)

	httpServer := api.NewHTTPServer(cfg.API, svc, limiter, logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, limiter, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	return startServers(ctx, grpcServer, httpServer, store, cfg, logger)
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func buildServices(
	cfg *config.Config,
	store domain.Store,
	redisClient *redis.Client,
	bus *events.EventBus,
	logger *zerolog.Logger,
) api.Services {
	var tours domain.TourRepository = store
	if redisClient != nil {
		tours = repository.NewCachedTourRepository(store, redisClient, cfg.Redis.CacheTTL, logging.Component(logger, "tour-cache"))
	}

	tokens := auth.NewTokenManager(cfg.API.Auth)
	bookingOpts := service.BookingOptions{
		CapacityMode:      cfg.Booking.CapacityMode,
		StrictTransitions: cfg.Booking.StrictTransitions,
	}

	return api.Services{
		Tours:      service.NewTourService(tours, store, bus, logging.Component(logger, "tours")),
		Bookings:   service.NewBookingService(store, tours, bus, bookingOpts, logging.Component(logger, "bookings")),
		Categories: service.NewCategoryService(store, tours, bus, cfg.Catalog.CategoryDeletePolicy, logging.Component(logger, "categories")),
		Users:      service.NewUserService(store, tokens, logging.Component(logger, "users")),
		Store:      store,
	}
}

// buildRateLimiter returns nil when rate limiting is switched off. With Redis
// the shared fixed-window limiter is primary and the in-process one covers outages.
func buildRateLimiter(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.RateLimiter {
	rl := cfg.API.RateLimit
	if rl.RPS <= 0 {
		logger.Warn().Msg("rate limiting disabled")
		return nil
	}

	local := repository.NewMemoryRateLimiter(rl.RPS, rl.Burst)
	if redisClient == nil {
		return local
	}

	perSecond := rl.Burst
	if perSecond <= 0 {
		perSecond = int(math.Ceil(rl.RPS))
	}
	shared := repository.NewRedisRateLimiter(redisClient, perSecond, time.Second)
	return repository.NewFailoverRateLimiter(shared, local, logging.Component(logger, "rate-limit"))
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startBackups(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) {
	if db == nil || !cfg.Backup.Enabled {
		return
	}
	backups := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
	go backups.Start(ctx)
}

func startExportWorker(ctx context.Context, cfg *config.Config, store domain.Store, bus *events.EventBus, logger *zerolog.Logger) {
	if !cfg.Exports.AutoRefresh {
		return
	}
	exports := worker.NewExportWorker(store, cfg.Exports.Path, worker.RetryPolicy{}, logging.Component(logger, "export-worker"))
	exports.Subscribe(bus)
	go exports.Start(ctx)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	store api.Pinger,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := store.Ping(pingCtx); err != nil {
			logger.Warn().Err(err).Msg("store ping failed, grpc health stays NOT_SERVING")
		} else {
			grpcServer.SetServing(true)
		}
		cancel()
	}

	logger.Info().
		Int("http_port", cfg.API.HTTP.Port).
		Bool("grpc_enabled", grpcServer != nil).
		Msg("API server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return runErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
