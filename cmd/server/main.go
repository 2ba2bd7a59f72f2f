package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/featureflags"
	"github.com/yourorg/orderdesk/internal/fulfillment"
	"github.com/yourorg/orderdesk/internal/handler"
	"github.com/yourorg/orderdesk/internal/infrastructure/logger"
	"github.com/yourorg/orderdesk/internal/infrastructure/redis"
	"github.com/yourorg/orderdesk/internal/observability/tracing"
	"github.com/yourorg/orderdesk/internal/repository"
	"github.com/yourorg/orderdesk/internal/repository/memory"
	"github.com/yourorg/orderdesk/internal/security/audit"
	"github.com/yourorg/orderdesk/internal/security/auth"
	"github.com/yourorg/orderdesk/internal/security/ratelimit"
	"github.com/yourorg/orderdesk/internal/security/session"
	"github.com/yourorg/orderdesk/internal/service"
	"github.com/yourorg/orderdesk/internal/worker"
	"github.com/yourorg/orderdesk/pkg/config"
	"github.com/yourorg/orderdesk/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log := logger.NewLogger(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting orderdesk",
		slog.String("environment", cfg.Environment),
		slog.String("version", cfg.Version),
	)

	// 3. Initialize tracing (no-op without an OTLP endpoint configured)
	shutdownTracing, err := tracing.Init(context.Background(), log, "orderdesk", cfg.Environment)
	if err != nil {
		log.Warn("tracing disabled", slog.String("error", err.Error()))
	}

	// 4. Initialize stores: Postgres when configured, in-memory otherwise
	var (
		userRepo      domain.UserRepository
		franchiseRepo domain.FranchiseRepository
		menuRepo      domain.MenuRepository
		orderRepo     domain.OrderRepository
		ready         func(ctx context.Context) error
	)

	if cfg.DBHost != "" {
		pool, err := database.NewConnectionPool(context.Background(), &database.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			Database: cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		}, log)
		if err != nil {
			log.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.EnsureSchema(context.Background()); err != nil {
			log.Error("failed to ensure schema", slog.String("error", err.Error()))
			os.Exit(1)
		}

		db := pool.GetDB()
		userRepo = repository.NewPostgresUserRepository(db, log)
		franchiseRepo = repository.NewPostgresFranchiseRepository(db, log)
		menuRepo = repository.NewPostgresMenuRepository(db, log)
		orderRepo = repository.NewPostgresOrderRepository(db, log)
		ready = pool.Health
	} else {
		log.Warn("DB_HOST not set, using in-memory stores")
		userRepo = memory.NewUserRepository()
		franchiseRepo = memory.NewFranchiseRepository()
		menuRepo = memory.NewMenuRepository()
		orderRepo = memory.NewOrderRepository()
	}

	// 5. Initialize the session registry: Redis when configured
	var registry session.Registry
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		registry = session.NewRedisRegistry(redisClient)
		if ready == nil {
			ready = redisClient.Ping
		}
	} else {
		log.Warn("REDIS_URL not set, using in-memory session registry")
		registry = session.NewMemoryRegistry()
	}

	// 6. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "orderdesk")
	sessions := session.NewManager(tokenManager, registry, cfg.TokenTTL, log)
	rateLimiter := ratelimit.NewLimiter(100, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 7. Initialize the fulfillment client when a factory is configured
	var factory *fulfillment.Client
	if cfg.FactoryURL != "" && !featureflags.Enabled("disable_fulfillment") {
		factory = fulfillment.NewClient(cfg.FactoryURL, cfg.FactoryAPIKey, cfg.FactoryTimeout, log)
	} else {
		log.Warn("order fulfillment disabled")
	}

	// 8. Initialize services
	userService := service.NewUserService(userRepo, sessions, log)
	franchiseService := service.NewFranchiseService(franchiseRepo, userRepo, log)
	orderService := service.NewOrderService(menuRepo, orderRepo, franchiseRepo, factory, cfg.ListPerPage, log)

	// 9. Build the HTTP surface
	rootHandler := handler.NewRouter(handler.Services{
		Users:      userService,
		Franchises: franchiseService,
		Orders:     orderService,
		Sessions:   sessions,
		Limiter:    rateLimiter,
		Audit:      auditLogger,
		Config:     cfg,
		Logger:     log,
		Ready:      ready,
	})

	// 10. Start the session sweeper in the background
	sweeper := worker.NewSessionSweeper(sessions, log, cfg.SessionSweepInterval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Start(ctx)

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Bool("fulfillment", factory != nil),
		slog.Duration("token_ttl", cfg.TokenTTL),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	rateLimiter.Stop()
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}
	log.Info("server stopped")
}
