// File: app/app.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"face-insight-api/clock"
	"face-insight-api/config"
	"face-insight-api/db"
	"face-insight-api/handler"
	"face-insight-api/logger"
	"face-insight-api/repository"
	"face-insight-api/router"
	"face-insight-api/service"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	QuotaBackendRedis    = "redis"
	QuotaBackendPostgres = "postgres"
)

// App is the fully wired service.
type App struct {
	DB     *sql.DB
	Redis  *redis.Client
	Router http.Handler
	Tokens *service.TokenService
	Quotas *service.QuotaGate
}

// Build wires repositories, services and handlers over the given stores.
// rdb may be nil when the quota backend is postgres.
func Build(cfg config.Config, database *sql.DB, rdb *redis.Client, ts clock.TimeSource, predictor service.Predictor) (*App, error) {
	// --- Token lifecycle ---
	codec := service.NewJWTCodec(cfg.JWT.SecretKey, cfg.JWT.Issuer, ts)
	tokenRepo := repository.NewTokenRepository(database)
	tokens := service.NewTokenService(tokenRepo, codec, ts, cfg.Store.Timeout, cfg.Store.TokenRetention)

	userRepo := repository.NewUserRepository(database)
	authService := service.NewAuthService(userRepo, tokens, codec, service.LogNotifier{}, service.AuthSettings{
		AccessTTL:    cfg.JWT.AccessTTL,
		RefreshTTL:   cfg.JWT.RefreshTTL,
		ResetTTL:     cfg.JWT.ResetTTL,
		ResetURL:     cfg.App.ResetURL,
		StoreTimeout: cfg.Store.Timeout,
	})
	userService := service.NewUserService(userRepo, tokens, cfg.Store.Timeout)

	// --- Quota admission ---
	tiers := cfg.Quota.Tiers
	if len(tiers) == 0 {
		tiers = config.DefaultTiers
	}
	policy, err := service.NewQuotaPolicy(tiers, cfg.Quota.Trial)
	if err != nil {
		return nil, fmt.Errorf("invalid quota configuration: %w", err)
	}

	checks := map[string]handler.HealthCheckFunc{"postgres": database.PingContext}
	var store repository.QuotaStore
	switch cfg.Quota.Backend {
	case QuotaBackendRedis, "":
		if rdb == nil {
			return nil, errors.New("redis quota backend selected without a redis client")
		}
		store = repository.NewRedisQuotaStore(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	case QuotaBackendPostgres:
		store = repository.NewPostgresQuotaStore(database)
	default:
		return nil, fmt.Errorf("unknown quota backend %q", cfg.Quota.Backend)
	}
	gate := service.NewQuotaGate(policy, store, ts, cfg.Store.Timeout)

	r := router.NewRouter(router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Prediction: handler.NewPredictionHandler(gate, policy, predictor, ts),
		Admin:      handler.NewAdminHandler(gate),
		User:       handler.NewUserHandler(userService),
		Health:     handler.NewHealthHandler(checks),
		Tokens:     tokens,
	})

	return &App{DB: database, Redis: rdb, Router: r, Tokens: tokens, Quotas: gate}, nil
}

func Run() {
	logger.Init()
	config.LoadConfig(".")
	cfg := config.AppConfig
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	logger.Log.Info("Configuration loaded successfully")

	loc, err := clock.LoadZone(cfg.App.Timezone)
	if err != nil {
		logger.Log.Fatalf("Invalid timezone %q: %v", cfg.App.Timezone, err)
	}
	ts := clock.InZone(clock.System, loc)

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		logger.Log.Fatalf("Error migrating the database: %v", err)
	}

	var rdb *redis.Client
	if cfg.Quota.Backend != QuotaBackendPostgres {
		rdb, err = db.ConnectRedis()
		if err != nil {
			logger.Log.Fatalf("Error connecting to redis: %v", err)
		}
		defer rdb.Close()
	}

	predictor := service.NewRemotePredictor(cfg.Predictor.URL, cfg.Predictor.Timeout,
		cfg.Predictor.RequestsPerSecond, cfg.Predictor.Burst)

	a, err := Build(cfg, database, rdb, ts, predictor)
	if err != nil {
		logger.Log.Fatalf("Error wiring the application: %v", err)
	}

	// --- Start the Server with Graceful Shutdown ---
	port := cfg.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: a.Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.Tokens.RunJanitor(gctx, cfg.Store.JanitorInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Log.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}

	logger.Log.Info("Server exited properly")
}
