package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calle1003/easel/internal/config"
	"github.com/calle1003/easel/internal/mailer"
	"github.com/calle1003/easel/internal/postgres"
	redisx "github.com/calle1003/easel/internal/redis"
	postgresrepo "github.com/calle1003/easel/internal/repository/postgres"
	redisrepo "github.com/calle1003/easel/internal/repository/redis"
	"github.com/calle1003/easel/internal/service"
	httpgin "github.com/calle1003/easel/internal/transport/http/gin"
	"github.com/calle1003/easel/internal/worker"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	sweeper    *worker.Sweeper
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redisx.New(context.Background(), redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	venueTZ, err := time.LoadLocation(cfg.App.VenueTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid venue timezone %q: %w", cfg.App.VenueTZ, err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisx.NewStatsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, redisx.KeyRateLimitPrefix("orders"), 10, 1*time.Minute)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)

	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)

	// Initialize services
	services := service.NewServices(store, cache, pubsub, mail, logger, service.Config{
		VenueTZ:     venueTZ,
		MaxPerOrder: cfg.App.MaxPerOrder,
	})

	// Initialize Gin router
	router := httpgin.NewRouter(services, idempotencyStore, limiter, cfg.Auth.Secret, logger)

	sweeper := worker.NewSweeper(store.Orders(), logger, cfg.App.PendingTTL, cfg.App.SweepEvery)

	return &App{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
		sweeper: sweeper,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	if err := a.sweeper.Start(gCtx); err != nil {
		return err
	}

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down")
		if err := a.sweeper.Stop(); err != nil {
			a.logger.Warn("sweeper shutdown failed", "error", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
