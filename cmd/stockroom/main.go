package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/stockroom-pos/stockroom-pos/internal/app"
	"github.com/stockroom-pos/stockroom-pos/internal/cart"
	"github.com/stockroom-pos/stockroom-pos/internal/catalog"
	"github.com/stockroom-pos/stockroom-pos/internal/credit"
	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
	"github.com/stockroom-pos/stockroom-pos/internal/observability"
	"github.com/stockroom-pos/stockroom-pos/internal/platform/cache"
	"github.com/stockroom-pos/stockroom-pos/internal/platform/db"
	"github.com/stockroom-pos/stockroom-pos/internal/shared"
	"github.com/stockroom-pos/stockroom-pos/internal/stats"
	"github.com/stockroom-pos/stockroom-pos/internal/stock"
	"github.com/stockroom-pos/stockroom-pos/internal/users"
	"github.com/stockroom-pos/stockroom-pos/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "stockroom_session", cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)

	store := ledger.NewRepository(pool)
	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, store)

	stockService := stock.NewService(store, auditLogger)
	creditService := credit.NewService(store)
	cartService := cart.NewService(store, stockService, creditService)
	statsService := stats.NewService(store, catalogRepo)

	metrics := observability.NewMetrics()
	jobsInspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsInspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		Warehouses:     catalogService,
		CatalogHandler: catalog.NewHandler(logger, catalogService),
		CartHandler:    cart.NewHandler(logger, cartService, catalogService),
		StockHandler:   stock.NewHandler(logger, stockService, catalogService),
		CreditHandler:  credit.NewHandler(logger, creditService),
		UsersHandler:   users.NewHandler(logger, store, sessionManager, statsService),
		StatsHandler:   stats.NewHandler(logger, statsService),
		JobsHandler:    jobs.NewHandler(jobsInspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
