package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/gemdesk/internal/adapter/fsm"
	oteladapter "github.com/neomorfeo/gemdesk/internal/adapter/otel"
	riveradapter "github.com/neomorfeo/gemdesk/internal/adapter/river"
	"github.com/neomorfeo/gemdesk/internal/adapter/sqlite"
	"github.com/neomorfeo/gemdesk/internal/app"

	handler "github.com/neomorfeo/gemdesk/internal/adapter/http"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("gemdesk exited", "error", err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---
	providers, err := oteladapter.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = errors.Join(err, providers.Shutdown(shutdownCtx))
	}()

	// --- Adapters (out) ---
	db, err := oteladapter.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	queue, err := riveradapter.Setup(ctx, db, logger)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}

	outbox := oteladapter.NewTracingOutbox(riveradapter.NewOutbox(queue))
	repo, err := sqlite.NewFromDB(db, sqlite.WithOutbox(outbox))
	if err != nil {
		return fmt.Errorf("order store: %w", err)
	}

	store, err := oteladapter.NewTracingStore(repo)
	if err != nil {
		return fmt.Errorf("order store tracing: %w", err)
	}

	// --- Application ---
	svc := app.NewOrderService(store, fsm.New())

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(router)))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	api := humachi.New(router, huma.DefaultConfig(serviceName, serviceVersion))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("gemdesk listening", "port", cfg.Port, "docs", "http://localhost:"+cfg.Port+"/docs")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(
			srv.Shutdown(shutdownCtx),
			queue.Stop(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("stopped")
	return nil
}
