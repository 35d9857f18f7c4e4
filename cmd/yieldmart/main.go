// Package main запускает HTTP-сервер движка токеномики yieldmart.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/yieldmart/internal/config"
	"github.com/mmeshcher/yieldmart/internal/events"
	"github.com/mmeshcher/yieldmart/internal/handler"
	"github.com/mmeshcher/yieldmart/internal/metrics"
	"github.com/mmeshcher/yieldmart/internal/middleware"
	"github.com/mmeshcher/yieldmart/internal/model"
	"github.com/mmeshcher/yieldmart/internal/repository"
	"github.com/mmeshcher/yieldmart/internal/service"
	"github.com/mmeshcher/yieldmart/internal/settings"
	"github.com/mmeshcher/yieldmart/internal/token"
	"github.com/mmeshcher/yieldmart/internal/verifier"
)

const (
	eventBuffer       = 1024
	eventJournalLimit = 10_000
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	initial, err := settings.Load(cfg.SettingsFile)
	if err != nil {
		sugar.Fatalw("settings error", "error", err.Error(), "file", cfg.SettingsFile)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	sinks := []events.Sink{events.LogSink{Logger: logger}, m}

	deps := service.Deps{
		Owner:             cfg.OwnerAddress,
		Engine:            cfg.EngineAddress,
		OwnerPasswordHash: cfg.OwnerPasswordHash,
		Settings:          initial,
		Failures:          m,
	}

	if cfg.DatabaseURI != "" {
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		defer repo.Close()

		stored, found, err := repo.LoadSettings(context.Background())
		if err != nil {
			sugar.Fatalw("settings load error", "error", err.Error())
		}
		if found {
			deps.Settings = stored
		}

		deps.Stores = service.Stores{
			Grants:   repo,
			Claims:   repo.Claims(),
			Assets:   repo.Assets(),
			Ledger:   repo,
			Settings: repo,
		}
		deps.Tx = repo
		deps.Primary = repo.Ledger(model.CurrencyPrimary)
		deps.Secondary = repo.Ledger(model.CurrencySecondary)
		deps.Journal = repo
		sinks = append(sinks, repo)
	} else {
		sugar.Warn("DATABASE_URI is not set, engine state is kept in memory")
		journal := events.NewJournal(eventJournalLimit)
		deps.Primary = token.NewMemoryLedger()
		deps.Secondary = token.NewMemoryLedger()
		deps.Journal = journal
		sinks = append(sinks, journal)
	}

	if cfg.VerifierAddress != "" {
		deps.Verifier = verifier.NewClient(cfg.VerifierAddress)
	} else {
		sugar.Warn("VERIFIER_ADDRESS is not set, claims and user sessions are disabled")
	}
	if cfg.OwnerPasswordHash == "" {
		sugar.Warn("OWNER_PASSWORD_HASH is not set, owner login is disabled")
	}

	publisher := events.NewPublisher(logger, eventBuffer, sinks...)
	deps.Events = publisher

	svc, err := service.New(context.Background(), deps)
	if err != nil {
		sugar.Fatalw("service initialization error", "error", err.Error())
	}

	authMiddleware := middleware.NewAuthMiddleware(cfg.SessionSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Доставка событий в журнал и метрики
	g.Go(func() error {
		publisher.Run(ctx)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting yieldmart server",
			"addr", cfg.RunAddress, "owner", cfg.OwnerAddress, "engine", cfg.EngineAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
