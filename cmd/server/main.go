package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/fleetstock/internal/auth"
	"github.com/mamadbah2/fleetstock/internal/config"
	"github.com/mamadbah2/fleetstock/internal/events"
	"github.com/mamadbah2/fleetstock/internal/repository"
	"github.com/mamadbah2/fleetstock/internal/repository/memory"
	"github.com/mamadbah2/fleetstock/internal/repository/mongodb"
	"github.com/mamadbah2/fleetstock/internal/repository/sheets"
	"github.com/mamadbah2/fleetstock/internal/scheduler"
	"github.com/mamadbah2/fleetstock/internal/server/handlers"
	"github.com/mamadbah2/fleetstock/internal/server/router"
	alertsvc "github.com/mamadbah2/fleetstock/internal/service/alerts"
	exportsvc "github.com/mamadbah2/fleetstock/internal/service/export"
	inventorysvc "github.com/mamadbah2/fleetstock/internal/service/inventory"
	reportingsvc "github.com/mamadbah2/fleetstock/internal/service/reporting"
	stocksvc "github.com/mamadbah2/fleetstock/internal/service/stock"
	"github.com/mamadbah2/fleetstock/pkg/clients/identity"
	whatsappclient "github.com/mamadbah2/fleetstock/pkg/clients/whatsapp"
	"github.com/mamadbah2/fleetstock/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, baseLogger); err != nil {
		baseLogger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, baseLogger *zap.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, baseLogger)
	if err != nil {
		return err
	}
	defer closeStore()

	var forwarders []events.Publisher
	if cfg.RabbitMQ.Enabled() {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, "fleetstock", baseLogger.Named("events.rabbitmq"))
		if err != nil {
			return err
		}
		defer rabbit.Close()
		forwarders = append(forwarders, rabbit)
	} else {
		baseLogger.Info("rabbitmq url missing, change feed stays in process")
	}
	broker := events.NewBroker(baseLogger.Named("events"), forwarders...)

	var sessions auth.SessionStore = auth.NewMemoryStore()
	if cfg.Redis.Enabled() {
		redisClient, err := auth.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
		sessions = auth.NewRedisStore(redisClient)
		baseLogger.Info("redis session store enabled", zap.String("addr", cfg.Redis.Addr))
	}

	gate := auth.NewGate(identity.NewClient(cfg.Identity), sessions, broker, baseLogger.Named("auth"))

	stockSvc := stocksvc.NewService(store.Items, store.History, broker, baseLogger.Named("svc.stock"))
	inventorySvc := inventorysvc.NewService(store.Items, store.References, stockSvc, broker, baseLogger.Named("svc.inventory"))
	reportingSvc := reportingsvc.NewService(store.Items, store.History, store.References, cfg.History.PageSize, baseLogger.Named("svc.reporting"))

	var whatsClient whatsappclient.Client
	if cfg.WhatsApp.Enabled() {
		whatsClient = whatsappclient.NewClient(cfg.WhatsApp)
		baseLogger.Info("whatsapp low-stock alerts enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, low-stock digests are only logged")
	}
	alertSvc := alertsvc.NewService(reportingSvc, store.Messages, whatsClient, cfg.WhatsApp.AlertRecipient, baseLogger.Named("svc.alerts"))

	var ledger scheduler.LedgerSyncer
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			return err
		}
		ledger = exportsvc.NewSheetsSync(store.Items, store.History, sheetsRepo, cfg.Sheets.HistoryRange, baseLogger.Named("svc.sheets"))
	}

	sched := scheduler.NewScheduler(cfg.Schedules, alertSvc, ledger, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		return err
	}

	eventsHandler := handlers.NewEventsHandler(broker, baseLogger.Named("handlers.events"))

	engine := router.New(router.Handlers{
		Auth:       handlers.NewAuthHandler(gate, baseLogger.Named("handlers.auth")),
		Items:      handlers.NewItemHandler(inventorySvc, stockSvc, reportingSvc, baseLogger.Named("handlers.items")),
		History:    handlers.NewHistoryHandler(reportingSvc, baseLogger.Named("handlers.history")),
		References: handlers.NewReferenceHandler(inventorySvc, baseLogger.Named("handlers.references")),
		Messages:   handlers.NewMessageHandler(alertSvc, baseLogger.Named("handlers.messages")),
		Events:     eventsHandler,
	}, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		// Server-sent event streams stay open, so no write timeout.
		IdleTimeout: 60 * time.Second,
	}
	srv.RegisterOnShutdown(eventsHandler.Close)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		baseLogger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		sched.Stop(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			baseLogger.Error("graceful shutdown failed", zap.Error(err))
			return err
		}
		return nil
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, baseLogger *zap.Logger) (repository.Store, func(), error) {
	if cfg.Storage.Backend == config.BackendMemory {
		baseLogger.Warn("using in-memory storage, data is lost on restart")
		return memory.New().Repositories(), func() {}, nil
	}

	client, err := mongodb.Connect(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		return repository.Store{}, nil, err
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		_ = client.Close(context.Background())
		return repository.Store{}, nil, err
	}
	baseLogger.Info("mongodb connected", zap.String("db", cfg.MongoDB.DBName))

	closeFn := func() {
		if err := client.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}
	return client.Repositories(), closeFn, nil
}
