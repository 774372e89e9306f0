package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"

	"outpass-backend/config"
	"outpass-backend/internal/api"
	"outpass-backend/internal/approval"
	"outpass-backend/internal/db"
	"outpass-backend/internal/gate"
	"outpass-backend/internal/notification"
	"outpass-backend/internal/overdue"
	"outpass-backend/internal/report"
	"outpass-backend/internal/store"
	"outpass-backend/internal/store/memory"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the overdue sweeper",
	Run: func(cmd *cobra.Command, args []string) {
		logger := log.New(os.Stdout, "outpass-backend ", log.LstdFlags)
		serve(logger, loadConfig(logger))
	},
}

func openStore(logger *log.Logger, cfg *config.Config) store.Store {
	if cfg.Database.Driver == "memory" {
		logger.Println("using in-memory store; data will not survive a restart")
		return memory.New()
	}
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")
	return store.NewGormStore(gormDB)
}

func serve(logger *log.Logger, cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := openStore(logger, cfg)

	tokens, err := gate.NewTokenCodec(gate.TokenOptions{
		Secret:          cfg.Token.Secret,
		Issuer:          cfg.Token.Issuer,
		Grace:           time.Duration(cfg.Token.GraceMinutes) * time.Minute,
		AcceptPlainJSON: cfg.Token.AcceptPlainJSON,
	})
	if err != nil {
		logger.Fatalf("failed to configure pass tokens: %v", err)
	}

	var webpushOptions *webpush.Options
	var notifier approval.Notifier
	var dispatcher overdue.Dispatcher
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		pool.Start(ctx)
		notifier, dispatcher = pool, pool
		logger.Printf("notification worker pool started with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys not configured; push notifications are disabled")
	}

	machine := approval.NewMachine(appStore, approval.Options{
		MaxAttempts: cfg.Approval.MaxAttempts,
		Notifier:    notifier,
		Logger:      logger,
	})
	ledger := gate.NewLedger(appStore, gate.Options{
		MaxAttempts: cfg.Approval.MaxAttempts,
		Logger:      logger,
	})

	go overdue.NewService(cfg, appStore, dispatcher).Run(ctx)

	handler := api.NewHandler(api.Deps{
		Store:    appStore,
		Machine:  machine,
		Ledger:   ledger,
		Tokens:   tokens,
		Reports:  report.NewService(appStore, cfg.Location),
		Webpush:  webpushOptions,
		Location: cfg.Location,
	})
	router := api.NewRouter(handler, cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
