package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"courier/domain"
	"courier/gateway"
	"courier/httpapi"
	"courier/internal"
	"courier/repositories"
	"courier/runtime"
	"courier/runtime/workers"
	"courier/search"
	"courier/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer (database close, index close)
// executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Search index
	index, err := search.NewMessageIndex(config.SearchIndexPath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	// 4. Registry, repositories, dispatcher, services
	registry := runtime.NewRegistry()
	messageRepository := repositories.NewMessageRepository(db, log)
	notificationRepository := repositories.NewNotificationRepository(db, log)

	indexQueue := make(chan domain.Message, config.BufferSize)
	dispatcher := runtime.NewDispatcher(log, registry,
		messageRepository, notificationRepository, config.BufferSize, indexQueue)

	messagingService := services.NewMessagingService(log, messageRepository,
		dispatcher, index, config.MaxContentLength)
	notificationService := services.NewNotificationService(log,
		notificationRepository, dispatcher)

	// 5. Supervision
	supervisor := workers.NewSupervisor(log)
	supervisor.Add(workers.NewDeliveryWorker(log, dispatcher.Jobs(), config.PushTimeout))
	supervisor.Add(workers.NewIndexWorker(log, index, indexQueue))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervisorDone := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(supervisorDone)
	}()

	// 6. HTTP + websocket server
	stats := httpapi.NewStatsHandler(log, registry)
	api := httpapi.NewServer(log, messagingService, notificationService,
		stats, config.AuthTokenDuration)
	wsHandler := gateway.NewHandler(log, registry, messagingService,
		config.ConnectionBufferSize)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.Handle("/", api)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	supervisor.Stop()
	<-supervisorDone
	log.Info("Program stopped cleanly")

	return nil
}
