package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"incomedash/internal"
	"incomedash/internal/api"
	"incomedash/internal/config"
	"incomedash/internal/container"
	"incomedash/ui"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	internal.DefaultLogger = internal.NewLogger(internal.ParseLogLevel(appConfig.Logging.Level))

	// Create dependency injection container
	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}

	// Load the dataset and the model up front. A failure only disables the
	// features that need the missing resource, so the server starts anyway.
	// Each load is bounded by the configured load timeout.
	if err := appContainer.Warm(context.Background()); err != nil {
		log.Printf("Starting with reduced functionality: %v", err)
	}

	app, err := ui.NewApp(appContainer, api.NewRouter(appContainer))
	if err != nil {
		log.Fatalf("Failed to initialize dashboard: %v", err)
	}

	server := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting income dashboard on port %s", appConfig.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
