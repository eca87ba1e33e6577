package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"acadgrade/internal/aggregate"
	"acadgrade/internal/export"
	"acadgrade/internal/gateway"
	"acadgrade/internal/ingest"
	"acadgrade/internal/shared"
	"acadgrade/internal/store"
	"acadgrade/internal/validate"
)

func main() {
	log.Println("INFO: Starting Grade Engine...")

	if err := shared.LoadEnv(".env"); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := shared.LoadServiceConfig("grade-engine")
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 1. Connect Storage
	client, db, err := shared.ConnectMongoDB(&cfg.MongoDB)
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to MongoDB: %v", err)
	}
	defer shared.DisconnectMongoDB(client)

	st := store.NewMongoStore(db)

	// 2. Build Engines
	aggSvc := aggregate.New(st, cfg.Policy.GradeScale, cfg.Policy.StandingScale)
	ingSvc := ingest.New(st, validate.New(st), aggSvc)
	expSvc := export.New(st, cfg.Policy.GradeScale)

	// 3. Setup Routes and Middleware
	router := gateway.SetupRoutes(cfg, gateway.Engines{
		Store:     st,
		Ingest:    ingSvc,
		Aggregate: aggSvc,
		Export:    expSvc,
	})

	// 4. Configure Server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Start Server in a Goroutine
	go func() {
		log.Printf("INFO: Grade Engine listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server error: %v", err)
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: Shutting down Grade Engine...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: server shutdown: %v", err)
	}

	log.Println("INFO: Grade Engine stopped.")
}
