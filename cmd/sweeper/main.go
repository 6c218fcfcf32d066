package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tixmarket/internal/config"
	"tixmarket/internal/database"
	"tixmarket/internal/repositories"
	"tixmarket/internal/workers"
)

// Standalone sweeper for deployments that scale the API separately from
// the expiry job. The in-process sweep in cmd/server covers the
// single-binary case.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	sweeper := workers.NewSweeper(
		repositories.NewOrderRepository(db),
		time.Duration(cfg.Sweeper.IntervalSeconds)*time.Second)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start expiry sweeper: %v", err)
	}
	defer sweeper.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Sweeper shutting down...")
}
