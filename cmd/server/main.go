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

	"tixmarket/internal/config"
	"tixmarket/internal/database"
	"tixmarket/internal/handlers"
	"tixmarket/internal/notify"
	"tixmarket/internal/payment"
	"tixmarket/internal/repositories"
	"tixmarket/internal/services"
	"tixmarket/internal/store"
	"tixmarket/internal/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.NewMigrator(db).RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	sessions := store.NewSessionStore(cfg.Redis,
		time.Duration(cfg.Checkout.CartTTLMinutes)*time.Minute,
		time.Duration(cfg.Checkout.CheckoutTTLMinutes)*time.Minute)
	defer sessions.Close()

	marketplaceRepo := repositories.NewMarketplaceRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	customerRepo := repositories.NewCustomerRepository(db)
	promoRepo := repositories.NewPromoRepository(db)
	orderRepo := repositories.NewOrderRepository(db)

	producer := notify.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderEventsTopic)
	defer producer.Close()
	mailer := notify.NewEmailSender(cfg.Email)

	promoSvc := services.NewPromoService(promoRepo)
	availabilitySvc := services.NewAvailabilityService(catalogRepo)
	cartSvc := services.NewCartService(sessions, catalogRepo, promoSvc)
	checkoutSvc := services.NewCheckoutService(sessions, availabilitySvc, promoSvc,
		orderRepo, catalogRepo, marketplaceRepo, payment.Resolve, cfg.Server.BaseURL)
	callbackSvc := services.NewCallbackService(marketplaceRepo, orderRepo, customerRepo,
		payment.Resolve, producer, mailer)

	sweeper := workers.NewSweeper(orderRepo, time.Duration(cfg.Sweeper.IntervalSeconds)*time.Second)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start expiry sweeper: %v", err)
	}
	defer sweeper.Stop()

	router := handlers.NewRouter(
		marketplaceRepo,
		handlers.NewCartHandler(cartSvc),
		handlers.NewCheckoutHandler(checkoutSvc),
		handlers.NewPaymentHandler(callbackSvc),
		handlers.NewOrderHandler(orderRepo),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
}
