package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Battlearmour2000/invest-tracker/internal/adapter/api"
	"github.com/Battlearmour2000/invest-tracker/internal/adapter/repository/postgres"
	"github.com/Battlearmour2000/invest-tracker/internal/adapter/ws"
	"github.com/Battlearmour2000/invest-tracker/internal/config"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/aggregation"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/auth"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/goals"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/pricing"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/seeder"
)

func main() {
	// 1. Logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// 2. Configuration
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	// 3. Database
	db, err := postgres.NewDB(cfg.DBConn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 4. Repositories
	userRepo := postgres.NewUserRepository(db)
	assetRepo := postgres.NewAssetRepository(db)
	goalRepo := postgres.NewGoalRepository(db)
	purchaseRepo := postgres.NewPurchaseRepository(db)

	// 5. Starter asset catalog
	if err := seeder.NewCatalogSeeder(assetRepo).Seed(context.Background()); err != nil {
		log.Fatalf("Failed to seed asset catalog: %v", err)
	}

	// 6. Realtime fan-out
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hub := ws.NewHub(log)
	broadcaster := ws.NewBroadcaster(hub, log, cfg.BroadcastQueueSize)
	go broadcaster.Run(ctx)

	// 7. Use cases
	authService := auth.NewService(userRepo, log, cfg.JWTSecret, cfg.TokenTTL)
	pricingService := pricing.NewService(assetRepo, broadcaster, log)
	goalsService := goals.NewService(goalRepo, purchaseRepo, assetRepo)
	statsService := aggregation.NewService(goalRepo, purchaseRepo, assetRepo)

	// 8. Transport
	channel := ws.NewChannel(hub, pricingService, authService, log, cfg.ClientSendBuffer)
	server := api.NewServer(authService, goalsService, pricingService, statsService, channel, log)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Shutdown error: %v", err)
		}
	}()

	log.Infof("Server listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
	log.Info("Server stopped")
}
