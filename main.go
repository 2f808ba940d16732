package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"price_alert_backend/config"
	"price_alert_backend/controllers"
	"price_alert_backend/routes"
	"price_alert_backend/scheduler"
	"price_alert_backend/services/alerts"
	"price_alert_backend/services/pricing"
	"price_alert_backend/services/whatsapp"
	"price_alert_backend/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	dataStore := store.NewStore(db)
	if err := dataStore.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	settings := config.NewRuntimeSettings(cfg)
	priceService := pricing.DefaultPriceService(cfg.AlphaVantageAPIKey, cfg.CoinGeckoAPIEnabled)
	registry := alerts.NewRegistry(priceService)
	whatsappService := whatsapp.NewService(
		cfg.TwilioAccountSID,
		cfg.TwilioAuthToken,
		cfg.TwilioFromNumber,
		cfg.WhatsAppNumber,
	)
	if !whatsappService.Configured() {
		log.Println("WhatsApp channel not configured, notifications will be skipped")
	}

	monitor := scheduler.NewMonitor(dataStore, priceService, registry, whatsappService, settings)
	sched := scheduler.NewScheduler(monitor, settings)
	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start monitoring scheduler: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	routes.SetupRoutes(router, routes.Controllers{
		Alerts:         controllers.NewAlertController(dataStore),
		AdvancedAlerts: controllers.NewAdvancedAlertController(dataStore, registry.Kinds()),
		Scheduler:      controllers.NewSchedulerController(sched, monitor),
		Config:         controllers.NewConfigController(settings, sched),
		Notifications:  controllers.NewNotificationController(dataStore, whatsappService),
		Prices:         controllers.NewPriceController(priceService),
		CacheStats:     priceService.CacheStats,
	})

	// Stop the scheduler cleanly on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Printf("Received %s, shutting down", sig)
		sched.Stop()
		os.Exit(0)
	}()

	log.Printf("Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
