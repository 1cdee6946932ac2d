package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"inventory-bot-backend/config"
	"inventory-bot-backend/internal/api"
	"inventory-bot-backend/internal/bot"
	"inventory-bot-backend/internal/db"
	"inventory-bot-backend/internal/maintenance"
	"inventory-bot-backend/internal/notification"
	"inventory-bot-backend/internal/offers"
	"inventory-bot-backend/internal/replenish"
	"inventory-bot-backend/internal/store"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	logger := config.NewLogger(cfg.Log)
	logger.WithField("path", configPath).Info("configuration loaded")

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	notifier, err := notification.FromConfig(cfg, appStore, logger.WithField("component", "notifier"))
	if err != nil {
		logger.WithError(err).Fatal("failed to configure notifications")
	}

	engine := replenish.NewEngine(appStore, notifier, cfg.Bot.OrderMultiplier, nil, logger)
	offerMonitor := offers.NewMonitor(appStore, notifier, offers.Options{
		StaleAfter:       time.Duration(cfg.Bot.StaleOfferDays) * 24 * time.Hour,
		ReminderCooldown: cfg.Bot.OfferReminderCooldown,
		LotAlerts:        cfg.Bot.LotAlerts(),
	}, nil, logger)
	maintenanceMonitor := maintenance.NewMonitor(appStore, engine, notifier, maintenance.Options{
		WindowDays:     cfg.Bot.UpcomingWindowDays,
		AdminRecipient: cfg.Bot.AdminRecipient,
	}, nil, logger)

	b := bot.New(
		[]bot.Monitor{engine, offerMonitor, maintenanceMonitor},
		appStore,
		notifier,
		bot.DefaultCounters(appStore),
		bot.Options{
			Interval:        cfg.Bot.Interval,
			ErrorBackoff:    cfg.Bot.ErrorBackoff,
			HealthRecipient: cfg.Bot.HealthRecipient,
			HealthOnStart:   cfg.Bot.HealthOnStart(),
		},
		nil,
		logger,
	)

	botDone := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(botDone)
	}()

	var server *http.Server
	if cfg.Server.Enabled {
		handler := api.NewHandler(appStore, b, notification.WebPushOptions(cfg.Push), logger)
		server = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: api.NewRouter(handler, cfg.Server, logger.WithField("component", "api")),
		}

		go func() {
			logger.WithField("port", cfg.Server.Port).Info("HTTP server starting")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Fatal("HTTP server ListenAndServe")
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("HTTP server shutdown")
		}
	}

	select {
	case <-botDone:
	case <-shutdownCtx.Done():
		logger.Warn("bot loop did not stop before the shutdown deadline")
	}
	logger.Info("stopped")
}
