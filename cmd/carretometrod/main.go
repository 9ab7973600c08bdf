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

	"github.com/SherClockHolmes/webpush-go"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"carretometro-backend/config"
	"carretometro-backend/internal/api"
	"carretometro-backend/internal/assistant"
	"carretometro-backend/internal/audit"
	"carretometro-backend/internal/auth"
	"carretometro-backend/internal/db"
	"carretometro-backend/internal/logger"
	"carretometro-backend/internal/monitor"
	"carretometro-backend/internal/notification"
	"carretometro-backend/internal/store"
	"carretometro-backend/internal/workshop"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatalf("failed to load configuration from %s", configPath)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure logger")
	}
	log.WithField("path", configPath).Info("configuration loaded")

	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	appStore := store.NewGormStore(gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trail := audit.NewTrail(appStore, log)
	if err := trail.Load(ctx); err != nil {
		log.WithError(err).Warn("failed to load activity trail, starting empty")
	}

	authSvc := auth.NewService(appStore, trail, auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL()), log)
	if *cfg.Auth.SeedDefaultUsers {
		if err := authSvc.SeedDefaults(ctx); err != nil {
			log.WithError(err).Fatal("failed to seed default users")
		}
	}

	workshopSvc := workshop.NewService(appStore, trail, log)
	if cfg.Database.SeedFile != "" {
		data, err := workshop.LoadSeed(cfg.Database.SeedFile)
		if err != nil {
			log.WithError(err).Fatal("failed to load seed data")
		}
		if _, err := workshopSvc.Seed(ctx, data); err != nil {
			log.WithError(err).Fatal("failed to seed workshop board")
		}
	}

	var webpushOptions *webpush.Options
	var dispatcher monitor.Dispatcher
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, log)
		pool.Start(ctx)
		dispatcher = pool
	} else {
		log.Warn("VAPID keys not configured, SLA alerts will not be sent")
	}

	collectors := monitor.NewCollectors()
	hub := monitor.NewHub(log)
	go hub.Run(ctx)

	monitorSvc := monitor.NewService(cfg.Monitor, appStore, dispatcher, hub, collectors, log)
	go monitorSvc.Run(ctx)

	handler := api.NewHandler(api.Deps{
		Workshop:      workshopSvc,
		Auth:          authSvc,
		Trail:         trail,
		Assistant:     assistant.New(cfg.AI, log),
		Monitor:       monitorSvc,
		Hub:           hub,
		Collectors:    collectors,
		Subscriptions: appStore,
		Webpush:       webpushOptions,
		Location:      cfg.Monitor.Location,
		Log:           log,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, cfg.Server),
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server stopped unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("HTTP server shutdown failed")
	}
	log.Info("server gracefully stopped")
}
