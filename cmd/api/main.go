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

	"github.com/Dan9191/loan-eligibility/internal/cache"
	"github.com/Dan9191/loan-eligibility/internal/config"
	"github.com/Dan9191/loan-eligibility/internal/handler"
	"github.com/Dan9191/loan-eligibility/internal/integrations/cbr"
	"github.com/Dan9191/loan-eligibility/internal/logger"
	"github.com/Dan9191/loan-eligibility/internal/repository"
	"github.com/Dan9191/loan-eligibility/internal/scheduler"
	"github.com/Dan9191/loan-eligibility/internal/service"
	"github.com/Dan9191/loan-eligibility/internal/utils/email"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg, os.Stdout)

	// Initialize database
	db, err := repository.Open(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize layers
	repo := repository.NewRepository(db, cfg.DBDriver, log)
	var notifier service.Notifier = email.Nop{}
	if cfg.SMTPEnabled() {
		notifier = email.NewSender(cfg, log)
	}
	svc := service.NewService(repo, notifier, log, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Setup(ctx); err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}

	// Key rate cache: Redis when configured, in-process otherwise
	var keyRates cache.Cache = cache.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisCache(cfg.RedisAddr)
		if err := rc.Ping(ctx); err != nil {
			log.WithError(err).Warn("Redis unavailable, using in-memory cache")
		} else {
			defer rc.Close()
			keyRates = rc
		}
	}

	refresher := scheduler.NewKeyRateRefresher(cbr.NewCBRClient(cfg, log), keyRates, log, cfg.KeyRateRefreshSpec)
	if err := refresher.Start(); err != nil {
		log.Fatalf("Failed to start key rate scheduler: %v", err)
	}
	defer refresher.Stop()

	h := handler.NewHandler(svc, keyRates, refresher, log)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
