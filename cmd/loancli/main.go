package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dan9191/loan-eligibility/internal/cli"
	"github.com/Dan9191/loan-eligibility/internal/config"
	"github.com/Dan9191/loan-eligibility/internal/logger"
	"github.com/Dan9191/loan-eligibility/internal/repository"
	"github.com/Dan9191/loan-eligibility/internal/service"
	"github.com/Dan9191/loan-eligibility/internal/utils/email"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	// stdout belongs to the menu
	log := logger.New(cfg, os.Stderr)

	db, err := repository.Open(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var notifier service.Notifier = email.Nop{}
	if cfg.SMTPEnabled() {
		notifier = email.NewSender(cfg, log)
	}
	svc := service.NewService(repository.NewRepository(db, cfg.DBDriver, log), notifier, log, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewMenu(svc, os.Stdin, os.Stdout, log).Run(ctx); err != nil {
		log.WithError(err).Error("Calculator stopped")
	}
}
