package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/fleet-charges/internal/config"
	"github.com/segyhp/fleet-charges/internal/observability"
	"github.com/segyhp/fleet-charges/internal/repository"
	"github.com/segyhp/fleet-charges/internal/service"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// The worker only reads; it runs without the charge cache
	chargeService := service.NewChargeService(
		repository.NewChargeRepository(db),
		repository.NewInstallmentRepository(db),
		repository.NewLookupRepository(db),
		nil,
		cfg,
		logger,
		observability.NewMetrics(),
	)

	loc := cfg.GetSchedulerLocation()
	c := cron.New(cron.WithSeconds(), cron.WithLocation(loc))

	if _, err := c.AddFunc(cfg.Scheduler.Cron, func() {
		reportOverdue(chargeService, logger, time.Now().In(loc))
	}); err != nil {
		logger.Fatal("failed to schedule overdue report job", zap.String("spec", cfg.Scheduler.Cron), zap.Error(err))
	}

	c.Start()
	logger.Info("scheduler started", zap.String("spec", cfg.Scheduler.Cron), zap.String("timezone", loc.String()))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}

// reportOverdue logs the unpaid installments of valid charges that fell due before today.
func reportOverdue(chargeService *service.ChargeService, logger *zap.Logger, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	asOf := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	report, err := chargeService.OverdueInstallments(ctx, asOf)
	if err != nil {
		logger.Error("overdue report failed", zap.Error(err))
		return
	}

	logger.Info("overdue installments",
		zap.Time("as_of", report.AsOf),
		zap.Int("count", len(report.Installments)),
		zap.String("outstanding", report.Outstanding.StringFixed(2)),
	)
	for _, inst := range report.Installments {
		logger.Debug("overdue installment",
			zap.String("installment_id", inst.ID),
			zap.String("charge_id", inst.ChargeID),
			zap.Time("due_date", inst.DueDate),
			zap.String("amount", inst.Amount.StringFixed(2)),
		)
	}
}
