// Package main runs the background worker: email delivery and the scheduled
// maintenance sweeps.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nimbus-saas/backend/config"
	"github.com/nimbus-saas/backend/internal/email"
	"github.com/nimbus-saas/backend/internal/emaillogs"
	"github.com/nimbus-saas/backend/internal/maintenance"
	"github.com/nimbus-saas/backend/internal/worker"
	"github.com/nimbus-saas/backend/pkg/database"
	"github.com/nimbus-saas/backend/pkg/queue"
	"github.com/nimbus-saas/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	sender := email.NewSenderFromConfig(cfg.Email, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	deliveryLog := emaillogs.NewRepository(pool)
	processor := worker.NewEmailProcessor(sender, jobQueue, deliveryLog, logger)

	// Maintenance sweeps send reminder mail directly; they run in this
	// process, so there is no reason to round-trip through the queue.
	jobs := maintenance.NewJobs(maintenance.NewRepository(pool), sender, cfg.Limits, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("email worker started")

	sched := cron.New()
	schedule := func(spec, name string, run func(context.Context) error) {
		_, err := sched.AddFunc(spec, func() {
			if err := run(workerCtx); err != nil {
				logger.Error("maintenance job failed", zap.String("job", name), zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("schedule job", zap.String("job", name), zap.Error(err))
		}
	}
	schedule("0 3 * * *", "refill_credits", jobs.RefillCredits)
	schedule("30 3 * * *", "purge_deleted_orgs", jobs.PurgeDeletedOrgs)
	schedule("@hourly", "low_credit_reminders", jobs.SendLowCreditReminders)
	schedule("@hourly", "renewal_reminders", jobs.SendRenewalReminders)
	sched.Start()
	logger.Info("maintenance scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cronCtx := sched.Stop()
	cancel()
	select {
	case <-cronCtx.Done():
	case <-time.After(10 * time.Second):
		logger.Warn("cron jobs still running at shutdown deadline")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
