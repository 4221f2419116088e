package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scentdrive/campaign-backend/internal/bootstrap"
	"github.com/scentdrive/campaign-backend/internal/cron"
	"github.com/scentdrive/campaign-backend/pkg/config"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/metrics"
)

const serviceName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run one cycle (ignoring job cadence) and exit")
	only := flag.String("jobs", "", "comma-separated job names for -once; empty runs every job")
	flag.Parse()

	proc, err := bootstrap.Start(serviceName)
	if err != nil {
		bootstrap.Fail(nil, serviceName, "startup", err)
		os.Exit(1)
	}
	err = run(proc, *once, splitJobs(*only))
	proc.Close()
	if err != nil {
		bootstrap.Fail(proc, serviceName, serviceName, err)
		os.Exit(1)
	}
}

func run(proc *bootstrap.Process, once bool, only []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = proc.Context(ctx)
	cfg, logg := proc.Config, proc.Logger

	dbClient, err := proc.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}

	// The api process owns assignment metrics; a nil registerer keeps this
	// worker from exporting a second copy.
	services, err := bootstrap.Build(cfg, logg, dbClient, nil)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	registry, err := buildRegistry(cfg, logg, services)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	ctx = logg.WithField(ctx, "jobs", len(registry.Jobs()))
	if once {
		logg.Info(logg.WithField(ctx, "selected", only), "running cron jobs once")
		return service.RunOnce(ctx, only...)
	}

	logg.Info(ctx, "cron worker started")
	if err := proc.Serve(ctx, prometheus.DefaultGatherer, service.Run); err != nil {
		return err
	}
	logg.Info(ctx, "cron worker stopped")
	return nil
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, services *bootstrap.Services) (*cron.Registry, error) {
	reconcile, err := cron.NewCommissionReconcileJob(cron.CommissionReconcileJobParams{
		Logger:     logg,
		Commission: services.Commission,
	})
	if err != nil {
		return nil, fmt.Errorf("commission reconcile job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: services.Outbox,
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	sweep, err := cron.NewAssignmentSweepJob(cron.AssignmentSweepJobParams{
		Logger:     logg,
		Assignment: services.Assignment,
		MaxAge:     cfg.Cron.SweepMaxOrderAge,
		Limit:      cfg.Cron.SweepBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("assignment sweep job: %w", err)
	}
	expiry, err := cron.NewPaymentExpiryJob(cron.PaymentExpiryJobParams{
		Logger: logg,
		Orders: services.Orders,
		Window: cfg.Cron.PaymentWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("payment expiry job: %w", err)
	}
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		Notifications: services.Notifications,
		Retention:     cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}
	return cron.NewRegistry(reconcile, retention, sweep, expiry, cleanup)
}

func splitJobs(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
