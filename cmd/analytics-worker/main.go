package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scentdrive/campaign-backend/internal/analytics"
	"github.com/scentdrive/campaign-backend/internal/analytics/worker"
	"github.com/scentdrive/campaign-backend/internal/analytics/writer"
	"github.com/scentdrive/campaign-backend/internal/bootstrap"
	"github.com/scentdrive/campaign-backend/pkg/outbox/idempotency"
)

const serviceName = "analytics-worker"

func main() {
	proc, err := bootstrap.Start(serviceName)
	if err != nil {
		bootstrap.Fail(nil, serviceName, "startup", err)
		os.Exit(1)
	}
	err = run(proc)
	proc.Close()
	if err != nil {
		bootstrap.Fail(proc, serviceName, serviceName, err)
		os.Exit(1)
	}
}

func run(proc *bootstrap.Process) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = proc.Context(ctx)

	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := proc.PubSub(ctx)
	if err != nil {
		return err
	}
	bqClient, err := proc.BigQuery(ctx)
	if err != nil {
		return err
	}

	subscription, err := pubsubClient.AnalyticsSubscription(ctx)
	if err != nil {
		return fmt.Errorf("analytics subscription: %w", err)
	}
	ledger, err := idempotency.NewLedger(redisClient, proc.Config.Eventing.IdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency ledger: %w", err)
	}
	eventsWriter, err := writer.New(bqClient, writer.Config{
		Table:     bqClient.Table(),
		BatchSize: proc.Config.BigQuery.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("campaign events writer: %w", err)
	}
	router, err := analytics.NewRouter(eventsWriter, proc.Logger)
	if err != nil {
		return fmt.Errorf("analytics router: %w", err)
	}
	service, err := worker.NewService(subscription, router, ledger, proc.Logger)
	if err != nil {
		return fmt.Errorf("analytics worker: %w", err)
	}

	proc.Logger.Info(ctx, "analytics worker started")
	runErr := proc.Serve(ctx, prometheus.DefaultGatherer, service.Run)

	// ctx is already done here; the tail of the batch gets its own context.
	if err := eventsWriter.Flush(context.Background()); err != nil {
		proc.Logger.Error(ctx, "flush buffered campaign events failed", err)
	}
	return runErr
}
