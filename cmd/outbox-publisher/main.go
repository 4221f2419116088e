package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scentdrive/campaign-backend/internal/bootstrap"
	"github.com/scentdrive/campaign-backend/pkg/metrics"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
	"github.com/scentdrive/campaign-backend/pkg/outbox/idempotency"
	"github.com/scentdrive/campaign-backend/pkg/outbox/registry"
)

const serviceName = "outbox-publisher"

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

	dbClient, err := proc.Database(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := proc.PubSub(ctx)
	if err != nil {
		return err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}

	guard, err := idempotency.NewLedger(redisClient, proc.Config.Eventing.IdempotencyTTL)
	if err != nil {
		return fmt.Errorf("publish guard: %w", err)
	}
	eventRegistry, err := registry.NewEventRegistry(proc.Config.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}

	service, err := NewService(ServiceParams{
		Config:     proc.Config,
		Logger:     proc.Logger,
		DB:         dbClient,
		PubSub:     pubsubClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   eventRegistry,
		Guard:      guard,
		Metrics:    metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("outbox publisher: %w", err)
	}
	defer service.Close()

	proc.Logger.Info(ctx, "outbox publisher started")
	if err := proc.Serve(ctx, prometheus.DefaultGatherer, service.Run); err != nil {
		return err
	}
	proc.Logger.Info(ctx, "outbox publisher stopped")
	return nil
}
