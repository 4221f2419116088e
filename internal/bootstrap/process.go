package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/scentdrive/campaign-backend/pkg/bigquery"
	"github.com/scentdrive/campaign-backend/pkg/config"
	"github.com/scentdrive/campaign-backend/pkg/db"
	"github.com/scentdrive/campaign-backend/pkg/instance"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/metrics"
	"github.com/scentdrive/campaign-backend/pkg/migrate"
	"github.com/scentdrive/campaign-backend/pkg/pubsub"
	"github.com/scentdrive/campaign-backend/pkg/redis"
)

// Process is the common startup state of every binary: its config, a
// leveled logger and the clients it opened. Close releases the clients in
// reverse order.
type Process struct {
	Name   string
	Config *config.Config
	Logger *logger.Logger

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// Start reads .env when present, loads config and builds the process logger.
func Start(name string) (*Process, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = name

	return &Process{
		Name:   name,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: name,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
			Instance:    instance.GetID(),
		}),
	}, nil
}

// Fail logs a startup failure with whatever logger is available.
func Fail(p *Process, name, step string, err error) {
	logg := logger.New(logger.Options{ServiceName: name})
	if p != nil {
		logg = p.Logger
	}
	logg.Error(context.Background(), step+" failed", err)
}

// Context tags ctx with the fields every log line of the process carries.
func (p *Process) Context(ctx context.Context) context.Context {
	return p.Logger.WithFields(ctx, map[string]any{
		"env":         p.Config.App.Env,
		"serviceKind": p.Name,
	})
}

func (p *Process) onClose(name string, fn func() error) {
	p.closers = append(p.closers, namedCloser{name: name, close: fn})
}

func (p *Process) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		c := p.closers[i]
		if err := c.close(); err != nil {
			p.Logger.Error(p.Logger.WithField(context.Background(), "resource", c.name), "close failed", err)
		}
	}
	p.closers = nil
}

// Database connects Postgres and, in dev, applies pending migrations.
func (p *Process) Database(ctx context.Context) (*db.Client, error) {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	p.onClose("database", client.Close)
	if err := migrate.MaybeRunDev(ctx, p.Config, p.Logger, client); err != nil {
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

func (p *Process) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	p.onClose("redis", client.Close)
	return client, nil
}

func (p *Process) PubSub(ctx context.Context) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, p.Config.GCP, p.Config.PubSub, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}
	p.onClose("pubsub", client.Close)
	return client, nil
}

func (p *Process) BigQuery(ctx context.Context) (*bigquery.Client, error) {
	client, err := bigquery.NewClient(ctx, p.Config.GCP, p.Config.BigQuery, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect bigquery: %w", err)
	}
	p.onClose("bigquery", client.Close)
	return client, nil
}

// Serve runs loop until ctx ends, next to the metrics listener configured
// by SCENTDRIVE_METRICS_ADDR. Either one failing stops the other. A loop
// that ends because ctx was cancelled counts as a clean stop.
func (p *Process) Serve(ctx context.Context, gatherer prometheus.Gatherer, loop func(context.Context) error) error {
	group, groupCtx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(groupCtx)

	group.Go(func() error {
		defer cancel()
		if err := loop(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return metrics.Serve(runCtx, p.Config.Service.MetricsAddr, gatherer)
	})
	return group.Wait()
}
