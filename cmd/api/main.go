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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scentdrive/campaign-backend/api/routes"
	"github.com/scentdrive/campaign-backend/internal/bootstrap"
	"github.com/scentdrive/campaign-backend/pkg/metrics"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
)

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
	cfg, logg := proc.Config, proc.Logger

	dbClient, err := proc.Database(ctx)
	if err != nil {
		return err
	}
	redisClient, err := proc.Redis(ctx)
	if err != nil {
		return err
	}
	services, err := bootstrap.Build(cfg, logg, dbClient, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		DB:             dbClient,
		Redis:          redisClient,
		Metrics:        metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		MetricsHandler: promhttp.Handler(),
		Orders:         services.Orders,
		Volunteers:     services.Volunteers,
		Assignment:     services.Assignment,
		Commission:     services.Commission,
		Tracking:       services.Tracking,
		Notifications:  services.Notifications,
		Reports:        services.Reports,
	})

	// PORT is set by the hosting platform and wins over the configured port.
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx = logg.WithFields(proc.Context(ctx), map[string]any{
		"addr":           server.Addr,
		"autoAssignment": cfg.FeatureFlags.AutoAssignment,
		"schedule":       cfg.Commission.Schedule(),
	})
	logg.Info(ctx, "api server started")
	if err := proc.Serve(ctx, prometheus.DefaultGatherer, func(ctx context.Context) error {
		return listen(ctx, server)
	}); err != nil {
		return err
	}
	logg.Info(ctx, "api server stopped")
	return nil
}

// listen serves until ctx ends and then drains in-flight requests.
func listen(ctx context.Context, server *http.Server) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", server.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
