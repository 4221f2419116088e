// Package bootstrap builds the domain service graph shared by the api and
// cron-worker binaries.
package bootstrap

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/scentdrive/campaign-backend/internal/assignment"
	"github.com/scentdrive/campaign-backend/internal/commission"
	"github.com/scentdrive/campaign-backend/internal/notifications"
	"github.com/scentdrive/campaign-backend/internal/orders"
	"github.com/scentdrive/campaign-backend/internal/reports"
	"github.com/scentdrive/campaign-backend/internal/tracking"
	"github.com/scentdrive/campaign-backend/internal/volunteers"
	"github.com/scentdrive/campaign-backend/pkg/config"
	"github.com/scentdrive/campaign-backend/pkg/db"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/metrics"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
)

type Services struct {
	Outbox        *outbox.Repository
	Notifications notifications.Service
	Volunteers    volunteers.Service
	Commission    commission.Service
	Assignment    assignment.Service
	Orders        orders.Service
	Tracking      tracking.Service
	Reports       reports.Service
}

// Build wires every service against one database client. reg may be nil.
func Build(cfg *config.Config, logg *logger.Logger, client *db.Client, reg prometheus.Registerer) (*Services, error) {
	conn := client.DB()
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)

	unitPrice, err := decimal.NewFromString(cfg.Orders.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("parse unit price %q: %w", cfg.Orders.UnitPrice, err)
	}
	schedule, err := commission.ScheduleByName(cfg.Commission.Schedule())
	if err != nil {
		return nil, err
	}

	notificationSvc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("notifications service: %w", err)
	}

	volunteerSvc, err := volunteers.NewService(volunteers.ServiceParams{
		Repository: volunteers.NewRepository(conn),
		Tx:         client,
		Outbox:     emitter,
		Notifier:   notificationSvc,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("volunteers service: %w", err)
	}

	commissionSvc, err := commission.NewService(commission.ServiceParams{
		Repository: commission.NewRepository(conn),
		Tx:         client,
		Outbox:     emitter,
		Notifier:   notificationSvc,
		Schedule:   schedule,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("commission service: %w", err)
	}

	assignmentSvc, err := assignment.NewService(assignment.ServiceParams{
		Repository: assignment.NewRepository(conn),
		Tx:         client,
		Outbox:     emitter,
		Matcher:    volunteerSvc,
		Notifier:   notificationSvc,
		Metrics:    metrics.NewAssignmentMetrics(reg),
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("assignment service: %w", err)
	}

	orderParams := orders.ServiceParams{
		Repository:  orders.NewRepository(conn),
		Tx:          client,
		Outbox:      emitter,
		Referrals:   volunteerSvc,
		Commission:  commissionSvc,
		Logger:      logg,
		UnitPrice:   unitPrice,
		MaxQuantity: cfg.Orders.MaxQuantity,
	}
	if cfg.FeatureFlags.AutoAssignment {
		orderParams.Assigner = assignmentSvc
	}
	orderSvc, err := orders.NewService(orderParams)
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	trackingSvc, err := tracking.NewService(tracking.ServiceParams{
		Repository: tracking.NewRepository(conn),
		Tx:         client,
		Outbox:     emitter,
		Orders:     orderSvc,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("tracking service: %w", err)
	}

	reportSvc, err := reports.NewService(reports.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("reports service: %w", err)
	}

	return &Services{
		Outbox:        outboxRepo,
		Notifications: notificationSvc,
		Volunteers:    volunteerSvc,
		Commission:    commissionSvc,
		Assignment:    assignmentSvc,
		Orders:        orderSvc,
		Tracking:      trackingSvc,
		Reports:       reportSvc,
	}, nil
}
