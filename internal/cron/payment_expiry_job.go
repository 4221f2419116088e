package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/scentdrive/campaign-backend/pkg/logger"
)

const (
	defaultPaymentWindow = 48 * time.Hour
	paymentExpiryBatch   = 200
)

type PaymentExpiryJobParams struct {
	Logger *logger.Logger
	Orders paymentExpirer
	Window time.Duration
}

type paymentExpirer interface {
	ExpireStalePayments(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// NewPaymentExpiryJob builds the job that cancels online orders whose
// payment was never confirmed.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultPaymentWindow
	}
	return &paymentExpiryJob{logg: params.Logger, orders: params.Orders, window: window}, nil
}

type paymentExpiryJob struct {
	logg   *logger.Logger
	orders paymentExpirer
	window time.Duration
}

func (j *paymentExpiryJob) Name() string { return "payment-expiry" }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	expired, err := j.orders.ExpireStalePayments(ctx, j.window, paymentExpiryBatch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"window":  j.window.String(),
		"expired": expired,
	})
	if err != nil {
		return fmt.Errorf("payment expiry: %w", err)
	}
	j.logg.Info(logCtx, "payment expiry complete")
	return nil
}
