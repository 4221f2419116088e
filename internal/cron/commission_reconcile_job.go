package cron

import (
	"context"
	"fmt"

	"github.com/scentdrive/campaign-backend/internal/commission"
	"github.com/scentdrive/campaign-backend/pkg/logger"
)

type CommissionReconcileJobParams struct {
	Logger     *logger.Logger
	Commission commissionReconciler
}

type commissionReconciler interface {
	ReconcileAll(ctx context.Context) (*commission.ReconcileSummary, error)
}

// NewCommissionReconcileJob builds the job that recomputes every active and
// suspended volunteer's referral totals from their order history.
func NewCommissionReconcileJob(params CommissionReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Commission == nil {
		return nil, fmt.Errorf("commission service required")
	}
	return &commissionReconcileJob{logg: params.Logger, commission: params.Commission}, nil
}

type commissionReconcileJob struct {
	logg       *logger.Logger
	commission commissionReconciler
}

func (j *commissionReconcileJob) Name() string { return "commission-reconcile" }

// Run reports partial progress even when some volunteers fail; the combined
// error still marks the job failed.
func (j *commissionReconcileJob) Run(ctx context.Context) error {
	summary, err := j.commission.ReconcileAll(ctx)
	if summary != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"checked": summary.Checked,
			"changed": summary.Changed,
			"failed":  summary.Failed,
		})
		j.logg.Info(logCtx, "commission reconcile summary")
	}
	if err != nil {
		return fmt.Errorf("commission reconcile: %w", err)
	}
	return nil
}
