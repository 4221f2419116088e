package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/scentdrive/campaign-backend/internal/assignment"
	"github.com/scentdrive/campaign-backend/pkg/logger"
)

const (
	defaultSweepMaxAge = 7 * 24 * time.Hour
	defaultSweepLimit  = 200
)

type AssignmentSweepJobParams struct {
	Logger     *logger.Logger
	Assignment assignmentSweeper
	MaxAge     time.Duration
	Limit      int
}

type assignmentSweeper interface {
	Sweep(ctx context.Context, maxAge time.Duration, limit int) (assignment.SweepSummary, error)
}

func NewAssignmentSweepJob(params AssignmentSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Assignment == nil {
		return nil, fmt.Errorf("assignment service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultSweepMaxAge
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	return &assignmentSweepJob{
		logg:   params.Logger,
		sweep:  params.Assignment,
		maxAge: maxAge,
		limit:  limit,
	}, nil
}

type assignmentSweepJob struct {
	logg   *logger.Logger
	sweep  assignmentSweeper
	maxAge time.Duration
	limit  int
}

func (j *assignmentSweepJob) Name() string { return "assignment-sweep" }

func (j *assignmentSweepJob) Run(ctx context.Context) error {
	summary, err := j.sweep.Sweep(ctx, j.maxAge, j.limit)
	if err != nil {
		return fmt.Errorf("assignment sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked":  summary.Checked,
		"assigned": summary.Assigned,
		"review":   summary.Review,
		"failed":   summary.Failed,
	})
	j.logg.Info(logCtx, "assignment sweep complete")
	return nil
}
