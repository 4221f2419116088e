package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/scentdrive/campaign-backend/internal/assignment"
	"github.com/scentdrive/campaign-backend/internal/commission"
	"github.com/scentdrive/campaign-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeReconciler struct {
	summary *commission.ReconcileSummary
	err     error
	calls   int
}

func (f *fakeReconciler) ReconcileAll(context.Context) (*commission.ReconcileSummary, error) {
	f.calls++
	return f.summary, f.err
}

func TestCommissionReconcileJob(t *testing.T) {
	reconciler := &fakeReconciler{summary: &commission.ReconcileSummary{Checked: 3, Changed: 1}}
	job, err := NewCommissionReconcileJob(CommissionReconcileJobParams{Logger: testLogger(), Commission: reconciler})
	if err != nil {
		t.Fatalf("NewCommissionReconcileJob: %v", err)
	}
	if job.Name() != "commission-reconcile" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	reconciler.summary = &commission.ReconcileSummary{Checked: 3, Failed: 1}
	reconciler.err = errors.New("volunteer x: boom")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected partial failure to fail the job")
	}
	if reconciler.calls != 2 {
		t.Fatalf("expected two calls, got %d", reconciler.calls)
	}
}

func TestCommissionReconcileJobRequiresService(t *testing.T) {
	if _, err := NewCommissionReconcileJob(CommissionReconcileJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected missing service error")
	}
}

type fakeSweeper struct {
	maxAge time.Duration
	limit  int
	err    error
}

func (f *fakeSweeper) Sweep(_ context.Context, maxAge time.Duration, limit int) (assignment.SweepSummary, error) {
	f.maxAge = maxAge
	f.limit = limit
	return assignment.SweepSummary{Checked: 2, Assigned: 1, Review: 1}, f.err
}

func TestAssignmentSweepJobDefaults(t *testing.T) {
	sweeper := &fakeSweeper{}
	job, err := NewAssignmentSweepJob(AssignmentSweepJobParams{Logger: testLogger(), Assignment: sweeper})
	if err != nil {
		t.Fatalf("NewAssignmentSweepJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.maxAge != defaultSweepMaxAge || sweeper.limit != defaultSweepLimit {
		t.Fatalf("unexpected sweep args %s %d", sweeper.maxAge, sweeper.limit)
	}

	sweeper.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep error")
	}
}

type fakePruner struct {
	cutoff time.Time
}

func (f *fakePruner) PruneRead(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 4, nil
}

func TestNotificationCleanupJobCutoff(t *testing.T) {
	pruner := &fakePruner{}
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:        testLogger(),
		Notifications: pruner,
		Retention:     24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	job := jobIface.(*notificationCleanupJob)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-24 * time.Hour); !pruner.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, pruner.cutoff)
	}
}

type fakeExpirer struct {
	window time.Duration
	err    error
}

func (f *fakeExpirer) ExpireStalePayments(_ context.Context, olderThan time.Duration, limit int) (int, error) {
	f.window = olderThan
	if limit != paymentExpiryBatch {
		return 0, errors.New("unexpected limit")
	}
	return 1, f.err
}

func TestPaymentExpiryJob(t *testing.T) {
	expirer := &fakeExpirer{}
	job, err := NewPaymentExpiryJob(PaymentExpiryJobParams{Logger: testLogger(), Orders: expirer})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expirer.window != defaultPaymentWindow {
		t.Fatalf("expected default window, got %s", expirer.window)
	}

	expirer.err = errors.New("order x: conflict")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
