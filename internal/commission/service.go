package commission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
	"github.com/scentdrive/campaign-backend/pkg/outbox/payloads"
)

// Recalculation triggers, carried on the commission_recalculated event.
const (
	TriggerOrderPlaced     = "order_placed"
	TriggerOrderStatus     = "order_status_changed"
	TriggerOrderDeleted    = "order_deleted"
	TriggerReferralChanged = "referral_changed"
	TriggerReconcile       = "reconcile"
	TriggerManual          = "manual"
)

const reconcilePageSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notifier writes a volunteer notification inside the caller's transaction.
type Notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, notification models.Notification) error
}

// Service keeps volunteers' stored referral totals equal to what their order
// history implies under the configured schedule.
type Service interface {
	Schedule() ReferralSchedule
	Recalculate(ctx context.Context, volunteerID uuid.UUID, trigger string) (*Result, error)
	RecalculateTx(ctx context.Context, tx *gorm.DB, volunteerID uuid.UUID, trigger string) (*Result, error)
	ReconcileAll(ctx context.Context) (*ReconcileSummary, error)
	Summary(ctx context.Context, volunteerID uuid.UUID) (*Summary, error)
}

// Result describes one recalculation.
type Result struct {
	VolunteerID        uuid.UUID       `json:"volunteer_id"`
	Schedule           string          `json:"schedule"`
	PreviousBottles    int             `json:"previous_bottles"`
	TotalBottles       int             `json:"total_bottles"`
	PreviousCommission decimal.Decimal `json:"previous_commission"`
	Commission         decimal.Decimal `json:"commission"`
	Changed            bool            `json:"changed"`
}

type ReconcileSummary struct {
	Checked int `json:"checked"`
	Changed int `json:"changed"`
	Failed  int `json:"failed"`
}

// Summary is the volunteer dashboard view of earnings.
type Summary struct {
	VolunteerID        uuid.UUID       `json:"volunteer_id"`
	ReferralCommission decimal.Decimal `json:"referral_commission"`
	ReferredBottles    int             `json:"referred_bottles"`
	Breakdown          Breakdown       `json:"breakdown"`
	DeliveredBottles   int             `json:"delivered_bottles"`
	DeliveryCommission decimal.Decimal `json:"delivery_commission"`
	UpdatedAt          *time.Time      `json:"updated_at,omitempty"`
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	notifier Notifier
	schedule ReferralSchedule
	logg     *logger.Logger
	now      func() time.Time
}

type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Notifier   Notifier
	Schedule   ReferralSchedule
	Logger     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	schedule := params.Schedule
	if schedule == nil {
		schedule = TieredSchedule()
	}
	return &service{
		repo:     params.Repository,
		tx:       params.Tx,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		schedule: schedule,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Schedule() ReferralSchedule {
	return s.schedule
}

func (s *service) Recalculate(ctx context.Context, volunteerID uuid.UUID, trigger string) (*Result, error) {
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.RecalculateTx(ctx, tx, volunteerID, trigger)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecalculateTx runs inside the caller's transaction so an order write and
// the commission it implies commit together.
func (s *service) RecalculateTx(ctx context.Context, tx *gorm.DB, volunteerID uuid.UUID, trigger string) (*Result, error) {
	if volunteerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "volunteer id required")
	}
	repo := s.repo.WithTx(tx)

	volunteer, err := repo.LockVolunteer(ctx, volunteerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "volunteer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock volunteer")
	}

	bottles, err := repo.SumQualifyingBottles(ctx, volunteerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum qualifying bottles")
	}
	amount := s.schedule.Commission(bottles)

	result := &Result{
		VolunteerID:        volunteerID,
		Schedule:           s.schedule.Name(),
		PreviousBottles:    volunteer.TotalReferredBottles,
		TotalBottles:       bottles,
		PreviousCommission: volunteer.TotalReferralCommission,
		Commission:         amount,
	}
	result.Changed = bottles != volunteer.TotalReferredBottles || !amount.Equal(volunteer.TotalReferralCommission)
	if !result.Changed {
		return result, nil
	}

	if err := repo.SaveTotals(ctx, volunteerID, bottles, amount, s.now()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save commission totals")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventCommissionRecalculated,
		AggregateType: enums.AggregateVolunteer,
		AggregateID:   volunteerID,
		Data: payloads.CommissionRecalculatedEvent{
			VolunteerID:        volunteerID,
			Schedule:           result.Schedule,
			PreviousBottles:    result.PreviousBottles,
			TotalBottles:       bottles,
			PreviousCommission: result.PreviousCommission,
			Commission:         amount,
			Trigger:            trigger,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit commission event")
	}

	if s.notifier != nil {
		notification := models.Notification{
			VolunteerID: volunteerID,
			Type:        enums.NotificationTypeCommissionUpdate,
			Title:       "Commission updated",
			Message:     fmt.Sprintf("Your referral commission is now %s for %d bottles.", amount.StringFixed(2), bottles),
		}
		if err := s.notifier.Notify(ctx, tx, notification); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notify commission update")
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"volunteer_id":        volunteerID.String(),
		"trigger":             trigger,
		"previous_commission": result.PreviousCommission.String(),
		"commission":          amount.String(),
		"bottles":             bottles,
	})
	s.logg.Info(logCtx, "referral commission recalculated")
	return result, nil
}

// ReconcileAll recalculates every active and suspended volunteer. One
// volunteer failing does not stop the sweep; failures are combined.
func (s *service) ReconcileAll(ctx context.Context) (*ReconcileSummary, error) {
	summary := &ReconcileSummary{}
	var errs error
	after := uuid.Nil
	for {
		ids, err := s.repo.ListReconcilable(ctx, after, reconcilePageSize)
		if err != nil {
			return summary, multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list volunteers"))
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return summary, multierr.Append(errs, err)
			}
			summary.Checked++
			result, err := s.Recalculate(ctx, id, TriggerReconcile)
			if err != nil {
				summary.Failed++
				errs = multierr.Append(errs, fmt.Errorf("volunteer %s: %w", id, err))
				continue
			}
			if result.Changed {
				summary.Changed++
			}
		}
		if len(ids) < reconcilePageSize {
			break
		}
		after = ids[len(ids)-1]
	}
	return summary, errs
}

func (s *service) Summary(ctx context.Context, volunteerID uuid.UUID) (*Summary, error) {
	if volunteerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "volunteer id required")
	}
	volunteer, err := s.repo.FindVolunteer(ctx, volunteerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "volunteer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load volunteer")
	}
	delivered, err := s.repo.SumDeliveredBottles(ctx, volunteerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum delivered bottles")
	}
	return &Summary{
		VolunteerID:        volunteerID,
		ReferralCommission: volunteer.TotalReferralCommission,
		ReferredBottles:    volunteer.TotalReferredBottles,
		Breakdown:          s.schedule.Breakdown(volunteer.TotalReferredBottles),
		DeliveredBottles:   delivered,
		DeliveryCommission: CalculateDeliveryCommission(delivered),
		UpdatedAt:          volunteer.CommissionUpdatedAt,
	}, nil
}
