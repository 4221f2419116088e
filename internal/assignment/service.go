package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/internal/volunteers"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/metrics"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
	"github.com/scentdrive/campaign-backend/pkg/outbox/payloads"
)

// Outcome labels a delivery assignment attempt.
type Outcome string

const (
	OutcomeAssigned        Outcome = "assigned"
	OutcomeNoMatch         Outcome = "no_match"
	OutcomeMultipleMatches Outcome = "multiple_matches"
	OutcomeManual          Outcome = "manual"
	OutcomeUnassigned      Outcome = "unassigned"
)

const (
	modeAuto   = "auto"
	modeManual = "manual"
)

// Orders in these statuses still need someone at the door.
var assignableOrderStatuses = []enums.OrderStatus{
	enums.OrderStatusPaymentPending,
	enums.OrderStatusOrdered,
	enums.OrderStatusShipped,
	enums.OrderStatusCantReach,
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Matcher finds active volunteers living at an address.
type Matcher interface {
	FindMatchingVolunteersTx(ctx context.Context, tx *gorm.DB, addr volunteers.Address) []models.Volunteer
}

// Notifier writes a volunteer notification inside the caller's transaction.
type Notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, notification models.Notification) error
}

type outcomeRecorder interface {
	IncOutcome(outcome string)
}

// Candidate is a volunteer eligible to deliver an order.
type Candidate struct {
	ID          uuid.UUID `json:"id"`
	VolunteerID string    `json:"volunteer_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
}

// Result describes what an assignment call did to the order.
type Result struct {
	OrderID             uuid.UUID            `json:"order_id"`
	Outcome             Outcome              `json:"outcome"`
	DeliveryStatus      enums.DeliveryStatus `json:"delivery_status"`
	DeliveryVolunteerID *uuid.UUID           `json:"delivery_volunteer_id,omitempty"`
	Candidates          []Candidate          `json:"candidates"`
}

// Service pairs orders with delivery volunteers.
type Service interface {
	AutoAssign(ctx context.Context, orderID uuid.UUID) (*Result, error)
	ManualAssign(ctx context.Context, orderID, volunteerID uuid.UUID, actor *outbox.ActorRef) (*Result, error)
	Unassign(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) (*Result, error)
	Candidates(ctx context.Context, orderID uuid.UUID) ([]Candidate, error)
	Sweep(ctx context.Context, maxAge time.Duration, limit int) (SweepSummary, error)
}

// SweepSummary counts outcomes of one assignment sweep.
type SweepSummary struct {
	Checked  int
	Assigned int
	Review   int
	Failed   int
}

type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Matcher    Matcher
	Notifier   Notifier
	Metrics    outcomeRecorder
	Logger     *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	matcher  Matcher
	notifier Notifier
	metrics  outcomeRecorder
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("assignment repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Matcher == nil {
		return nil, fmt.Errorf("volunteer matcher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	var recorder outcomeRecorder = metrics.NewAssignmentMetrics(nil)
	if params.Metrics != nil {
		recorder = params.Metrics
	}
	return &service{
		repo:     params.Repository,
		tx:       params.Tx,
		outbox:   params.Outbox,
		matcher:  params.Matcher,
		notifier: params.Notifier,
		metrics:  recorder,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// AutoAssign runs the address matcher for an order that has no delivery
// volunteer yet. One match assigns; zero or several flag the order for
// admin review.
func (s *service) AutoAssign(ctx context.Context, orderID uuid.UUID) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}
		if err := ensureOpen(order); err != nil {
			return err
		}
		if order.DeliveryVolunteerID != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a delivery volunteer")
		}

		matches, err := s.matchWithinSavepoint(ctx, tx, addressOf(order))
		if err != nil {
			return err
		}
		candidates := toCandidates(matches)

		switch len(matches) {
		case 1:
			result, err = s.assign(ctx, tx, order, matches[0], modeAuto, nil)
			if err != nil {
				return err
			}
			result.Outcome = OutcomeAssigned
			result.Candidates = candidates
			return nil
		case 0:
			result, err = s.flagForReview(ctx, tx, order, OutcomeNoMatch, candidates, nil)
			return err
		default:
			result, err = s.flagForReview(ctx, tx, order, OutcomeMultipleMatches, candidates, nil)
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOutcome(string(result.Outcome))
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"outcome":    result.Outcome,
		"candidates": len(result.Candidates),
	})
	s.logg.Info(logCtx, "delivery auto-assignment evaluated")
	return result, nil
}

// matchWithinSavepoint runs the matcher behind a savepoint. The matcher
// logs and swallows its own query errors, but on Postgres a failed
// statement leaves the transaction unusable until it is rolled back to a
// savepoint. The matcher only reads, so the rollback never discards work.
func (s *service) matchWithinSavepoint(ctx context.Context, tx *gorm.DB, addr volunteers.Address) ([]models.Volunteer, error) {
	const savepoint = "delivery_match"
	if err := tx.SavePoint(savepoint).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open match savepoint")
	}
	matches := s.matcher.FindMatchingVolunteersTx(ctx, tx, addr)
	if err := tx.RollbackTo(savepoint).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "roll back match savepoint")
	}
	return matches, nil
}

func (s *service) ManualAssign(ctx context.Context, orderID, volunteerID uuid.UUID, actor *outbox.ActorRef) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if volunteerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery volunteer id required")
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}
		if err := ensureOpen(order); err != nil {
			return err
		}
		volunteer, err := repo.FindVolunteer(ctx, volunteerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "volunteer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load volunteer")
		}
		if volunteer.Status != enums.VolunteerStatusActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "only active volunteers can deliver").
				WithDetails(map[string]any{"status": volunteer.Status})
		}
		if order.DeliveryVolunteerID != nil && *order.DeliveryVolunteerID == volunteerID {
			return pkgerrors.New(pkgerrors.CodeConflict, "volunteer is already assigned to this order")
		}
		if order.DeliveryVolunteerID != nil {
			if err := s.notifyUnassigned(ctx, tx, order, *order.DeliveryVolunteerID); err != nil {
				return err
			}
		}

		result, err = s.assign(ctx, tx, order, *volunteer, modeManual, actor)
		if err != nil {
			return err
		}
		result.Outcome = OutcomeManual
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOutcome(string(OutcomeManual))
	logCtx := s.logg.WithVolunteerID(s.logg.WithOrderID(ctx, orderID.String()), volunteerID.String())
	s.logg.Info(logCtx, "delivery volunteer assigned manually")
	return result, nil
}

// Unassign clears the delivery volunteer and puts the order back in the
// review queue.
func (s *service) Unassign(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) (*Result, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}
		if order.DeliveryVolunteerID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no delivery volunteer")
		}
		if order.DeliveryStatus.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery already finished").
				WithDetails(map[string]any{"delivery_status": order.DeliveryStatus})
		}
		previous := *order.DeliveryVolunteerID

		if err := repo.UpdateDelivery(ctx, order.ID, map[string]any{
			"delivery_volunteer_id": nil,
			"is_delivery_duty":      false,
			"delivery_status":       enums.DeliveryStatusNeedsReview,
			"assigned_at":           nil,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear delivery volunteer")
		}
		if err := s.notifyUnassigned(ctx, tx, order, previous); err != nil {
			return err
		}
		if err := s.emitReview(ctx, tx, order, string(OutcomeUnassigned), nil, actor); err != nil {
			return err
		}
		result = &Result{
			OrderID:        order.ID,
			Outcome:        OutcomeUnassigned,
			DeliveryStatus: enums.DeliveryStatusNeedsReview,
			Candidates:     []Candidate{},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOutcome(string(OutcomeUnassigned))
	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "delivery volunteer unassigned")
	return result, nil
}

func (s *service) Candidates(ctx context.Context, orderID uuid.UUID) ([]Candidate, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var candidates []Candidate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindOrder(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}
		candidates = toCandidates(s.matcher.FindMatchingVolunteersTx(ctx, tx, addressOf(order)))
		return nil
	})
	return candidates, err
}

// Sweep retries AutoAssign for recent orders that never got a decision.
func (s *service) Sweep(ctx context.Context, maxAge time.Duration, limit int) (SweepSummary, error) {
	var summary SweepSummary
	ids, err := s.repo.ListUnassigned(ctx, s.now().Add(-maxAge), limit)
	if err != nil {
		return summary, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unassigned orders")
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Checked++
		result, err := s.AutoAssign(ctx, id)
		if err != nil {
			summary.Failed++
			s.logg.Warn(s.logg.WithFields(s.logg.WithOrderID(ctx, id.String()), map[string]any{
				"error": err.Error(),
			}), "assignment sweep skipped order")
			continue
		}
		if result.Outcome == OutcomeAssigned {
			summary.Assigned++
		} else {
			summary.Review++
		}
	}
	return summary, nil
}

func (s *service) assign(ctx context.Context, tx *gorm.DB, order *models.Order, volunteer models.Volunteer, mode string, actor *outbox.ActorRef) (*Result, error) {
	now := s.now()
	if err := s.repo.WithTx(tx).UpdateDelivery(ctx, order.ID, map[string]any{
		"delivery_volunteer_id": volunteer.ID,
		"is_delivery_duty":      true,
		"delivery_status":       enums.DeliveryStatusAssigned,
		"assigned_at":           now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign delivery volunteer")
	}

	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDeliveryAssigned,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.DeliveryAssignedEvent{
			OrderID:             order.ID,
			OrderNumber:         order.OrderNumber,
			DeliveryVolunteerID: volunteer.ID,
			Mode:                mode,
			AssignedAt:          now,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit delivery assigned")
	}

	if s.notifier != nil {
		orderID := order.ID
		if err := s.notifier.Notify(ctx, tx, models.Notification{
			VolunteerID: volunteer.ID,
			Type:        enums.NotificationTypeDeliveryAssigned,
			Title:       "New delivery duty",
			Message:     fmt.Sprintf("Order %s (%d bottles) at %s, %s is yours to deliver.", order.OrderNumber, order.Quantity, order.HouseBuilding, order.Town),
			OrderID:     &orderID,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notify delivery volunteer")
		}
	}

	id := volunteer.ID
	return &Result{
		OrderID:             order.ID,
		DeliveryStatus:      enums.DeliveryStatusAssigned,
		DeliveryVolunteerID: &id,
		Candidates:          []Candidate{},
	}, nil
}

func (s *service) flagForReview(ctx context.Context, tx *gorm.DB, order *models.Order, outcome Outcome, candidates []Candidate, actor *outbox.ActorRef) (*Result, error) {
	if err := s.repo.WithTx(tx).UpdateDelivery(ctx, order.ID, map[string]any{
		"delivery_status": enums.DeliveryStatusNeedsReview,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag order for review")
	}
	if err := s.emitReview(ctx, tx, order, string(outcome), candidates, actor); err != nil {
		return nil, err
	}
	return &Result{
		OrderID:        order.ID,
		Outcome:        outcome,
		DeliveryStatus: enums.DeliveryStatusNeedsReview,
		Candidates:     candidates,
	}, nil
}

func (s *service) emitReview(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, candidates []Candidate, actor *outbox.ActorRef) error {
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDeliveryReviewRequired,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.DeliveryReviewRequiredEvent{
			OrderID:      order.ID,
			OrderNumber:  order.OrderNumber,
			Reason:       reason,
			CandidateIDs: ids,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit delivery review")
	}
	return nil
}

func (s *service) notifyUnassigned(ctx context.Context, tx *gorm.DB, order *models.Order, volunteerID uuid.UUID) error {
	if s.notifier == nil {
		return nil
	}
	orderID := order.ID
	err := s.notifier.Notify(ctx, tx, models.Notification{
		VolunteerID: volunteerID,
		Type:        enums.NotificationTypeDeliveryUnassigned,
		Title:       "Delivery duty removed",
		Message:     fmt.Sprintf("Order %s is no longer assigned to you.", order.OrderNumber),
		OrderID:     &orderID,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notify previous delivery volunteer")
	}
	return nil
}

func ensureOpen(order *models.Order) error {
	for _, status := range assignableOrderStatuses {
		if order.OrderStatus == status {
			if order.DeliveryStatus.IsTerminal() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery already finished").
					WithDetails(map[string]any{"delivery_status": order.DeliveryStatus})
			}
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed for delivery").
		WithDetails(map[string]any{"order_status": order.OrderStatus})
}

func addressOf(order *models.Order) volunteers.Address {
	return volunteers.Address{
		HouseBuilding: order.HouseBuilding,
		Town:          order.Town,
		Post:          order.Post,
	}
}

func toCandidates(rows []models.Volunteer) []Candidate {
	out := make([]Candidate, 0, len(rows))
	for _, v := range rows {
		out = append(out, Candidate{
			ID:          v.ID,
			VolunteerID: v.VolunteerID,
			Name:        v.Name,
			Phone:       v.Phone,
		})
	}
	return out
}

func mapOrderError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
