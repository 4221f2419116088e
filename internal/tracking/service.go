package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/internal/orders"
	"github.com/scentdrive/campaign-backend/pkg/contact"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
	"github.com/scentdrive/campaign-backend/pkg/outbox/payloads"
	"github.com/scentdrive/campaign-backend/pkg/refcode"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OrderTransitioner moves the order status as a side effect of delivery
// events.
type OrderTransitioner interface {
	TransitionTx(ctx context.Context, tx *gorm.DB, input orders.UpdateStatusInput) (*models.Order, error)
}

// RecordInput is one tracking update. Exactly one of Status and
// CourierStatus is set.
type RecordInput struct {
	OrderID          uuid.UUID
	Status           enums.DeliveryStatus
	CourierStatus    string
	Location         *string
	Note             *string
	Source           enums.TrackingSource
	OccurredAt       *time.Time
	Actor            *outbox.ActorRef
	ActorVolunteerID *uuid.UUID
}

// Timeline is the customer-facing view of an order's delivery.
type Timeline struct {
	OrderNumber    string               `json:"order_number"`
	OrderStatus    enums.OrderStatus    `json:"order_status"`
	DeliveryStatus enums.DeliveryStatus `json:"delivery_status"`
	Quantity       int                  `json:"quantity"`
	PlacedAt       time.Time            `json:"placed_at"`
	DeliveredAt    *time.Time           `json:"delivered_at,omitempty"`
	Events         []TimelineEvent      `json:"events"`
}

type TimelineEvent struct {
	Status     enums.DeliveryStatus `json:"status"`
	Location   *string              `json:"location,omitempty"`
	Note       *string              `json:"note,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// Service records delivery progress and serves order timelines.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.TrackingEvent, error)
	List(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error)
	PublicTimeline(ctx context.Context, orderNumber, phone string) (*Timeline, error)
}

type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Orders     OrderTransitioner
	Logger     *logger.Logger
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	orders OrderTransitioner
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("tracking repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   params.Repository,
		tx:     params.Tx,
		outbox: params.Outbox,
		orders: params.Orders,
		logg:   params.Logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Record appends a tracking event and mirrors it onto the order: the
// delivery status always follows the latest event, delivered moves the order
// to delivered, failed to cant_reach and returned to returned where the
// order status table allows it.
func (s *service) Record(ctx context.Context, input RecordInput) (*models.TrackingEvent, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown tracking source")
	}
	status, courierCode, err := resolveStatus(input)
	if err != nil {
		return nil, err
	}
	occurredAt := s.now()
	if input.OccurredAt != nil {
		if input.OccurredAt.After(occurredAt.Add(5 * time.Minute)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "occurred_at is in the future")
		}
		occurredAt = input.OccurredAt.UTC()
	}

	event := &models.TrackingEvent{
		OrderID:    input.OrderID,
		Status:     status,
		Location:   cleanedPtr(input.Location),
		Note:       cleanedPtr(input.Note),
		Source:     input.Source,
		OccurredAt: occurredAt,
	}
	if courierCode != "" {
		event.CourierStatus = &courierCode
	}
	if input.Actor != nil {
		actorID := input.Actor.UserID
		event.ActorID = &actorID
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := checkRecordable(order, input); err != nil {
			return err
		}

		if err := repo.Append(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
		}
		if err := repo.SetDeliveryStatus(ctx, order.ID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery status")
		}
		if err := s.applyOrderEffect(ctx, tx, order, status, input.Actor); err != nil {
			return err
		}

		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTrackingEventRecorded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         input.Actor,
			Data: payloads.TrackingEventRecordedEvent{
				OrderID:       order.ID,
				TrackingID:    event.ID,
				Status:        status,
				CourierStatus: courierCode,
				Source:        input.Source,
				OccurredAt:    occurredAt,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit tracking event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, input.OrderID.String()), map[string]any{
		"delivery_status": status,
		"source":          input.Source,
	})
	s.logg.Info(logCtx, "tracking event recorded")
	return event, nil
}

func resolveStatus(input RecordInput) (enums.DeliveryStatus, string, error) {
	hasStatus := input.Status != ""
	hasCourier := strings.TrimSpace(input.CourierStatus) != ""
	if hasStatus == hasCourier {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "provide exactly one of status or courier_status")
	}
	if hasCourier {
		code, status, ok := MapCourierStatus(input.CourierStatus)
		if !ok {
			return "", "", pkgerrors.New(pkgerrors.CodeValidation, "unknown courier status").
				WithDetails(map[string]any{"courier_status": code})
		}
		return status, code, nil
	}
	if !recordable[input.Status] {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "status cannot be recorded as a tracking event").
			WithDetails(map[string]any{"status": input.Status})
	}
	return input.Status, "", nil
}

func checkRecordable(order *models.Order, input RecordInput) error {
	switch order.OrderStatus {
	case enums.OrderStatusPaymentPending:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is awaiting payment")
	case enums.OrderStatusCancelled, enums.OrderStatusReturned:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed").
			WithDetails(map[string]any{"order_status": order.OrderStatus})
	}
	if order.DeliveryStatus.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery already finished").
			WithDetails(map[string]any{"delivery_status": order.DeliveryStatus})
	}
	if input.Source == enums.TrackingSourceVolunteer {
		if input.ActorVolunteerID == nil || order.DeliveryVolunteerID == nil || *order.DeliveryVolunteerID != *input.ActorVolunteerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this volunteer")
		}
	}
	return nil
}

func (s *service) applyOrderEffect(ctx context.Context, tx *gorm.DB, order *models.Order, status enums.DeliveryStatus, actor *outbox.ActorRef) error {
	var target enums.OrderStatus
	switch status {
	case enums.DeliveryStatusDelivered:
		target = enums.OrderStatusDelivered
	case enums.DeliveryStatusFailed:
		target = enums.OrderStatusCantReach
	case enums.DeliveryStatusReturned:
		target = enums.OrderStatusReturned
	default:
		return nil
	}
	if order.OrderStatus == target || !orders.CanTransition(order.OrderStatus, target) {
		return nil
	}
	_, err := s.orders.TransitionTx(ctx, tx, orders.UpdateStatusInput{
		OrderID: order.ID,
		Status:  target,
		Reason:  "tracking: " + string(status),
		Actor:   actor,
	})
	return err
}

func (s *service) List(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	events, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tracking events")
	}
	if events == nil {
		events = []models.TrackingEvent{}
	}
	return events, nil
}

// PublicTimeline returns the timeline only when phone matches the order's
// customer phone. Any mismatch reads as not found.
func (s *service) PublicTimeline(ctx context.Context, orderNumber, phone string) (*Timeline, error) {
	number := refcode.Normalize(orderNumber)
	normalizedPhone, ok := contact.NormalizePhone(phone)
	if number == "" || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number and phone are required")
	}
	notFound := pkgerrors.New(pkgerrors.CodeNotFound, "order not found")

	order, err := s.repo.FindOrderByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerPhone != normalizedPhone {
		return nil, notFound
	}

	events, err := s.repo.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tracking events")
	}
	timeline := &Timeline{
		OrderNumber:    order.OrderNumber,
		OrderStatus:    order.OrderStatus,
		DeliveryStatus: order.DeliveryStatus,
		Quantity:       order.Quantity,
		PlacedAt:       order.CreatedAt,
		DeliveredAt:    order.DeliveredAt,
		Events:         make([]TimelineEvent, 0, len(events)),
	}
	for _, e := range events {
		timeline.Events = append(timeline.Events, TimelineEvent{
			Status:     e.Status,
			Location:   e.Location,
			Note:       e.Note,
			OccurredAt: e.OccurredAt,
		})
	}
	return timeline, nil
}

func cleanedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	cleaned := contact.CleanField(*v)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
