package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/internal/commission"
	"github.com/scentdrive/campaign-backend/pkg/contact"
	"github.com/scentdrive/campaign-backend/pkg/db"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
	"github.com/scentdrive/campaign-backend/pkg/outbox/payloads"
	"github.com/scentdrive/campaign-backend/pkg/pagination"
	"github.com/scentdrive/campaign-backend/pkg/refcode"
)

const numberAttempts = 5

// allowedTransitions is the admin order status table. Terminal statuses
// have no entry.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPaymentPending: {enums.OrderStatusOrdered, enums.OrderStatusCancelled},
	enums.OrderStatusOrdered: {
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
		enums.OrderStatusCantReach,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusDelivered,
		enums.OrderStatusCantReach,
		enums.OrderStatusReturned,
	},
	enums.OrderStatusCantReach: {
		enums.OrderStatusOrdered,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCancelled,
		enums.OrderStatusReturned,
	},
	enums.OrderStatusDelivered: {enums.OrderStatusReturned},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Service defines order operations for the storefront, admins and
// volunteers.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	TransitionTx(ctx context.Context, tx *gorm.DB, input UpdateStatusInput) (*models.Order, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, reference string, actor *outbox.ActorRef) (*models.Order, error)
	ChangeReferral(ctx context.Context, orderID uuid.UUID, code string, actor *outbox.ActorRef) (*models.Order, error)
	Delete(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) error
	List(ctx context.Context, params ListParams) (*pagination.Page[models.Order], error)
	Detail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
	ListReferrals(ctx context.Context, volunteerID uuid.UUID, params pagination.Params) (*pagination.Page[ReferralView], error)
	ListDeliveries(ctx context.Context, volunteerID uuid.UUID, params pagination.Params) (*pagination.Page[DeliveryDuty], error)
	ExpireStalePayments(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// ServiceParams wires the order service. Assigner is optional; without it
// orders wait for the assignment sweep.
type ServiceParams struct {
	Repository  Repository
	Tx          txRunner
	Outbox      outboxPublisher
	Referrals   ReferralResolver
	Commission  CommissionRecalculator
	Assigner    Assigner
	Logger      *logger.Logger
	UnitPrice   decimal.Decimal
	MaxQuantity int
}

type service struct {
	repo        Repository
	tx          txRunner
	outbox      outboxPublisher
	referrals   ReferralResolver
	commission  CommissionRecalculator
	assigner    Assigner
	logg        *logger.Logger
	unitPrice   decimal.Decimal
	maxQuantity int
	now         func() time.Time
	newNumber   func() (string, error)
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Referrals == nil {
		return nil, fmt.Errorf("referral resolver required")
	}
	if params.Commission == nil {
		return nil, fmt.Errorf("commission recalculator required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !params.UnitPrice.IsPositive() {
		return nil, fmt.Errorf("unit price must be positive")
	}
	if params.MaxQuantity <= 0 {
		return nil, fmt.Errorf("max quantity must be positive")
	}
	return &service{
		repo:        params.Repository,
		tx:          params.Tx,
		outbox:      params.Outbox,
		referrals:   params.Referrals,
		commission:  params.Commission,
		assigner:    params.Assigner,
		logg:        params.Logger,
		unitPrice:   params.UnitPrice,
		maxQuantity: params.MaxQuantity,
		now:         func() time.Time { return time.Now().UTC() },
		newNumber:   refcode.Order,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	order, err := s.buildOrder(input)
	if err != nil {
		return nil, err
	}
	referralCode := strings.TrimSpace(input.ReferralCode)

	for attempt := 1; ; attempt++ {
		number, err := s.newNumber()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order.ID = uuid.Nil
		order.OrderNumber = number
		order.VolunteerID = nil

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if referralCode != "" {
				volunteer, err := s.referrals.ResolveReferralTx(ctx, tx, referralCode)
				if err != nil {
					return err
				}
				order.VolunteerID = &volunteer.ID
			}
			if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
				return err
			}
			if err := s.emitPlaced(ctx, tx, order); err != nil {
				return err
			}
			if order.VolunteerID != nil {
				if _, err := s.commission.RecalculateTx(ctx, tx, *order.VolunteerID, commission.TriggerOrderPlaced); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err, "") && attempt < numberAttempts {
			continue
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"order_number":   order.OrderNumber,
		"quantity":       order.Quantity,
		"payment_method": order.PaymentMethod,
		"referred":       order.VolunteerID != nil,
	})
	s.logg.Info(logCtx, "order placed")

	if s.assigner != nil {
		result, err := s.assigner.AutoAssign(ctx, order.ID)
		if err != nil {
			s.logg.Error(logCtx, "auto-assignment failed, left for sweep", err)
		} else {
			order.DeliveryStatus = result.DeliveryStatus
			order.DeliveryVolunteerID = result.DeliveryVolunteerID
			order.IsDeliveryDuty = result.DeliveryVolunteerID != nil
		}
	}
	return order, nil
}

func (s *service) buildOrder(input CreateInput) (*models.Order, error) {
	name := contact.CleanField(input.CustomerName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	phone, ok := contact.NormalizePhone(input.CustomerPhone)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone must be a valid mobile number")
	}
	house := contact.CleanField(input.HouseBuilding)
	town := contact.CleanField(input.Town)
	post := contact.CleanField(input.Post)
	if house == "" || town == "" || post == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "house, town and post are required")
	}
	pincode := strings.TrimSpace(input.Pincode)
	if !contact.ValidPincode(pincode) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pincode must be 6 digits")
	}
	if input.Quantity < 1 || input.Quantity > s.maxQuantity {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be between 1 and %d", s.maxQuantity)
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCOD
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method must be cod or online")
	}

	return &models.Order{
		CustomerName:   name,
		CustomerPhone:  phone,
		HouseBuilding:  house,
		Town:           town,
		Post:           post,
		Landmark:       cleanedPtr(input.Landmark),
		Pincode:        pincode,
		Quantity:       input.Quantity,
		UnitPrice:      s.unitPrice,
		TotalAmount:    s.unitPrice.Mul(decimal.NewFromInt(int64(input.Quantity))),
		PaymentMethod:  method,
		OrderStatus:    method.InitialOrderStatus(),
		DeliveryStatus: enums.DeliveryStatusUnassigned,
		Notes:          cleanedPtr(input.Notes),
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		updated, err = s.TransitionTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// TransitionTx applies one status change inside tx: it checks the status
// table, stamps delivery fields, emits order_status_changed and refreshes the
// referral volunteer's commission when the order enters or leaves the
// qualifying set. Moving to the current status is a no-op.
func (s *service) TransitionTx(ctx context.Context, tx *gorm.DB, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	repo := s.repo.WithTx(tx)
	order, err := repo.LockByID(ctx, input.OrderID)
	if err != nil {
		return nil, mapOrderError(err)
	}
	from := order.OrderStatus
	if from == input.Status {
		return order, nil
	}
	if !CanTransition(from, input.Status) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order cannot move from %s to %s", from, input.Status).
			WithDetails(map[string]any{"from": from, "to": input.Status})
	}

	now := s.now()
	fields := map[string]any{"order_status": input.Status}
	switch input.Status {
	case enums.OrderStatusDelivered:
		fields["delivered_at"] = now
		fields["delivery_status"] = enums.DeliveryStatusDelivered
	case enums.OrderStatusReturned:
		fields["delivery_status"] = enums.DeliveryStatusReturned
	}
	if err := repo.UpdateFields(ctx, order.ID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         input.Actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			From:        from,
			To:          input.Status,
			Reason:      strings.TrimSpace(input.Reason),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order status changed")
	}

	if order.VolunteerID != nil && from.QualifiesForCommission() != input.Status.QualifiesForCommission() {
		if _, err := s.commission.RecalculateTx(ctx, tx, *order.VolunteerID, commission.TriggerOrderStatus); err != nil {
			return nil, err
		}
	}

	updated, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"from": from,
		"to":   input.Status,
	})
	s.logg.Info(logCtx, "order status changed")
	return updated, nil
}

// ConfirmPayment records an online payment and releases the order for
// fulfilment.
func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID, reference string, actor *outbox.ActorRef) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).LockByID(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}
		if order.OrderStatus != enums.OrderStatusPaymentPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
				WithDetails(map[string]any{"order_status": order.OrderStatus})
		}
		if ref := strings.TrimSpace(reference); ref != "" {
			if err := s.repo.WithTx(tx).UpdateFields(ctx, orderID, map[string]any{"payment_reference": ref}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment reference")
			}
		}
		updated, err = s.TransitionTx(ctx, tx, UpdateStatusInput{
			OrderID: orderID,
			Status:  enums.OrderStatusOrdered,
			Reason:  "payment confirmed",
			Actor:   actor,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ChangeReferral moves an order to another referral volunteer, or clears the
// referral when code is empty. Both volunteers' totals are recalculated.
func (s *service) ChangeReferral(ctx context.Context, orderID uuid.UUID, code string, actor *outbox.ActorRef) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}

		var next *uuid.UUID
		if strings.TrimSpace(code) != "" {
			volunteer, err := s.referrals.ResolveReferralTx(ctx, tx, code)
			if err != nil {
				return err
			}
			next = &volunteer.ID
		}
		previous := order.VolunteerID
		if sameVolunteer(previous, next) {
			updated = order
			return nil
		}

		if err := repo.UpdateFields(ctx, orderID, map[string]any{"volunteer_id": next}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update referral")
		}
		for _, id := range []*uuid.UUID{previous, next} {
			if id == nil {
				continue
			}
			if _, err := s.commission.RecalculateTx(ctx, tx, *id, commission.TriggerReferralChanged); err != nil {
				return err
			}
		}
		updated, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	if actor != nil {
		logCtx = s.logg.WithUserID(logCtx, actor.UserID.String())
	}
	s.logg.Info(logCtx, "order referral changed")
	return updated, nil
}

// Delete soft-deletes an order. Its bottles stop counting towards the
// referral volunteer immediately.
func (s *service) Delete(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}
		if err := repo.SoftDelete(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		if order.VolunteerID != nil {
			if _, err := s.commission.RecalculateTx(ctx, tx, *order.VolunteerID, commission.TriggerOrderDeleted); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	if actor != nil {
		logCtx = s.logg.WithUserID(logCtx, actor.UserID.String())
	}
	s.logg.Info(logCtx, "order deleted")
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[models.Order], error) {
	filters := listFilters{
		Status:         params.Status,
		DeliveryStatus: params.DeliveryStatus,
		VolunteerID:    params.VolunteerID,
		UnassignedOnly: params.UnassignedOnly,
		Search:         strings.TrimSpace(params.Search),
		Limit:          params.Limit,
	}
	rows, err := s.list(ctx, filters, params.Cursor)
	if err != nil {
		return nil, err
	}
	page := pagination.BuildPage(rows, params.Limit, orderCursor)
	return &page, nil
}

func (s *service) Detail(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err)
	}

	detail := &OrderDetail{Order: *order}
	if order.DeliveryVolunteerID != nil {
		detail.DeliveryCommission = commission.CalculateDeliveryCommission(order.Quantity)
	} else {
		detail.DeliveryCommission = decimal.Zero
	}

	var ids []uuid.UUID
	for _, id := range []*uuid.UUID{order.VolunteerID, order.DeliveryVolunteerID} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	volunteers, err := s.repo.FindVolunteers(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order volunteers")
	}
	for _, v := range volunteers {
		if order.VolunteerID != nil && v.ID == *order.VolunteerID {
			detail.Referral = summarize(v)
		}
		if order.DeliveryVolunteerID != nil && v.ID == *order.DeliveryVolunteerID {
			detail.DeliveryVolunteer = summarize(v)
		}
	}

	tracking, err := s.repo.ListTracking(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tracking")
	}
	if tracking == nil {
		tracking = []models.TrackingEvent{}
	}
	detail.Tracking = tracking
	return detail, nil
}

func (s *service) ListReferrals(ctx context.Context, volunteerID uuid.UUID, params pagination.Params) (*pagination.Page[ReferralView], error) {
	if volunteerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "volunteer profile required")
	}
	rows, err := s.list(ctx, listFilters{VolunteerID: &volunteerID, Limit: params.Limit}, params.Cursor)
	if err != nil {
		return nil, err
	}
	page := pagination.BuildPage(rows, params.Limit, orderCursor)
	views := make([]ReferralView, 0, len(page.Items))
	for _, o := range page.Items {
		views = append(views, ReferralView{
			ID:           o.ID,
			OrderNumber:  o.OrderNumber,
			CustomerName: o.CustomerName,
			Town:         o.Town,
			Quantity:     o.Quantity,
			OrderStatus:  o.OrderStatus,
			Qualifies:    o.OrderStatus.QualifiesForCommission(),
			CreatedAt:    o.CreatedAt,
		})
	}
	return &pagination.Page[ReferralView]{Items: views, NextCursor: page.NextCursor}, nil
}

func (s *service) ListDeliveries(ctx context.Context, volunteerID uuid.UUID, params pagination.Params) (*pagination.Page[DeliveryDuty], error) {
	if volunteerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "volunteer profile required")
	}
	rows, err := s.list(ctx, listFilters{DeliveryVolunteerID: &volunteerID, Limit: params.Limit}, params.Cursor)
	if err != nil {
		return nil, err
	}
	page := pagination.BuildPage(rows, params.Limit, orderCursor)
	duties := make([]DeliveryDuty, 0, len(page.Items))
	for _, o := range page.Items {
		duties = append(duties, DeliveryDuty{
			ID:                 o.ID,
			OrderNumber:        o.OrderNumber,
			CustomerName:       o.CustomerName,
			CustomerPhone:      o.CustomerPhone,
			HouseBuilding:      o.HouseBuilding,
			Town:               o.Town,
			Post:               o.Post,
			Landmark:           o.Landmark,
			Pincode:            o.Pincode,
			Quantity:           o.Quantity,
			TotalAmount:        o.TotalAmount,
			PaymentMethod:      o.PaymentMethod,
			OrderStatus:        o.OrderStatus,
			DeliveryStatus:     o.DeliveryStatus,
			AssignedAt:         o.AssignedAt,
			DeliveryCommission: commission.CalculateDeliveryCommission(o.Quantity),
			CreatedAt:          o.CreatedAt,
		})
	}
	return &pagination.Page[DeliveryDuty]{Items: duties, NextCursor: page.NextCursor}, nil
}

func (s *service) list(ctx context.Context, filters listFilters, cursor string) ([]models.Order, error) {
	if cursor != "" {
		parsed, err := pagination.ParseCursor(cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		filters.Cursor = parsed
	}
	rows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) emitPlaced(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderPlacedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			Quantity:      order.Quantity,
			TotalAmount:   order.TotalAmount,
			PaymentMethod: order.PaymentMethod,
			Status:        order.OrderStatus,
			VolunteerID:   order.VolunteerID,
			Town:          order.Town,
			Post:          order.Post,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order placed")
	}
	return nil
}

func orderCursor(o models.Order) pagination.Cursor {
	return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
}

func mapOrderError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func sameVolunteer(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
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

// ExpireStalePayments cancels online orders whose payment never arrived
// within olderThan. Each order is cancelled in its own transaction.
func (s *service) ExpireStalePayments(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if olderThan <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "payment window must be positive")
	}
	ids, err := s.repo.ListStalePayments(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale payments")
	}
	expired := 0
	var errs error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, multierr.Append(errs, err)
		}
		_, err := s.UpdateStatus(ctx, UpdateStatusInput{
			OrderID: id,
			Status:  enums.OrderStatusCancelled,
			Reason:  "payment window expired",
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", id, err))
			continue
		}
		expired++
	}
	return expired, errs
}
