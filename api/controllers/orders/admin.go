package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/scentdrive/campaign-backend/api/middleware"
	"github.com/scentdrive/campaign-backend/api/responses"
	"github.com/scentdrive/campaign-backend/api/validators"
	"github.com/scentdrive/campaign-backend/internal/assignment"
	internalorders "github.com/scentdrive/campaign-backend/internal/orders"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
	"github.com/scentdrive/campaign-backend/pkg/pagination"
)

// AdminService is the back-office half of the order service.
type AdminService interface {
	UpdateStatus(ctx context.Context, input internalorders.UpdateStatusInput) (*models.Order, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, reference string, actor *outbox.ActorRef) (*models.Order, error)
	ChangeReferral(ctx context.Context, orderID uuid.UUID, code string, actor *outbox.ActorRef) (*models.Order, error)
	Delete(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) error
	List(ctx context.Context, params internalorders.ListParams) (*pagination.Page[models.Order], error)
	Detail(ctx context.Context, orderID uuid.UUID) (*internalorders.OrderDetail, error)
}

// Assigner is the delivery assignment surface exposed to admins.
type Assigner interface {
	AutoAssign(ctx context.Context, orderID uuid.UUID) (*assignment.Result, error)
	ManualAssign(ctx context.Context, orderID, volunteerID uuid.UUID, actor *outbox.ActorRef) (*assignment.Result, error)
	Unassign(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef) (*assignment.Result, error)
	Candidates(ctx context.Context, orderID uuid.UUID) ([]assignment.Candidate, error)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,notblank"`
	Reason string `json:"reason" validate:"omitempty,max=300"`
}

type confirmPaymentRequest struct {
	Reference string `json:"reference" validate:"required,notblank,max=120"`
}

type changeReferralRequest struct {
	// Empty clears the referral.
	ReferralCode string `json:"referral_code" validate:"omitempty,max=32"`
}

type assignRequest struct {
	VolunteerID uuid.UUID `json:"volunteer_id" validate:"required"`
}

// List returns the filtered admin order list.
func List(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func parseListParams(r *http.Request) (internalorders.ListParams, error) {
	query := r.URL.Query()
	params := internalorders.ListParams{
		Search: strings.TrimSpace(query.Get("q")),
		Cursor: strings.TrimSpace(query.Get("cursor")),
	}

	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return params, err
	}
	params.Limit = limit

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		params.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("delivery_status")); raw != "" {
		status, err := enums.ParseDeliveryStatus(raw)
		if err != nil {
			return params, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery_status filter")
		}
		params.DeliveryStatus = &status
	}

	params.VolunteerID, err = validators.ParseQueryUUID(r, "volunteer_id")
	if err != nil {
		return params, err
	}
	params.UnassignedOnly, err = validators.ParseQueryBool(r, "unassigned", false)
	if err != nil {
		return params, err
	}
	return params, nil
}

// Detail returns one order with its volunteers and tracking history.
func Detail(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Detail(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func UpdateStatus(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), internalorders.UpdateStatusInput{
			OrderID: orderID,
			Status:  status,
			Reason:  validators.CleanText(req.Reason, 300),
			Actor:   middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func ConfirmPayment(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmPayment(r.Context(), orderID, validators.CleanText(req.Reference, 120), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ChangeReferral moves an order's referral credit to another volunteer code.
func ChangeReferral(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req changeReferralRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ChangeReferral(r.Context(), orderID, req.ReferralCode, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func Delete(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), orderID, middleware.ActorFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func AutoAssign(svc Assigner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AutoAssign(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Candidates lists the active volunteers whose address matches the order.
func Candidates(svc Assigner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		candidates, err := svc.Candidates(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if candidates == nil {
			candidates = []assignment.Candidate{}
		}
		responses.WriteSuccess(w, map[string]any{"candidates": candidates})
	}
}

func Assign(svc Assigner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ManualAssign(r.Context(), orderID, req.VolunteerID, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func Unassign(svc Assigner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Unassign(r.Context(), orderID, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
