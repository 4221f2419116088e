package orders

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scentdrive/campaign-backend/api/responses"
	"github.com/scentdrive/campaign-backend/api/validators"
	internalorders "github.com/scentdrive/campaign-backend/internal/orders"
	"github.com/scentdrive/campaign-backend/internal/tracking"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	pkgerrors "github.com/scentdrive/campaign-backend/pkg/errors"
	"github.com/scentdrive/campaign-backend/pkg/logger"
)

// Placer is the storefront half of the order service.
type Placer interface {
	Create(ctx context.Context, input internalorders.CreateInput) (*models.Order, error)
}

// TimelineReader serves the customer tracking page.
type TimelineReader interface {
	PublicTimeline(ctx context.Context, orderNumber, phone string) (*tracking.Timeline, error)
}

type placeOrderRequest struct {
	CustomerName  string  `json:"customer_name" validate:"required,notblank,max=120"`
	CustomerPhone string  `json:"customer_phone" validate:"required,mobile"`
	HouseBuilding string  `json:"house_building" validate:"required,notblank,max=200"`
	Town          string  `json:"town" validate:"required,notblank,max=100"`
	Post          string  `json:"post" validate:"required,notblank,max=100"`
	Landmark      *string `json:"landmark" validate:"omitempty,max=200"`
	Pincode       string  `json:"pincode" validate:"required,pincode"`
	Quantity      int     `json:"quantity" validate:"required,min=1"`
	PaymentMethod string  `json:"payment_method" validate:"omitempty,max=10"`
	ReferralCode  string  `json:"referral_code" validate:"omitempty,max=32"`
	Notes         *string `json:"notes" validate:"omitempty,max=500"`
}

// placedOrder is what the customer sees after checkout. Commission and
// courier details stay internal.
type placedOrder struct {
	ID            uuid.UUID            `json:"id"`
	OrderNumber   string               `json:"order_number"`
	OrderStatus   enums.OrderStatus    `json:"order_status"`
	PaymentMethod enums.PaymentMethod  `json:"payment_method"`
	Quantity      int                  `json:"quantity"`
	UnitPrice     decimal.Decimal      `json:"unit_price"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Delivery      enums.DeliveryStatus `json:"delivery_status"`
	Referred      bool                 `json:"referred"`
	CreatedAt     time.Time            `json:"created_at"`
}

// PlaceOrder accepts a storefront order.
func PlaceOrder(svc Placer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var req placeOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), internalorders.CreateInput{
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			HouseBuilding: req.HouseBuilding,
			Town:          req.Town,
			Post:          req.Post,
			Landmark:      req.Landmark,
			Pincode:       req.Pincode,
			Quantity:      req.Quantity,
			PaymentMethod: enums.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
			ReferralCode:  req.ReferralCode,
			Notes:         validators.CleanOptionalText(req.Notes, 500),
		})
		if err != nil {
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithCustomerPhone(ctx, req.CustomerPhone)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, placedOrder{
			ID:            order.ID,
			OrderNumber:   order.OrderNumber,
			OrderStatus:   order.OrderStatus,
			PaymentMethod: order.PaymentMethod,
			Quantity:      order.Quantity,
			UnitPrice:     order.UnitPrice,
			TotalAmount:   order.TotalAmount,
			Delivery:      order.DeliveryStatus,
			Referred:      order.VolunteerID != nil,
			CreatedAt:     order.CreatedAt,
		})
	}
}

// PublicTracking returns the customer-safe timeline. The phone query
// parameter must match the order's customer phone.
func PublicTracking(svc TimelineReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracking service unavailable"))
			return
		}

		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		phone := strings.TrimSpace(r.URL.Query().Get("phone"))
		if orderNumber == "" || phone == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number and phone are required"))
			return
		}

		timeline, err := svc.PublicTimeline(r.Context(), orderNumber, phone)
		if err != nil {
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithCustomerPhone(logg.WithOrderNumber(ctx, orderNumber), phone)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, timeline)
	}
}
