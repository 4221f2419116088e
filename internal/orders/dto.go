package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
)

// CreateInput is a storefront order as submitted by the customer.
type CreateInput struct {
	CustomerName  string
	CustomerPhone string
	HouseBuilding string
	Town          string
	Post          string
	Landmark      *string
	Pincode       string
	Quantity      int
	PaymentMethod enums.PaymentMethod
	ReferralCode  string
	Notes         *string
}

// UpdateStatusInput moves an order along the status table.
type UpdateStatusInput struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
	Reason  string
	Actor   *outbox.ActorRef
}

// ListParams filters the admin order list.
type ListParams struct {
	Status         *enums.OrderStatus
	DeliveryStatus *enums.DeliveryStatus
	VolunteerID    *uuid.UUID
	UnassignedOnly bool
	Search         string
	Limit          int
	Cursor         string
}

// VolunteerSummary is the slice of a volunteer shown next to an order.
type VolunteerSummary struct {
	ID          uuid.UUID             `json:"id"`
	VolunteerID string                `json:"volunteer_id"`
	Name        string                `json:"name"`
	Phone       string                `json:"phone"`
	Status      enums.VolunteerStatus `json:"status"`
}

// OrderDetail is the admin view of one order.
type OrderDetail struct {
	Order              models.Order           `json:"order"`
	Referral           *VolunteerSummary      `json:"referral,omitempty"`
	DeliveryVolunteer  *VolunteerSummary      `json:"delivery_volunteer,omitempty"`
	DeliveryCommission decimal.Decimal        `json:"delivery_commission"`
	Tracking           []models.TrackingEvent `json:"tracking"`
}

// ReferralView is what a referral volunteer sees of orders they brought in.
type ReferralView struct {
	ID           uuid.UUID         `json:"id"`
	OrderNumber  string            `json:"order_number"`
	CustomerName string            `json:"customer_name"`
	Town         string            `json:"town"`
	Quantity     int               `json:"quantity"`
	OrderStatus  enums.OrderStatus `json:"order_status"`
	Qualifies    bool              `json:"qualifies"`
	CreatedAt    time.Time         `json:"created_at"`
}

// DeliveryDuty is what a delivery volunteer needs to reach the customer.
type DeliveryDuty struct {
	ID                 uuid.UUID            `json:"id"`
	OrderNumber        string               `json:"order_number"`
	CustomerName       string               `json:"customer_name"`
	CustomerPhone      string               `json:"customer_phone"`
	HouseBuilding      string               `json:"house_building"`
	Town               string               `json:"town"`
	Post               string               `json:"post"`
	Landmark           *string              `json:"landmark,omitempty"`
	Pincode            string               `json:"pincode"`
	Quantity           int                  `json:"quantity"`
	TotalAmount        decimal.Decimal      `json:"total_amount"`
	PaymentMethod      enums.PaymentMethod  `json:"payment_method"`
	OrderStatus        enums.OrderStatus    `json:"order_status"`
	DeliveryStatus     enums.DeliveryStatus `json:"delivery_status"`
	AssignedAt         *time.Time           `json:"assigned_at,omitempty"`
	DeliveryCommission decimal.Decimal      `json:"delivery_commission"`
	CreatedAt          time.Time            `json:"created_at"`
}

func summarize(v models.Volunteer) *VolunteerSummary {
	return &VolunteerSummary{
		ID:          v.ID,
		VolunteerID: v.VolunteerID,
		Name:        v.Name,
		Phone:       v.Phone,
		Status:      v.Status,
	}
}
