package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scentdrive/campaign-backend/pkg/enums"
)

// OrderPlacedEvent is emitted when a storefront order is accepted.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	Quantity      int                 `json:"quantity"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.OrderStatus   `json:"status"`
	VolunteerID   *uuid.UUID          `json:"volunteer_id,omitempty"`
	Town          string              `json:"town"`
	Post          string              `json:"post"`
}

// OrderStatusChangedEvent reports a transition of order_status.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Reason      string            `json:"reason,omitempty"`
}

// CommissionRecalculatedEvent carries the new derived commission totals.
type CommissionRecalculatedEvent struct {
	VolunteerID        uuid.UUID       `json:"volunteer_id"`
	Schedule           string          `json:"schedule"`
	PreviousBottles    int             `json:"previous_bottles"`
	TotalBottles       int             `json:"total_bottles"`
	PreviousCommission decimal.Decimal `json:"previous_commission"`
	Commission         decimal.Decimal `json:"commission"`
	Trigger            string          `json:"trigger"`
}

// DeliveryAssignedEvent is emitted when an order gets a delivery volunteer.
type DeliveryAssignedEvent struct {
	OrderID             uuid.UUID `json:"order_id"`
	OrderNumber         string    `json:"order_number"`
	DeliveryVolunteerID uuid.UUID `json:"delivery_volunteer_id"`
	Mode                string    `json:"mode"`
	AssignedAt          time.Time `json:"assigned_at"`
}

// DeliveryReviewRequiredEvent asks an admin to pick a delivery volunteer.
type DeliveryReviewRequiredEvent struct {
	OrderID      uuid.UUID   `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	Reason       string      `json:"reason"`
	CandidateIDs []uuid.UUID `json:"candidate_ids,omitempty"`
}

// TrackingEventRecordedEvent mirrors an appended tracking row.
type TrackingEventRecordedEvent struct {
	OrderID       uuid.UUID            `json:"order_id"`
	TrackingID    uuid.UUID            `json:"tracking_id"`
	Status        enums.DeliveryStatus `json:"status"`
	CourierStatus string               `json:"courier_status,omitempty"`
	Source        enums.TrackingSource `json:"source"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// VolunteerStatusChangedEvent reports lifecycle transitions, including
// trash and restore.
type VolunteerStatusChangedEvent struct {
	VolunteerID uuid.UUID             `json:"volunteer_id"`
	Code        string                `json:"code"`
	From        enums.VolunteerStatus `json:"from"`
	To          enums.VolunteerStatus `json:"to"`
	Action      string                `json:"action"`
}
