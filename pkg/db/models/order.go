package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/pkg/enums"
)

// Order is a single customer purchase. VolunteerID is the referral volunteer
// and DeliveryVolunteerID the courier; the two are independent.
type Order struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderNumber         string               `gorm:"column:order_number;not null;uniqueIndex" json:"order_number"`
	CustomerName        string               `gorm:"column:customer_name;not null" json:"customer_name"`
	CustomerPhone       string               `gorm:"column:customer_phone;not null" json:"customer_phone"`
	HouseBuilding       string               `gorm:"column:house_building;not null" json:"house_building"`
	Town                string               `gorm:"column:town;not null" json:"town"`
	Post                string               `gorm:"column:post;not null" json:"post"`
	Landmark            *string              `gorm:"column:landmark" json:"landmark,omitempty"`
	Pincode             string               `gorm:"column:pincode;not null" json:"pincode"`
	Quantity            int                  `gorm:"column:quantity;not null;check:orders_quantity_check,quantity > 0" json:"quantity"`
	UnitPrice           decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	TotalAmount         decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	PaymentMethod       enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null;default:'cod'" json:"payment_method"`
	PaymentReference    *string              `gorm:"column:payment_reference" json:"payment_reference,omitempty"`
	OrderStatus         enums.OrderStatus    `gorm:"column:order_status;type:text;not null;default:'ordered'" json:"order_status"`
	VolunteerID         *uuid.UUID           `gorm:"column:volunteer_id;type:uuid" json:"volunteer_id,omitempty"`
	DeliveryVolunteerID *uuid.UUID           `gorm:"column:delivery_volunteer_id;type:uuid" json:"delivery_volunteer_id,omitempty"`
	IsDeliveryDuty      bool                 `gorm:"column:is_delivery_duty;not null;default:false;check:orders_delivery_duty_check,is_delivery_duty = (delivery_volunteer_id IS NOT NULL)" json:"is_delivery_duty"`
	DeliveryStatus      enums.DeliveryStatus `gorm:"column:delivery_status;type:text;not null;default:'unassigned'" json:"delivery_status"`
	AssignedAt          *time.Time           `gorm:"column:assigned_at" json:"assigned_at,omitempty"`
	DeliveredAt         *time.Time           `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	Notes               *string              `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt       `gorm:"column:deleted_at;index" json:"-"`
}

func (Order) TableName() string { return "orders" }
