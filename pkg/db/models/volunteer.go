package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/pkg/enums"
)

// Volunteer is a campaign member who refers customers and may deliver orders
// in their own locality. TotalReferralCommission and TotalReferredBottles are
// derived from order history and only ever overwritten by a recalculation.
type Volunteer struct {
	ID                      uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	VolunteerID             string                `gorm:"column:volunteer_id;not null;uniqueIndex" json:"volunteer_id"`
	UserID                  *uuid.UUID            `gorm:"column:user_id;type:uuid" json:"user_id,omitempty"`
	Name                    string                `gorm:"column:name;not null" json:"name"`
	Phone                   string                `gorm:"column:phone;not null;uniqueIndex" json:"phone"`
	Email                   *string               `gorm:"column:email" json:"email,omitempty"`
	UPIID                   *string               `gorm:"column:upi_id" json:"upi_id,omitempty"`
	HouseBuilding           *string               `gorm:"column:house_building" json:"house_building,omitempty"`
	Town                    *string               `gorm:"column:town" json:"town,omitempty"`
	Post                    *string               `gorm:"column:post" json:"post,omitempty"`
	Pincode                 *string               `gorm:"column:pincode" json:"pincode,omitempty"`
	Status                  enums.VolunteerStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	TotalReferredBottles    int                   `gorm:"column:total_referred_bottles;not null;default:0" json:"total_referred_bottles"`
	TotalReferralCommission decimal.Decimal       `gorm:"column:total_referral_commission;type:numeric(12,2);not null;default:0" json:"total_referral_commission"`
	CommissionUpdatedAt     *time.Time            `gorm:"column:commission_updated_at" json:"commission_updated_at,omitempty"`
	ApprovedAt              *time.Time            `gorm:"column:approved_at" json:"approved_at,omitempty"`
	SuspendedAt             *time.Time            `gorm:"column:suspended_at" json:"suspended_at,omitempty"`
	CreatedAt               time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt               gorm.DeletedAt        `gorm:"column:deleted_at;index" json:"-"`
}

func (Volunteer) TableName() string { return "volunteers" }
