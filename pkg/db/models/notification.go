package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/scentdrive/campaign-backend/pkg/enums"
)

// Notification stores in-app notifications scoped to a volunteer.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	VolunteerID uuid.UUID              `gorm:"column:volunteer_id;type:uuid;not null" json:"volunteer_id"`
	Type        enums.NotificationType `gorm:"column:type;type:text;not null" json:"type"`
	Title       string                 `gorm:"column:title;type:text;not null" json:"title"`
	Message     string                 `gorm:"column:message;type:text;not null" json:"message"`
	OrderID     *uuid.UUID             `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	ReadAt      *time.Time             `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
