package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/scentdrive/campaign-backend/pkg/enums"
)

// TrackingEvent is one append-only entry in an order's delivery timeline.
type TrackingEvent struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrderID       uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	Status        enums.DeliveryStatus `gorm:"column:status;type:text;not null" json:"status"`
	CourierStatus *string              `gorm:"column:courier_status" json:"courier_status,omitempty"`
	Location      *string              `gorm:"column:location" json:"location,omitempty"`
	Note          *string              `gorm:"column:note" json:"note,omitempty"`
	Source        enums.TrackingSource `gorm:"column:source;type:text;not null" json:"source"`
	ActorID       *uuid.UUID           `gorm:"column:actor_id;type:uuid" json:"actor_id,omitempty"`
	OccurredAt    time.Time            `gorm:"column:occurred_at;not null" json:"occurred_at"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (TrackingEvent) TableName() string { return "tracking_events" }
