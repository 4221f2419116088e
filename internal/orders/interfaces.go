package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/internal/assignment"
	"github.com/scentdrive/campaign-backend/internal/commission"
	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/outbox"
)

// Repository defines persistence operations for campaign orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters listFilters) ([]models.Order, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	FindVolunteers(ctx context.Context, ids []uuid.UUID) ([]models.Volunteer, error)
	ListTracking(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error)
	ListStalePayments(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ReferralResolver maps a customer-entered code to an active volunteer.
type ReferralResolver interface {
	ResolveReferralTx(ctx context.Context, tx *gorm.DB, code string) (*models.Volunteer, error)
}

// CommissionRecalculator refreshes a volunteer's derived referral totals.
type CommissionRecalculator interface {
	RecalculateTx(ctx context.Context, tx *gorm.DB, volunteerID uuid.UUID, trigger string) (*commission.Result, error)
}

// Assigner runs delivery auto-assignment for a committed order.
type Assigner interface {
	AutoAssign(ctx context.Context, orderID uuid.UUID) (*assignment.Result, error)
}
