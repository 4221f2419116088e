package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
)

// Repository reads order history and writes the derived commission columns.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockVolunteer(ctx context.Context, volunteerID uuid.UUID) (*models.Volunteer, error)
	FindVolunteer(ctx context.Context, volunteerID uuid.UUID) (*models.Volunteer, error)
	SumQualifyingBottles(ctx context.Context, volunteerID uuid.UUID) (int, error)
	SumDeliveredBottles(ctx context.Context, volunteerID uuid.UUID) (int, error)
	SaveTotals(ctx context.Context, volunteerID uuid.UUID, bottles int, amount decimal.Decimal, now time.Time) error
	ListReconcilable(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// LockVolunteer loads the volunteer row and, on Postgres, holds a row lock
// for the rest of the transaction so concurrent recalculations serialize.
// Trashed volunteers are included; their totals stay derivable.
func (r *repositoryImpl) LockVolunteer(ctx context.Context, volunteerID uuid.UUID) (*models.Volunteer, error) {
	query := r.db.WithContext(ctx).Unscoped()
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var volunteer models.Volunteer
	if err := query.Where("id = ?", volunteerID).First(&volunteer).Error; err != nil {
		return nil, err
	}
	return &volunteer, nil
}

func (r *repositoryImpl) FindVolunteer(ctx context.Context, volunteerID uuid.UUID) (*models.Volunteer, error) {
	var volunteer models.Volunteer
	if err := r.db.WithContext(ctx).Where("id = ?", volunteerID).First(&volunteer).Error; err != nil {
		return nil, err
	}
	return &volunteer, nil
}

func (r *repositoryImpl) SumQualifyingBottles(ctx context.Context, volunteerID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("volunteer_id = ?", volunteerID).
		Where("order_status IN ?", enums.QualifyingOrderStatuses).
		Scan(&total).Error
	return int(total), err
}

func (r *repositoryImpl) SumDeliveredBottles(ctx context.Context, volunteerID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("delivery_volunteer_id = ?", volunteerID).
		Where("delivery_status = ?", enums.DeliveryStatusDelivered).
		Scan(&total).Error
	return int(total), err
}

func (r *repositoryImpl) SaveTotals(ctx context.Context, volunteerID uuid.UUID, bottles int, amount decimal.Decimal, now time.Time) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Volunteer{}).
		Where("id = ?", volunteerID).
		Updates(map[string]any{
			"total_referred_bottles":    bottles,
			"total_referral_commission": amount,
			"commission_updated_at":     now,
		}).Error
}

// ListReconcilable pages through active and suspended volunteers by id.
func (r *repositoryImpl) ListReconcilable(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Volunteer{}).
		Where("status IN ?", []enums.VolunteerStatus{enums.VolunteerStatusActive, enums.VolunteerStatusSuspended})
	if after != uuid.Nil {
		query = query.Where("id > ?", after)
	}
	var ids []uuid.UUID
	err := query.Order("id ASC").Limit(limit).Pluck("id", &ids).Error
	return ids, err
}
