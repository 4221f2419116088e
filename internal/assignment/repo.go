package assignment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
)

// Repository touches only the delivery columns of orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindVolunteer(ctx context.Context, volunteerID uuid.UUID) (*models.Volunteer, error)
	UpdateDelivery(ctx context.Context, orderID uuid.UUID, fields map[string]any) error
	ListUnassigned(ctx context.Context, createdAfter time.Time, limit int) ([]uuid.UUID, error)
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

func (r *repositoryImpl) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := query.Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) FindVolunteer(ctx context.Context, volunteerID uuid.UUID) (*models.Volunteer, error) {
	var volunteer models.Volunteer
	if err := r.db.WithContext(ctx).Where("id = ?", volunteerID).First(&volunteer).Error; err != nil {
		return nil, err
	}
	return &volunteer, nil
}

func (r *repositoryImpl) UpdateDelivery(ctx context.Context, orderID uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(fields).Error
}

// ListUnassigned returns open orders that never reached a delivery decision,
// oldest first.
func (r *repositoryImpl) ListUnassigned(ctx context.Context, createdAfter time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("delivery_status = ?", enums.DeliveryStatusUnassigned).
		Where("delivery_volunteer_id IS NULL").
		Where("order_status IN ?", assignableOrderStatuses).
		Where("created_at >= ?", createdAfter).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
