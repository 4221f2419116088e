package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	"github.com/scentdrive/campaign-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

type listFilters struct {
	Status              *enums.OrderStatus
	DeliveryStatus      *enums.DeliveryStatus
	VolunteerID         *uuid.UUID
	DeliveryVolunteerID *uuid.UUID
	UnassignedOnly      bool
	Search              string
	Limit               int
	Cursor              *pagination.Cursor
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := query.Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filters listFilters) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.Status != nil {
		query = query.Where("order_status = ?", *filters.Status)
	}
	if filters.DeliveryStatus != nil {
		query = query.Where("delivery_status = ?", *filters.DeliveryStatus)
	}
	if filters.VolunteerID != nil {
		query = query.Where("volunteer_id = ?", *filters.VolunteerID)
	}
	if filters.DeliveryVolunteerID != nil {
		query = query.Where("delivery_volunteer_id = ?", *filters.DeliveryVolunteerID)
	}
	if filters.UnassignedOnly {
		query = query.Where("delivery_volunteer_id IS NULL")
	}
	if filters.Search != "" {
		like := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where(
			"(LOWER(order_number) LIKE ? OR LOWER(customer_name) LIKE ? OR customer_phone LIKE ?)",
			like, like, like,
		)
	}

	var orders []models.Order
	err := pagination.Keyset(query, filters.Cursor, filters.Limit).Find(&orders).Error
	return orders, err
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{}).Error
}

// FindVolunteers loads referral and courier rows for detail views, trashed
// volunteers included.
func (r *repository) FindVolunteers(ctx context.Context, ids []uuid.UUID) ([]models.Volunteer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Volunteer
	err := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) ListTracking(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error) {
	var events []models.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("occurred_at ASC, created_at ASC").
		Find(&events).Error
	return events, err
}

// ListStalePayments returns online orders still awaiting payment that were
// placed before cutoff, oldest first.
func (r *repository) ListStalePayments(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_status = ?", enums.OrderStatusPaymentPending).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
