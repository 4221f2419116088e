package reports

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
)

// Repository runs the read-only aggregate queries behind the dashboard.
type Repository interface {
	OrderCountsByStatus(ctx context.Context) ([]statusCount, error)
	QualifyingTotals(ctx context.Context) (qualifyingTotals, error)
	CountDeliveryStatus(ctx context.Context, status enums.DeliveryStatus) (int64, error)
	VolunteerCountsByStatus(ctx context.Context) ([]statusCount, error)
	CommissionLiability(ctx context.Context) (decimal.Decimal, error)
	TopVolunteers(ctx context.Context, limit int) ([]models.Volunteer, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) OrderCountsByStatus(ctx context.Context) ([]statusCount, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("order_status AS status, COUNT(*) AS total").
		Group("order_status").
		Scan(&rows).Error
	return rows, err
}

func (r *repositoryImpl) QualifyingTotals(ctx context.Context) (qualifyingTotals, error) {
	var totals qualifyingTotals
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(quantity), 0) AS bottles, COALESCE(SUM(total_amount), 0) AS revenue").
		Where("order_status IN ?", enums.QualifyingOrderStatuses).
		Scan(&totals).Error
	return totals, err
}

func (r *repositoryImpl) CountDeliveryStatus(ctx context.Context, status enums.DeliveryStatus) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("delivery_status = ?", status).
		Where("order_status NOT IN ?", []enums.OrderStatus{enums.OrderStatusCancelled, enums.OrderStatusReturned}).
		Count(&total).Error
	return total, err
}

func (r *repositoryImpl) VolunteerCountsByStatus(ctx context.Context) ([]statusCount, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Volunteer{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// CommissionLiability sums the stored totals of volunteers that are not in
// the trash.
func (r *repositoryImpl) CommissionLiability(ctx context.Context) (decimal.Decimal, error) {
	var row liabilityTotal
	err := r.db.WithContext(ctx).
		Model(&models.Volunteer{}).
		Select("COALESCE(SUM(total_referral_commission), 0) AS total").
		Scan(&row).Error
	return row.Total, err
}

func (r *repositoryImpl) TopVolunteers(ctx context.Context, limit int) ([]models.Volunteer, error) {
	var rows []models.Volunteer
	err := r.db.WithContext(ctx).
		Where("total_referred_bottles > 0").
		Order("total_referred_bottles DESC, created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
