package volunteers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scentdrive/campaign-backend/pkg/db/models"
	"github.com/scentdrive/campaign-backend/pkg/enums"
	"github.com/scentdrive/campaign-backend/pkg/pagination"
)

// Repository exposes persistence helpers for volunteers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, volunteer *models.Volunteer) error
	FindByID(ctx context.Context, id uuid.UUID, includeTrashed bool) (*models.Volunteer, error)
	FindByCode(ctx context.Context, code string) (*models.Volunteer, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	List(ctx context.Context, params listParams) ([]models.Volunteer, error)
	MatchAddress(ctx context.Context, addr Address) ([]models.Volunteer, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	Purge(ctx context.Context, id uuid.UUID) error
	CountOrderReferences(ctx context.Context, id uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	Status  *enums.VolunteerStatus
	Town    string
	Search  string
	Trashed bool
	Limit   int
	Cursor  *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, volunteer *models.Volunteer) error {
	return r.db.WithContext(ctx).Create(volunteer).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID, includeTrashed bool) (*models.Volunteer, error) {
	query := r.db.WithContext(ctx)
	if includeTrashed {
		query = query.Unscoped()
	}
	var volunteer models.Volunteer
	if err := query.Where("id = ?", id).First(&volunteer).Error; err != nil {
		return nil, err
	}
	return &volunteer, nil
}

func (r *repositoryImpl) FindByCode(ctx context.Context, code string) (*models.Volunteer, error) {
	var volunteer models.Volunteer
	err := r.db.WithContext(ctx).
		Where("UPPER(volunteer_id) = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&volunteer).Error
	if err != nil {
		return nil, err
	}
	return &volunteer, nil
}

func (r *repositoryImpl) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Volunteer{}).
		Where("phone = ?", phone).
		Count(&count).Error
	return count > 0, err
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Volunteer, error) {
	query := r.db.WithContext(ctx).Model(&models.Volunteer{})
	if params.Trashed {
		query = query.Unscoped().Where("deleted_at IS NOT NULL")
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Town != "" {
		query = query.Where("LOWER(town) = LOWER(?)", params.Town)
	}
	if params.Search != "" {
		like := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(volunteer_id) LIKE ?)", like, like, like)
	}

	var rows []models.Volunteer
	err := pagination.Keyset(query, params.Cursor, params.Limit).Find(&rows).Error
	return rows, err
}

// MatchAddress returns active volunteers whose address triplet equals addr,
// ignoring case. addr must already be normalized and complete. Stored
// addresses are normalized on write, so the comparison is lower() only and
// stays on volunteers_address_match_idx.
func (r *repositoryImpl) MatchAddress(ctx context.Context, addr Address) ([]models.Volunteer, error) {
	var rows []models.Volunteer
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.VolunteerStatusActive).
		Where("house_building IS NOT NULL AND town IS NOT NULL AND post IS NOT NULL").
		Where("LOWER(house_building) = LOWER(?)", addr.HouseBuilding).
		Where("LOWER(town) = LOWER(?)", addr.Town).
		Where("LOWER(post) = LOWER(?)", addr.Post).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Volunteer{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Volunteer{}).Error
}

func (r *repositoryImpl) Restore(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Volunteer{}).
		Where("id = ?", id).
		Updates(map[string]any{"deleted_at": nil, "updated_at": time.Now().UTC()}).Error
}

func (r *repositoryImpl) Purge(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&models.Volunteer{}).Error
}

// CountOrderReferences counts orders, trashed included, that name the
// volunteer as referrer or courier.
func (r *repositoryImpl) CountOrderReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Order{}).
		Where("volunteer_id = ? OR delivery_volunteer_id = ?", id, id).
		Count(&count).Error
	return count, err
}
