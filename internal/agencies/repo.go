package agencies

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, a *models.ExternalAgency) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ExternalAgency, error)
	UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	SlugsWithPrefix(ctx context.Context, base string) ([]string, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]models.ExternalAgency, error)
	ListStaff(ctx context.Context, agencyID uuid.UUID) ([]models.User, error)
	CountReferences(ctx context.Context, agencyID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, a *models.ExternalAgency) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ExternalAgency, error) {
	var a models.ExternalAgency
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.ExternalAgency{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ExternalAgency{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	var slugs []string
	err := r.db.WithContext(ctx).
		Model(&models.ExternalAgency{}).
		Where("slug = ? OR slug LIKE ?", base, base+"-%").
		Pluck("slug", &slugs).Error
	return slugs, err
}

func (r *repository) List(ctx context.Context, f ListFilter, limit, offset int) ([]models.ExternalAgency, error) {
	q := r.db.WithContext(ctx).Model(&models.ExternalAgency{})
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if text := strings.ToLower(strings.TrimSpace(f.Query)); text != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+text+"%")
	}
	var rows []models.ExternalAgency
	err := q.Order("name ASC").Order("id ASC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

func (r *repository) ListStaff(ctx context.Context, agencyID uuid.UUID) ([]models.User, error) {
	var rows []models.User
	err := r.db.WithContext(ctx).
		Where("external_agency_id = ?", agencyID).
		Order("first_name ASC").Order("last_name ASC").
		Find(&rows).Error
	return rows, err
}

// CountReferences counts rows that keep the agency from being deleted.
func (r *repository) CountReferences(ctx context.Context, agencyID uuid.UUID) (int64, error) {
	var total int64
	for _, m := range []any{&models.User{}, &models.Lead{}, &models.CommissionRecord{}, &models.ExternalPayment{}} {
		var n int64
		if err := r.db.WithContext(ctx).Model(m).Where("external_agency_id = ?", agencyID).Count(&n).Error; err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
