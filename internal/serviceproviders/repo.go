package serviceproviders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProvider(ctx context.Context, p *models.ServiceProvider) error
	FindProvider(ctx context.Context, id uuid.UUID) (*models.ServiceProvider, error)
	UpdateProvider(ctx context.Context, id uuid.UUID, cols map[string]any) error
	DeleteProvider(ctx context.Context, id uuid.UUID) (int64, error)
	ListProviders(ctx context.Context, f ListFilter, limit, offset int) ([]models.ServiceProvider, error)

	CreateService(ctx context.Context, s *models.ProviderService) error
	FindService(ctx context.Context, providerID, id uuid.UUID) (*models.ProviderService, error)
	UpdateService(ctx context.Context, id uuid.UUID, cols map[string]any) error
	DeleteService(ctx context.Context, providerID, id uuid.UUID) (int64, error)
	DeleteServices(ctx context.Context, providerID uuid.UUID) error
	ListServices(ctx context.Context, providerIDs []uuid.UUID) ([]models.ProviderService, error)
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

func (r *repository) CreateProvider(ctx context.Context, p *models.ServiceProvider) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) FindProvider(ctx context.Context, id uuid.UUID) (*models.ServiceProvider, error) {
	var p models.ServiceProvider
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) UpdateProvider(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.ServiceProvider{}).Where("id = ?", id).Updates(cols).Error
}

func (r *repository) DeleteProvider(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ServiceProvider{})
	return res.RowsAffected, res.Error
}

func (r *repository) ListProviders(ctx context.Context, f ListFilter, limit, offset int) ([]models.ServiceProvider, error) {
	q := r.db.WithContext(ctx).Model(&models.ServiceProvider{})
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if text := strings.ToLower(strings.TrimSpace(f.Query)); text != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+text+"%")
	}
	var rows []models.ServiceProvider
	err := q.Order("name ASC").Order("id ASC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

func (r *repository) CreateService(ctx context.Context, s *models.ProviderService) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *repository) FindService(ctx context.Context, providerID, id uuid.UUID) (*models.ProviderService, error) {
	var s models.ProviderService
	if err := r.db.WithContext(ctx).Where("id = ? AND provider_id = ?", id, providerID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) UpdateService(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.ProviderService{}).Where("id = ?", id).Updates(cols).Error
}

func (r *repository) DeleteService(ctx context.Context, providerID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND provider_id = ?", id, providerID).Delete(&models.ProviderService{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteServices(ctx context.Context, providerID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("provider_id = ?", providerID).Delete(&models.ProviderService{}).Error
}

func (r *repository) ListServices(ctx context.Context, providerIDs []uuid.UUID) ([]models.ProviderService, error) {
	if len(providerIDs) == 0 {
		return nil, nil
	}
	var rows []models.ProviderService
	err := r.db.WithContext(ctx).Where("provider_id IN ?", providerIDs).Order("name ASC").Find(&rows).Error
	return rows, err
}
