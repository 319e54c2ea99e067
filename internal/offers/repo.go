package offers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

var openStatuses = []enums.OfferStatus{enums.OfferPending, enums.OfferCountered}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, o *models.Offer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	// Transition updates the offer only while it is still in from.
	Transition(ctx context.Context, id uuid.UUID, from enums.OfferStatus, cols map[string]any) (bool, error)
	OpenForProperty(ctx context.Context, propertyID uuid.UUID, exclude uuid.UUID) ([]models.Offer, error)
	HasOpen(ctx context.Context, propertyID, clientID uuid.UUID) (bool, error)
	List(ctx context.Context, viewer Actor, f ListFilter, limit int, cursor *pagination.Cursor) ([]models.Offer, error)
	DueForExpiry(ctx context.Context, now time.Time, limit int) ([]models.Offer, error)
	FindProperty(ctx context.Context, id uuid.UUID) (*models.Property, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
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

func (r *repository) Create(ctx context.Context, o *models.Offer) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var o models.Offer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from enums.OfferStatus, cols map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Offer{}).
		Where("id = ? AND status = ?", id, from).
		Updates(cols)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) OpenForProperty(ctx context.Context, propertyID uuid.UUID, exclude uuid.UUID) ([]models.Offer, error) {
	var rows []models.Offer
	err := r.db.WithContext(ctx).
		Where("property_id = ? AND id <> ?", propertyID, exclude).
		Where("status IN ?", openStatuses).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) HasOpen(ctx context.Context, propertyID, clientID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Offer{}).
		Where("property_id = ? AND client_id = ?", propertyID, clientID).
		Where("status IN ?", openStatuses).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) List(ctx context.Context, viewer Actor, f ListFilter, limit int, cursor *pagination.Cursor) ([]models.Offer, error) {
	q := r.db.WithContext(ctx).Model(&models.Offer{})
	switch viewer.Role {
	case enums.UserRoleAdmin, enums.UserRoleSeller:
	case enums.UserRoleOwner:
		q = q.Where("property_id IN (?)", r.db.Model(&models.Property{}).Select("id").Where("owner_id = ?", viewer.UserID))
	default:
		q = q.Where("client_id = ?", viewer.UserID)
	}
	if f.PropertyID != nil {
		q = q.Where("property_id = ?", *f.PropertyID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Offer
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) DueForExpiry(ctx context.Context, now time.Time, limit int) ([]models.Offer, error) {
	var rows []models.Offer
	err := r.db.WithContext(ctx).
		Where("status IN ?", openStatuses).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindProperty(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var p models.Property
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
