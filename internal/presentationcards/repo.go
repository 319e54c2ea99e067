package presentationcards

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, c *models.PresentationCard) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PresentationCard, error)
	FindByToken(ctx context.Context, token string) (*models.PresentationCard, error)
	// RecordView bumps the counter while the card is live and reports whether
	// it did.
	RecordView(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	Expire(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, viewer Actor, f ListFilter, limit int, cursor *pagination.Cursor) ([]models.PresentationCard, error)
	FindProperty(ctx context.Context, id uuid.UUID) (*models.Property, error)
	ListMedia(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyMedia, error)
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

func (r *repository) Create(ctx context.Context, c *models.PresentationCard) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PresentationCard, error) {
	var c models.PresentationCard
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) FindByToken(ctx context.Context, token string) (*models.PresentationCard, error) {
	var c models.PresentationCard
	if err := r.db.WithContext(ctx).Where("share_token = ?", token).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) RecordView(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PresentationCard{}).
		Where("id = ? AND expires_at > ?", id, now).
		Update("view_count", gorm.Expr("view_count + 1"))
	return res.RowsAffected == 1, res.Error
}

func (r *repository) Expire(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.PresentationCard{}).
		Where("id = ? AND expires_at > ?", id, at).
		Update("expires_at", at).Error
}

func (r *repository) List(ctx context.Context, viewer Actor, f ListFilter, limit int, cursor *pagination.Cursor) ([]models.PresentationCard, error) {
	q := r.db.WithContext(ctx).Model(&models.PresentationCard{})
	if !viewer.isAdmin() {
		q = q.Where("created_by = ?", viewer.UserID)
	}
	if f.PropertyID != nil {
		q = q.Where("property_id = ?", *f.PropertyID)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.PresentationCard
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) FindProperty(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var p models.Property
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListMedia(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyMedia, error) {
	var rows []models.PropertyMedia
	err := r.db.WithContext(ctx).Where("property_id = ?", propertyID).Order("position ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
