package contracts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, c *models.Contract) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	// Transition updates the contract only while it is still in from.
	Transition(ctx context.Context, id uuid.UUID, from enums.ContractStatus, cols map[string]any) (bool, error)
	SetDocumentKey(ctx context.Context, id uuid.UUID, key string) error
	List(ctx context.Context, viewer Actor, f ListFilter, limit int, cursor *pagination.Cursor) ([]models.Contract, error)
	ActiveForOffer(ctx context.Context, offerID uuid.UUID) (bool, error)
	FindProperty(ctx context.Context, id uuid.UUID) (*models.Property, error)
	FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindLead(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUsers(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	PropertySellers(ctx context.Context, propertyID uuid.UUID) ([]models.User, error)
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

func (r *repository) Create(ctx context.Context, c *models.Contract) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var c models.Contract
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from enums.ContractStatus, cols map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Contract{}).
		Where("id = ? AND status = ?", id, from).
		Updates(cols)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) SetDocumentKey(ctx context.Context, id uuid.UUID, key string) error {
	return r.db.WithContext(ctx).Model(&models.Contract{}).Where("id = ?", id).Update("document_key", key).Error
}

func (r *repository) List(ctx context.Context, viewer Actor, f ListFilter, limit int, cursor *pagination.Cursor) ([]models.Contract, error) {
	q := r.db.WithContext(ctx).Model(&models.Contract{})
	switch {
	case viewer.isStaff():
	case viewer.Role == enums.UserRoleOwner:
		q = q.Where("owner_id = ?", viewer.UserID)
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
	var rows []models.Contract
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) ActiveForOffer(ctx context.Context, offerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Contract{}).
		Where("offer_id = ? AND status <> ?", offerID, enums.ContractCancelled).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindProperty(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var p models.Property
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var o models.Offer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) FindLead(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var l models.Lead
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) FindUsers(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) PropertySellers(ctx context.Context, propertyID uuid.UUID) ([]models.User, error) {
	var rows []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN property_staff ps ON ps.user_id = users.id").
		Where("ps.property_id = ? AND ps.role = ?", propertyID, enums.StaffRoleSeller).
		Order("ps.created_at ASC").
		Find(&rows).Error
	return rows, err
}
