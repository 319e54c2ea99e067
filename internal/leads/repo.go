package leads

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

var closedStatuses = []enums.LeadStatus{enums.LeadWon, enums.LeadLost}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, l *models.Lead) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error
	FindOpenByContact(ctx context.Context, email, phone string) (*models.Lead, error)
	LockContact(ctx context.Context, keys ...string) error
	List(ctx context.Context, viewer Actor, f ListFilter, limit int, cursor *pagination.Cursor) ([]models.Lead, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindAgency(ctx context.Context, id uuid.UUID) (*models.ExternalAgency, error)
	PropertyExists(ctx context.Context, id uuid.UUID) (bool, error)
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

func (r *repository) Create(ctx context.Context, l *models.Lead) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var l models.Lead
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindOpenByContact returns the oldest open lead matching either contact
// key. Empty keys are ignored.
func (r *repository) FindOpenByContact(ctx context.Context, email, phone string) (*models.Lead, error) {
	q := r.db.WithContext(ctx).Where("status NOT IN ?", closedStatuses)
	switch {
	case email != "" && phone != "":
		q = q.Where("normalized_email = ? OR normalized_phone = ?", email, phone)
	case email != "":
		q = q.Where("normalized_email = ?", email)
	case phone != "":
		q = q.Where("normalized_phone = ?", phone)
	default:
		return nil, gorm.ErrRecordNotFound
	}
	var l models.Lead
	if err := q.Order("created_at ASC").First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// LockContact takes transaction-scoped advisory locks on Postgres so two
// registrations of the same contact serialize.
func (r *repository) LockContact(ctx context.Context, keys ...string) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "lead:"+key).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) List(ctx context.Context, viewer Actor, f ListFilter, limit int, cursor *pagination.Cursor) ([]models.Lead, error) {
	q := r.db.WithContext(ctx).Model(&models.Lead{})
	switch viewer.Role {
	case enums.UserRoleAdmin:
	case enums.UserRoleExternalAgent:
		q = q.Where("external_agency_id = ?", viewer.AgencyID)
	default:
		q = q.Where("assigned_to_id = ? OR registered_by_id = ?", viewer.UserID, viewer.UserID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.OperationType != nil {
		q = q.Where("operation_type = ?", *f.OperationType)
	}
	if f.AssignedToID != nil {
		q = q.Where("assigned_to_id = ?", *f.AssignedToID)
	}
	if f.AgencyID != nil {
		q = q.Where("external_agency_id = ?", *f.AgencyID)
	}
	if text := strings.ToLower(strings.TrimSpace(f.Query)); text != "" {
		pattern := "%" + text + "%"
		q = q.Where("(LOWER(full_name) LIKE ? OR normalized_email LIKE ?)", pattern, pattern)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Lead
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) FindAgency(ctx context.Context, id uuid.UUID) (*models.ExternalAgency, error) {
	var a models.ExternalAgency
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) PropertyExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
