package properties

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

// Repository persists listings and their media.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, p *models.Property) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	FindBySlug(ctx context.Context, slug string) (*models.Property, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Property, error)
	SlugsWithPrefix(ctx context.Context, base string) ([]string, error)
	UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error
	List(ctx context.Context, viewer Actor, f ListFilter, limit int, cursor *pagination.Cursor) ([]models.Property, error)
	SearchText(ctx context.Context, in SearchInput, limit, offset int) ([]models.Property, int64, error)
	IsStaff(ctx context.Context, propertyID, userID uuid.UUID) (bool, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)

	ListMedia(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyMedia, error)
	CreateMedia(ctx context.Context, m *models.PropertyMedia) error
	DeleteMedia(ctx context.Context, propertyID, mediaID uuid.UUID) (*models.PropertyMedia, error)
	SetMediaPositions(ctx context.Context, propertyID uuid.UUID, ordered []uuid.UUID) error
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

func (r *repository) Create(ctx context.Context, p *models.Property) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var p models.Property
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*models.Property, error) {
	var p models.Property
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Property, error) {
	var rows []models.Property
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *repository) SlugsWithPrefix(ctx context.Context, base string) ([]string, error) {
	var slugs []string
	err := r.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("slug = ? OR slug LIKE ?", base, base+"-%").
		Pluck("slug", &slugs).Error
	return slugs, err
}

func (r *repository) UpdateColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	cols["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Property{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List pages listings newest first. Non-admin viewers see approved listings
// plus the ones they own, manage or staff.
func (r *repository) List(ctx context.Context, viewer Actor, f ListFilter, limit int, cursor *pagination.Cursor) ([]models.Property, error) {
	query := r.db.WithContext(ctx).Model(&models.Property{})

	if !viewer.isAdmin() {
		staffed := r.db.Model(&models.PropertyStaff{}).Select("property_id").Where("user_id = ?", viewer.UserID)
		query = query.Where(
			"approval_status = ? OR owner_id = ? OR managed_by_id = ? OR id IN (?)",
			enums.ApprovalApproved, viewer.UserID, viewer.UserID, staffed,
		)
	}
	if f.Status != nil {
		query = query.Where("approval_status = ?", *f.Status)
	}
	if f.OperationType != nil {
		query = query.Where("operation_type = ?", *f.OperationType)
	}
	if f.PropertyType != nil {
		query = query.Where("property_type = ?", *f.PropertyType)
	}
	if city := strings.TrimSpace(f.City); city != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(city))
	}
	if f.OwnerID != nil {
		query = query.Where("owner_id = ?", *f.OwnerID)
	}
	if f.MinPrice != nil {
		query = query.Where("(sale_price >= ? OR monthly_rent >= ?)", *f.MinPrice, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("(sale_price <= ? OR monthly_rent <= ?)", *f.MaxPrice, *f.MaxPrice)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Property
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// SearchText is the SQL fallback for full-text search over approved
// listings. LOWER(...) LIKE keeps it portable; on Postgres it behaves like
// ILIKE.
func (r *repository) SearchText(ctx context.Context, in SearchInput, limit, offset int) ([]models.Property, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Property{}).Where("approval_status = ?", enums.ApprovalApproved)
	if text := strings.TrimSpace(in.Text); text != "" {
		pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
		query = query.Where(
			"(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\\' OR LOWER(COALESCE(neighborhood, '')) LIKE ? ESCAPE '\\')",
			pattern, pattern, pattern,
		)
	}
	if city := strings.TrimSpace(in.City); city != "" {
		query = query.Where("LOWER(city) = ?", strings.ToLower(city))
	}
	if in.PropertyType != "" {
		query = query.Where("property_type = ?", in.PropertyType)
	}
	if in.OperationType != "" {
		query = query.Where("operation_type = ?", in.OperationType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Property
	err := query.Order("published_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *repository) IsStaff(ctx context.Context, propertyID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PropertyStaff{}).
		Where("property_id = ? AND user_id = ?", propertyID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *repository) ListMedia(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyMedia, error) {
	var rows []models.PropertyMedia
	err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("position ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CreateMedia(ctx context.Context, m *models.PropertyMedia) error {
	var maxPos *int
	if err := r.db.WithContext(ctx).
		Model(&models.PropertyMedia{}).
		Where("property_id = ?", m.PropertyID).
		Select("MAX(position)").
		Scan(&maxPos).Error; err != nil {
		return err
	}
	m.Position = 1
	if maxPos != nil {
		m.Position = *maxPos + 1
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *repository) DeleteMedia(ctx context.Context, propertyID, mediaID uuid.UUID) (*models.PropertyMedia, error) {
	var m models.PropertyMedia
	if err := r.db.WithContext(ctx).
		Where("id = ? AND property_id = ?", mediaID, propertyID).
		First(&m).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// SetMediaPositions renumbers media 1..n in the given order. Positions are
// first moved out of the way so UNIQUE(property_id, position) holds at every
// step.
func (r *repository) SetMediaPositions(ctx context.Context, propertyID uuid.UUID, ordered []uuid.UUID) error {
	db := r.db.WithContext(ctx).Model(&models.PropertyMedia{})
	for i, id := range ordered {
		if err := db.Session(&gorm.Session{}).
			Where("id = ? AND property_id = ?", id, propertyID).
			Update("position", -(i + 1)).Error; err != nil {
			return err
		}
	}
	for i, id := range ordered {
		if err := db.Session(&gorm.Session{}).
			Where("id = ? AND property_id = ?", id, propertyID).
			Update("position", i+1).Error; err != nil {
			return err
		}
	}
	return nil
}
