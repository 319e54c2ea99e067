package propertystaff

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

type Repository interface {
	Create(ctx context.Context, s *models.PropertyStaff) error
	Delete(ctx context.Context, propertyID, userID uuid.UUID, role *enums.StaffRole) (int64, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]StaffMember, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Assignment, error)
	FindProperty(ctx context.Context, id uuid.UUID) (*models.Property, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, s *models.PropertyStaff) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *repository) Delete(ctx context.Context, propertyID, userID uuid.UUID, role *enums.StaffRole) (int64, error) {
	q := r.db.WithContext(ctx).Where("property_id = ? AND user_id = ?", propertyID, userID)
	if role != nil {
		q = q.Where("role = ?", *role)
	}
	res := q.Delete(&models.PropertyStaff{})
	return res.RowsAffected, res.Error
}

func (r *repository) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]StaffMember, error) {
	var rows []struct {
		models.PropertyStaff
		FirstName string
		LastName  string
		Email     string
		UserRole  enums.UserRole
	}
	err := r.db.WithContext(ctx).
		Table("property_staff").
		Select("property_staff.*, users.first_name, users.last_name, users.email, users.role AS user_role").
		Joins("JOIN users ON users.id = property_staff.user_id").
		Where("property_staff.property_id = ?", propertyID).
		Order("property_staff.role ASC").
		Order("property_staff.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]StaffMember, 0, len(rows))
	for _, row := range rows {
		u := models.User{FirstName: row.FirstName, LastName: row.LastName}
		out = append(out, StaffMember{
			ID:         row.ID,
			PropertyID: row.PropertyID,
			UserID:     row.UserID,
			Role:       row.Role,
			FullName:   u.FullName(),
			Email:      row.Email,
			UserRole:   row.UserRole,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Assignment, error) {
	var out []Assignment
	err := r.db.WithContext(ctx).
		Table("property_staff").
		Select("properties.id AS property_id, properties.title, properties.slug, properties.approval_status, property_staff.role, property_staff.created_at AS assigned_at").
		Joins("JOIN properties ON properties.id = property_staff.property_id").
		Where("property_staff.user_id = ?", userID).
		Order("property_staff.created_at DESC").
		Scan(&out).Error
	return out, err
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
