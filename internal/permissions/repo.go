package permissions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

type Repository interface {
	Grant(ctx context.Context, p *models.Permission) (bool, error)
	Revoke(ctx context.Context, userID uuid.UUID, name enums.Permission) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Permission, error)
	Has(ctx context.Context, userID uuid.UUID, name enums.Permission) (bool, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Grant inserts the grant unless the user already holds it and reports
// whether a row was created.
func (r *repository) Grant(ctx context.Context, p *models.Permission) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "name"}}, DoNothing: true}).
		Create(p)
	return res.RowsAffected == 1, res.Error
}

func (r *repository) Revoke(ctx context.Context, userID uuid.UUID, name enums.Permission) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		Delete(&models.Permission{})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Permission, error) {
	var rows []models.Permission
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) Has(ctx context.Context, userID uuid.UUID, name enums.Permission) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Permission{}).
		Where("user_id = ? AND name = ?", userID, name).
		Count(&n).Error
	return n > 0, err
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
