package commissions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

// Repository persists commission configuration rows and generated records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LoadCandidates(ctx context.Context, in ResolveInput) (Candidates, error)
	CreateConfig(ctx context.Context, cfg *Config) error
	FindConfig(ctx context.Context, tier enums.CommissionTier, id uuid.UUID) (*Config, error)
	ListConfigs(ctx context.Context, filter ListFilter) ([]Config, error)
	ListSameKey(ctx context.Context, tier enums.CommissionTier, key Key, op enums.DealType) ([]Config, error)
	UpdateConfig(ctx context.Context, tier enums.CommissionTier, id uuid.UUID, updates map[string]any) error
	DeleteConfig(ctx context.Context, tier enums.CommissionTier, id uuid.UUID) error
	CreateRecords(ctx context.Context, records []models.CommissionRecord) error
	ListRecordsByContract(ctx context.Context, contractID uuid.UUID) ([]models.CommissionRecord, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commissions repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LoadCandidates(ctx context.Context, in ResolveInput) (Candidates, error) {
	var c Candidates
	db := r.db.WithContext(ctx)
	if in.LeadID != nil {
		if err := db.Where("lead_id = ? AND operation_type = ?", *in.LeadID, in.Operation).Find(&c.Lead).Error; err != nil {
			return c, err
		}
	}
	if err := db.Where("user_id = ? AND operation_type = ?", in.UserID, in.Operation).Find(&c.User).Error; err != nil {
		return c, err
	}
	if in.Role != "" {
		if err := db.Where("role = ? AND operation_type = ?", in.Role, in.Operation).Find(&c.Role).Error; err != nil {
			return c, err
		}
	}
	if err := db.Where("operation_type = ?", in.Operation).Find(&c.Defaults).Error; err != nil {
		return c, err
	}
	return c, nil
}

func (r *repository) CreateConfig(ctx context.Context, cfg *Config) error {
	db := r.db.WithContext(ctx)
	window := cfg.window()
	switch cfg.Tier {
	case enums.CommissionTierDefault:
		row := models.CommissionDefault{CommissionWindow: window, CreatedBy: cfg.CreatedBy}
		if err := db.Create(&row).Error; err != nil {
			return err
		}
		*cfg = fromDefault(row)
	case enums.CommissionTierRole:
		row := models.CommissionRoleOverride{Role: *cfg.Role, CommissionWindow: window, CreatedBy: cfg.CreatedBy}
		if err := db.Create(&row).Error; err != nil {
			return err
		}
		*cfg = fromRole(row)
	case enums.CommissionTierUser:
		row := models.CommissionUserOverride{UserID: *cfg.UserID, CommissionWindow: window, CreatedBy: cfg.CreatedBy}
		if err := db.Create(&row).Error; err != nil {
			return err
		}
		*cfg = fromUser(row)
	case enums.CommissionTierLead:
		row := models.CommissionLeadOverride{LeadID: *cfg.LeadID, UserID: cfg.UserID, CommissionWindow: window, CreatedBy: cfg.CreatedBy}
		if err := db.Create(&row).Error; err != nil {
			return err
		}
		*cfg = fromLead(row)
	default:
		return fmt.Errorf("unknown commission tier %q", cfg.Tier)
	}
	return nil
}

func (r *repository) FindConfig(ctx context.Context, tier enums.CommissionTier, id uuid.UUID) (*Config, error) {
	rows, err := r.list(r.db.WithContext(ctx).Where("id = ?", id), tier)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *repository) ListConfigs(ctx context.Context, filter ListFilter) ([]Config, error) {
	tiers := []enums.CommissionTier{enums.CommissionTierLead, enums.CommissionTierUser, enums.CommissionTierRole, enums.CommissionTierDefault}
	if filter.Tier != "" {
		tiers = []enums.CommissionTier{filter.Tier}
	}
	var out []Config
	for _, tier := range tiers {
		query := r.db.WithContext(ctx)
		if filter.OperationType != "" {
			query = query.Where("operation_type = ?", filter.OperationType)
		}
		switch tier {
		case enums.CommissionTierRole:
			if filter.UserID != nil || filter.LeadID != nil {
				continue
			}
			if filter.Role != nil {
				query = query.Where("role = ?", *filter.Role)
			}
		case enums.CommissionTierUser:
			if filter.Role != nil || filter.LeadID != nil {
				continue
			}
			if filter.UserID != nil {
				query = query.Where("user_id = ?", *filter.UserID)
			}
		case enums.CommissionTierLead:
			if filter.Role != nil {
				continue
			}
			if filter.LeadID != nil {
				query = query.Where("lead_id = ?", *filter.LeadID)
			}
			if filter.UserID != nil {
				query = query.Where("user_id = ?", *filter.UserID)
			}
		case enums.CommissionTierDefault:
			if filter.Role != nil || filter.UserID != nil || filter.LeadID != nil {
				continue
			}
		}
		rows, err := r.list(query.Order("active_from DESC").Order("created_at DESC"), tier)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if filter.ActiveAt != nil && !row.window().ActiveAt(*filter.ActiveAt) {
				continue
			}
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *repository) ListSameKey(ctx context.Context, tier enums.CommissionTier, key Key, op enums.DealType) ([]Config, error) {
	query := r.db.WithContext(ctx).Where("operation_type = ?", op)
	switch tier {
	case enums.CommissionTierRole:
		query = query.Where("role = ?", *key.Role)
	case enums.CommissionTierUser:
		query = query.Where("user_id = ?", *key.UserID)
	case enums.CommissionTierLead:
		query = query.Where("lead_id = ?", *key.LeadID)
		if key.UserID != nil {
			query = query.Where("user_id = ?", *key.UserID)
		} else {
			query = query.Where("user_id IS NULL")
		}
	}
	return r.list(query, tier)
}

func (r *repository) list(query *gorm.DB, tier enums.CommissionTier) ([]Config, error) {
	var out []Config
	switch tier {
	case enums.CommissionTierDefault:
		var rows []models.CommissionDefault
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, fromDefault(row))
		}
	case enums.CommissionTierRole:
		var rows []models.CommissionRoleOverride
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, fromRole(row))
		}
	case enums.CommissionTierUser:
		var rows []models.CommissionUserOverride
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, fromUser(row))
		}
	case enums.CommissionTierLead:
		var rows []models.CommissionLeadOverride
		if err := query.Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			out = append(out, fromLead(row))
		}
	default:
		return nil, fmt.Errorf("unknown commission tier %q", tier)
	}
	return out, nil
}

func (r *repository) UpdateConfig(ctx context.Context, tier enums.CommissionTier, id uuid.UUID, updates map[string]any) error {
	model, err := tierModel(tier)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) DeleteConfig(ctx context.Context, tier enums.CommissionTier, id uuid.UUID) error {
	model, err := tierModel(tier)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreateRecords(ctx context.Context, records []models.CommissionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *repository) ListRecordsByContract(ctx context.Context, contractID uuid.UUID) ([]models.CommissionRecord, error) {
	var rows []models.CommissionRecord
	err := r.db.WithContext(ctx).Where("contract_id = ?", contractID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func tierModel(tier enums.CommissionTier) (any, error) {
	switch tier {
	case enums.CommissionTierDefault:
		return &models.CommissionDefault{}, nil
	case enums.CommissionTierRole:
		return &models.CommissionRoleOverride{}, nil
	case enums.CommissionTierUser:
		return &models.CommissionUserOverride{}, nil
	case enums.CommissionTierLead:
		return &models.CommissionLeadOverride{}, nil
	}
	return nil, fmt.Errorf("unknown commission tier %q", tier)
}
