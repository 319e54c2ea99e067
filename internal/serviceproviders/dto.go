package serviceproviders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/types"
)

type ProviderDTO struct {
	ID           uuid.UUID              `json:"id"`
	Name         string                 `json:"name"`
	Category     enums.ProviderCategory `json:"category"`
	ContactName  *string                `json:"contact_name,omitempty"`
	ContactEmail *string                `json:"contact_email,omitempty"`
	ContactPhone *string                `json:"contact_phone,omitempty"`
	IsActive     bool                   `json:"is_active"`
	Services     []ServiceDTO           `json:"services,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type ServiceDTO struct {
	ID          uuid.UUID        `json:"id"`
	ProviderID  uuid.UUID        `json:"provider_id"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Unit        *string          `json:"unit,omitempty"`
}

func providerFromModel(m *models.ServiceProvider) ProviderDTO {
	return ProviderDTO{
		ID:           m.ID,
		Name:         m.Name,
		Category:     m.Category,
		ContactName:  m.ContactName,
		ContactEmail: m.ContactEmail,
		ContactPhone: m.ContactPhone,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func serviceFromModel(m *models.ProviderService) ServiceDTO {
	return ServiceDTO{
		ID:          m.ID,
		ProviderID:  m.ProviderID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Unit:        m.Unit,
	}
}

type ProviderInput struct {
	Name         string                 `json:"name" validate:"required,min=2,max=120"`
	Category     enums.ProviderCategory `json:"category" validate:"required,enum"`
	ContactName  *string                `json:"contact_name,omitempty"`
	ContactEmail *string                `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone *string                `json:"contact_phone,omitempty"`
}

// ProviderPatch updates a provider. Absent fields are left alone; explicit
// nulls clear the contact fields.
type ProviderPatch struct {
	Name         types.Optional[string]                 `json:"name"`
	Category     types.Optional[enums.ProviderCategory] `json:"category"`
	ContactName  types.Optional[string]                 `json:"contact_name"`
	ContactEmail types.Optional[string]                 `json:"contact_email"`
	ContactPhone types.Optional[string]                 `json:"contact_phone"`
	IsActive     types.Optional[bool]                   `json:"is_active"`
}

type ServiceInput struct {
	Name        string           `json:"name" validate:"required,min=2,max=120"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Unit        *string          `json:"unit,omitempty"`
}

type ListFilter struct {
	Category   *enums.ProviderCategory
	Query      string
	ActiveOnly bool
	pagination.Params
}
