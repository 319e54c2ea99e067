package properties

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
	"github.com/angelmondragon/propertyhub-backend/pkg/types"
)

// Actor is the authenticated caller of a property operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) isAdmin() bool { return a.Role == enums.UserRoleAdmin }

// PropertyDTO is the API view of a listing.
type PropertyDTO struct {
	ID             uuid.UUID            `json:"id"`
	Title          string               `json:"title"`
	Slug           string               `json:"slug"`
	Description    *string              `json:"description,omitempty"`
	PropertyType   enums.PropertyType   `json:"property_type"`
	OperationType  enums.OperationType  `json:"operation_type"`
	SalePrice      *decimal.Decimal     `json:"sale_price,omitempty"`
	MonthlyRent    *decimal.Decimal     `json:"monthly_rent,omitempty"`
	Currency       string               `json:"currency"`
	Bedrooms       *int                 `json:"bedrooms,omitempty"`
	Bathrooms      *int                 `json:"bathrooms,omitempty"`
	ParkingSpots   *int                 `json:"parking_spots,omitempty"`
	AreaM2         *decimal.Decimal     `json:"area_m2,omitempty"`
	BuiltM2        *decimal.Decimal     `json:"built_m2,omitempty"`
	AddressLine    *string              `json:"address_line,omitempty"`
	Neighborhood   *string              `json:"neighborhood,omitempty"`
	City           *string              `json:"city,omitempty"`
	State          *string              `json:"state,omitempty"`
	PostalCode     *string              `json:"postal_code,omitempty"`
	Latitude       *float64             `json:"latitude,omitempty"`
	Longitude      *float64             `json:"longitude,omitempty"`
	Amenities      []string             `json:"amenities"`
	OwnerID        uuid.UUID            `json:"owner_id"`
	ManagedByID    *uuid.UUID           `json:"managed_by_id,omitempty"`
	ApprovalStatus enums.ApprovalStatus `json:"approval_status"`
	ReviewNotes    *string              `json:"review_notes,omitempty"`
	PublishedAt    *time.Time           `json:"published_at,omitempty"`
	WizardStep     int                  `json:"wizard_step"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// FromModel maps the persisted listing into a DTO.
func FromModel(m *models.Property) *PropertyDTO {
	if m == nil {
		return nil
	}
	amenities := []string(m.Amenities)
	if amenities == nil {
		amenities = []string{}
	}
	return &PropertyDTO{
		ID:             m.ID,
		Title:          m.Title,
		Slug:           m.Slug,
		Description:    m.Description,
		PropertyType:   m.PropertyType,
		OperationType:  m.OperationType,
		SalePrice:      m.SalePrice,
		MonthlyRent:    m.MonthlyRent,
		Currency:       m.Currency,
		Bedrooms:       m.Bedrooms,
		Bathrooms:      m.Bathrooms,
		ParkingSpots:   m.ParkingSpots,
		AreaM2:         m.AreaM2,
		BuiltM2:        m.BuiltM2,
		AddressLine:    m.AddressLine,
		Neighborhood:   m.Neighborhood,
		City:           m.City,
		State:          m.State,
		PostalCode:     m.PostalCode,
		Latitude:       m.Latitude,
		Longitude:      m.Longitude,
		Amenities:      amenities,
		OwnerID:        m.OwnerID,
		ManagedByID:    m.ManagedByID,
		ApprovalStatus: m.ApprovalStatus,
		ReviewNotes:    m.ReviewNotes,
		PublishedAt:    m.PublishedAt,
		WizardStep:     m.WizardStep,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// CreateInput starts a draft listing. OwnerID defaults to the caller when the
// caller is an owner.
type CreateInput struct {
	Title         string              `json:"title" validate:"required,min=3,max=200"`
	PropertyType  enums.PropertyType  `json:"property_type" validate:"required,enum"`
	OperationType enums.OperationType `json:"operation_type" validate:"required,enum"`
	Description   *string             `json:"description,omitempty"`
	Currency      string              `json:"currency,omitempty" validate:"omitempty,len=3"`
	OwnerID       *uuid.UUID          `json:"owner_id,omitempty"`
	ManagedByID   *uuid.UUID          `json:"managed_by_id,omitempty"`
}

// UpdateInput is a dirty-field PATCH. Absent fields are left alone; explicit
// nulls clear nullable columns.
type UpdateInput struct {
	Title         types.Optional[string]              `json:"title"`
	Description   types.Optional[string]              `json:"description"`
	PropertyType  types.Optional[enums.PropertyType]  `json:"property_type"`
	OperationType types.Optional[enums.OperationType] `json:"operation_type"`

	AddressLine  types.Optional[string]  `json:"address_line"`
	Neighborhood types.Optional[string]  `json:"neighborhood"`
	City         types.Optional[string]  `json:"city"`
	State        types.Optional[string]  `json:"state"`
	PostalCode   types.Optional[string]  `json:"postal_code"`
	Latitude     types.Optional[float64] `json:"latitude"`
	Longitude    types.Optional[float64] `json:"longitude"`

	Bedrooms     types.Optional[int]             `json:"bedrooms"`
	Bathrooms    types.Optional[int]             `json:"bathrooms"`
	ParkingSpots types.Optional[int]             `json:"parking_spots"`
	AreaM2       types.Optional[decimal.Decimal] `json:"area_m2"`
	BuiltM2      types.Optional[decimal.Decimal] `json:"built_m2"`

	SalePrice   types.Optional[decimal.Decimal] `json:"sale_price"`
	MonthlyRent types.Optional[decimal.Decimal] `json:"monthly_rent"`
	Currency    types.Optional[string]          `json:"currency"`

	Amenities types.Optional[[]string] `json:"amenities"`

	MediaOrder types.Optional[[]uuid.UUID] `json:"media_order"`

	ManagedByID types.Optional[uuid.UUID] `json:"managed_by_id"`
}

// UpdateResult reports the persisted listing and the columns that changed.
type UpdateResult struct {
	Property *PropertyDTO `json:"property"`
	Changed  []string     `json:"changed_fields"`
}

// ListFilter narrows ListProperties.
type ListFilter struct {
	Status        *enums.ApprovalStatus
	OperationType *enums.OperationType
	PropertyType  *enums.PropertyType
	City          string
	OwnerID       *uuid.UUID
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	pagination.Params
}

// SearchInput is a public full-text search over approved listings.
type SearchInput struct {
	Text          string
	City          string
	PropertyType  string
	OperationType string
	Limit         int
	Offset        int
}

// SearchResult carries one page of search hits and the engine used.
type SearchResult struct {
	Items    []PropertyDTO `json:"items"`
	Total    int64         `json:"total"`
	Fallback bool          `json:"fallback"`
}

// TransitionInput carries the optional note of an approval action.
type TransitionInput struct {
	Note string `json:"note"`
}

// MediaDTO is an attached media object with a short-lived download URL.
type MediaDTO struct {
	ID          uuid.UUID `json:"id"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	Position    int       `json:"position"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type UploadURLInput struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}

type UploadURL struct {
	ObjectKey string    `json:"object_key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AttachMediaInput struct {
	ObjectKey   string `json:"object_key" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
}
