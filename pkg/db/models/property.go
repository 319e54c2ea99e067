package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

// Property is a listing owned by an owner account and optionally managed by
// a staff member.
type Property struct {
	ID             uuid.UUID            `gorm:"type:uuid;primaryKey"`
	Title          string               `gorm:"column:title;not null"`
	Slug           string               `gorm:"column:slug;not null;uniqueIndex"`
	Description    *string              `gorm:"column:description"`
	PropertyType   enums.PropertyType   `gorm:"column:property_type;type:property_type;not null"`
	OperationType  enums.OperationType  `gorm:"column:operation_type;type:operation_type;not null"`
	SalePrice      *decimal.Decimal     `gorm:"column:sale_price;type:numeric(14,2)"`
	MonthlyRent    *decimal.Decimal     `gorm:"column:monthly_rent;type:numeric(12,2)"`
	Currency       string               `gorm:"column:currency;not null"`
	Bedrooms       *int                 `gorm:"column:bedrooms"`
	Bathrooms      *int                 `gorm:"column:bathrooms"`
	ParkingSpots   *int                 `gorm:"column:parking_spots"`
	AreaM2         *decimal.Decimal     `gorm:"column:area_m2;type:numeric(10,2)"`
	BuiltM2        *decimal.Decimal     `gorm:"column:built_m2;type:numeric(10,2)"`
	AddressLine    *string              `gorm:"column:address_line"`
	Neighborhood   *string              `gorm:"column:neighborhood"`
	City           *string              `gorm:"column:city"`
	State          *string              `gorm:"column:state"`
	PostalCode     *string              `gorm:"column:postal_code"`
	Latitude       *float64             `gorm:"column:latitude"`
	Longitude      *float64             `gorm:"column:longitude"`
	Amenities      pq.StringArray       `gorm:"column:amenities;type:text[]"`
	OwnerID        uuid.UUID            `gorm:"column:owner_id;type:uuid;not null"`
	ManagedByID    *uuid.UUID           `gorm:"column:managed_by_id;type:uuid"`
	ApprovalStatus enums.ApprovalStatus `gorm:"column:approval_status;type:approval_status;not null"`
	ReviewNotes    *string              `gorm:"column:review_notes"`
	PublishedAt    *time.Time           `gorm:"column:published_at"`
	WizardStep     int                  `gorm:"column:wizard_step;not null"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Property) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PropertyMedia is an ordered image/video attached to a listing.
type PropertyMedia struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PropertyID  uuid.UUID `gorm:"column:property_id;type:uuid;not null"`
	ObjectKey   string    `gorm:"column:object_key;not null"`
	ContentType string    `gorm:"column:content_type;not null"`
	Position    int       `gorm:"column:position;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (PropertyMedia) TableName() string { return "property_media" }

func (m *PropertyMedia) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// PropertyStaff links a user to a property with a working role.
type PropertyStaff struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PropertyID uuid.UUID       `gorm:"column:property_id;type:uuid;not null"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	Role       enums.StaffRole `gorm:"column:role;type:staff_role;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (PropertyStaff) TableName() string { return "property_staff" }

func (s *PropertyStaff) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
