package presentationcards

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/pagination"
)

const (
	DefaultTTL = 14 * 24 * time.Hour
	MaxTTL     = 90 * 24 * time.Hour
)

type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) isAdmin() bool { return a.Role == enums.UserRoleAdmin }

type CardDTO struct {
	ID         uuid.UUID  `json:"id"`
	PropertyID uuid.UUID  `json:"property_id"`
	ClientID   *uuid.UUID `json:"client_id,omitempty"`
	CreatedBy  uuid.UUID  `json:"created_by"`
	Title      string     `json:"title"`
	Message    *string    `json:"message,omitempty"`
	ShareToken string     `json:"share_token"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ViewCount  int        `json:"view_count"`
	Expired    bool       `json:"expired"`
	CreatedAt  time.Time  `json:"created_at"`
}

func FromModel(m *models.PresentationCard, now time.Time) CardDTO {
	return CardDTO{
		ID:         m.ID,
		PropertyID: m.PropertyID,
		ClientID:   m.ClientID,
		CreatedBy:  m.CreatedBy,
		Title:      m.Title,
		Message:    m.Message,
		ShareToken: m.ShareToken,
		ExpiresAt:  m.ExpiresAt,
		ViewCount:  m.ViewCount,
		Expired:    !now.Before(m.ExpiresAt),
		CreatedAt:  m.CreatedAt,
	}
}

// CreateInput prepares a card. ExpiresAt defaults to DefaultTTL from now.
type CreateInput struct {
	PropertyID uuid.UUID  `json:"property_id" validate:"required"`
	ClientID   *uuid.UUID `json:"client_id,omitempty"`
	Title      string     `json:"title,omitempty"`
	Message    *string    `json:"message,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type ListFilter struct {
	PropertyID *uuid.UUID
	pagination.Params
}

// PublicCard is what an anonymous visitor sees through the share link.
type PublicCard struct {
	Title       string         `json:"title"`
	Message     *string        `json:"message,omitempty"`
	ExpiresAt   time.Time      `json:"expires_at"`
	ViewCount   int            `json:"view_count"`
	PresentedBy string         `json:"presented_by"`
	Property    PublicProperty `json:"property"`
	Media       []PublicMedia  `json:"media"`
}

type PublicProperty struct {
	Title         string              `json:"title"`
	Description   *string             `json:"description,omitempty"`
	PropertyType  enums.PropertyType  `json:"property_type"`
	OperationType enums.OperationType `json:"operation_type"`
	Currency      string              `json:"currency"`
	SalePrice     *decimal.Decimal    `json:"sale_price,omitempty"`
	MonthlyRent   *decimal.Decimal    `json:"monthly_rent,omitempty"`
	Bedrooms      *int                `json:"bedrooms,omitempty"`
	Bathrooms     *int                `json:"bathrooms,omitempty"`
	AreaM2        *decimal.Decimal    `json:"area_m2,omitempty"`
	Neighborhood  *string             `json:"neighborhood,omitempty"`
	City          *string             `json:"city,omitempty"`
	Amenities     []string            `json:"amenities"`
}

type PublicMedia struct {
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

func publicProperty(p *models.Property) PublicProperty {
	amenities := []string(p.Amenities)
	if amenities == nil {
		amenities = []string{}
	}
	return PublicProperty{
		Title:         p.Title,
		Description:   p.Description,
		PropertyType:  p.PropertyType,
		OperationType: p.OperationType,
		Currency:      p.Currency,
		SalePrice:     p.SalePrice,
		MonthlyRent:   p.MonthlyRent,
		Bedrooms:      p.Bedrooms,
		Bathrooms:     p.Bathrooms,
		AreaM2:        p.AreaM2,
		Neighborhood:  p.Neighborhood,
		City:          p.City,
		Amenities:     amenities,
	}
}
