package pdf

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Party is a named signatory or recipient.
type Party struct {
	Name  string
	Email string
}

type PropertySummary struct {
	Title       string
	Address     string
	Type        string
	Operation   string
	Currency    string
	SalePrice   *decimal.Decimal
	MonthlyRent *decimal.Decimal
	Bedrooms    int
	Bathrooms   int
	AreaM2      *decimal.Decimal
	Amenities   []string
}

type ContractTerms struct {
	ID        uuid.UUID
	Type      string
	Amount    decimal.Decimal
	Deposit   *decimal.Decimal
	Currency  string
	StartDate time.Time
	EndDate   *time.Time
}

// ContractDocument feeds TemplateContract.
type ContractDocument struct {
	Title       string
	Company     string
	GeneratedAt time.Time
	Contract    ContractTerms
	Property    PropertySummary
	Owner       Party
	Client      Party
}

// CardDocument feeds TemplateCard.
type CardDocument struct {
	Title       string
	Company     string
	GeneratedAt time.Time
	Property    PropertySummary
	Message     string
	PresentedBy string
}

type StatementLine struct {
	ContractID uuid.UUID
	Operation  string
	Base       decimal.Decimal
	Percentage decimal.Decimal
	Amount     decimal.Decimal
	Status     string
}

type StatementTotal struct {
	Label  string
	Amount decimal.Decimal
}

// StatementDocument feeds TemplateStatement.
type StatementDocument struct {
	Title       string
	Company     string
	GeneratedAt time.Time
	Payee       string
	Agency      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Lines       []StatementLine
	Totals      []StatementTotal
}
