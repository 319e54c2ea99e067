package router

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// stringPtr returns a trimmed pointer or nil when the input is empty.
func stringPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func uuidPtr(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	return stringPtr(id.String())
}

func optionalUUID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	return uuidPtr(*id)
}

// cents converts a decimal currency amount to integer cents, rounding half away from zero.
func cents(amount decimal.Decimal) *int64 {
	value := amount.Mul(hundred).Round(0).IntPart()
	return &value
}
