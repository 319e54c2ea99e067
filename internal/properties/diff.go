package properties

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/money"
	"github.com/angelmondragon/propertyhub-backend/pkg/types"
)

const (
	MinWizardStep = 1
	MaxWizardStep = 7
)

// stepFields lists the PATCH keys each wizard step may carry.
var stepFields = map[int][]string{
	1: {"title", "description", "property_type", "operation_type", "managed_by_id"},
	2: {"address_line", "neighborhood", "city", "state", "postal_code", "latitude", "longitude"},
	3: {"bedrooms", "bathrooms", "parking_spots", "area_m2", "built_m2"},
	4: {"sale_price", "monthly_rent", "currency"},
	5: {"amenities"},
	6: {"media_order"},
	7: {},
}

// change is one column a PATCH actually modifies.
type change struct {
	field string
	value any
}

// present returns the PATCH keys the request carried, in a stable order.
func (in UpdateInput) present() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(in.Title.Set, "title")
	add(in.Description.Set, "description")
	add(in.PropertyType.Set, "property_type")
	add(in.OperationType.Set, "operation_type")
	add(in.ManagedByID.Set, "managed_by_id")
	add(in.AddressLine.Set, "address_line")
	add(in.Neighborhood.Set, "neighborhood")
	add(in.City.Set, "city")
	add(in.State.Set, "state")
	add(in.PostalCode.Set, "postal_code")
	add(in.Latitude.Set, "latitude")
	add(in.Longitude.Set, "longitude")
	add(in.Bedrooms.Set, "bedrooms")
	add(in.Bathrooms.Set, "bathrooms")
	add(in.ParkingSpots.Set, "parking_spots")
	add(in.AreaM2.Set, "area_m2")
	add(in.BuiltM2.Set, "built_m2")
	add(in.SalePrice.Set, "sale_price")
	add(in.MonthlyRent.Set, "monthly_rent")
	add(in.Currency.Set, "currency")
	add(in.Amenities.Set, "amenities")
	add(in.MediaOrder.Set, "media_order")
	return out
}

// checkStep rejects keys that do not belong to the given wizard step.
func checkStep(step int, in UpdateInput) error {
	allowed, ok := stepFields[step]
	if !ok {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "step must be between %d and %d", MinWizardStep, MaxWizardStep)
	}
	set := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		set[f] = struct{}{}
	}
	var foreign []string
	for _, f := range in.present() {
		if _, ok := set[f]; !ok {
			foreign = append(foreign, f)
		}
	}
	if len(foreign) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "fields do not belong to this wizard step").
			WithDetails(map[string]any{"step": step, "fields": foreign, "allowed": allowed})
	}
	return nil
}

// diffProperty compares the PATCH against the stored listing and returns only
// the columns whose normalized value differs. media_order is handled by the
// caller.
func diffProperty(cur *models.Property, in UpdateInput) ([]change, error) {
	var out []change

	if in.Title.Set {
		title := strings.TrimSpace(in.Title.Value)
		if in.Title.Null || len(title) < 3 {
			return nil, fieldError("title", "title must have at least 3 characters")
		}
		if title != cur.Title {
			out = append(out, change{"title", title})
		}
	}
	if in.PropertyType.Set {
		if in.PropertyType.Null || !in.PropertyType.Value.IsValid() {
			return nil, fieldError("property_type", "invalid property type")
		}
		if in.PropertyType.Value != cur.PropertyType {
			out = append(out, change{"property_type", in.PropertyType.Value})
		}
	}
	if in.OperationType.Set {
		if in.OperationType.Null || !in.OperationType.Value.IsValid() {
			return nil, fieldError("operation_type", "invalid operation type")
		}
		if in.OperationType.Value != cur.OperationType {
			out = append(out, change{"operation_type", in.OperationType.Value})
		}
	}
	if in.Currency.Set {
		currency := strings.ToUpper(strings.TrimSpace(in.Currency.Value))
		if in.Currency.Null || len(currency) != 3 {
			return nil, fieldError("currency", "currency must be a 3-letter code")
		}
		if currency != cur.Currency {
			out = append(out, change{"currency", currency})
		}
	}
	if in.ManagedByID.Set {
		next := in.ManagedByID.Ptr()
		if !uuidPtrEqual(next, cur.ManagedByID) {
			out = append(out, change{"managed_by_id", next})
		}
	}

	for _, f := range []struct {
		name string
		in   types.Optional[string]
		cur  *string
	}{
		{"description", in.Description, cur.Description},
		{"address_line", in.AddressLine, cur.AddressLine},
		{"neighborhood", in.Neighborhood, cur.Neighborhood},
		{"city", in.City, cur.City},
		{"state", in.State, cur.State},
		{"postal_code", in.PostalCode, cur.PostalCode},
	} {
		if !f.in.Set {
			continue
		}
		next := normalizeString(f.in.Ptr())
		if !stringPtrEqual(next, normalizeString(f.cur)) {
			out = append(out, change{f.name, next})
		}
	}

	for _, f := range []struct {
		name     string
		in       types.Optional[float64]
		cur      *float64
		min, max float64
	}{
		{"latitude", in.Latitude, cur.Latitude, -90, 90},
		{"longitude", in.Longitude, cur.Longitude, -180, 180},
	} {
		if !f.in.Set {
			continue
		}
		next := f.in.Ptr()
		if next != nil && (*next < f.min || *next > f.max) {
			return nil, fieldError(f.name, fmt.Sprintf("%s must be between %v and %v", f.name, f.min, f.max))
		}
		if !floatPtrEqual(next, f.cur) {
			out = append(out, change{f.name, next})
		}
	}

	for _, f := range []struct {
		name string
		in   types.Optional[int]
		cur  *int
	}{
		{"bedrooms", in.Bedrooms, cur.Bedrooms},
		{"bathrooms", in.Bathrooms, cur.Bathrooms},
		{"parking_spots", in.ParkingSpots, cur.ParkingSpots},
	} {
		if !f.in.Set {
			continue
		}
		next := f.in.Ptr()
		if next != nil && (*next < 0 || *next > 100) {
			return nil, fieldError(f.name, f.name+" must be between 0 and 100")
		}
		if !intPtrEqual(next, f.cur) {
			out = append(out, change{f.name, next})
		}
	}

	for _, f := range []struct {
		name string
		in   types.Optional[decimal.Decimal]
		cur  *decimal.Decimal
	}{
		{"area_m2", in.AreaM2, cur.AreaM2},
		{"built_m2", in.BuiltM2, cur.BuiltM2},
		{"sale_price", in.SalePrice, cur.SalePrice},
		{"monthly_rent", in.MonthlyRent, cur.MonthlyRent},
	} {
		if !f.in.Set {
			continue
		}
		next := f.in.Ptr()
		if next != nil {
			if !next.IsPositive() {
				return nil, fieldError(f.name, f.name+" must be positive")
			}
			rounded := money.Round2(*next)
			next = &rounded
		}
		if !money.EqualPtr(next, f.cur) {
			out = append(out, change{f.name, next})
		}
	}

	if in.Amenities.Set {
		next := normalizeAmenities(in.Amenities.Value)
		if !stringSliceEqual(next, normalizeAmenities(cur.Amenities)) {
			out = append(out, change{"amenities", next})
		}
	}

	return out, nil
}

// columns turns the changes into the UPDATE column map.
func columns(changes []change) map[string]any {
	cols := make(map[string]any, len(changes))
	for _, c := range changes {
		if c.field == "amenities" {
			cols[c.field] = pq.StringArray(c.value.([]string))
			continue
		}
		cols[c.field] = c.value
	}
	return cols
}

// Changed columns are named by their PATCH key, which equals the column name.
func changedFields(changes []change) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.field)
	}
	sort.Strings(out)
	return out
}

func fieldError(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": field})
}

func normalizeString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func normalizeAmenities(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		key := strings.ToLower(a)
		if a == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
