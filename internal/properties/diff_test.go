package properties

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
	"github.com/angelmondragon/propertyhub-backend/pkg/types"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int { return &i }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func baseProperty() *models.Property {
	return &models.Property{
		ID:            uuid.New(),
		Title:         "Casa en Coyoacán",
		PropertyType:  enums.PropertyTypeHouse,
		OperationType: enums.OperationSale,
		Currency:      "MXN",
		SalePrice:     decPtr("4200000.00"),
		City:          strPtr("CDMX"),
		Description:   nil,
		Bedrooms:      intPtr(3),
		Amenities:     pq.StringArray{"jardín", "roof garden"},
	}
}

func TestDiffOnlySalePriceChanged(t *testing.T) {
	cur := baseProperty()
	changes, err := diffProperty(cur, UpdateInput{
		Title:     types.Some("Casa en Coyoacán"),
		SalePrice: types.Some(decimal.RequireFromString("4350000")),
		City:      types.Some("CDMX"),
		Bedrooms:  types.Some(3),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"sale_price"}, changedFields(changes))
	cols := columns(changes)
	require.Len(t, cols, 1)
	require.Equal(t, "4350000", cols["sale_price"].(*decimal.Decimal).String())
}

func TestDiffIdenticalValuesIsNoop(t *testing.T) {
	cur := baseProperty()
	changes, err := diffProperty(cur, UpdateInput{
		SalePrice:   types.Some(decimal.RequireFromString("4200000")),
		Description: types.Some("   "),
		Amenities:   types.Some([]string{" jardín", "roof garden", "Jardín"}),
		Currency:    types.Some("mxn"),
	})
	require.NoError(t, err)
	require.Empty(t, changes)
}

func TestDiffNullNormalization(t *testing.T) {
	cur := baseProperty()
	cur.Amenities = nil

	changes, err := diffProperty(cur, UpdateInput{
		Description:  types.Null[string](),
		Amenities:    types.Some([]string{}),
		Neighborhood: types.Some(""),
	})
	require.NoError(t, err)
	require.Empty(t, changes, "nil, empty string and empty slice are the same value")

	changes, err = diffProperty(cur, UpdateInput{City: types.Null[string](), Bedrooms: types.Null[int]()})
	require.NoError(t, err)
	require.Equal(t, []string{"bedrooms", "city"}, changedFields(changes))
	cols := columns(changes)
	require.Nil(t, cols["city"].(*string))
	require.Nil(t, cols["bedrooms"].(*int))
}

func TestDiffValidation(t *testing.T) {
	cur := baseProperty()
	cases := map[string]UpdateInput{
		"null title":       {Title: types.Null[string]()},
		"short title":      {Title: types.Some("ab")},
		"bad type":         {PropertyType: types.Some(enums.PropertyType("castle"))},
		"bad currency":     {Currency: types.Some("pesos")},
		"negative price":   {SalePrice: types.Some(decimal.NewFromInt(-1))},
		"latitude range":   {Latitude: types.Some(91.0)},
		"negative bedroom": {Bedrooms: types.Some(-1)},
	}
	for name, in := range cases {
		_, err := diffProperty(cur, in)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), name)
	}
}

func TestCheckStep(t *testing.T) {
	require.NoError(t, checkStep(4, UpdateInput{SalePrice: types.Some(decimal.NewFromInt(1))}))
	require.NoError(t, checkStep(7, UpdateInput{}))

	err := checkStep(4, UpdateInput{SalePrice: types.Some(decimal.NewFromInt(1)), City: types.Some("CDMX")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]any)
	require.Equal(t, []string{"city"}, details["fields"])

	require.True(t, pkgerrors.IsCode(checkStep(0, UpdateInput{}), pkgerrors.CodeValidation))
	require.True(t, pkgerrors.IsCode(checkStep(8, UpdateInput{}), pkgerrors.CodeValidation))
}
