package search

import (
	"context"
	"encoding/json"
	"testing"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/require"
)

func TestFilters(t *testing.T) {
	require.Empty(t, Filters(Query{Text: "jardín"}))
	require.Equal(t, []string{
		`city = "Guadalajara"`,
		`propertyType = "house"`,
		`operationType IN ["rent", "sale_and_rent"]`,
	}, Filters(Query{City: " Guadalajara ", PropertyType: "house", OperationType: "rent"}))
}

func TestDecodeString(t *testing.T) {
	hit := meili.Hit{"id": json.RawMessage(`"abc"`), "bedrooms": json.RawMessage(`3`)}
	require.Equal(t, "abc", decodeString(hit, "id"))
	require.Empty(t, decodeString(hit, "bedrooms"))
	require.Empty(t, decodeString(hit, "missing"))
}

func TestUnhealthyIndexRefusesWork(t *testing.T) {
	m := &Meili{}
	_, _, err := m.Search(context.Background(), Query{Text: "casa"})
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, m.Upsert(context.Background(), PropertyDocument{ID: "x"}), ErrUnavailable)
	require.NoError(t, m.Upsert(context.Background()))

	var nilIndex *Meili
	require.False(t, nilIndex.Healthy())
}
