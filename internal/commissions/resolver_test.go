package commissions

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

var (
	jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb1 = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar1 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func win(op enums.DealType, pct string, from time.Time, to *time.Time) models.CommissionWindow {
	return models.CommissionWindow{
		OperationType: op,
		Percentage:    decimal.RequireFromString(pct),
		ActiveFrom:    from,
		ActiveTo:      to,
	}
}

func ptr[T any](v T) *T { return &v }

func TestResolvePrecedence(t *testing.T) {
	userID := uuid.New()
	leadID := uuid.New()
	c := Candidates{
		Defaults: []models.CommissionDefault{{ID: uuid.New(), CommissionWindow: win(enums.DealSale, "3", jan1, nil)}},
		Role:     []models.CommissionRoleOverride{{ID: uuid.New(), Role: enums.UserRoleSeller, CommissionWindow: win(enums.DealSale, "4", jan1, nil)}},
		User:     []models.CommissionUserOverride{{ID: uuid.New(), UserID: userID, CommissionWindow: win(enums.DealSale, "5", jan1, nil)}},
		Lead:     []models.CommissionLeadOverride{{ID: uuid.New(), LeadID: leadID, CommissionWindow: win(enums.DealSale, "6", jan1, nil)}},
	}
	at := feb1

	res, ok := Resolve(c, ResolveInput{UserID: userID, Role: enums.UserRoleSeller, LeadID: &leadID, Operation: enums.DealSale, At: at})
	require.True(t, ok)
	require.Equal(t, enums.CommissionTierLead, res.Tier)
	require.Equal(t, "6", res.Percentage.String())

	res, ok = Resolve(c, ResolveInput{UserID: userID, Role: enums.UserRoleSeller, Operation: enums.DealSale, At: at})
	require.True(t, ok)
	require.Equal(t, enums.CommissionTierUser, res.Tier)

	res, ok = Resolve(c, ResolveInput{UserID: uuid.New(), Role: enums.UserRoleSeller, Operation: enums.DealSale, At: at})
	require.True(t, ok)
	require.Equal(t, enums.CommissionTierRole, res.Tier)

	res, ok = Resolve(c, ResolveInput{UserID: uuid.New(), Role: enums.UserRoleConcierge, Operation: enums.DealSale, At: at})
	require.True(t, ok)
	require.Equal(t, enums.CommissionTierDefault, res.Tier)
	require.Equal(t, "3", res.Percentage.String())

	_, ok = Resolve(c, ResolveInput{UserID: userID, Role: enums.UserRoleSeller, Operation: enums.DealRent, At: at})
	require.False(t, ok)
}

func TestResolveSkipsInactiveWindows(t *testing.T) {
	userID := uuid.New()
	c := Candidates{
		Defaults: []models.CommissionDefault{{ID: uuid.New(), CommissionWindow: win(enums.DealRent, "2", jan1, nil)}},
		User: []models.CommissionUserOverride{
			{ID: uuid.New(), UserID: userID, CommissionWindow: win(enums.DealRent, "7", jan1, ptr(feb1))},
		},
	}

	res, _ := Resolve(c, ResolveInput{UserID: userID, Operation: enums.DealRent, At: feb1.Add(-time.Second)})
	require.Equal(t, enums.CommissionTierUser, res.Tier)

	// active_to is exclusive
	res, _ = Resolve(c, ResolveInput{UserID: userID, Operation: enums.DealRent, At: feb1})
	require.Equal(t, enums.CommissionTierDefault, res.Tier)

	_, ok := Resolve(c, ResolveInput{UserID: userID, Operation: enums.DealRent, At: jan1.Add(-time.Nanosecond)})
	require.False(t, ok)
}

func TestResolveLatestActiveFromWins(t *testing.T) {
	older := uuid.New()
	newer := uuid.New()
	tieLate := uuid.New()
	c := Candidates{
		Defaults: []models.CommissionDefault{
			{ID: older, CommissionWindow: win(enums.DealSale, "3", jan1, nil), CreatedAt: mar1},
			{ID: newer, CommissionWindow: win(enums.DealSale, "3.5", feb1, nil), CreatedAt: jan1},
		},
	}
	res, _ := Resolve(c, ResolveInput{UserID: uuid.New(), Operation: enums.DealSale, At: mar1})
	require.Equal(t, newer, res.ConfigID)

	c.Defaults = append(c.Defaults, models.CommissionDefault{ID: tieLate, CommissionWindow: win(enums.DealSale, "4", feb1, nil), CreatedAt: feb1})
	res, _ = Resolve(c, ResolveInput{UserID: uuid.New(), Operation: enums.DealSale, At: mar1})
	require.Equal(t, tieLate, res.ConfigID)
	require.Equal(t, "4", res.Percentage.String())
}

func TestResolveLeadUserSpecificBeatsLeadWide(t *testing.T) {
	userID := uuid.New()
	other := uuid.New()
	leadID := uuid.New()
	specific := uuid.New()
	c := Candidates{
		Lead: []models.CommissionLeadOverride{
			{ID: uuid.New(), LeadID: leadID, CommissionWindow: win(enums.DealSale, "8", jan1, nil)},
			{ID: specific, LeadID: leadID, UserID: &userID, CommissionWindow: win(enums.DealSale, "9", jan1, nil)},
			{ID: uuid.New(), LeadID: uuid.New(), CommissionWindow: win(enums.DealSale, "10", jan1, nil)},
		},
	}
	res, ok := Resolve(c, ResolveInput{UserID: userID, LeadID: &leadID, Operation: enums.DealSale, At: feb1})
	require.True(t, ok)
	require.Equal(t, specific, res.ConfigID)

	res, ok = Resolve(c, ResolveInput{UserID: other, LeadID: &leadID, Operation: enums.DealSale, At: feb1})
	require.True(t, ok)
	require.Equal(t, "8", res.Percentage.String())
}

func TestWindowOverlap(t *testing.T) {
	a := win(enums.DealSale, "1", jan1, ptr(feb1))
	require.False(t, a.Overlaps(win(enums.DealSale, "1", feb1, nil)), "back-to-back windows do not overlap")
	require.True(t, a.Overlaps(win(enums.DealSale, "1", feb1.Add(-time.Second), nil)))
	require.True(t, win(enums.DealSale, "1", jan1, nil).Overlaps(win(enums.DealSale, "1", mar1, nil)))
	require.False(t, win(enums.DealSale, "1", mar1, nil).Overlaps(a))
}
