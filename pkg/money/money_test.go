package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyPercentageRoundsHalfUp(t *testing.T) {
	cases := []struct{ base, pct, want string }{
		{"2500000", "3", "75000"},
		{"15000", "50", "7500"},
		{"1234.50", "2.5", "30.86"},  // 30.8625
		{"100.10", "0.5", "0.5"},     // 0.5005
		{"0.90", "2.5", "0.02"},      // 0.0225
		{"1000", "0", "0"},
	}
	for _, tc := range cases {
		got := ApplyPercentage(d(tc.base), d(tc.pct))
		require.True(t, got.Equal(d(tc.want)), "%s × %s%%: got %s", tc.base, tc.pct, got)
	}
	require.True(t, ApplyPercentage(d("10.10"), d("5")).Equal(d("0.51")), "0.505 rounds up")
}

func TestValidatePercentage(t *testing.T) {
	require.NoError(t, ValidatePercentage(d("0")))
	require.NoError(t, ValidatePercentage(d("100")))
	require.NoError(t, ValidatePercentage(d("3.75")))
	require.Error(t, ValidatePercentage(d("-0.01")))
	require.Error(t, ValidatePercentage(d("100.01")))
	require.Error(t, ValidatePercentage(d("2.125")))
}

func TestSumAndEqualPtr(t *testing.T) {
	require.True(t, Sum().IsZero())
	require.True(t, Sum(d("1.10"), d("2.20")).Equal(d("3.3")))

	a, b := d("100.0"), d("100")
	require.True(t, EqualPtr(&a, &b))
	require.True(t, EqualPtr(nil, nil))
	require.False(t, EqualPtr(&a, nil))
}
