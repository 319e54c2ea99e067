package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestForBoundaries(t *testing.T) {
	cases := []struct {
		name  string
		at    time.Time
		start time.Time
		end   time.Time
	}{
		{"first day", day(2024, 3, 1), day(2024, 3, 1), day(2024, 3, 15)},
		{"fifteenth late evening", time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC), day(2024, 3, 1), day(2024, 3, 15)},
		{"sixteenth", day(2024, 3, 16), day(2024, 3, 16), day(2024, 3, 31)},
		{"leap day", day(2024, 2, 29), day(2024, 2, 16), day(2024, 2, 29)},
		{"non leap february", day(2023, 2, 28), day(2023, 2, 16), day(2023, 2, 28)},
		{"thirty day month", day(2024, 4, 30), day(2024, 4, 16), day(2024, 4, 30)},
		{"december rollover", day(2024, 12, 31), day(2024, 12, 16), day(2024, 12, 31)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := For(tc.at)
			require.True(t, p.Start.Equal(tc.start), "start %s", p.Start)
			require.True(t, p.End.Equal(tc.end), "end %s", p.End)
			require.True(t, p.Contains(tc.at))
		})
	}
}

func TestForConvertsToUTC(t *testing.T) {
	mexico := time.FixedZone("CST", -6*3600)
	// 20:00 on the 15th local time is already the 16th in UTC.
	p := For(time.Date(2024, 5, 15, 20, 0, 0, 0, mexico))
	require.Equal(t, 16, p.Start.Day())
}

func TestBetweenSpansYears(t *testing.T) {
	periods := Between(day(2024, 12, 10), day(2025, 1, 20))
	require.Len(t, periods, 4)
	require.Equal(t, "2024-12-01_2024-12-15", periods[0].Key())
	require.Equal(t, "2025-01-16_2025-01-31", periods[3].Key())
	require.Nil(t, Between(day(2025, 1, 2), day(2025, 1, 1)))
}

func TestNextPrevious(t *testing.T) {
	p := For(day(2024, 2, 20))
	require.Equal(t, "2024-03-01_2024-03-15", p.Next().Key())
	require.Equal(t, "2024-02-01_2024-02-15", p.Previous().Key())
	require.True(t, p.ExclusiveEnd().Equal(day(2024, 3, 1)))
}

func TestParse(t *testing.T) {
	p, err := Parse("2024-02-16_2024-02-29")
	require.NoError(t, err)
	require.Equal(t, day(2024, 2, 16), p.Start)

	p, err = Parse("2024-07-03")
	require.NoError(t, err)
	require.Equal(t, "2024-07-01_2024-07-15", p.Key())

	_, err = Parse("2024-02-10_2024-02-29")
	require.Error(t, err)
	_, err = Parse("next week")
	require.Error(t, err)
}
