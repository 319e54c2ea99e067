// Package period implements the biweekly accounting calendar: the 1st to the
// 15th and the 16th to the end of each month, in UTC.
package period

import (
	"fmt"
	"strings"
	"time"
)

const layout = "2006-01-02"

// Period is a biweekly bucket. Start and End are the first and last calendar
// days of the bucket at midnight UTC; both are inclusive.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// For returns the period containing t.
func For(t time.Time) Period {
	t = t.UTC()
	y, m, d := t.Date()
	if d <= 15 {
		return Period{
			Start: time.Date(y, m, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(y, m, 15, 0, 0, 0, 0, time.UTC),
		}
	}
	return Period{
		Start: time.Date(y, m, 16, 0, 0, 0, 0, time.UTC),
		End:   time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC),
	}
}

// Between lists every period touched by [from, to] in chronological order.
// It returns nil when to precedes from.
func Between(from, to time.Time) []Period {
	if to.Before(from) {
		return nil
	}
	last := For(to)
	var out []Period
	for p := For(from); !p.Start.After(last.Start); p = p.Next() {
		out = append(out, p)
	}
	return out
}

// Next returns the period immediately after p.
func (p Period) Next() Period {
	return For(p.End.AddDate(0, 0, 1))
}

// Previous returns the period immediately before p.
func (p Period) Previous() Period {
	return For(p.Start.AddDate(0, 0, -1))
}

// Contains reports whether t falls on any day of the period.
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start) && t.Before(p.ExclusiveEnd())
}

// ExclusiveEnd is midnight of the day after End.
func (p Period) ExclusiveEnd() time.Time {
	return p.End.AddDate(0, 0, 1)
}

// Key renders the period as "2024-02-16_2024-02-29".
func (p Period) Key() string {
	return p.Start.Format(layout) + "_" + p.End.Format(layout)
}

func (p Period) String() string {
	return p.Key()
}

// Parse accepts either a Key or a single date, returning the period that
// contains the date.
func Parse(value string) (Period, error) {
	value = strings.TrimSpace(value)
	if start, end, ok := strings.Cut(value, "_"); ok {
		s, err := time.Parse(layout, start)
		if err != nil {
			return Period{}, fmt.Errorf("invalid period start %q", start)
		}
		p := For(s)
		if !p.Start.Equal(s) || p.End.Format(layout) != end {
			return Period{}, fmt.Errorf("%q is not a biweekly period", value)
		}
		return p, nil
	}
	d, err := time.Parse(layout, value)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q", value)
	}
	return For(d), nil
}
