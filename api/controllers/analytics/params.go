package analytics

import (
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
)

const (
	defaultPreset     = "30d"
	maxAnalyticsRange = 366 * 24 * time.Hour
	dateOnly          = "2006-01-02"
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

// resolveAnalyticsRange reads either an explicit from/to pair or a preset.
// from/to accept RFC3339 or a bare date; a bare "to" date covers that whole
// day. Presets are rolling windows (7d, 30d, 90d, 12m) or calendar-anchored
// (mtd, ytd).
func resolveAnalyticsRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	query := r.URL.Query()
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))

	if from != "" || to != "" {
		if from == "" || to == "" {
			return time.Time{}, time.Time{}, rangeError("from and to must be provided together", "from")
		}
		start, _, err := parseBound(from)
		if err != nil {
			return time.Time{}, time.Time{}, rangeError("invalid from timestamp", "from")
		}
		end, wholeDay, err := parseBound(to)
		if err != nil {
			return time.Time{}, time.Time{}, rangeError("invalid to timestamp", "to")
		}
		if wholeDay {
			end = end.Add(24 * time.Hour)
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, rangeError("end must be after start", "to")
		}
		if end.Sub(start) > maxAnalyticsRange {
			return time.Time{}, time.Time{}, rangeError("range must not exceed 366 days", "from")
		}
		return start, end, nil
	}

	start, ok := presetStart(strings.TrimSpace(query.Get("preset")), now)
	if !ok {
		return time.Time{}, time.Time{}, rangeError("invalid preset", "preset")
	}
	return start, now, nil
}

func parseBound(value string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(dateOnly, value)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func presetStart(value string, now time.Time) (time.Time, bool) {
	if value == "" {
		value = defaultPreset
	}
	switch strings.ToLower(value) {
	case "7d":
		return now.Add(-7 * 24 * time.Hour), true
	case "30d":
		return now.Add(-30 * 24 * time.Hour), true
	case "90d":
		return now.Add(-90 * 24 * time.Hour), true
	case "12m":
		return now.AddDate(-1, 0, 0), true
	case "mtd":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), true
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), true
	default:
		return time.Time{}, false
	}
}

func rangeError(msg, field string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": field})
}
