package validators

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// QueryText reads a free-text filter such as ?q= or ?city= and cleans it with
// SanitizeString.
func QueryText(r *http.Request, key string, maxLen int) string {
	return SanitizeString(r.URL.Query().Get(key), maxLen)
}

// ParseQuerySort reads ?sort=field or ?sort=-field. An explicit ?order=asc|desc
// overrides the prefix. Fields outside allowed are rejected.
func ParseQuerySort(r *http.Request, defaultField string, allowed ...string) (string, bool, error) {
	q := r.URL.Query()
	field := strings.TrimSpace(q.Get("sort"))
	desc := strings.HasPrefix(field, "-")
	field = strings.TrimPrefix(field, "-")
	if field == "" {
		field = defaultField
	}
	if !slices.Contains(allowed, field) {
		return "", false, pkgerrors.New(pkgerrors.CodeValidation, "sort must be one of "+strings.Join(allowed, ", ")).
			WithDetails(map[string]any{"field": "sort", "allowed": allowed})
	}
	switch order := strings.ToLower(strings.TrimSpace(q.Get("order"))); order {
	case "":
	case "asc":
		desc = false
	case "desc":
		desc = true
	default:
		return "", false, pkgerrors.New(pkgerrors.CodeValidation, "order must be asc or desc").WithDetails(map[string]any{"field": "order"})
	}
	return field, desc, nil
}
