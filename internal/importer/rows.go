// Package importer loads legacy property spreadsheets into draft listings.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
)

// Row is one parsed CSV line. Line is 1-based and counts the header.
type Row struct {
	Line          int
	Title         string
	OwnerName     string
	OwnerEmail    string
	PropertyType  enums.PropertyType
	OperationType enums.OperationType
	Price         *decimal.Decimal
	Currency      string
	City          string
	Neighborhood  string
	State         string
	Description   string
	Bedrooms      *int
	Bathrooms     *int
	AreaM2        *decimal.Decimal
}

// RowIssue describes a line that could not be imported.
type RowIssue struct {
	Line   int    `json:"line"`
	Title  string `json:"title,omitempty"`
	Owner  string `json:"owner,omitempty"`
	Reason string `json:"reason"`
}

var requiredColumns = []string{"title", "owner_name", "property_type", "operation_type"}

// Spanish labels seen in the legacy spreadsheets.
var typeAliases = map[string]enums.PropertyType{
	"casa":         enums.PropertyTypeHouse,
	"departamento": enums.PropertyTypeApartment,
	"depto":        enums.PropertyTypeApartment,
	"terreno":      enums.PropertyTypeLand,
	"local":        enums.PropertyTypeCommercial,
	"oficina":      enums.PropertyTypeOffice,
}

var operationAliases = map[string]enums.OperationType{
	"venta":       enums.OperationSale,
	"renta":       enums.OperationRent,
	"venta/renta": enums.OperationSaleAndRent,
}

// ReadRows parses the CSV, returning the valid rows and one issue per line
// that failed validation.
func ReadRows(r io.Reader) ([]Row, []RowIssue, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("csv is empty")
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", name)
		}
	}

	var (
		rows   []Row
		issues []RowIssue
	)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		if strings.Join(record, "") == "" {
			continue
		}
		row, err := parseRow(line, get)
		if err != nil {
			issues = append(issues, RowIssue{Line: line, Title: get("title"), Owner: get("owner_name"), Reason: err.Error()})
			continue
		}
		rows = append(rows, row)
	}
	return rows, issues, nil
}

func parseRow(line int, get func(string) string) (Row, error) {
	row := Row{
		Line:         line,
		Title:        get("title"),
		OwnerName:    get("owner_name"),
		OwnerEmail:   strings.ToLower(get("owner_email")),
		Currency:     strings.ToUpper(get("currency")),
		City:         get("city"),
		Neighborhood: get("neighborhood"),
		State:        get("state"),
		Description:  get("description"),
	}
	if row.Title == "" {
		return Row{}, errors.New("title is required")
	}
	if row.OwnerName == "" && row.OwnerEmail == "" {
		return Row{}, errors.New("owner is required")
	}
	if row.Currency == "" {
		row.Currency = "MXN"
	}

	rawType := strings.ToLower(get("property_type"))
	if alias, ok := typeAliases[rawType]; ok {
		row.PropertyType = alias
	} else {
		t, err := enums.ParsePropertyType(rawType)
		if err != nil {
			return Row{}, err
		}
		row.PropertyType = t
	}
	rawOp := strings.ToLower(get("operation_type"))
	if alias, ok := operationAliases[rawOp]; ok {
		row.OperationType = alias
	} else {
		op, err := enums.ParseOperationType(rawOp)
		if err != nil {
			return Row{}, err
		}
		row.OperationType = op
	}

	var err error
	if row.Price, err = parseAmount(get("price")); err != nil {
		return Row{}, fmt.Errorf("price: %w", err)
	}
	if row.AreaM2, err = parseAmount(get("area_m2")); err != nil {
		return Row{}, fmt.Errorf("area_m2: %w", err)
	}
	if row.Bedrooms, err = parseCount(get("bedrooms")); err != nil {
		return Row{}, fmt.Errorf("bedrooms: %w", err)
	}
	if row.Bathrooms, err = parseCount(get("bathrooms")); err != nil {
		return Row{}, fmt.Errorf("bathrooms: %w", err)
	}
	return row, nil
}

// parseAmount accepts "$1,250,000.00" style values.
func parseAmount(raw string) (*decimal.Decimal, error) {
	raw = strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, errors.New("must not be negative")
	}
	return &d, nil
}

func parseCount(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.New("must not be negative")
	}
	return &n, nil
}
