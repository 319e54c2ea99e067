package pdf

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	TemplateContract  = "contract"
	TemplateCard      = "card"
	TemplateStatement = "statement"
)

var templates = template.Must(template.New("pdf").Funcs(template.FuncMap{
	"money": formatMoney,
	"date":  formatDate,
	"pct":   func(d decimal.Decimal) string { return d.StringFixed(2) + "%" },
	"upper": strings.ToUpper,
}).ParseFS(templateFS, "templates/*.html"))

// RenderHTML executes one of the embedded document templates.
func RenderHTML(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// formatMoney renders 1234567.5 as "1,234,567.50".
func formatMoney(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + b.String() + "." + frac
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}
