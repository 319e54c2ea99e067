package pdf

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":          "0.00",
		"999.999":    "1,000.00",
		"1234567.5":  "1,234,567.50",
		"-2500":      "-2,500.00",
		"100000.005": "100,000.01",
	}
	for in, want := range cases {
		require.Equal(t, want, formatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestRenderContractHTML(t *testing.T) {
	deposit := decimal.NewFromInt(30000)
	html, err := RenderHTML(TemplateContract, ContractDocument{
		Title:       "Lease agreement",
		Company:     "PropertyHub",
		GeneratedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Contract: ContractTerms{
			ID:        uuid.New(),
			Type:      "rent",
			Amount:    decimal.NewFromInt(15000),
			Deposit:   &deposit,
			Currency:  "MXN",
			StartDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		Property: PropertySummary{Title: "Depto Roma Norte <3 recámaras>"},
		Owner:    Party{Name: "Laura Méndez"},
		Client:   Party{Name: "Jorge Ruiz"},
	})
	require.NoError(t, err)
	require.Contains(t, html, "15,000.00 MXN")
	require.Contains(t, html, "30,000.00 MXN")
	require.Contains(t, html, "RENT")
	require.Contains(t, html, "2026-04-01")
	require.Contains(t, html, "&lt;3 recámaras&gt;")
	require.NotContains(t, html, "<th>End</th>")
}

func TestRenderStatementWithoutLines(t *testing.T) {
	html, err := RenderHTML(TemplateStatement, StatementDocument{
		Title:  "Commission statement",
		Payee:  "Ana Torres",
		Totals: []StatementTotal{{Label: "Total", Amount: decimal.Zero}},
	})
	require.NoError(t, err)
	require.Contains(t, html, "No commissions in this period.")
}

func TestRenderCardHTML(t *testing.T) {
	price := decimal.NewFromInt(4200000)
	html, err := RenderHTML(TemplateCard, CardDocument{
		Property: PropertySummary{
			Title:     "Casa en Coyoacán",
			SalePrice: &price,
			Currency:  "MXN",
			Amenities: []string{"jardín", "roof garden"},
		},
		PresentedBy: "Carla",
	})
	require.NoError(t, err)
	require.Contains(t, html, "4,200,000.00 MXN")
	require.Contains(t, html, "<li>roof garden</li>")
	require.NotContains(t, html, "Monthly rent")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := RenderHTML("invoice", nil)
	require.Error(t, err)
}

func TestDataURLEncoding(t *testing.T) {
	got := dataURL("<p>a b</p>")
	require.True(t, strings.HasPrefix(got, "data:text/html;charset=utf-8,"))
	require.Contains(t, got, "%3Cp%3Ea%20b%3C%2Fp%3E")
}

func TestChromeRendererMissingBinary(t *testing.T) {
	r := &ChromeRenderer{execPath: "", timeout: time.Second}
	t.Setenv("PATH", t.TempDir())
	_, err := r.Render(context.Background(), "<p>x</p>")
	require.ErrorIs(t, err, ErrChromeMissing)
}
