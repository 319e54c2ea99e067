package importer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	"github.com/angelmondragon/propertyhub-backend/pkg/logger"
)

const sheet = `title,owner_name,owner_email,property_type,operation_type,price,currency,city,bedrooms
Casa en Coyoacán,José García,,casa,venta,"$4,500,000.00",,CDMX,3
Casa en Coyoacán,Jose Garsia,,house,sale,3900000,MXN,CDMX,
Depto Roma Norte,Lic. Martha Peña,,departamento,renta,18500,,CDMX,2
Oficina Polanco,Desconocido Total,,oficina,renta,90000,,CDMX,
Terreno Valle,Ana Ruiz,ana@propertyhub.mx,terreno,venta,1200000,,Valle de Bravo,
Sin tipo,José García,,castle,venta,1,,CDMX,
`

func seedOwner(t *testing.T, db *gorm.DB, first, last, email string) uuid.UUID {
	t.Helper()
	u := &models.User{
		Email:        email,
		PasswordHash: "x",
		FirstName:    first,
		LastName:     last,
		Role:         enums.UserRoleOwner,
		IsActive:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u.ID
}

func TestReadRowsValidatesLines(t *testing.T) {
	rows, issues, err := ReadRows(strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, rows, 5)
	require.Len(t, issues, 1)
	require.Equal(t, 7, issues[0].Line)

	first := rows[0]
	require.Equal(t, enums.PropertyTypeHouse, first.PropertyType)
	require.Equal(t, enums.OperationSale, first.OperationType)
	require.Equal(t, "4500000", first.Price.String())
	require.Equal(t, "MXN", first.Currency)
	require.Equal(t, 3, *first.Bedrooms)
	require.Nil(t, rows[1].Bedrooms)

	_, _, err = ReadRows(strings.NewReader("title,owner_name\nx,y\n"))
	require.ErrorContains(t, err, "property_type")
}

func TestMatcherRules(t *testing.T) {
	garcia := Owner{ID: uuid.New(), Email: "jose@propertyhub.mx", Name: "José García"}
	pena := Owner{ID: uuid.New(), Email: "martha@propertyhub.mx", Name: "Martha Peña Ortiz"}
	aliases, err := LoadAliases(strings.NewReader(`{"Lic. Martha Peña": "MARTHA@propertyhub.mx", "Ghost": "nobody@propertyhub.mx"}`))
	require.NoError(t, err)
	m := NewMatcher([]Owner{garcia, pena}, aliases)

	owner, kind, err := m.Match(Row{OwnerName: "Whoever", OwnerEmail: "jose@propertyhub.mx"})
	require.NoError(t, err)
	require.Equal(t, garcia.ID, owner.ID)
	require.Equal(t, MatchEmail, kind)

	owner, kind, err = m.Match(Row{OwnerName: "lic martha peña"})
	require.NoError(t, err)
	require.Equal(t, pena.ID, owner.ID)
	require.Equal(t, MatchAlias, kind)

	_, kind, err = m.Match(Row{OwnerName: "  GARCIA  jose "})
	require.Error(t, err)
	require.Empty(t, kind)

	_, kind, err = m.Match(Row{OwnerName: "jose garcia"})
	require.NoError(t, err)
	require.Equal(t, MatchExact, kind)

	_, kind, err = m.Match(Row{OwnerName: "Jose Garsia"})
	require.NoError(t, err)
	require.Equal(t, MatchFuzzy, kind)

	_, _, err = m.Match(Row{OwnerName: "Jorge Garza"})
	require.ErrorContains(t, err, "not found")

	_, _, err = m.Match(Row{OwnerName: "Ghost"})
	require.ErrorContains(t, err, "unknown account")
}

func TestMatcherMissingNameReportsEmail(t *testing.T) {
	m := NewMatcher([]Owner{{ID: uuid.New(), Email: "jose@propertyhub.mx", Name: "José García"}}, nil)

	_, _, err := m.Match(Row{OwnerEmail: "nadie@propertyhub.mx"})
	require.EqualError(t, err, `owner email "nadie@propertyhub.mx" not found and no owner name given`)

	_, _, err = m.Match(Row{})
	require.EqualError(t, err, "owner name missing")

	owner, kind, err := m.Match(Row{OwnerName: "Jose Garcai"})
	require.NoError(t, err)
	require.Equal(t, MatchFuzzy, kind)
	require.Equal(t, "jose@propertyhub.mx", owner.Email)
}

func TestMatcherRejectsTies(t *testing.T) {
	m := NewMatcher([]Owner{
		{ID: uuid.New(), Email: "a@x.mx", Name: "Ana Ruiz"},
		{ID: uuid.New(), Email: "b@x.mx", Name: "Ana Ruíz"},
		{ID: uuid.New(), Email: "c@x.mx", Name: "Ana Cruz"},
	}, nil)
	_, _, err := m.Match(Row{OwnerName: "Ana Ruiz"})
	require.ErrorContains(t, err, "ambiguous")
	_, _, err = m.Match(Row{OwnerName: "Ana Rui"})
	require.ErrorContains(t, err, "ambiguous")
}

func newImporter(t *testing.T) (*Importer, *gorm.DB) {
	t.Helper()
	client, db := dbtest.Client(t)
	imp, err := New(db, client, logger.New(logger.Options{ServiceName: "import-test", Output: &bytes.Buffer{}}))
	require.NoError(t, err)
	return imp, db
}

func TestRunDryRunInsertsNothing(t *testing.T) {
	ctx := context.Background()
	imp, db := newImporter(t)
	seedOwner(t, db, "José", "García", "jose@propertyhub.mx")
	seedOwner(t, db, "Martha", "Peña Ortiz", "martha@propertyhub.mx")
	seedOwner(t, db, "Ana", "Ruiz", "ana@propertyhub.mx")

	rows, invalid, err := ReadRows(strings.NewReader(sheet))
	require.NoError(t, err)
	report, err := imp.Run(ctx, rows, invalid, Options{
		DryRun:  true,
		Aliases: map[string]string{"lic martha pena": "martha@propertyhub.mx"},
	})
	require.NoError(t, err)
	require.Equal(t, 6, report.Total)
	require.Len(t, report.Matched, 4)
	require.Len(t, report.Unmatched, 1)
	require.Equal(t, 5, report.Unmatched[0].Line)
	require.Zero(t, report.Inserted)
	require.Equal(t, "casa-en-coyoacan", report.Matched[0].Slug)
	require.Equal(t, "casa-en-coyoacan-2", report.Matched[1].Slug)

	var count int64
	require.NoError(t, db.Model(&models.Property{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRunInsertsDrafts(t *testing.T) {
	ctx := context.Background()
	imp, db := newImporter(t)
	garcia := seedOwner(t, db, "José", "García", "jose@propertyhub.mx")
	require.NoError(t, db.Create(&models.Property{
		Title:          "Casa en Coyoacán",
		Slug:           "casa-en-coyoacan",
		PropertyType:   enums.PropertyTypeHouse,
		OperationType:  enums.OperationSale,
		Currency:       "MXN",
		OwnerID:        garcia,
		ApprovalStatus: enums.ApprovalApproved,
	}).Error)

	rows, invalid, err := ReadRows(strings.NewReader(sheet))
	require.NoError(t, err)
	report, err := imp.Run(ctx, rows[:2], invalid, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, report.Inserted)

	var drafts []models.Property
	require.NoError(t, db.Where("approval_status = ?", enums.ApprovalDraft).Order("slug").Find(&drafts).Error)
	require.Len(t, drafts, 2)
	require.Equal(t, "casa-en-coyoacan-2", drafts[0].Slug)
	require.Equal(t, "casa-en-coyoacan-3", drafts[1].Slug)
	for _, d := range drafts {
		require.Equal(t, garcia, d.OwnerID)
		require.NotNil(t, d.SalePrice)
		require.Nil(t, d.MonthlyRent)
	}
}
