package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateEmbedded())
	require.NoError(t, ValidateDir("migrations"))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := createAt(dir, "Add Lead  Source!", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260304050607_add_lead_source.sql"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(body), "-- +goose Up")
	require.Contains(t, string(body), "-- rollback add_lead_source")

	_, err = createAt(dir, "add lead source", now)
	require.Error(t, err)

	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	_, err := createAt(t.TempDir(), "!!!", time.Now())
	require.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_missing_down.sql"), []byte("-- +goose Up\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestCommissionMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_commissions.sql")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS commission_lead_overrides",
		"CHECK (percentage >= 0 AND percentage <= 100)",
		"CHECK (active_to IS NULL OR active_to > active_from)",
		"CONSTRAINT commission_records_contract_user_key UNIQUE (contract_id, user_id)",
		"DROP TABLE IF EXISTS commission_defaults",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPropertyMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_properties.sql")
	for _, sub := range []string{
		"CONSTRAINT properties_slug_key UNIQUE (slug)",
		"FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE RESTRICT",
		"CONSTRAINT property_staff_unique_key UNIQUE (property_id, user_id, role)",
		"FOREIGN KEY (property_id) REFERENCES properties(id) ON DELETE CASCADE",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no migration matching %s", pattern)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}
