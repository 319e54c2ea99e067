// Package dbtest opens isolated in-memory sqlite databases carrying a
// sqlite rendition of the application schema, for repository and service
// tests.
package dbtest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/propertyhub-backend/pkg/db"
)

// Open returns a fresh database with every application table created.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(uuid.NewString(), "-", "") + "?mode=memory&cache=shared&_foreign_keys=0"
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v\n%s", err, stmt)
		}
	}
	return conn
}

// Client wraps Open in a db.Client for services that need transactions.
func Client(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.Wrap(conn), conn
}

var schema = []string{
	`CREATE TABLE external_agencies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		contact_email TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone TEXT,
		role TEXT NOT NULL,
		external_agency_id TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		last_login_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE properties (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT,
		property_type TEXT NOT NULL,
		operation_type TEXT NOT NULL,
		sale_price TEXT,
		monthly_rent TEXT,
		currency TEXT NOT NULL,
		bedrooms INTEGER,
		bathrooms INTEGER,
		parking_spots INTEGER,
		area_m2 TEXT,
		built_m2 TEXT,
		address_line TEXT,
		neighborhood TEXT,
		city TEXT,
		state TEXT,
		postal_code TEXT,
		latitude REAL,
		longitude REAL,
		amenities TEXT,
		owner_id TEXT NOT NULL,
		managed_by_id TEXT,
		approval_status TEXT NOT NULL,
		review_notes TEXT,
		published_at DATETIME,
		wizard_step INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE property_media (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		object_key TEXT NOT NULL,
		content_type TEXT NOT NULL,
		position INTEGER NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE property_staff (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at DATETIME,
		UNIQUE (property_id, user_id, role)
	)`,
	`CREATE TABLE appointments (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		concierge_id TEXT,
		lead_id TEXT,
		scheduled_at DATETIME NOT NULL,
		duration_minutes INTEGER NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		reminder_sent_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE presentation_cards (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		client_id TEXT,
		created_by TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT,
		share_token TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		view_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE service_providers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		contact_name TEXT,
		contact_email TEXT,
		contact_phone TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE services (
		id TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		price TEXT,
		unit TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE offers (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		created_by TEXT NOT NULL,
		lead_id TEXT,
		deal_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		counter_amount TEXT,
		expires_at DATETIME,
		notes TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE permissions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		granted_by TEXT,
		created_at DATETIME,
		UNIQUE (user_id, name)
	)`,
	`CREATE TABLE leads (
		id TEXT PRIMARY KEY,
		operation_type TEXT NOT NULL,
		status TEXT NOT NULL,
		full_name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		normalized_email TEXT,
		normalized_phone TEXT,
		property_id TEXT,
		source TEXT,
		registered_by_id TEXT NOT NULL,
		external_agency_id TEXT,
		assigned_to_id TEXT,
		budget_min TEXT,
		budget_max TEXT,
		notes TEXT,
		lost_reason TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE contracts (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL,
		lead_id TEXT,
		offer_id TEXT,
		contract_type TEXT NOT NULL,
		status TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		deposit TEXT,
		start_date DATETIME,
		end_date DATETIME,
		owner_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		created_by TEXT NOT NULL,
		signed_at DATETIME,
		document_key TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE commission_defaults (
		id TEXT PRIMARY KEY,
		operation_type TEXT NOT NULL,
		percentage TEXT NOT NULL,
		active_from DATETIME NOT NULL,
		active_to DATETIME,
		created_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE commission_role_overrides (
		id TEXT PRIMARY KEY,
		role TEXT NOT NULL,
		operation_type TEXT NOT NULL,
		percentage TEXT NOT NULL,
		active_from DATETIME NOT NULL,
		active_to DATETIME,
		created_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE commission_user_overrides (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		operation_type TEXT NOT NULL,
		percentage TEXT NOT NULL,
		active_from DATETIME NOT NULL,
		active_to DATETIME,
		created_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE commission_lead_overrides (
		id TEXT PRIMARY KEY,
		lead_id TEXT NOT NULL,
		user_id TEXT,
		operation_type TEXT NOT NULL,
		percentage TEXT NOT NULL,
		active_from DATETIME NOT NULL,
		active_to DATETIME,
		created_by TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE commission_records (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		participant_role TEXT NOT NULL,
		external_agency_id TEXT,
		lead_id TEXT,
		operation_type TEXT NOT NULL,
		base_amount TEXT NOT NULL,
		percentage TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		source_tier TEXT NOT NULL,
		status TEXT NOT NULL,
		period_start DATETIME NOT NULL,
		period_end DATETIME NOT NULL,
		payment_id TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (contract_id, user_id)
	)`,
	`CREATE TABLE external_payments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		external_agency_id TEXT,
		period_start DATETIME NOT NULL,
		period_end DATETIME NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		reference TEXT,
		paid_at DATETIME NOT NULL,
		created_by TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		link TEXT,
		event_id TEXT,
		read_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}
