package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(ctx context.Context, dbPath string, logger *slog.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	repo := &Repository{db: db, logger: logger}
	if err := repo.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) migrate(ctx context.Context) error {
	statements := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS tenants (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			admin_emails_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS routers (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			host TEXT NOT NULL,
			username TEXT NOT NULL,
			password_enc TEXT NOT NULL,
			is_core INTEGER NOT NULL DEFAULT 0,
			online INTEGER NOT NULL DEFAULT 0,
			last_checked_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			mac TEXT NOT NULL,
			ip TEXT NOT NULL,
			device_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'UP',
			status_label TEXT NOT NULL DEFAULT 'UP',
			parent_id TEXT,
			last_checked_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS downtime_logs (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			down_start_time TEXT NOT NULL,
			down_end_time TEXT,
			duration_seconds INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS subscribers (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			router_id TEXT NOT NULL,
			username TEXT NOT NULL,
			service TEXT NOT NULL,
			ip TEXT NOT NULL DEFAULT '',
			station_id TEXT,
			building TEXT NOT NULL DEFAULT '',
			expiry_date TEXT NOT NULL,
			online INTEGER NOT NULL DEFAULT 0,
			status_label TEXT NOT NULL DEFAULT 'OFFLINE',
			last_checked_at TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS subscriber_downtime_logs (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			subscriber_id TEXT NOT NULL,
			down_start_time TEXT NOT NULL,
			down_end_time TEXT,
			duration_seconds INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS diagnostic_logs (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			subscriber_id TEXT NOT NULL,
			steps_json TEXT NOT NULL,
			conclusion TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			message TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			status_label TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_devices_tenant ON devices(tenant_id);`,
		`CREATE INDEX IF NOT EXISTS idx_devices_parent ON devices(parent_id);`,
		`CREATE INDEX IF NOT EXISTS idx_downtime_open ON downtime_logs(device_id, down_end_time);`,
		`CREATE INDEX IF NOT EXISTS idx_sub_downtime_open ON subscriber_downtime_logs(subscriber_id, down_end_time);`,
		`CREATE INDEX IF NOT EXISTS idx_subscribers_tenant ON subscribers(tenant_id);`,
		`CREATE INDEX IF NOT EXISTS idx_subscribers_station ON subscribers(station_id);`,
		`CREATE INDEX IF NOT EXISTS idx_diag_logs_sub ON diagnostic_logs(tenant_id, subscriber_id);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_tenant ON notifications(tenant_id, created_at);`,
	}
	for _, stmt := range indexes {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate failed: %w", err)
		}
	}
	return nil
}

func toTimePtr(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func fromTimePtr(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(time.RFC3339Nano)
}

func fromTime(v time.Time) string {
	return v.UTC().Format(time.RFC3339Nano)
}

func toTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func strPtr(v sql.NullString) *string {
	if !v.Valid || v.String == "" {
		return nil
	}
	s := v.String
	return &s
}

func fromStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}
