package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
)

func (r *Repository) CreateTenant(ctx context.Context, tenant model.Tenant) error {
	emails, err := json.Marshal(emptyIfNil(tenant.AdminEmails))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, admin_emails_json, created_at)
		VALUES (?, ?, ?, ?)`,
		tenant.ID, tenant.Name, string(emails), fromTime(tenant.CreatedAt),
	)
	return err
}

func (r *Repository) UpdateTenantEmails(ctx context.Context, tenantID string, emails []string) error {
	body, err := json.Marshal(emptyIfNil(emails))
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE tenants SET admin_emails_json = ? WHERE id = ?`, string(body), tenantID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: tenant %s", ErrNotFound, tenantID)
	}
	return nil
}

func (r *Repository) TenantByID(ctx context.Context, tenantID string) (model.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, admin_emails_json, created_at FROM tenants WHERE id = ?`, tenantID)

	var (
		tenant    model.Tenant
		emails    string
		createdAt string
	)
	if err := row.Scan(&tenant.ID, &tenant.Name, &emails, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tenant{}, fmt.Errorf("%w: tenant %s", ErrNotFound, tenantID)
		}
		return model.Tenant{}, err
	}
	tenant.AdminEmails = decodeEmails(emails)
	tenant.CreatedAt = toTime(createdAt)
	return tenant, nil
}

func (r *Repository) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, admin_emails_json, created_at FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Tenant, 0)
	for rows.Next() {
		var (
			tenant    model.Tenant
			emails    string
			createdAt string
		)
		if err := rows.Scan(&tenant.ID, &tenant.Name, &emails, &createdAt); err != nil {
			return nil, err
		}
		tenant.AdminEmails = decodeEmails(emails)
		tenant.CreatedAt = toTime(createdAt)
		result = append(result, tenant)
	}
	return result, rows.Err()
}

func decodeEmails(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
