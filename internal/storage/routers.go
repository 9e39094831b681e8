package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
)

const routerColumns = `id, tenant_id, name, host, username, password_enc, is_core, online, last_checked_at, created_at, updated_at`

func (r *Repository) CreateRouter(ctx context.Context, router model.Router) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO routers (`+routerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		router.ID, router.TenantID, router.Name, router.Host, router.Username, router.PasswordEnc,
		router.IsCore, router.Online, fromTimePtr(router.LastCheckedAt),
		fromTime(router.CreatedAt), fromTime(router.UpdatedAt),
	)
	return err
}

func (r *Repository) RouterByID(ctx context.Context, tenantID, routerID string) (model.Router, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+routerColumns+` FROM routers WHERE id = ? AND tenant_id = ?`, routerID, tenantID)
	router, err := scanRouter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Router{}, fmt.Errorf("%w: router %s", ErrNotFound, routerID)
	}
	return router, err
}

// CoreRouter returns the tenant's designated core gateway, used for probing
// infrastructure devices during sweeps and root-cause walks.
func (r *Repository) CoreRouter(ctx context.Context, tenantID string) (model.Router, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+routerColumns+` FROM routers WHERE tenant_id = ? AND is_core = 1 LIMIT 1`, tenantID)
	router, err := scanRouter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Router{}, fmt.Errorf("%w: core router for tenant %s", ErrNotFound, tenantID)
	}
	return router, err
}

func (r *Repository) ListRouters(ctx context.Context, tenantID string) ([]model.Router, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+routerColumns+` FROM routers WHERE tenant_id = ? ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Router, 0)
	for rows.Next() {
		router, err := scanRouter(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, router)
	}
	return result, rows.Err()
}

func (r *Repository) UpdateRouterStatus(ctx context.Context, tenantID, routerID string, online bool, checkedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE routers SET online = ?, last_checked_at = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?`,
		online, fromTime(checkedAt), fromTime(checkedAt), routerID, tenantID,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: router %s", ErrNotFound, routerID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRouter(row rowScanner) (model.Router, error) {
	var (
		router               model.Router
		lastChecked          sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&router.ID, &router.TenantID, &router.Name, &router.Host, &router.Username, &router.PasswordEnc,
		&router.IsCore, &router.Online, &lastChecked, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Router{}, err
	}
	router.LastCheckedAt = toTimePtr(lastChecked)
	router.CreatedAt = toTime(createdAt)
	router.UpdatedAt = toTime(updatedAt)
	return router, nil
}
