package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
)

const deviceColumns = `id, tenant_id, name, mac, ip, device_type, status, status_label, parent_id, last_checked_at, created_at, updated_at`

// DeviceFilter narrows ListDevices. Zero value lists everything for a tenant.
type DeviceFilter struct {
	Status     string
	DeviceType string
	Query      string
}

func (r *Repository) CreateDevice(ctx context.Context, device model.Device) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID, device.TenantID, device.Name, device.MAC, device.IP, device.DeviceType,
		device.Status, device.StatusLabel, fromStringPtr(device.ParentID),
		fromTimePtr(device.LastCheckedAt), fromTime(device.CreatedAt), fromTime(device.UpdatedAt),
	)
	return err
}

func (r *Repository) DeviceByID(ctx context.Context, tenantID, deviceID string) (model.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = ? AND tenant_id = ?`, deviceID, tenantID)
	device, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Device{}, fmt.Errorf("%w: device %s", ErrNotFound, deviceID)
	}
	return device, err
}

func (r *Repository) ListDevices(ctx context.Context, tenantID string, filter DeviceFilter) ([]model.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE tenant_id = ?`
	args := []any{tenantID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.DeviceType != "" {
		query += ` AND device_type = ?`
		args = append(args, filter.DeviceType)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query += ` AND (name LIKE ? OR mac LIKE ? OR ip LIKE ?)`
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, device)
	}
	return result, rows.Err()
}

// UpdateDeviceStatus persists the outcome of one reachability check.
func (r *Repository) UpdateDeviceStatus(ctx context.Context, tenantID, deviceID, status, label string, checkedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices SET status = ?, status_label = ?, last_checked_at = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?`,
		status, label, fromTime(checkedAt), fromTime(checkedAt), deviceID, tenantID,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: device %s", ErrNotFound, deviceID)
	}
	return nil
}

// PatchDevice updates mutable metadata; nil fields stay untouched.
func (r *Repository) PatchDevice(ctx context.Context, tenantID, deviceID string, name, ip, parentID *string) error {
	sets := []string{}
	args := []any{}
	if name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *name)
	}
	if ip != nil {
		sets = append(sets, "ip = ?")
		args = append(args, *ip)
	}
	if parentID != nil {
		sets = append(sets, "parent_id = ?")
		if strings.TrimSpace(*parentID) == "" {
			args = append(args, nil)
		} else {
			args = append(args, *parentID)
		}
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, fromTime(nowUTC()), deviceID, tenantID)

	query := `UPDATE devices SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND tenant_id = ?`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: device %s", ErrNotFound, deviceID)
	}
	return nil
}

func scanDevice(row rowScanner) (model.Device, error) {
	var (
		device               model.Device
		parentID             sql.NullString
		lastChecked          sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(
		&device.ID, &device.TenantID, &device.Name, &device.MAC, &device.IP, &device.DeviceType,
		&device.Status, &device.StatusLabel, &parentID, &lastChecked, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Device{}, err
	}
	device.ParentID = strPtr(parentID)
	device.LastCheckedAt = toTimePtr(lastChecked)
	device.CreatedAt = toTime(createdAt)
	device.UpdatedAt = toTime(updatedAt)
	return device, nil
}
