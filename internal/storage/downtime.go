package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
)

// OpenDeviceDowntime creates an outage log unless one is already open.
// "Find open log or create new" keeps the at-most-one-open invariant even
// when checks race; the single sqlite connection serializes the two steps.
func (r *Repository) OpenDeviceDowntime(ctx context.Context, tenantID, deviceID string, start time.Time) (model.DowntimeLog, bool, error) {
	existing, err := r.OpenDeviceDowntimeLog(ctx, tenantID, deviceID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.DowntimeLog{}, false, err
	}

	log := model.DowntimeLog{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		DeviceID:      deviceID,
		DownStartTime: start.UTC(),
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO downtime_logs (id, tenant_id, device_id, down_start_time)
		VALUES (?, ?, ?, ?)`,
		log.ID, log.TenantID, log.DeviceID, fromTime(log.DownStartTime),
	)
	if err != nil {
		return model.DowntimeLog{}, false, err
	}
	return log, true, nil
}

// CloseDeviceDowntime terminates the newest open log and records duration.
// ErrNotFound means there was nothing open.
func (r *Repository) CloseDeviceDowntime(ctx context.Context, tenantID, deviceID string, end time.Time) (model.DowntimeLog, error) {
	log, err := r.OpenDeviceDowntimeLog(ctx, tenantID, deviceID)
	if err != nil {
		return model.DowntimeLog{}, err
	}

	endUTC := end.UTC()
	duration := int64(endUTC.Sub(log.DownStartTime) / time.Second)
	_, err = r.db.ExecContext(ctx, `
		UPDATE downtime_logs SET down_end_time = ?, duration_seconds = ? WHERE id = ?`,
		fromTime(endUTC), duration, log.ID,
	)
	if err != nil {
		return model.DowntimeLog{}, err
	}
	log.DownEndTime = &endUTC
	log.DurationSeconds = &duration
	return log, nil
}

// OpenDeviceDowntimeLog finds the current unterminated log for a device.
func (r *Repository) OpenDeviceDowntimeLog(ctx context.Context, tenantID, deviceID string) (model.DowntimeLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, device_id, down_start_time, down_end_time, duration_seconds
		FROM downtime_logs
		WHERE device_id = ? AND tenant_id = ? AND down_end_time IS NULL
		ORDER BY down_start_time DESC LIMIT 1`,
		deviceID, tenantID,
	)
	log, err := scanDowntime(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DowntimeLog{}, fmt.Errorf("%w: open downtime log for device %s", ErrNotFound, deviceID)
	}
	return log, err
}

func (r *Repository) ListDeviceDowntime(ctx context.Context, tenantID, deviceID string, limit int) ([]model.DowntimeLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, device_id, down_start_time, down_end_time, duration_seconds
		FROM downtime_logs
		WHERE device_id = ? AND tenant_id = ?
		ORDER BY down_start_time DESC LIMIT ?`,
		deviceID, tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.DowntimeLog, 0)
	for rows.Next() {
		log, err := scanDowntime(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}

// OpenSubscriberDowntime mirrors OpenDeviceDowntime for subscriber sessions.
func (r *Repository) OpenSubscriberDowntime(ctx context.Context, tenantID, subscriberID string, start time.Time) (model.SubscriberDowntimeLog, bool, error) {
	existing, err := r.openSubscriberDowntimeLog(ctx, tenantID, subscriberID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.SubscriberDowntimeLog{}, false, err
	}

	log := model.SubscriberDowntimeLog{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		SubscriberID:  subscriberID,
		DownStartTime: start.UTC(),
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO subscriber_downtime_logs (id, tenant_id, subscriber_id, down_start_time)
		VALUES (?, ?, ?, ?)`,
		log.ID, log.TenantID, log.SubscriberID, fromTime(log.DownStartTime),
	)
	if err != nil {
		return model.SubscriberDowntimeLog{}, false, err
	}
	return log, true, nil
}

func (r *Repository) CloseSubscriberDowntime(ctx context.Context, tenantID, subscriberID string, end time.Time) (model.SubscriberDowntimeLog, error) {
	log, err := r.openSubscriberDowntimeLog(ctx, tenantID, subscriberID)
	if err != nil {
		return model.SubscriberDowntimeLog{}, err
	}

	endUTC := end.UTC()
	duration := int64(endUTC.Sub(log.DownStartTime) / time.Second)
	_, err = r.db.ExecContext(ctx, `
		UPDATE subscriber_downtime_logs SET down_end_time = ?, duration_seconds = ? WHERE id = ?`,
		fromTime(endUTC), duration, log.ID,
	)
	if err != nil {
		return model.SubscriberDowntimeLog{}, err
	}
	log.DownEndTime = &endUTC
	log.DurationSeconds = &duration
	return log, nil
}

func (r *Repository) ListSubscriberDowntime(ctx context.Context, tenantID, subscriberID string, limit int) ([]model.SubscriberDowntimeLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, subscriber_id, down_start_time, down_end_time, duration_seconds
		FROM subscriber_downtime_logs
		WHERE subscriber_id = ? AND tenant_id = ?
		ORDER BY down_start_time DESC LIMIT ?`,
		subscriberID, tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.SubscriberDowntimeLog, 0)
	for rows.Next() {
		var (
			log      model.SubscriberDowntimeLog
			start    string
			endAt    sql.NullString
			duration sql.NullInt64
		)
		if err := rows.Scan(&log.ID, &log.TenantID, &log.SubscriberID, &start, &endAt, &duration); err != nil {
			return nil, err
		}
		log.DownStartTime = toTime(start)
		log.DownEndTime = toTimePtr(endAt)
		log.DurationSeconds = int64Ptr(duration)
		result = append(result, log)
	}
	return result, rows.Err()
}

func (r *Repository) openSubscriberDowntimeLog(ctx context.Context, tenantID, subscriberID string) (model.SubscriberDowntimeLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, subscriber_id, down_start_time, down_end_time, duration_seconds
		FROM subscriber_downtime_logs
		WHERE subscriber_id = ? AND tenant_id = ? AND down_end_time IS NULL
		ORDER BY down_start_time DESC LIMIT 1`,
		subscriberID, tenantID,
	)
	var (
		log      model.SubscriberDowntimeLog
		start    string
		endAt    sql.NullString
		duration sql.NullInt64
	)
	err := row.Scan(&log.ID, &log.TenantID, &log.SubscriberID, &start, &endAt, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SubscriberDowntimeLog{}, fmt.Errorf("%w: open downtime log for subscriber %s", ErrNotFound, subscriberID)
	}
	if err != nil {
		return model.SubscriberDowntimeLog{}, err
	}
	log.DownStartTime = toTime(start)
	log.DownEndTime = toTimePtr(endAt)
	log.DurationSeconds = int64Ptr(duration)
	return log, nil
}

func scanDowntime(row rowScanner) (model.DowntimeLog, error) {
	var (
		log      model.DowntimeLog
		start    string
		endAt    sql.NullString
		duration sql.NullInt64
	)
	if err := row.Scan(&log.ID, &log.TenantID, &log.DeviceID, &start, &endAt, &duration); err != nil {
		return model.DowntimeLog{}, err
	}
	log.DownStartTime = toTime(start)
	log.DownEndTime = toTimePtr(endAt)
	log.DurationSeconds = int64Ptr(duration)
	return log, nil
}
