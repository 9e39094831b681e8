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

const subscriberColumns = `id, tenant_id, router_id, username, service, ip, station_id, building, expiry_date, online, status_label, last_checked_at, created_at, updated_at`

func (r *Repository) CreateSubscriber(ctx context.Context, sub model.Subscriber) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscribers (`+subscriberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.TenantID, sub.RouterID, sub.Username, sub.Service, sub.IP,
		fromStringPtr(sub.StationID), sub.Building, fromTime(sub.ExpiryDate),
		sub.Online, sub.StatusLabel, fromTimePtr(sub.LastCheckedAt),
		fromTime(sub.CreatedAt), fromTime(sub.UpdatedAt),
	)
	return err
}

func (r *Repository) SubscriberByID(ctx context.Context, tenantID, subscriberID string) (model.Subscriber, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE id = ? AND tenant_id = ?`, subscriberID, tenantID)
	sub, err := scanSubscriber(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subscriber{}, fmt.Errorf("%w: subscriber %s", ErrNotFound, subscriberID)
	}
	return sub, err
}

// SubscriberFilter narrows ListSubscribers.
type SubscriberFilter struct {
	RouterID string
	Online   *bool
}

func (r *Repository) ListSubscribers(ctx context.Context, tenantID string, filter SubscriberFilter) ([]model.Subscriber, error) {
	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE tenant_id = ?`
	args := []any{tenantID}
	if filter.RouterID != "" {
		query += ` AND router_id = ?`
		args = append(args, filter.RouterID)
	}
	if filter.Online != nil {
		query += ` AND online = ?`
		args = append(args, *filter.Online)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Subscriber, 0)
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

// Neighbors returns other subscribers on the same station or in the same
// building, for correlated-outage analysis.
func (r *Repository) Neighbors(ctx context.Context, tenantID string, stationID *string, building, excludeID string) ([]model.Subscriber, error) {
	conditions := []string{}
	args := []any{tenantID}
	if stationID != nil && strings.TrimSpace(*stationID) != "" {
		conditions = append(conditions, "station_id = ?")
		args = append(args, *stationID)
	}
	if strings.TrimSpace(building) != "" {
		conditions = append(conditions, "building = ?")
		args = append(args, building)
	}
	if len(conditions) == 0 {
		return []model.Subscriber{}, nil
	}

	query := `SELECT ` + subscriberColumns + ` FROM subscribers WHERE tenant_id = ? AND (` +
		strings.Join(conditions, " OR ") + `) AND id != ?`
	args = append(args, excludeID)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Subscriber, 0)
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

func (r *Repository) UpdateSubscriberStatus(ctx context.Context, tenantID, subscriberID string, online bool, label string, checkedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscribers SET online = ?, status_label = ?, last_checked_at = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?`,
		online, label, fromTime(checkedAt), fromTime(checkedAt), subscriberID, tenantID,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: subscriber %s", ErrNotFound, subscriberID)
	}
	return nil
}

// PatchSubscriber updates mutable metadata; nil fields stay untouched.
func (r *Repository) PatchSubscriber(ctx context.Context, tenantID, subscriberID string, ip, building *string, expiry *time.Time) error {
	sets := []string{}
	args := []any{}
	if ip != nil {
		sets = append(sets, "ip = ?")
		args = append(args, *ip)
	}
	if building != nil {
		sets = append(sets, "building = ?")
		args = append(args, *building)
	}
	if expiry != nil {
		sets = append(sets, "expiry_date = ?")
		args = append(args, fromTime(*expiry))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, fromTime(nowUTC()), subscriberID, tenantID)

	query := `UPDATE subscribers SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND tenant_id = ?`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: subscriber %s", ErrNotFound, subscriberID)
	}
	return nil
}

func scanSubscriber(row rowScanner) (model.Subscriber, error) {
	var (
		sub                    model.Subscriber
		stationID, lastChecked sql.NullString
		expiry                 string
		createdAt, updatedAt   string
	)
	err := row.Scan(
		&sub.ID, &sub.TenantID, &sub.RouterID, &sub.Username, &sub.Service, &sub.IP,
		&stationID, &sub.Building, &expiry, &sub.Online, &sub.StatusLabel,
		&lastChecked, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Subscriber{}, err
	}
	sub.StationID = strPtr(stationID)
	sub.ExpiryDate = toTime(expiry)
	sub.LastCheckedAt = toTimePtr(lastChecked)
	sub.CreatedAt = toTime(createdAt)
	sub.UpdatedAt = toTime(updatedAt)
	return sub, nil
}
