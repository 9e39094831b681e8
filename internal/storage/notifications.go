package storage

import (
	"context"

	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
)

func (r *Repository) InsertNotification(ctx context.Context, n model.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, tenant_id, message, entity_type, status_label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.TenantID, n.Message, n.EntityType, n.StatusLabel, fromTime(n.CreatedAt),
	)
	return err
}

func (r *Repository) ListNotifications(ctx context.Context, tenantID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, message, entity_type, status_label, created_at
		FROM notifications WHERE tenant_id = ?
		ORDER BY created_at DESC LIMIT ?`,
		tenantID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Notification, 0)
	for rows.Next() {
		var (
			item      model.Notification
			createdAt string
		)
		if err := rows.Scan(&item.ID, &item.TenantID, &item.Message, &item.EntityType, &item.StatusLabel, &createdAt); err != nil {
			return nil, err
		}
		item.CreatedAt = toTime(createdAt)
		result = append(result, item)
	}
	return result, rows.Err()
}
