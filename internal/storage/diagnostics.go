package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
)

func (r *Repository) InsertDiagnosticLog(ctx context.Context, log model.DiagnosticLog) error {
	steps, err := json.Marshal(log.Steps)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO diagnostic_logs (id, tenant_id, subscriber_id, steps_json, conclusion, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.TenantID, log.SubscriberID, string(steps), log.Conclusion, string(log.Status), fromTime(log.CreatedAt),
	)
	return err
}

func (r *Repository) DiagnosticLogByID(ctx context.Context, tenantID, logID string) (model.DiagnosticLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, subscriber_id, steps_json, conclusion, status, created_at
		FROM diagnostic_logs WHERE id = ? AND tenant_id = ?`, logID, tenantID)
	log, err := scanDiagnosticLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DiagnosticLog{}, fmt.Errorf("%w: diagnostic log %s", ErrNotFound, logID)
	}
	return log, err
}

func (r *Repository) ListDiagnosticLogs(ctx context.Context, tenantID, subscriberID string, limit int) ([]model.DiagnosticLog, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, tenant_id, subscriber_id, steps_json, conclusion, status, created_at
		FROM diagnostic_logs WHERE tenant_id = ?`
	args := []any{tenantID}
	if subscriberID != "" {
		query += ` AND subscriber_id = ?`
		args = append(args, subscriberID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.DiagnosticLog, 0)
	for rows.Next() {
		log, err := scanDiagnosticLog(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}

func scanDiagnosticLog(row rowScanner) (model.DiagnosticLog, error) {
	var (
		log       model.DiagnosticLog
		steps     string
		status    string
		createdAt string
	)
	if err := row.Scan(&log.ID, &log.TenantID, &log.SubscriberID, &steps, &log.Conclusion, &status, &createdAt); err != nil {
		return model.DiagnosticLog{}, err
	}
	if err := json.Unmarshal([]byte(steps), &log.Steps); err != nil {
		log.Steps = []model.DiagnosticStep{}
	}
	log.Status = model.StepStatus(status)
	log.CreatedAt = toTime(createdAt)
	return log, nil
}
