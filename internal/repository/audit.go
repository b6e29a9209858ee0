package repository

import (
	"context"

	"sfme/evaluation/internal/model"
)

func (s *Store) InsertAuditLog(ctx context.Context, entry model.AuditLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, username, role, action, category, status, message, ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.User, entry.Role, entry.Action, entry.Category, entry.Status,
		entry.Message, entry.IP, entry.Timestamp)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, category, status string, limit int) ([]model.AuditLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, role, action, category, status, message, ip, created_at
		FROM audit_logs
		WHERE ($1 = '' OR category = $1)
			AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, category, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.AuditLog
	for rows.Next() {
		var entry model.AuditLog
		if err := rows.Scan(&entry.ID, &entry.User, &entry.Role, &entry.Action, &entry.Category,
			&entry.Status, &entry.Message, &entry.IP, &entry.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
