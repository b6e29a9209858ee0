package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"sfme/evaluation/internal/model"
)

func scanDepartmentHead(row pgx.Row, head *model.DepartmentHead) error {
	return row.Scan(
		&head.ID,
		&head.Email,
		&head.PasswordHash,
		&head.FirstName,
		&head.LastName,
		&head.Department,
		&head.MustChangePassword,
		&head.OTPEnabled,
		&head.PasswordChangedAt,
		&head.CreatedAt,
		&head.UpdatedAt,
		&head.Active,
	)
}

func (s *Store) CreateDepartmentHead(ctx context.Context, head model.DepartmentHead) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO department_heads (id, email, password_hash, first_name, last_name, department,
			must_change_password, otp_enabled, password_changed_at, created_at, updated_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, head.ID, head.Email, head.PasswordHash, head.FirstName, head.LastName,
		head.Department, head.MustChangePassword, head.OTPEnabled, head.PasswordChangedAt,
		head.CreatedAt, head.UpdatedAt, head.Active)
	return err
}

func (s *Store) GetDepartmentHeadByID(ctx context.Context, id string) (model.DepartmentHead, error) {
	var head model.DepartmentHead
	row := s.pool.QueryRow(ctx, `SELECT `+personColumns+`, active FROM department_heads WHERE id = $1`, id)
	return head, scanDepartmentHead(row, &head)
}

func (s *Store) ListDepartmentHeads(ctx context.Context, limit int) ([]model.DepartmentHead, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+personColumns+`, active
		FROM department_heads
		ORDER BY last_name, first_name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var heads []model.DepartmentHead
	for rows.Next() {
		var head model.DepartmentHead
		if err := scanDepartmentHead(rows, &head); err != nil {
			return nil, err
		}
		heads = append(heads, head)
	}
	return heads, rows.Err()
}

func (s *Store) DeleteDepartmentHead(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM department_heads WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
