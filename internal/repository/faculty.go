package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"sfme/evaluation/internal/model"
)

const facultyColumns = personColumns + `, active`

func scanFaculty(row pgx.Row, faculty *model.Faculty) error {
	return row.Scan(
		&faculty.ID,
		&faculty.Email,
		&faculty.PasswordHash,
		&faculty.FirstName,
		&faculty.LastName,
		&faculty.Department,
		&faculty.MustChangePassword,
		&faculty.OTPEnabled,
		&faculty.PasswordChangedAt,
		&faculty.CreatedAt,
		&faculty.UpdatedAt,
		&faculty.Active,
	)
}

func (s *Store) CreateFaculty(ctx context.Context, faculty model.Faculty) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO faculty (id, email, password_hash, first_name, last_name, department,
			must_change_password, otp_enabled, password_changed_at, created_at, updated_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, faculty.ID, faculty.Email, faculty.PasswordHash, faculty.FirstName, faculty.LastName,
		faculty.Department, faculty.MustChangePassword, faculty.OTPEnabled, faculty.PasswordChangedAt,
		faculty.CreatedAt, faculty.UpdatedAt, faculty.Active)
	return err
}

func (s *Store) GetFacultyByID(ctx context.Context, id string) (model.Faculty, error) {
	var faculty model.Faculty
	row := s.pool.QueryRow(ctx, `SELECT `+facultyColumns+` FROM faculty WHERE id = $1`, id)
	return faculty, scanFaculty(row, &faculty)
}

func (s *Store) ListFaculty(ctx context.Context, limit int) ([]model.Faculty, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+facultyColumns+`
		FROM faculty
		ORDER BY last_name, first_name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []model.Faculty
	for rows.Next() {
		var faculty model.Faculty
		if err := scanFaculty(rows, &faculty); err != nil {
			return nil, err
		}
		members = append(members, faculty)
	}
	return members, rows.Err()
}

type FacultyUpdate struct {
	PersonUpdate
	Active *bool
}

func (s *Store) UpdateFaculty(ctx context.Context, id string, update FacultyUpdate) (model.Faculty, error) {
	if err := s.updatePerson(ctx, "faculty", id, update.PersonUpdate); err != nil {
		return model.Faculty{}, err
	}
	if update.Active != nil {
		if _, err := s.pool.Exec(ctx, `UPDATE faculty SET active = $1 WHERE id = $2`, *update.Active, id); err != nil {
			return model.Faculty{}, err
		}
	}
	return s.GetFacultyByID(ctx, id)
}

func (s *Store) DeleteFaculty(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM faculty WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
