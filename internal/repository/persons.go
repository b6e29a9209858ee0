package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"sfme/evaluation/internal/model"
)

// The three person tables share the same base columns. Table names are
// fixed by roleTable; user input never reaches the query text.
const personColumns = `id, email, password_hash, first_name, last_name, department,
	must_change_password, otp_enabled, password_changed_at, created_at, updated_at`

func roleTable(role string) (string, error) {
	switch role {
	case "student":
		return "students", nil
	case "faculty":
		return "faculty", nil
	case "department_head":
		return "department_heads", nil
	default:
		return "", ErrUnknownRole
	}
}

func scanPerson(row pgx.Row, person *model.Person) error {
	return row.Scan(
		&person.ID,
		&person.Email,
		&person.PasswordHash,
		&person.FirstName,
		&person.LastName,
		&person.Department,
		&person.MustChangePassword,
		&person.OTPEnabled,
		&person.PasswordChangedAt,
		&person.CreatedAt,
		&person.UpdatedAt,
	)
}

func (s *Store) GetPersonByEmail(ctx context.Context, role, email string) (model.Person, error) {
	var person model.Person
	table, err := roleTable(role)
	if err != nil {
		return person, err
	}
	row := s.pool.QueryRow(ctx, `SELECT `+personColumns+` FROM `+table+` WHERE email = $1`, email)
	return person, scanPerson(row, &person)
}

func (s *Store) GetPersonByID(ctx context.Context, role, id string) (model.Person, error) {
	var person model.Person
	table, err := roleTable(role)
	if err != nil {
		return person, err
	}
	row := s.pool.QueryRow(ctx, `SELECT `+personColumns+` FROM `+table+` WHERE id = $1`, id)
	return person, scanPerson(row, &person)
}

// UpdatePersonPassword rotates the hash and clears the forced-change flag.
func (s *Store) UpdatePersonPassword(ctx context.Context, role, id, hash string) error {
	table, err := roleTable(role)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		UPDATE `+table+`
		SET password_hash = $1, must_change_password = false, password_changed_at = $2, updated_at = $2
		WHERE id = $3
	`, hash, now, id)
	return err
}

type PersonUpdate struct {
	Email              *string
	FirstName          *string
	LastName           *string
	Department         *string
	PasswordHash       *string
	MustChangePassword *bool
	OTPEnabled         *bool
}

func (s *Store) updatePerson(ctx context.Context, table, id string, update PersonUpdate) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		UPDATE `+table+`
		SET email = COALESCE($1, email),
			first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			department = COALESCE($4, department),
			password_hash = COALESCE($5, password_hash),
			must_change_password = COALESCE($6, must_change_password),
			otp_enabled = COALESCE($7, otp_enabled),
			updated_at = $8
		WHERE id = $9
	`, update.Email, update.FirstName, update.LastName, update.Department,
		update.PasswordHash, update.MustChangePassword, update.OTPEnabled, now, id)
	return err
}
