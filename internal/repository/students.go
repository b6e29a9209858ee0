package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"sfme/evaluation/internal/model"
)

const studentColumns = personColumns + `, student_number, program, year_level`

func scanStudent(row pgx.Row, student *model.Student) error {
	return row.Scan(
		&student.ID,
		&student.Email,
		&student.PasswordHash,
		&student.FirstName,
		&student.LastName,
		&student.Department,
		&student.MustChangePassword,
		&student.OTPEnabled,
		&student.PasswordChangedAt,
		&student.CreatedAt,
		&student.UpdatedAt,
		&student.StudentNumber,
		&student.Program,
		&student.YearLevel,
	)
}

func (s *Store) CreateStudent(ctx context.Context, student model.Student) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO students (id, email, password_hash, first_name, last_name, department,
			must_change_password, otp_enabled, password_changed_at, created_at, updated_at,
			student_number, program, year_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, student.ID, student.Email, student.PasswordHash, student.FirstName, student.LastName,
		student.Department, student.MustChangePassword, student.OTPEnabled, student.PasswordChangedAt,
		student.CreatedAt, student.UpdatedAt, student.StudentNumber, student.Program, student.YearLevel)
	return err
}

func (s *Store) GetStudentByID(ctx context.Context, id string) (model.Student, error) {
	var student model.Student
	row := s.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	return student, scanStudent(row, &student)
}

func (s *Store) GetStudentByNumber(ctx context.Context, studentNumber string) (model.Student, error) {
	var student model.Student
	row := s.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE student_number = $1`, studentNumber)
	return student, scanStudent(row, &student)
}

func (s *Store) ListStudents(ctx context.Context, limit int) ([]model.Student, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+studentColumns+`
		FROM students
		ORDER BY last_name, first_name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var student model.Student
		if err := scanStudent(rows, &student); err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, rows.Err()
}

type StudentUpdate struct {
	PersonUpdate
	StudentNumber *string
	Program       *string
	YearLevel     *int
}

func (s *Store) UpdateStudent(ctx context.Context, id string, update StudentUpdate) (model.Student, error) {
	if err := s.updatePerson(ctx, "students", id, update.PersonUpdate); err != nil {
		return model.Student{}, err
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE students
		SET student_number = COALESCE($1, student_number),
			program = COALESCE($2, program),
			year_level = COALESCE($3, year_level)
		WHERE id = $4
	`, update.StudentNumber, update.Program, update.YearLevel, id)
	if err != nil {
		return model.Student{}, err
	}
	return s.GetStudentByID(ctx, id)
}

func (s *Store) DeleteStudent(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) StudentNumberTaken(ctx context.Context, studentNumber string) bool {
	return s.exists(ctx, `SELECT 1 FROM students WHERE student_number = $1`, studentNumber)
}
