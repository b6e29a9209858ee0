package repository

import (
	"context"
	"time"

	"sfme/evaluation/internal/model"
)

func (s *Store) CreateModule(ctx context.Context, module model.Module) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO modules (id, subject_code, module_name, department, semester, academic_year)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, module.ID, module.SubjectCode, module.ModuleName, module.Department, module.Semester, module.AcademicYear)
	return err
}

func (s *Store) GetModuleByID(ctx context.Context, id string) (model.Module, error) {
	var module model.Module
	row := s.pool.QueryRow(ctx, `
		SELECT id, subject_code, module_name, department, semester, academic_year
		FROM modules
		WHERE id = $1
	`, id)
	err := row.Scan(&module.ID, &module.SubjectCode, &module.ModuleName, &module.Department, &module.Semester, &module.AcademicYear)
	return module, err
}

func (s *Store) ListModules(ctx context.Context, limit int) ([]model.Module, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, subject_code, module_name, department, semester, academic_year
		FROM modules
		ORDER BY subject_code
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modules []model.Module
	for rows.Next() {
		var module model.Module
		if err := rows.Scan(&module.ID, &module.SubjectCode, &module.ModuleName, &module.Department, &module.Semester, &module.AcademicYear); err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}
	return modules, rows.Err()
}

func (s *Store) EnrollStudent(ctx context.Context, enrollment model.EnrolledModule) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO enrolled_modules (id, student_id, module_id, faculty_id, enrolled_at)
		VALUES ($1, $2, $3, $4, $5)
	`, enrollment.ID, enrollment.StudentID, enrollment.ModuleID, enrollment.FacultyID, enrollment.EnrolledAt)
	return err
}

// EnrolledModuleRow joins an enrollment with its module, the assigned
// instructor's name, and whether an active evaluation form exists for the
// module. The server alone decides availability.
type EnrolledModuleRow struct {
	Module         model.Module
	InstructorName *string
	EnrolledAt     time.Time
	Available      bool
}

func (s *Store) ListEnrolledModules(ctx context.Context, studentID string) ([]EnrolledModuleRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.subject_code, m.module_name, m.department, m.semester, m.academic_year,
			CASE WHEN f.id IS NULL THEN NULL ELSE f.first_name || ' ' || f.last_name END,
			e.enrolled_at,
			EXISTS (
				SELECT 1 FROM module_evaluation_forms mef
				WHERE mef.subject_code = m.subject_code AND mef.status = 'Active'
			)
		FROM enrolled_modules e
		JOIN modules m ON m.id = e.module_id
		LEFT JOIN faculty f ON f.id = e.faculty_id
		WHERE e.student_id = $1
		ORDER BY m.subject_code
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []EnrolledModuleRow
	for rows.Next() {
		var row EnrolledModuleRow
		if err := rows.Scan(
			&row.Module.ID, &row.Module.SubjectCode, &row.Module.ModuleName,
			&row.Module.Department, &row.Module.Semester, &row.Module.AcademicYear,
			&row.InstructorName, &row.EnrolledAt, &row.Available,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
