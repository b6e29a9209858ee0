package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"sfme/evaluation/internal/model"
)

func scanModuleForm(row pgx.Row, form *model.ModuleEvaluationForm) error {
	return row.Scan(&form.ID, &form.SubjectCode, &form.SubjectDescription, &form.Status,
		&form.Description, &form.CreatedAt, &form.UpdatedAt)
}

func (s *Store) CreateModuleForm(ctx context.Context, form model.ModuleEvaluationForm) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO module_evaluation_forms (id, subject_code, subject_description, status, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, form.ID, form.SubjectCode, form.SubjectDescription, form.Status, form.Description, form.CreatedAt, form.UpdatedAt)
	return err
}

func (s *Store) GetModuleForm(ctx context.Context, id string) (model.ModuleEvaluationForm, error) {
	var form model.ModuleEvaluationForm
	row := s.pool.QueryRow(ctx, `
		SELECT id, subject_code, subject_description, status, description, created_at, updated_at
		FROM module_evaluation_forms
		WHERE id = $1
	`, id)
	return form, scanModuleForm(row, &form)
}

func (s *Store) ListModuleForms(ctx context.Context, limit int) ([]model.ModuleEvaluationForm, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, subject_code, subject_description, status, description, created_at, updated_at
		FROM module_evaluation_forms
		ORDER BY subject_code
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forms []model.ModuleEvaluationForm
	for rows.Next() {
		var form model.ModuleEvaluationForm
		if err := scanModuleForm(rows, &form); err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, rows.Err()
}

type FormUpdate struct {
	Status      *model.FormStatus
	Description *string
}

func (s *Store) UpdateModuleForm(ctx context.Context, id string, update FormUpdate) (model.ModuleEvaluationForm, error) {
	_, err := s.pool.Exec(ctx, `
		UPDATE module_evaluation_forms
		SET status = COALESCE($1, status),
			description = COALESCE($2, description),
			updated_at = $3
		WHERE id = $4
	`, update.Status, update.Description, time.Now().UTC(), id)
	if err != nil {
		return model.ModuleEvaluationForm{}, err
	}
	return s.GetModuleForm(ctx, id)
}

func (s *Store) DeleteModuleForm(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM module_evaluation_forms WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanInstructorForm(row pgx.Row, form *model.InstructorEvaluationForm) error {
	return row.Scan(&form.ID, &form.InstructorName, &form.FacultyID, &form.Status,
		&form.Description, &form.CreatedAt, &form.UpdatedAt)
}

func (s *Store) CreateInstructorForm(ctx context.Context, form model.InstructorEvaluationForm) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO instructor_evaluation_forms (id, instructor_name, faculty_id, status, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, form.ID, form.InstructorName, form.FacultyID, form.Status, form.Description, form.CreatedAt, form.UpdatedAt)
	return err
}

func (s *Store) GetInstructorForm(ctx context.Context, id string) (model.InstructorEvaluationForm, error) {
	var form model.InstructorEvaluationForm
	row := s.pool.QueryRow(ctx, `
		SELECT id, instructor_name, faculty_id, status, description, created_at, updated_at
		FROM instructor_evaluation_forms
		WHERE id = $1
	`, id)
	return form, scanInstructorForm(row, &form)
}

func (s *Store) ListInstructorForms(ctx context.Context, limit int) ([]model.InstructorEvaluationForm, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, instructor_name, faculty_id, status, description, created_at, updated_at
		FROM instructor_evaluation_forms
		ORDER BY instructor_name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forms []model.InstructorEvaluationForm
	for rows.Next() {
		var form model.InstructorEvaluationForm
		if err := scanInstructorForm(rows, &form); err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, rows.Err()
}

func (s *Store) UpdateInstructorForm(ctx context.Context, id string, update FormUpdate) (model.InstructorEvaluationForm, error) {
	_, err := s.pool.Exec(ctx, `
		UPDATE instructor_evaluation_forms
		SET status = COALESCE($1, status),
			description = COALESCE($2, description),
			updated_at = $3
		WHERE id = $4
	`, update.Status, update.Description, time.Now().UTC(), id)
	if err != nil {
		return model.InstructorEvaluationForm{}, err
	}
	return s.GetInstructorForm(ctx, id)
}

func (s *Store) DeleteInstructorForm(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM instructor_evaluation_forms WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) CreateQuestion(ctx context.Context, question model.EvaluationQuestion) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO evaluation_questions (id, code, question_text, question_type, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, question.ID, question.Code, question.QuestionText, question.QuestionType,
		question.Position, question.CreatedAt, question.UpdatedAt)
	return err
}

func (s *Store) ListQuestions(ctx context.Context) ([]model.EvaluationQuestion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, question_text, question_type, position, created_at, updated_at
		FROM evaluation_questions
		ORDER BY position NULLS LAST, created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.EvaluationQuestion
	for rows.Next() {
		var question model.EvaluationQuestion
		if err := rows.Scan(&question.ID, &question.Code, &question.QuestionText,
			&question.QuestionType, &question.Position, &question.CreatedAt, &question.UpdatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

func (s *Store) QuestionExists(ctx context.Context, id string) bool {
	return s.exists(ctx, `SELECT 1 FROM evaluation_questions WHERE id = $1`, id)
}
