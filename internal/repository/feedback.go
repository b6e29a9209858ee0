package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"sfme/evaluation/internal/model"
)

// InsertFeedbackResponses stores one submission atomically: either every
// answer lands or none do. The unique (form, pseudonym, question) index
// rejects duplicate submissions inside the transaction.
func (s *Store) InsertFeedbackResponses(ctx context.Context, responses []model.FeedbackResponse) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, response := range responses {
		_, err := tx.Exec(ctx, `
			INSERT INTO feedback_responses (id, form_id, form_kind, pseudonym, question_id, rating, comment, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, response.ID, response.FormID, response.FormKind, response.Pseudonym,
			response.QuestionID, response.Rating, response.Comment, response.SubmittedAt)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListFeedbackResponses(ctx context.Context, formID string, limit int) ([]model.FeedbackResponse, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, form_id, form_kind, pseudonym, question_id, rating, comment, submitted_at
		FROM feedback_responses
		WHERE ($1 = '' OR form_id = $1)
		ORDER BY submitted_at DESC
		LIMIT $2
	`, formID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []model.FeedbackResponse
	for rows.Next() {
		var response model.FeedbackResponse
		if err := rows.Scan(&response.ID, &response.FormID, &response.FormKind, &response.Pseudonym,
			&response.QuestionID, &response.Rating, &response.Comment, &response.SubmittedAt); err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}
	return responses, rows.Err()
}

// ModuleReportStats aggregates ratings for every active module form with
// the given subject code.
type ModuleReportStats struct {
	SubjectCode    string
	TotalResponses int
	RatedResponses int
	AverageRating  float64
	RatingCounts   map[int]int
}

func (s *Store) GetModuleReportStats(ctx context.Context, subjectCode string) (ModuleReportStats, error) {
	stats := ModuleReportStats{SubjectCode: subjectCode, RatingCounts: map[int]int{}}

	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(r.rating), COALESCE(AVG(r.rating), 0)
		FROM feedback_responses r
		JOIN module_evaluation_forms f ON f.id = r.form_id
		WHERE r.form_kind = 'module' AND f.subject_code = $1
	`, subjectCode)
	if err := row.Scan(&stats.TotalResponses, &stats.RatedResponses, &stats.AverageRating); err != nil {
		return stats, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT r.rating, COUNT(*)
		FROM feedback_responses r
		JOIN module_evaluation_forms f ON f.id = r.form_id
		WHERE r.form_kind = 'module' AND f.subject_code = $1 AND r.rating IS NOT NULL
		GROUP BY r.rating
	`, subjectCode)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return stats, err
		}
		stats.RatingCounts[rating] = count
	}
	return stats, rows.Err()
}
