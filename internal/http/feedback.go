package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"sfme/evaluation/internal/crypto"
	"sfme/evaluation/internal/model"
)

type feedbackAnswer struct {
	QuestionID string  `json:"question_id"`
	Rating     *int    `json:"rating,omitempty"`
	Comment    *string `json:"comment,omitempty"`
}

type feedbackSubmitRequest struct {
	FormID   string           `json:"form_id"`
	FormKind string           `json:"form_kind"`
	Answers  []feedbackAnswer `json:"answers"`
}

// handleFeedbackSubmit stores a student's answers under a pseudonym
// derived from their identity and the form, so a second submission to the
// same form collides without the answers being attributable.
func (s *Server) handleFeedbackSubmit(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims.UserType != "student" {
		writeError(w, http.StatusForbidden, "students_only")
		return
	}

	var req feedbackSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.FormID == "" || len(req.Answers) == 0 {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if req.FormKind == "" {
		req.FormKind = "module"
	}

	switch req.FormKind {
	case "module":
		form, err := s.store.GetModuleForm(r.Context(), req.FormID)
		if err != nil || form.Status != model.FormStatusActive {
			writeError(w, http.StatusBadRequest, "form_not_active")
			return
		}
	case "instructor":
		form, err := s.store.GetInstructorForm(r.Context(), req.FormID)
		if err != nil || form.Status != model.FormStatusActive {
			writeError(w, http.StatusBadRequest, "form_not_active")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid_form_kind")
		return
	}

	pseudonym := crypto.HashToken(claims.UserID + ":" + req.FormKind + ":" + req.FormID)
	now := time.Now().UTC()

	responses := make([]model.FeedbackResponse, 0, len(req.Answers))
	for _, answer := range req.Answers {
		if answer.QuestionID == "" || !s.store.QuestionExists(r.Context(), answer.QuestionID) {
			writeError(w, http.StatusBadRequest, "unknown_question")
			return
		}
		if answer.Rating != nil && (*answer.Rating < 1 || *answer.Rating > 5) {
			writeError(w, http.StatusBadRequest, "rating_out_of_range")
			return
		}
		responses = append(responses, model.FeedbackResponse{
			ID:          uuid.NewString(),
			FormID:      req.FormID,
			FormKind:    req.FormKind,
			Pseudonym:   pseudonym,
			QuestionID:  answer.QuestionID,
			Rating:      answer.Rating,
			Comment:     answer.Comment,
			SubmittedAt: now,
		})
	}

	if err := s.store.InsertFeedbackResponses(r.Context(), responses); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeError(w, http.StatusConflict, "already_submitted")
			return
		}
		log.Printf("insert feedback for form %s: %v", req.FormID, err)
		writeError(w, http.StatusInternalServerError, "submit_failed")
		return
	}

	// Audit the event without the answers; the pseudonym stays out of it.
	s.audit(r.Context(), "student", "student", "submit_feedback", "feedback", "success", "Feedback submitted for form "+req.FormID, "")
	writeJSON(w, http.StatusCreated, map[string]string{"status": "submitted"})
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	formID := r.URL.Query().Get("form_id")

	responses, err := s.store.ListFeedbackResponses(r.Context(), formID, queryLimit(r, 1000))
	if err != nil {
		log.Printf("list feedback responses: %v", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}

	out := make([]map[string]interface{}, 0, len(responses))
	for _, resp := range responses {
		out = append(out, map[string]interface{}{
			"id":           resp.ID,
			"form_id":      resp.FormID,
			"form_kind":    resp.FormKind,
			"pseudonym":    resp.Pseudonym,
			"question_id":  resp.QuestionID,
			"rating":       resp.Rating,
			"comment":      resp.Comment,
			"submitted_at": resp.SubmittedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleModuleReport aggregates ratings for a subject code. Faculty and
// department heads only; students never see other students' feedback.
func (s *Server) handleModuleReport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims.UserType != "faculty" && claims.UserType != "department_head" {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	subjectCode := chi.URLParam(r, "subjectCode")
	stats, err := s.store.GetModuleReportStats(r.Context(), subjectCode)
	if err != nil {
		log.Printf("module report %s: %v", subjectCode, err)
		writeError(w, http.StatusInternalServerError, "report_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subject_code":    stats.SubjectCode,
		"total_responses": stats.TotalResponses,
		"rated_responses": stats.RatedResponses,
		"average_rating":  stats.AverageRating,
		"rating_counts":   stats.RatingCounts,
	})
}

func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	logs, err := s.store.ListAuditLogs(r.Context(), query.Get("category"), query.Get("status"), queryLimit(r, 500))
	if err != nil {
		log.Printf("list audit logs: %v", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}

	out := make([]map[string]interface{}, 0, len(logs))
	for _, entry := range logs {
		out = append(out, map[string]interface{}{
			"id":        entry.ID,
			"user":      entry.User,
			"role":      entry.Role,
			"action":    entry.Action,
			"category":  entry.Category,
			"status":    entry.Status,
			"message":   entry.Message,
			"ip":        entry.IP,
			"timestamp": entry.Timestamp.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
