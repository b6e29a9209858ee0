package http

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"sfme/evaluation/internal/crypto"
	"sfme/evaluation/internal/model"
	"sfme/evaluation/internal/repository"
)

const defaultListLimit = 200

type createStudentRequest struct {
	StudentNumber string  `json:"student_number"`
	Email         string  `json:"email"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	Password      string  `json:"password"`
	Department    *string `json:"department,omitempty"`
	Program       *string `json:"program,omitempty"`
	YearLevel     *int    `json:"year_level,omitempty"`
	OTPEnabled    bool    `json:"otp_enabled,omitempty"`
}

type studentResponse struct {
	ID                 string  `json:"id"`
	StudentNumber      string  `json:"student_number"`
	Email              string  `json:"email"`
	FirstName          string  `json:"first_name"`
	LastName           string  `json:"last_name"`
	Department         *string `json:"department"`
	Program            *string `json:"program"`
	YearLevel          *int    `json:"year_level"`
	OTPEnabled         bool    `json:"otp_enabled"`
	MustChangePassword bool    `json:"must_change_password"`
	CreatedAt          string  `json:"created_at"`
}

func studentToResponse(student model.Student) studentResponse {
	return studentResponse{
		ID:                 student.ID,
		StudentNumber:      student.StudentNumber,
		Email:              student.Email,
		FirstName:          student.FirstName,
		LastName:           student.LastName,
		Department:         student.Department,
		Program:            student.Program,
		YearLevel:          student.YearLevel,
		OTPEnabled:         student.OTPEnabled,
		MustChangePassword: student.MustChangePassword,
		CreatedAt:          student.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.StudentNumber == "" || req.Email == "" || req.FirstName == "" || req.LastName == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if s.store.StudentNumberTaken(r.Context(), req.StudentNumber) {
		writeError(w, http.StatusConflict, "student_number_taken")
		return
	}
	if err := validatePassword(req.Password, req.Email); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weak_password", "detail": err.Error()})
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	now := time.Now().UTC()
	student := model.Student{
		Person: model.Person{
			ID:           uuid.NewString(),
			Email:        req.Email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Department:   req.Department,
			// New accounts start on an issued password.
			MustChangePassword: true,
			OTPEnabled:         req.OTPEnabled,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		StudentNumber: req.StudentNumber,
		Program:       req.Program,
		YearLevel:     req.YearLevel,
	}
	if err := s.store.CreateStudent(r.Context(), student); err != nil {
		log.Printf("create student %s: %v", req.StudentNumber, err)
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "create_student", "accounts", "success", "Created student "+req.StudentNumber, clientIP(r))
	writeJSON(w, http.StatusCreated, studentToResponse(student))
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.store.ListStudents(r.Context(), queryLimit(r, defaultListLimit))
	if err != nil {
		log.Printf("list students: %v", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	out := make([]studentResponse, 0, len(students))
	for _, student := range students {
		out = append(out, studentToResponse(student))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "studentID")

	claims := claimsFromContext(r.Context())
	if claims.UserType != "department_head" && claims.UserID != id {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	student, err := s.store.GetStudentByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "student_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}
	writeJSON(w, http.StatusOK, studentToResponse(student))
}

func (s *Server) handlePatchStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "studentID")

	var req struct {
		Email         *string `json:"email,omitempty"`
		FirstName     *string `json:"first_name,omitempty"`
		LastName      *string `json:"last_name,omitempty"`
		Department    *string `json:"department,omitempty"`
		StudentNumber *string `json:"student_number,omitempty"`
		Program       *string `json:"program,omitempty"`
		YearLevel     *int    `json:"year_level,omitempty"`
		OTPEnabled    *bool   `json:"otp_enabled,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	update := repository.StudentUpdate{
		PersonUpdate: repository.PersonUpdate{
			Email:      req.Email,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Department: req.Department,
			OTPEnabled: req.OTPEnabled,
		},
		StudentNumber: req.StudentNumber,
		Program:       req.Program,
		YearLevel:     req.YearLevel,
	}
	student, err := s.store.UpdateStudent(r.Context(), id, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "student_not_found")
			return
		}
		log.Printf("update student %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "update_student", "accounts", "success", "Updated student "+student.StudentNumber, clientIP(r))
	writeJSON(w, http.StatusOK, studentToResponse(student))
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "studentID")

	deleted, err := s.store.DeleteStudent(r.Context(), id)
	if err != nil {
		log.Printf("delete student %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "student_not_found")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "delete_student", "accounts", "success", "Deleted student "+id, clientIP(r))
	w.WriteHeader(http.StatusNoContent)
}
