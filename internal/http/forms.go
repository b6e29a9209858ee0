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

	"sfme/evaluation/internal/model"
	"sfme/evaluation/internal/repository"
)

func (s *Server) handleCreateModule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectCode  string `json:"subject_code"`
		ModuleName   string `json:"module_name"`
		Department   string `json:"department"`
		Semester     string `json:"semester"`
		AcademicYear string `json:"academic_year"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.SubjectCode = strings.TrimSpace(req.SubjectCode)
	req.ModuleName = strings.TrimSpace(req.ModuleName)
	if req.SubjectCode == "" || req.ModuleName == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	module := model.Module{
		ID:           uuid.NewString(),
		SubjectCode:  req.SubjectCode,
		ModuleName:   req.ModuleName,
		Department:   req.Department,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
	}
	if err := s.store.CreateModule(r.Context(), module); err != nil {
		log.Printf("create module %s: %v", req.SubjectCode, err)
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "create_module", "modules", "success", "Created module "+req.SubjectCode, clientIP(r))
	writeJSON(w, http.StatusCreated, module)
}

func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := s.store.ListModules(r.Context(), queryLimit(r, defaultListLimit))
	if err != nil {
		log.Printf("list modules: %v", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	if modules == nil {
		modules = []model.Module{}
	}
	writeJSON(w, http.StatusOK, modules)
}

func (s *Server) handleEnrollStudent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string  `json:"student_id"`
		ModuleID  string  `json:"module_id"`
		FacultyID *string `json:"faculty_id,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil || req.StudentID == "" || req.ModuleID == "" {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	enrollment := model.EnrolledModule{
		ID:         uuid.NewString(),
		StudentID:  req.StudentID,
		ModuleID:   req.ModuleID,
		FacultyID:  req.FacultyID,
		EnrolledAt: time.Now().UTC(),
	}
	if err := s.store.EnrollStudent(r.Context(), enrollment); err != nil {
		log.Printf("enroll student %s in %s: %v", req.StudentID, req.ModuleID, err)
		writeError(w, http.StatusInternalServerError, "enroll_failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": enrollment.ID})
}

type formRequest struct {
	SubjectCode        string  `json:"subject_code,omitempty"`
	SubjectDescription *string `json:"subject_description,omitempty"`
	InstructorName     string  `json:"instructor_name,omitempty"`
	FacultyID          *string `json:"faculty_id,omitempty"`
	Status             string  `json:"status,omitempty"`
	Description        *string `json:"description,omitempty"`
}

func parseFormStatus(raw string) (model.FormStatus, bool) {
	switch raw {
	case "", string(model.FormStatusDraft):
		return model.FormStatusDraft, true
	case string(model.FormStatusActive):
		return model.FormStatusActive, true
	default:
		return "", false
	}
}

func (s *Server) handleCreateModuleForm(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.SubjectCode = strings.TrimSpace(req.SubjectCode)
	if req.SubjectCode == "" {
		writeError(w, http.StatusBadRequest, "missing_subject_code")
		return
	}
	status, ok := parseFormStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	now := time.Now().UTC()
	form := model.ModuleEvaluationForm{
		ID:                 uuid.NewString(),
		SubjectCode:        req.SubjectCode,
		SubjectDescription: req.SubjectDescription,
		Status:             status,
		Description:        req.Description,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateModuleForm(r.Context(), form); err != nil {
		log.Printf("create module form %s: %v", req.SubjectCode, err)
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "create_module_form", "forms", "success", "Created module form "+req.SubjectCode, clientIP(r))
	writeJSON(w, http.StatusCreated, form)
}

func (s *Server) handleListModuleForms(w http.ResponseWriter, r *http.Request) {
	forms, err := s.store.ListModuleForms(r.Context(), queryLimit(r, defaultListLimit))
	if err != nil {
		log.Printf("list module forms: %v", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	if forms == nil {
		forms = []model.ModuleEvaluationForm{}
	}
	writeJSON(w, http.StatusOK, forms)
}

func (s *Server) handleGetModuleForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.store.GetModuleForm(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "form_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) formUpdateFromRequest(w http.ResponseWriter, r *http.Request) (repository.FormUpdate, bool) {
	var req formRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return repository.FormUpdate{}, false
	}

	var update repository.FormUpdate
	if req.Status != "" {
		status, ok := parseFormStatus(req.Status)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_status")
			return repository.FormUpdate{}, false
		}
		update.Status = &status
	}
	update.Description = req.Description
	return update, true
}

func (s *Server) handlePatchModuleForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "formID")
	update, ok := s.formUpdateFromRequest(w, r)
	if !ok {
		return
	}

	form, err := s.store.UpdateModuleForm(r.Context(), id, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "form_not_found")
			return
		}
		log.Printf("update module form %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "update_module_form", "forms", "success", "Updated module form "+form.SubjectCode, clientIP(r))
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) handleDeleteModuleForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "formID")

	deleted, err := s.store.DeleteModuleForm(r.Context(), id)
	if err != nil {
		log.Printf("delete module form %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "form_not_found")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "delete_module_form", "forms", "success", "Deleted module form "+id, clientIP(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateInstructorForm(w http.ResponseWriter, r *http.Request) {
	var req formRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.InstructorName = strings.TrimSpace(req.InstructorName)
	if req.InstructorName == "" {
		writeError(w, http.StatusBadRequest, "missing_instructor_name")
		return
	}
	status, ok := parseFormStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	now := time.Now().UTC()
	form := model.InstructorEvaluationForm{
		ID:             uuid.NewString(),
		InstructorName: req.InstructorName,
		FacultyID:      req.FacultyID,
		Status:         status,
		Description:    req.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateInstructorForm(r.Context(), form); err != nil {
		log.Printf("create instructor form %s: %v", req.InstructorName, err)
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "create_instructor_form", "forms", "success", "Created instructor form "+req.InstructorName, clientIP(r))
	writeJSON(w, http.StatusCreated, form)
}

func (s *Server) handleListInstructorForms(w http.ResponseWriter, r *http.Request) {
	forms, err := s.store.ListInstructorForms(r.Context(), queryLimit(r, defaultListLimit))
	if err != nil {
		log.Printf("list instructor forms: %v", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	if forms == nil {
		forms = []model.InstructorEvaluationForm{}
	}
	writeJSON(w, http.StatusOK, forms)
}

func (s *Server) handleGetInstructorForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.store.GetInstructorForm(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "form_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) handlePatchInstructorForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "formID")
	update, ok := s.formUpdateFromRequest(w, r)
	if !ok {
		return
	}

	form, err := s.store.UpdateInstructorForm(r.Context(), id, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "form_not_found")
			return
		}
		log.Printf("update instructor form %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "update_instructor_form", "forms", "success", "Updated instructor form "+form.InstructorName, clientIP(r))
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) handleDeleteInstructorForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "formID")

	deleted, err := s.store.DeleteInstructorForm(r.Context(), id)
	if err != nil {
		log.Printf("delete instructor form %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "form_not_found")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "delete_instructor_form", "forms", "success", "Deleted instructor form "+id, clientIP(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code         *string `json:"code,omitempty"`
		QuestionText string  `json:"question_text"`
		QuestionType string  `json:"question_type"`
		Position     *int    `json:"position,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.QuestionText = strings.TrimSpace(req.QuestionText)
	if req.QuestionText == "" {
		writeError(w, http.StatusBadRequest, "missing_question_text")
		return
	}

	switch model.QuestionType(req.QuestionType) {
	case model.QuestionRating, model.QuestionComment, model.QuestionScale, model.QuestionText:
	default:
		writeError(w, http.StatusBadRequest, "invalid_question_type")
		return
	}

	now := time.Now().UTC()
	question := model.EvaluationQuestion{
		ID:           uuid.NewString(),
		Code:         req.Code,
		QuestionText: req.QuestionText,
		QuestionType: model.QuestionType(req.QuestionType),
		Position:     req.Position,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateQuestion(r.Context(), question); err != nil {
		log.Printf("create question: %v", err)
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := s.store.ListQuestions(r.Context())
	if err != nil {
		log.Printf("list questions: %v", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	if questions == nil {
		questions = []model.EvaluationQuestion{}
	}
	writeJSON(w, http.StatusOK, questions)
}
