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

type createAccountRequest struct {
	Email      string  `json:"email"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Password   string  `json:"password"`
	Department *string `json:"department,omitempty"`
	OTPEnabled *bool   `json:"otp_enabled,omitempty"`
}

type accountResponse struct {
	ID                 string  `json:"id"`
	Email              string  `json:"email"`
	FirstName          string  `json:"first_name"`
	LastName           string  `json:"last_name"`
	Department         *string `json:"department"`
	Active             bool    `json:"active"`
	OTPEnabled         bool    `json:"otp_enabled"`
	MustChangePassword bool    `json:"must_change_password"`
	CreatedAt          string  `json:"created_at"`
}

func personToAccount(person model.Person, active bool) accountResponse {
	return accountResponse{
		ID:                 person.ID,
		Email:              person.Email,
		FirstName:          person.FirstName,
		LastName:           person.LastName,
		Department:         person.Department,
		Active:             active,
		OTPEnabled:         person.OTPEnabled,
		MustChangePassword: person.MustChangePassword,
		CreatedAt:          person.CreatedAt.Format(time.RFC3339),
	}
}

// buildPerson validates a create request and returns the populated base
// record. It writes the error response on failure. defaultOTP applies
// when the request leaves otp_enabled unset.
func (s *Server) buildPerson(w http.ResponseWriter, r *http.Request, defaultOTP bool) (model.Person, bool) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return model.Person{}, false
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" || req.FirstName == "" || req.LastName == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return model.Person{}, false
	}
	if err := validatePassword(req.Password, req.Email); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weak_password", "detail": err.Error()})
		return model.Person{}, false
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create_failed")
		return model.Person{}, false
	}

	otpEnabled := defaultOTP
	if req.OTPEnabled != nil {
		otpEnabled = *req.OTPEnabled
	}

	now := time.Now().UTC()
	return model.Person{
		ID:                 uuid.NewString(),
		Email:              req.Email,
		PasswordHash:       hash,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Department:         req.Department,
		MustChangePassword: true,
		OTPEnabled:         otpEnabled,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, true
}

func (s *Server) handleCreateFaculty(w http.ResponseWriter, r *http.Request) {
	person, ok := s.buildPerson(w, r, false)
	if !ok {
		return
	}

	faculty := model.Faculty{Person: person, Active: true}
	if err := s.store.CreateFaculty(r.Context(), faculty); err != nil {
		log.Printf("create faculty %s: %v", person.Email, err)
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "create_faculty", "accounts", "success", "Created faculty "+person.Email, clientIP(r))
	writeJSON(w, http.StatusCreated, personToAccount(person, true))
}

func (s *Server) handleListFaculty(w http.ResponseWriter, r *http.Request) {
	members, err := s.store.ListFaculty(r.Context(), queryLimit(r, defaultListLimit))
	if err != nil {
		log.Printf("list faculty: %v", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	out := make([]accountResponse, 0, len(members))
	for _, member := range members {
		out = append(out, personToAccount(member.Person, member.Active))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetFaculty(w http.ResponseWriter, r *http.Request) {
	faculty, err := s.store.GetFacultyByID(r.Context(), chi.URLParam(r, "facultyID"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "faculty_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}
	writeJSON(w, http.StatusOK, personToAccount(faculty.Person, faculty.Active))
}

func (s *Server) handlePatchFaculty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "facultyID")

	var req struct {
		Email      *string `json:"email,omitempty"`
		FirstName  *string `json:"first_name,omitempty"`
		LastName   *string `json:"last_name,omitempty"`
		Department *string `json:"department,omitempty"`
		Active     *bool   `json:"active,omitempty"`
		OTPEnabled *bool   `json:"otp_enabled,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	update := repository.FacultyUpdate{
		PersonUpdate: repository.PersonUpdate{
			Email:      req.Email,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Department: req.Department,
			OTPEnabled: req.OTPEnabled,
		},
		Active: req.Active,
	}
	faculty, err := s.store.UpdateFaculty(r.Context(), id, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "faculty_not_found")
			return
		}
		log.Printf("update faculty %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "update_faculty", "accounts", "success", "Updated faculty "+faculty.Email, clientIP(r))
	writeJSON(w, http.StatusOK, personToAccount(faculty.Person, faculty.Active))
}

func (s *Server) handleDeleteFaculty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "facultyID")

	deleted, err := s.store.DeleteFaculty(r.Context(), id)
	if err != nil {
		log.Printf("delete faculty %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "faculty_not_found")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "delete_faculty", "accounts", "success", "Deleted faculty "+id, clientIP(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateDepartmentHead(w http.ResponseWriter, r *http.Request) {
	// Department heads default to the OTP second factor.
	person, ok := s.buildPerson(w, r, true)
	if !ok {
		return
	}

	head := model.DepartmentHead{Person: person, Active: true}
	if err := s.store.CreateDepartmentHead(r.Context(), head); err != nil {
		log.Printf("create department head %s: %v", person.Email, err)
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "create_department_head", "accounts", "success", "Created department head "+person.Email, clientIP(r))
	writeJSON(w, http.StatusCreated, personToAccount(person, true))
}

func (s *Server) handleListDepartmentHeads(w http.ResponseWriter, r *http.Request) {
	heads, err := s.store.ListDepartmentHeads(r.Context(), queryLimit(r, defaultListLimit))
	if err != nil {
		log.Printf("list department heads: %v", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	out := make([]accountResponse, 0, len(heads))
	for _, head := range heads {
		out = append(out, personToAccount(head.Person, head.Active))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDepartmentHead(w http.ResponseWriter, r *http.Request) {
	head, err := s.store.GetDepartmentHeadByID(r.Context(), chi.URLParam(r, "headID"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "department_head_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}
	writeJSON(w, http.StatusOK, personToAccount(head.Person, head.Active))
}

func (s *Server) handleDeleteDepartmentHead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "headID")

	claims := claimsFromContext(r.Context())
	if claims.UserID == id {
		writeError(w, http.StatusBadRequest, "cannot_delete_self")
		return
	}

	deleted, err := s.store.DeleteDepartmentHead(r.Context(), id)
	if err != nil {
		log.Printf("delete department head %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "department_head_not_found")
		return
	}

	s.audit(r.Context(), claims.UserID, claims.UserType, "delete_department_head", "accounts", "success", "Deleted department head "+id, clientIP(r))
	w.WriteHeader(http.StatusNoContent)
}
