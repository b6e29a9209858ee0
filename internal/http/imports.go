package http

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"sfme/evaluation/internal/crypto"
	"sfme/evaluation/internal/model"
)

type importResult struct {
	CreatedCount int      `json:"created_count"`
	Errors       []string `json:"errors"`
}

// importCSV reads the uploaded file from the multipart form, or falls
// back to the raw body for text/csv uploads.
func importCSV(r *http.Request) (*csv.Reader, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		return csv.NewReader(file), nil
	}
	return csv.NewReader(r.Body), nil
}

// handleStudentBulkImport creates student accounts from a CSV with the
// header student_number,email,first_name,last_name,password[,program,year_level].
// Rows are independent: a bad row is reported and skipped.
func (s *Server) handleStudentBulkImport(w http.ResponseWriter, r *http.Request) {
	reader, err := importCSV(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload")
		return
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		writeError(w, http.StatusBadRequest, "empty_csv")
		return
	}
	cols := columnIndex(header)
	for _, required := range []string{"student_number", "email", "first_name", "last_name", "password"} {
		if _, ok := cols[required]; !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_column", "detail": required})
			return
		}
	}

	result := importResult{Errors: []string{}}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		number := strings.TrimSpace(field(record, cols, "student_number"))
		email := strings.ToLower(strings.TrimSpace(field(record, cols, "email")))
		first := strings.TrimSpace(field(record, cols, "first_name"))
		last := strings.TrimSpace(field(record, cols, "last_name"))
		password := field(record, cols, "password")
		if number == "" || email == "" || first == "" || last == "" || password == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: missing required fields", line))
			continue
		}
		if s.store.StudentNumberTaken(r.Context(), number) {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: student number %s already exists", line, number))
			continue
		}
		if err := validatePassword(password, email); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		hash, err := crypto.HashPassword(password)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		now := time.Now().UTC()
		student := model.Student{
			Person: model.Person{
				ID:                 uuid.NewString(),
				Email:              email,
				PasswordHash:       hash,
				FirstName:          first,
				LastName:           last,
				MustChangePassword: true,
				CreatedAt:          now,
				UpdatedAt:          now,
			},
			StudentNumber: number,
		}
		if program := strings.TrimSpace(field(record, cols, "program")); program != "" {
			student.Program = &program
		}
		if raw := strings.TrimSpace(field(record, cols, "year_level")); raw != "" {
			if year, err := strconv.Atoi(raw); err == nil {
				student.YearLevel = &year
			}
		}

		if err := s.store.CreateStudent(r.Context(), student); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		result.CreatedCount++
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "bulk_import_students", "accounts", "success",
		fmt.Sprintf("Imported %d students, %d errors", result.CreatedCount, len(result.Errors)), clientIP(r))
	log.Printf("student bulk import: %d created, %d errors", result.CreatedCount, len(result.Errors))
	writeJSON(w, http.StatusOK, result)
}

// handleFacultyBulkImport mirrors the student import for faculty accounts
// with the header email,first_name,last_name,password[,department].
func (s *Server) handleFacultyBulkImport(w http.ResponseWriter, r *http.Request) {
	reader, err := importCSV(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_upload")
		return
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		writeError(w, http.StatusBadRequest, "empty_csv")
		return
	}
	cols := columnIndex(header)
	for _, required := range []string{"email", "first_name", "last_name", "password"} {
		if _, ok := cols[required]; !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_column", "detail": required})
			return
		}
	}

	result := importResult{Errors: []string{}}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		email := strings.ToLower(strings.TrimSpace(field(record, cols, "email")))
		first := strings.TrimSpace(field(record, cols, "first_name"))
		last := strings.TrimSpace(field(record, cols, "last_name"))
		password := field(record, cols, "password")
		if email == "" || first == "" || last == "" || password == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: missing required fields", line))
			continue
		}
		if err := validatePassword(password, email); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		hash, err := crypto.HashPassword(password)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		now := time.Now().UTC()
		faculty := model.Faculty{
			Person: model.Person{
				ID:                 uuid.NewString(),
				Email:              email,
				PasswordHash:       hash,
				FirstName:          first,
				LastName:           last,
				MustChangePassword: true,
				CreatedAt:          now,
				UpdatedAt:          now,
			},
			Active: true,
		}
		if department := strings.TrimSpace(field(record, cols, "department")); department != "" {
			faculty.Department = &department
		}

		if err := s.store.CreateFaculty(r.Context(), faculty); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		result.CreatedCount++
	}

	claims := claimsFromContext(r.Context())
	s.audit(r.Context(), claims.UserID, claims.UserType, "bulk_import_faculty", "accounts", "success",
		fmt.Sprintf("Imported %d faculty, %d errors", result.CreatedCount, len(result.Errors)), clientIP(r))
	log.Printf("faculty bulk import: %d created, %d errors", result.CreatedCount, len(result.Errors))
	writeJSON(w, http.StatusOK, result)
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}
