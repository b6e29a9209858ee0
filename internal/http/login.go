package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"sfme/evaluation/internal/auth"
	"sfme/evaluation/internal/crypto"
	"sfme/evaluation/internal/mail"
	"sfme/evaluation/internal/model"
)

const resetTicketTTL = 15 * time.Minute

type loginRequest struct {
	StudentNumber  string `json:"student_number,omitempty"`
	Email          string `json:"email,omitempty"`
	Password       string `json:"password"`
	RecaptchaToken string `json:"recaptcha_token,omitempty"`
}

type userSummary struct {
	ID                 string  `json:"id"`
	FirstName          string  `json:"first_name"`
	LastName           string  `json:"last_name"`
	Email              string  `json:"email"`
	UserType           string  `json:"user_type"`
	Department         *string `json:"department,omitempty"`
	StudentNumber      string  `json:"student_number,omitempty"`
	MustChangePassword bool    `json:"must_change_password"`
}

type tokenResponse struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	Token   string      `json:"token"`
	User    userSummary `json:"user"`
}

type otpChallengeResponse struct {
	OTPRequired  bool   `json:"otp_required"`
	PendingToken string `json:"pending_token"`
	Email        string `json:"email"`
	ExpiresAt    string `json:"expires_at"`
}

func (s *Server) handleStudentLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)
	if req.StudentNumber == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}
	if !s.loginGate(w, r, "student", req.RecaptchaToken) {
		return
	}

	student, err := s.store.GetStudentByNumber(r.Context(), req.StudentNumber)
	if err != nil {
		s.failLogin(w, r, "student", req.StudentNumber)
		return
	}
	if err := crypto.CheckPassword(student.PasswordHash, req.Password); err != nil {
		s.failLogin(w, r, "student", student.Email)
		return
	}

	s.finishLogin(w, r, student.Person, "student", student.StudentNumber)
}

func (s *Server) handleFacultyLogin(w http.ResponseWriter, r *http.Request) {
	s.emailLogin(w, r, "faculty")
}

func (s *Server) handleDepartmentHeadLogin(w http.ResponseWriter, r *http.Request) {
	s.emailLogin(w, r, "department_head")
}

func (s *Server) emailLogin(w http.ResponseWriter, r *http.Request, role string) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}
	if !s.loginGate(w, r, role, req.RecaptchaToken) {
		return
	}

	person, err := s.store.GetPersonByEmail(r.Context(), role, req.Email)
	if err != nil {
		s.failLogin(w, r, role, req.Email)
		return
	}
	if err := crypto.CheckPassword(person.PasswordHash, req.Password); err != nil {
		s.failLogin(w, r, role, req.Email)
		return
	}

	s.finishLogin(w, r, person, role, "")
}

// loginGate applies the captcha check and the per-client rate limit. It
// writes the response itself when the attempt is rejected.
func (s *Server) loginGate(w http.ResponseWriter, r *http.Request, role, captchaToken string) bool {
	ip := clientIP(r)

	ok, retryAfter := s.limiter.Allow(r.Context(), role+":"+ip)
	if !ok {
		seconds := int(retryAfter.Round(time.Second).Seconds())
		if seconds < 1 {
			seconds = 1
		}
		loginAttempts.WithLabelValues(role, "rate_limited").Inc()
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":  "rate_limited",
			"detail": fmt.Sprintf("Too many login attempts. Try again in %d seconds.", seconds),
		})
		return false
	}

	if err := s.recaptcha.Verify(r.Context(), captchaToken, ip); err != nil {
		loginAttempts.WithLabelValues(role, "captcha_failed").Inc()
		writeError(w, http.StatusBadRequest, "captcha_failed")
		return false
	}
	return true
}

func (s *Server) failLogin(w http.ResponseWriter, r *http.Request, role, who string) {
	loginAttempts.WithLabelValues(role, "failure").Inc()
	s.audit(r.Context(), who, role, "login", "authentication", "failure", "Invalid credentials", clientIP(r))
	writeError(w, http.StatusUnauthorized, "invalid_credentials")
}

// finishLogin runs after the password check passed: either start the OTP
// challenge or issue tokens immediately.
func (s *Server) finishLogin(w http.ResponseWriter, r *http.Request, person model.Person, role, studentNumber string) {
	if person.OTPEnabled {
		challenge, err := s.startOTP(r.Context(), person.Email, role, model.PurposeLogin)
		if err != nil {
			log.Printf("otp challenge for %s failed: %v", person.Email, err)
			writeError(w, http.StatusInternalServerError, "otp_send_failed")
			return
		}
		loginAttempts.WithLabelValues(role, "otp_pending").Inc()
		writeJSON(w, http.StatusOK, challenge)
		return
	}

	resp, err := s.issueTokens(r.Context(), person, role, studentNumber, r)
	if err != nil {
		log.Printf("issue tokens for %s failed: %v", person.Email, err)
		writeError(w, http.StatusInternalServerError, "token_issue_failed")
		return
	}
	loginAttempts.WithLabelValues(role, "success").Inc()
	s.audit(r.Context(), person.Email, role, "login", "authentication", "success", "Logged in", clientIP(r))
	writeJSON(w, http.StatusOK, resp)
}

// startOTP creates and mails a fresh one-time code. The pending token is
// the caller's handle for the verify and resend calls.
func (s *Server) startOTP(ctx context.Context, email, role string, purpose model.OTPPurpose) (otpChallengeResponse, error) {
	code, err := crypto.NewOTPCode()
	if err != nil {
		return otpChallengeResponse{}, err
	}
	pendingToken, err := crypto.NewPendingToken()
	if err != nil {
		return otpChallengeResponse{}, err
	}

	now := time.Now().UTC()
	otp := model.EmailOTP{
		ID:           uuid.NewString(),
		Email:        email,
		Code:         code,
		Purpose:      purpose,
		Role:         role,
		PendingToken: pendingToken,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.OTPTTL),
	}
	if err := s.store.CreateOTP(ctx, otp); err != nil {
		return otpChallengeResponse{}, err
	}

	minutes := int(s.cfg.OTPTTL.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	if err := s.mailer.Send(email, mail.OTPSubject(s.cfg.AppName), mail.OTPBody(s.cfg.AppName, code, minutes)); err != nil {
		return otpChallengeResponse{}, err
	}

	return otpChallengeResponse{
		OTPRequired:  true,
		PendingToken: pendingToken,
		Email:        maskEmail(email),
		ExpiresAt:    otp.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// handleSendOTP reissues the code for an existing challenge, keeping the
// original purpose and role.
func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PendingToken string `json:"pending_token"`
	}
	if err := decodeJSON(r, &req); err != nil || req.PendingToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	otp, err := s.store.GetOTPByPendingToken(r.Context(), req.PendingToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pending_token")
		return
	}

	challenge, err := s.startOTP(r.Context(), otp.Email, otp.Role, otp.Purpose)
	if err != nil {
		log.Printf("otp resend for %s failed: %v", otp.Email, err)
		writeError(w, http.StatusInternalServerError, "otp_send_failed")
		return
	}
	if err := s.store.MarkOTPUsed(r.Context(), otp.ID); err != nil {
		log.Printf("retire replaced otp %s: %v", otp.ID, err)
	}
	writeJSON(w, http.StatusOK, challenge)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PendingToken string `json:"pending_token"`
		OTP          string `json:"otp"`
	}
	if err := decodeJSON(r, &req); err != nil || req.PendingToken == "" || req.OTP == "" {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	otp, err := s.store.GetOTPByPendingToken(r.Context(), req.PendingToken)
	if err != nil || otp.Used || otp.Code == "" {
		otpVerifications.WithLabelValues("invalid_token").Inc()
		writeError(w, http.StatusBadRequest, "invalid_pending_token")
		return
	}
	now := time.Now().UTC()
	if now.After(otp.ExpiresAt) {
		otpVerifications.WithLabelValues("expired").Inc()
		writeError(w, http.StatusBadRequest, "otp_expired")
		return
	}

	if req.OTP != otp.Code {
		attempts, err := s.store.IncrementOTPAttempts(r.Context(), otp.ID)
		if err != nil {
			log.Printf("bump otp attempts %s: %v", otp.ID, err)
		}
		if attempts >= s.cfg.OTPMaxAttempts {
			if err := s.store.MarkOTPUsed(r.Context(), otp.ID); err != nil {
				log.Printf("retire exhausted otp %s: %v", otp.ID, err)
			}
			otpVerifications.WithLabelValues("attempts_exceeded").Inc()
			writeError(w, http.StatusBadRequest, "otp_attempts_exceeded")
			return
		}
		otpVerifications.WithLabelValues("wrong_code").Inc()
		writeError(w, http.StatusBadRequest, "invalid_otp")
		return
	}

	if err := s.store.MarkOTPUsed(r.Context(), otp.ID); err != nil {
		log.Printf("mark otp used %s: %v", otp.ID, err)
		writeError(w, http.StatusInternalServerError, "otp_verify_failed")
		return
	}
	otpVerifications.WithLabelValues("success").Inc()

	switch otp.Purpose {
	case model.PurposeResetPassword:
		s.issueResetTicket(w, r, otp)
	default:
		s.completeOTPLogin(w, r, otp)
	}
}

func (s *Server) completeOTPLogin(w http.ResponseWriter, r *http.Request, otp model.EmailOTP) {
	person, err := s.store.GetPersonByEmail(r.Context(), otp.Role, otp.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	studentNumber := ""
	if otp.Role == "student" {
		if student, err := s.store.GetStudentByID(r.Context(), person.ID); err == nil {
			studentNumber = student.StudentNumber
		}
	}

	resp, err := s.issueTokens(r.Context(), person, otp.Role, studentNumber, r)
	if err != nil {
		log.Printf("issue tokens after otp for %s failed: %v", person.Email, err)
		writeError(w, http.StatusInternalServerError, "token_issue_failed")
		return
	}
	s.audit(r.Context(), person.Email, otp.Role, "login", "authentication", "success", "Logged in with OTP", clientIP(r))
	writeJSON(w, http.StatusOK, resp)
}

// issueResetTicket trades a verified reset code for a short-lived ticket
// that the confirm call consumes. The ticket row carries no code so it
// can never be replayed through verify.
func (s *Server) issueResetTicket(w http.ResponseWriter, r *http.Request, otp model.EmailOTP) {
	ticket, err := crypto.NewPendingToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reset_ticket_failed")
		return
	}
	now := time.Now().UTC()
	row := model.EmailOTP{
		ID:           uuid.NewString(),
		Email:        otp.Email,
		Purpose:      model.PurposeResetPassword,
		Role:         otp.Role,
		PendingToken: ticket,
		CreatedAt:    now,
		ExpiresAt:    now.Add(resetTicketTTL),
	}
	if err := s.store.CreateOTP(r.Context(), row); err != nil {
		log.Printf("create reset ticket for %s: %v", otp.Email, err)
		writeError(w, http.StatusInternalServerError, "reset_ticket_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pending_token": ticket})
}

func (s *Server) handlePasswordResetSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email          string `json:"email"`
		Role           string `json:"role"`
		RecaptchaToken string `json:"recaptcha_token,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Role == "" {
		req.Role = "student"
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "missing_email")
		return
	}
	if !s.loginGate(w, r, "reset:"+req.Role, req.RecaptchaToken) {
		return
	}

	// Respond the same whether or not the account exists.
	person, err := s.store.GetPersonByEmail(r.Context(), req.Role, req.Email)
	if err != nil {
		writeJSON(w, http.StatusOK, otpChallengeResponse{
			OTPRequired:  true,
			PendingToken: "",
			Email:        maskEmail(req.Email),
			ExpiresAt:    time.Now().UTC().Add(s.cfg.OTPTTL).Format(time.RFC3339),
		})
		return
	}

	challenge, err := s.startOTP(r.Context(), person.Email, req.Role, model.PurposeResetPassword)
	if err != nil {
		log.Printf("reset otp for %s failed: %v", person.Email, err)
		writeError(w, http.StatusInternalServerError, "otp_send_failed")
		return
	}
	s.audit(r.Context(), person.Email, req.Role, "password_reset_requested", "authentication", "success", "Reset code sent", clientIP(r))
	writeJSON(w, http.StatusOK, challenge)
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PendingToken string `json:"pending_token"`
		NewPassword  string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.PendingToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	ticket, err := s.store.GetOTPByPendingToken(r.Context(), req.PendingToken)
	if err != nil || ticket.Used || ticket.Code != "" || ticket.Purpose != model.PurposeResetPassword {
		writeError(w, http.StatusBadRequest, "invalid_pending_token")
		return
	}
	if time.Now().UTC().After(ticket.ExpiresAt) {
		writeError(w, http.StatusBadRequest, "reset_ticket_expired")
		return
	}
	if err := validatePassword(req.NewPassword, ticket.Email); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weak_password", "detail": err.Error()})
		return
	}

	person, err := s.store.GetPersonByEmail(r.Context(), ticket.Role, ticket.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pending_token")
		return
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "password_update_failed")
		return
	}
	if err := s.store.UpdatePersonPassword(r.Context(), ticket.Role, person.ID, hash); err != nil {
		log.Printf("reset password for %s: %v", person.Email, err)
		writeError(w, http.StatusInternalServerError, "password_update_failed")
		return
	}
	if err := s.store.MarkOTPUsed(r.Context(), ticket.ID); err != nil {
		log.Printf("consume reset ticket %s: %v", ticket.ID, err)
	}
	if err := s.store.RevokeRefreshSessionsByUser(r.Context(), person.ID, time.Now().UTC()); err != nil {
		log.Printf("revoke sessions for %s: %v", person.ID, err)
	}

	// The reset proved control of the mailbox, so sign the user in with
	// their fresh password.
	person.MustChangePassword = false
	studentNumber := ""
	if ticket.Role == "student" {
		if student, err := s.store.GetStudentByID(r.Context(), person.ID); err == nil {
			studentNumber = student.StudentNumber
		}
	}
	resp, err := s.issueTokens(r.Context(), person, ticket.Role, studentNumber, r)
	if err != nil {
		log.Printf("issue tokens after reset for %s: %v", person.Email, err)
		writeError(w, http.StatusInternalServerError, "token_issue_failed")
		return
	}

	s.audit(r.Context(), person.Email, ticket.Role, "password_reset", "authentication", "success", "Password reset", clientIP(r))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStudentChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentNumber string `json:"student_number"`
		OldPassword   string `json:"old_password"`
		NewPassword   string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.StudentNumber = strings.TrimSpace(req.StudentNumber)
	if req.StudentNumber == "" || req.OldPassword == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	student, err := s.store.GetStudentByNumber(r.Context(), req.StudentNumber)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	s.changePassword(w, r, student.Person, "student", student.StudentNumber, req.OldPassword, req.NewPassword)
}

func (s *Server) handleFacultyChangePassword(w http.ResponseWriter, r *http.Request) {
	s.emailChangePassword(w, r, "faculty")
}

func (s *Server) handleDepartmentHeadChangePassword(w http.ResponseWriter, r *http.Request) {
	s.emailChangePassword(w, r, "department_head")
}

func (s *Server) emailChangePassword(w http.ResponseWriter, r *http.Request, role string) {
	var req struct {
		Email       string `json:"email"`
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.OldPassword == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	person, err := s.store.GetPersonByEmail(r.Context(), role, req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	s.changePassword(w, r, person, role, "", req.OldPassword, req.NewPassword)
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request, person model.Person, role, studentNumber, oldPassword, newPassword string) {
	if err := crypto.CheckPassword(person.PasswordHash, oldPassword); err != nil {
		s.audit(r.Context(), person.Email, role, "change_password", "authentication", "failure", "Invalid credentials", clientIP(r))
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err := validatePassword(newPassword, person.Email); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weak_password", "detail": err.Error()})
		return
	}
	if newPassword == oldPassword {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weak_password", "detail": "new password must differ from the old one"})
		return
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "password_update_failed")
		return
	}
	if err := s.store.UpdatePersonPassword(r.Context(), role, person.ID, hash); err != nil {
		log.Printf("change password for %s: %v", person.Email, err)
		writeError(w, http.StatusInternalServerError, "password_update_failed")
		return
	}

	// Return a fresh session so a forced rotation lands the user on
	// their dashboard without a second login.
	person.MustChangePassword = false
	resp, err := s.issueTokens(r.Context(), person, role, studentNumber, r)
	if err != nil {
		log.Printf("issue tokens after change for %s: %v", person.Email, err)
		writeError(w, http.StatusInternalServerError, "token_issue_failed")
		return
	}

	s.audit(r.Context(), person.Email, role, "change_password", "authentication", "success", "Password changed", clientIP(r))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	session, err := s.store.GetRefreshSession(r.Context(), crypto.HashToken(req.Refresh))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}
	now := time.Now().UTC()
	if session.RevokedAt != nil || now.After(session.ExpiresAt) {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}

	person, err := s.store.GetPersonByID(r.Context(), session.UserType, session.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}

	// Rotate: the presented token is revoked, a new pair is issued.
	if err := s.store.RevokeRefreshSession(r.Context(), session.ID, now); err != nil {
		log.Printf("revoke rotated session %s: %v", session.ID, err)
	}

	studentNumber := ""
	if session.UserType == "student" {
		if student, err := s.store.GetStudentByID(r.Context(), person.ID); err == nil {
			studentNumber = student.StudentNumber
		}
	}

	resp, err := s.issueTokens(r.Context(), person, session.UserType, studentNumber, r)
	if err != nil {
		log.Printf("refresh tokens for %s failed: %v", person.Email, err)
		writeError(w, http.StatusInternalServerError, "token_issue_failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTouch records activity on a refresh session so the cleanup job's
// idle sweep spares it. Clients call this alongside their own idle
// tracking.
func (s *Server) handleTouch(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	session, err := s.store.GetRefreshSession(r.Context(), crypto.HashToken(req.Refresh))
	if err != nil || session.UserID != claims.UserID || session.RevokedAt != nil {
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
		return
	}

	if err := s.store.TouchRefreshSession(r.Context(), session.ID, time.Now().UTC()); err != nil {
		log.Printf("touch session %s: %v", session.ID, err)
		writeError(w, http.StatusInternalServerError, "touch_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	var req struct {
		Refresh string `json:"refresh,omitempty"`
	}
	_ = decodeJSON(r, &req)

	now := time.Now().UTC()
	if req.Refresh != "" {
		session, err := s.store.GetRefreshSession(r.Context(), crypto.HashToken(req.Refresh))
		if err == nil && session.UserID == claims.UserID {
			if err := s.store.RevokeRefreshSession(r.Context(), session.ID, now); err != nil {
				log.Printf("revoke session %s: %v", session.ID, err)
			}
		}
	} else if err := s.store.RevokeRefreshSessionsByUser(r.Context(), claims.UserID, now); err != nil {
		log.Printf("revoke sessions for %s: %v", claims.UserID, err)
	}

	s.audit(r.Context(), claims.UserID, claims.UserType, "logout", "authentication", "success", "Logged out", clientIP(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	person, err := s.store.GetPersonByID(r.Context(), claims.UserType, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}

	studentNumber := ""
	if claims.UserType == "student" {
		if student, err := s.store.GetStudentByID(r.Context(), person.ID); err == nil {
			studentNumber = student.StudentNumber
		}
	}
	writeJSON(w, http.StatusOK, summarize(person, claims.UserType, studentNumber))
}

// handleStudentMe returns the student's profile with their enrolled
// modules and per-module evaluation availability.
func (s *Server) handleStudentMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims.UserType != "student" {
		writeError(w, http.StatusForbidden, "students_only")
		return
	}

	student, err := s.store.GetStudentByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "student_not_found")
		return
	}
	enrolled, err := s.store.ListEnrolledModules(r.Context(), student.ID)
	if err != nil {
		log.Printf("list enrolled modules for %s: %v", student.ID, err)
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}

	modules := make([]map[string]interface{}, 0, len(enrolled))
	for _, row := range enrolled {
		modules = append(modules, map[string]interface{}{
			"id":                   row.Module.ID,
			"subject_code":         row.Module.SubjectCode,
			"module_name":          row.Module.ModuleName,
			"semester":             row.Module.Semester,
			"academic_year":        row.Module.AcademicYear,
			"instructor_name":      row.InstructorName,
			"enrolled_at":          row.EnrolledAt.Format(time.RFC3339),
			"evaluation_available": row.Available,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":             summarize(student.Person, "student", student.StudentNumber),
		"program":          student.Program,
		"year_level":       student.YearLevel,
		"enrolled_modules": modules,
	})
}

// issueTokens mints an access JWT and a refresh token, persisting the
// refresh session keyed by the token's hash.
func (s *Server) issueTokens(ctx context.Context, person model.Person, role, studentNumber string, r *http.Request) (tokenResponse, error) {
	access, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID:             person.ID,
		UserType:           role,
		Department:         person.Department,
		MustChangePassword: person.MustChangePassword,
	})
	if err != nil {
		return tokenResponse{}, err
	}

	refresh, err := crypto.NewRefreshToken()
	if err != nil {
		return tokenResponse{}, err
	}

	now := time.Now().UTC()
	session := model.RefreshSession{
		ID:         uuid.NewString(),
		UserID:     person.ID,
		UserType:   role,
		TokenHash:  crypto.HashToken(refresh),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.RefreshTokenTTL),
		LastSeenAt: now,
	}
	if r != nil {
		if ua := r.UserAgent(); ua != "" {
			session.UserAgent = &ua
		}
		if ip := clientIP(r); ip != "" {
			session.IPAddress = &ip
		}
	}
	if err := s.store.CreateRefreshSession(ctx, session); err != nil {
		return tokenResponse{}, err
	}

	return tokenResponse{
		Access:  access,
		Refresh: refresh,
		Token:   access,
		User:    summarize(person, role, studentNumber),
	}, nil
}

func summarize(person model.Person, role, studentNumber string) userSummary {
	return userSummary{
		ID:                 person.ID,
		FirstName:          person.FirstName,
		LastName:           person.LastName,
		Email:              person.Email,
		UserType:           role,
		Department:         person.Department,
		StudentNumber:      studentNumber,
		MustChangePassword: person.MustChangePassword,
	}
}

// maskEmail keeps the first and last character of the local part, so the
// owner can recognize the address without it being fully disclosed.
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return local[:1] + "***" + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + domain
}
