package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sfme/evaluation/internal/auth"
	"sfme/evaluation/internal/config"
	"sfme/evaluation/internal/mail"
	"sfme/evaluation/internal/model"
	"sfme/evaluation/internal/repository"
)

var (
	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evaluation_login_attempts_total",
		Help: "Login attempts by role and outcome.",
	}, []string{"role", "outcome"})

	otpVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evaluation_otp_verifications_total",
		Help: "OTP verification attempts by outcome.",
	}, []string{"outcome"})
)

type Server struct {
	cfg       config.Config
	store     *repository.Store
	mailer    mail.Mailer
	limiter   *LoginLimiter
	recaptcha *RecaptchaVerifier
}

func NewServer(cfg config.Config, store *repository.Store, mailer mail.Mailer, limiter *LoginLimiter) *Server {
	if mailer == nil {
		mailer = mail.NewLogMailer(cfg.AppName)
	}
	if limiter == nil {
		limiter = NewLoginLimiter(nil, cfg.LoginRateMax, cfg.LoginRateWindow)
	}
	return &Server{
		cfg:       cfg,
		store:     store,
		mailer:    mailer,
		limiter:   limiter,
		recaptcha: NewRecaptchaVerifier(cfg.RecaptchaSecret),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/students/login/", s.handleStudentLogin)
	r.Post("/faculty/login/", s.handleFacultyLogin)
	r.Post("/department-head/login/", s.handleDepartmentHeadLogin)

	r.Post("/otp/send/", s.handleSendOTP)
	r.Post("/otp/verify/", s.handleVerifyOTP)

	r.Post("/password-reset/send/", s.handlePasswordResetSend)
	r.Post("/password-reset/verify/", s.handleVerifyOTP)
	r.Post("/password-reset/confirm/", s.handlePasswordResetConfirm)

	r.Post("/students/change-password/", s.handleStudentChangePassword)
	r.Post("/faculty/change-password/", s.handleFacultyChangePassword)
	r.Post("/department-heads/change-password/", s.handleDepartmentHeadChangePassword)

	r.Post("/auth/refresh/", s.handleRefresh)
	authed := r.With(s.authMiddleware)
	headOnly := r.With(s.authMiddleware, s.requireDepartmentHead)

	authed.Post("/auth/logout/", s.handleLogout)
	authed.Post("/auth/touch/", s.handleTouch)
	authed.Get("/auth/me/", s.handleGetMe)
	authed.Get("/students/me/", s.handleStudentMe)

	headOnly.Get("/students/", s.handleListStudents)
	headOnly.Post("/students/", s.handleCreateStudent)
	headOnly.Post("/students/bulk-import/", s.handleStudentBulkImport)
	authed.Get("/students/{studentID}", s.handleGetStudent)
	headOnly.Patch("/students/{studentID}", s.handlePatchStudent)
	headOnly.Delete("/students/{studentID}", s.handleDeleteStudent)

	authed.Get("/faculty/", s.handleListFaculty)
	headOnly.Post("/faculty/", s.handleCreateFaculty)
	headOnly.Post("/faculty/bulk-import/", s.handleFacultyBulkImport)
	authed.Get("/faculty/{facultyID}", s.handleGetFaculty)
	headOnly.Patch("/faculty/{facultyID}", s.handlePatchFaculty)
	headOnly.Delete("/faculty/{facultyID}", s.handleDeleteFaculty)

	headOnly.Get("/department-heads/", s.handleListDepartmentHeads)
	headOnly.Post("/department-heads/", s.handleCreateDepartmentHead)
	headOnly.Get("/department-heads/{headID}", s.handleGetDepartmentHead)
	headOnly.Delete("/department-heads/{headID}", s.handleDeleteDepartmentHead)

	authed.Get("/modules/", s.handleListModules)
	headOnly.Post("/modules/", s.handleCreateModule)
	headOnly.Post("/modules/enroll/", s.handleEnrollStudent)

	authed.Get("/module-evaluation-forms/", s.handleListModuleForms)
	headOnly.Post("/module-evaluation-forms/", s.handleCreateModuleForm)
	authed.Get("/module-evaluation-forms/{formID}", s.handleGetModuleForm)
	headOnly.Patch("/module-evaluation-forms/{formID}", s.handlePatchModuleForm)
	headOnly.Delete("/module-evaluation-forms/{formID}", s.handleDeleteModuleForm)

	authed.Get("/instructor-evaluation-forms/", s.handleListInstructorForms)
	headOnly.Post("/instructor-evaluation-forms/", s.handleCreateInstructorForm)
	authed.Get("/instructor-evaluation-forms/{formID}", s.handleGetInstructorForm)
	headOnly.Patch("/instructor-evaluation-forms/{formID}", s.handlePatchInstructorForm)
	headOnly.Delete("/instructor-evaluation-forms/{formID}", s.handleDeleteInstructorForm)

	authed.Get("/evaluation-questions/", s.handleListQuestions)
	headOnly.Post("/evaluation-questions/", s.handleCreateQuestion)

	authed.Post("/feedback/submit/", s.handleFeedbackSubmit)
	headOnly.Get("/feedback/submissions/", s.handleListSubmissions)
	authed.Get("/reports/modules/{subjectCode}", s.handleModuleReport)

	headOnly.Get("/audit-logs/", s.handleListAuditLogs)

	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireDepartmentHead(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.UserType != "department_head" {
			writeError(w, http.StatusForbidden, "department_head_only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

// audit records a mutation; failures are logged, never surfaced.
func (s *Server) audit(ctx context.Context, user, role, action, category, status, message, ip string) {
	entry := model.AuditLog{
		ID:        uuid.NewString(),
		User:      user,
		Role:      role,
		Action:    action,
		Category:  category,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if ip != "" {
		entry.IP = &ip
	}
	if err := s.store.InsertAuditLog(ctx, entry); err != nil {
		log.Printf("audit log insert failed: %v", err)
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func queryLimit(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
