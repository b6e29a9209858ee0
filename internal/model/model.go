package model

import "time"

// Person holds the columns shared by students, faculty and department
// heads. Each role lives in its own table; callers track which table a
// loaded person came from.
type Person struct {
	ID                 string
	Email              string
	PasswordHash       string
	FirstName          string
	LastName           string
	Department         *string
	MustChangePassword bool
	OTPEnabled         bool
	PasswordChangedAt  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Student struct {
	Person
	StudentNumber string
	Program       *string
	YearLevel     *int
}

type Faculty struct {
	Person
	Active bool
}

type DepartmentHead struct {
	Person
	Active bool
}

type Module struct {
	ID           string
	SubjectCode  string
	ModuleName   string
	Department   string
	Semester     string
	AcademicYear string
}

// EnrolledModule ties a student to a module, optionally with the faculty
// member assigned to teach it.
type EnrolledModule struct {
	ID         string
	StudentID  string
	ModuleID   string
	FacultyID  *string
	EnrolledAt time.Time
}

type FormStatus string

const (
	FormStatusActive FormStatus = "Active"
	FormStatusDraft  FormStatus = "Draft"
)

type ModuleEvaluationForm struct {
	ID                 string
	SubjectCode        string
	SubjectDescription *string
	Status             FormStatus
	Description        *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type InstructorEvaluationForm struct {
	ID             string
	InstructorName string
	FacultyID      *string
	Status         FormStatus
	Description    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type QuestionType string

const (
	QuestionRating  QuestionType = "rating"
	QuestionComment QuestionType = "comment"
	QuestionScale   QuestionType = "scale"
	QuestionText    QuestionType = "text"
)

type EvaluationQuestion struct {
	ID           string
	Code         *string
	QuestionText string
	QuestionType QuestionType
	Position     *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FeedbackResponse is one answer to one question, keyed by a pseudonym so
// submissions stay anonymous while duplicates stay detectable.
type FeedbackResponse struct {
	ID          string
	FormID      string
	FormKind    string // "module" or "instructor"
	Pseudonym   string
	QuestionID  string
	Rating      *int
	Comment     *string
	SubmittedAt time.Time
}

type AuditLog struct {
	ID        string
	User      string
	Role      string
	Action    string
	Category  string
	Status    string
	Message   string
	IP        *string
	Timestamp time.Time
}

type OTPPurpose string

const (
	PurposeLogin         OTPPurpose = "login"
	PurposeResetPassword OTPPurpose = "reset_password"
)

// EmailOTP is one outstanding second-factor challenge, correlated to its
// send/verify calls by the opaque pending token.
type EmailOTP struct {
	ID           string
	Email        string
	Code         string
	Purpose      OTPPurpose
	Role         string
	PendingToken string
	Attempts     int
	CreatedAt    time.Time
	ExpiresAt    time.Time
	Used         bool
}

type RefreshSession struct {
	ID         string
	UserID     string
	UserType   string
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastSeenAt time.Time
	RevokedAt  *time.Time
	UserAgent  *string
	IPAddress  *string
}
