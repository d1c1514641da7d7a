package model

import "time"

type Credential struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RefreshSession struct {
	ID           string
	CredentialID string
	TokenHash    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	UserAgent    *string
	IPAddress    *string
}

// Expired reports whether the session has passed its expiry. The bound
// is inclusive: a session is expired at exactly ExpiresAt.
func (s RefreshSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s RefreshSession) Revoked() bool {
	return s.RevokedAt != nil
}

type Grade struct {
	ID                string
	StudentID         string
	SubjectID         string
	ExamID            *string
	Score             float64
	MaxScore          float64
	Percentage        float64
	LetterGrade       string
	GradePoint        float64
	AcademicYear      string
	Semester          int
	GradedByTeacherID *string
	Comments          *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Student struct {
	ID        string
	FirstName string
	LastName  string
}
