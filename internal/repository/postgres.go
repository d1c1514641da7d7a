package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"registrar/internal/model"
)

// ErrNotFound is returned by every store implementation when a lookup
// misses, so callers never depend on driver error types.
var ErrNotFound = errors.New("record not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetCredentialByEmail(ctx context.Context, email string) (model.Credential, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, first_name, last_name, role, active, created_at, updated_at
		FROM credentials
		WHERE email = $1
	`, email)
	return scanCredential(row)
}

func (s *Store) GetCredentialByID(ctx context.Context, id string) (model.Credential, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, first_name, last_name, role, active, created_at, updated_at
		FROM credentials
		WHERE id = $1
	`, id)
	return scanCredential(row)
}

func scanCredential(row pgx.Row) (model.Credential, error) {
	var cred model.Credential
	err := row.Scan(
		&cred.ID,
		&cred.Email,
		&cred.PasswordHash,
		&cred.FirstName,
		&cred.LastName,
		&cred.Role,
		&cred.Active,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Credential{}, ErrNotFound
	}
	return cred, err
}

func (s *Store) CreateCredential(ctx context.Context, cred model.Credential) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO credentials (id, email, password_hash, first_name, last_name, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, cred.ID, cred.Email, cred.PasswordHash, cred.FirstName, cred.LastName, cred.Role, cred.Active, cred.CreatedAt, cred.UpdatedAt)
	return err
}

func (s *Store) CreateSession(ctx context.Context, session model.RefreshSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_sessions (id, credential_id, token_hash, created_at, expires_at, revoked_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, session.ID, session.CredentialID, session.TokenHash, session.CreatedAt, session.ExpiresAt, session.RevokedAt, session.UserAgent, session.IPAddress)
	return err
}

func (s *Store) GetSessionByTokenHash(ctx context.Context, tokenHash string) (model.RefreshSession, error) {
	var session model.RefreshSession
	row := s.pool.QueryRow(ctx, `
		SELECT id, credential_id, token_hash, created_at, expires_at, revoked_at, user_agent, ip_address
		FROM refresh_sessions
		WHERE token_hash = $1
	`, tokenHash)
	err := row.Scan(&session.ID, &session.CredentialID, &session.TokenHash, &session.CreatedAt, &session.ExpiresAt, &session.RevokedAt, &session.UserAgent, &session.IPAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RefreshSession{}, ErrNotFound
	}
	return session, err
}

// RevokeSession claims the session for revocation. It reports true only
// when this call set revoked_at, so concurrent rotations with the same
// token produce exactly one winner.
func (s *Store) RevokeSession(ctx context.Context, sessionID string, revokedAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE refresh_sessions
		SET revoked_at = $1
		WHERE id = $2 AND revoked_at IS NULL
	`, revokedAt, sessionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) RevokeSessionsByCredential(ctx context.Context, credentialID string, revokedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE refresh_sessions
		SET revoked_at = $1
		WHERE credential_id = $2 AND revoked_at IS NULL
	`, revokedAt, credentialID)
	return err
}

func (s *Store) CreateGrade(ctx context.Context, grade model.Grade) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO grades (id, student_id, subject_id, exam_id, score, max_score, percentage, letter_grade, grade_point,
			academic_year, semester, graded_by_teacher_id, comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, grade.ID, grade.StudentID, grade.SubjectID, grade.ExamID, grade.Score, grade.MaxScore, grade.Percentage,
		grade.LetterGrade, grade.GradePoint, grade.AcademicYear, grade.Semester, grade.GradedByTeacherID,
		grade.Comments, grade.CreatedAt, grade.UpdatedAt)
	return err
}

func (s *Store) GetGrade(ctx context.Context, id string) (model.Grade, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, student_id, subject_id, exam_id, score, max_score, percentage, letter_grade, grade_point,
			academic_year, semester, graded_by_teacher_id, comments, created_at, updated_at
		FROM grades
		WHERE id = $1
	`, id)
	return scanGrade(row)
}

func (s *Store) UpdateGrade(ctx context.Context, grade model.Grade) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE grades
		SET student_id = $1, subject_id = $2, exam_id = $3, score = $4, max_score = $5, percentage = $6,
			letter_grade = $7, grade_point = $8, academic_year = $9, semester = $10,
			graded_by_teacher_id = $11, comments = $12, updated_at = $13
		WHERE id = $14
	`, grade.StudentID, grade.SubjectID, grade.ExamID, grade.Score, grade.MaxScore, grade.Percentage,
		grade.LetterGrade, grade.GradePoint, grade.AcademicYear, grade.Semester, grade.GradedByTeacherID,
		grade.Comments, grade.UpdatedAt, grade.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteGrade(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM grades WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListGradesByStudent(ctx context.Context, studentID string) ([]model.Grade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, student_id, subject_id, exam_id, score, max_score, percentage, letter_grade, grade_point,
			academic_year, semester, graded_by_teacher_id, comments, created_at, updated_at
		FROM grades
		WHERE student_id = $1
		ORDER BY created_at
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Grade
	for rows.Next() {
		grade, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, grade)
	}
	return result, rows.Err()
}

func scanGrade(row pgx.Row) (model.Grade, error) {
	var grade model.Grade
	err := row.Scan(
		&grade.ID,
		&grade.StudentID,
		&grade.SubjectID,
		&grade.ExamID,
		&grade.Score,
		&grade.MaxScore,
		&grade.Percentage,
		&grade.LetterGrade,
		&grade.GradePoint,
		&grade.AcademicYear,
		&grade.Semester,
		&grade.GradedByTeacherID,
		&grade.Comments,
		&grade.CreatedAt,
		&grade.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Grade{}, ErrNotFound
	}
	return grade, err
}

func (s *Store) GetStudent(ctx context.Context, studentID string) (model.Student, error) {
	var student model.Student
	row := s.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name
		FROM students
		WHERE id = $1
	`, studentID)
	err := row.Scan(&student.ID, &student.FirstName, &student.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Student{}, ErrNotFound
	}
	return student, err
}
