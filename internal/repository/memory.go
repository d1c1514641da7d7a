package repository

import (
	"context"
	"sync"
	"time"

	"registrar/internal/model"
)

// MemoryStore implements the same method set as Store without a
// database. It backs the service and HTTP tests and any deployment that
// does not need durable state.
type MemoryStore struct {
	mu          sync.Mutex
	credentials map[string]model.Credential // by ID
	sessions    map[string]model.RefreshSession
	grades      map[string]model.Grade
	students    map[string]model.Student
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		credentials: make(map[string]model.Credential),
		sessions:    make(map[string]model.RefreshSession),
		grades:      make(map[string]model.Grade),
		students:    make(map[string]model.Student),
	}
}

func (m *MemoryStore) GetCredentialByEmail(_ context.Context, email string) (model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cred := range m.credentials {
		if cred.Email == email {
			return cred, nil
		}
	}
	return model.Credential{}, ErrNotFound
}

func (m *MemoryStore) GetCredentialByID(_ context.Context, id string) (model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.credentials[id]
	if !ok {
		return model.Credential{}, ErrNotFound
	}
	return cred, nil
}

func (m *MemoryStore) CreateCredential(_ context.Context, cred model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[cred.ID] = cred
	return nil
}

// UpdateCredential replaces the stored record; used by tests to flip the
// active flag the way an admin surface would.
func (m *MemoryStore) UpdateCredential(_ context.Context, cred model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.credentials[cred.ID]; !ok {
		return ErrNotFound
	}
	m.credentials[cred.ID] = cred
	return nil
}

func (m *MemoryStore) CreateSession(_ context.Context, session model.RefreshSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *MemoryStore) GetSessionByTokenHash(_ context.Context, tokenHash string) (model.RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range m.sessions {
		if session.TokenHash == tokenHash {
			return session, nil
		}
	}
	return model.RefreshSession{}, ErrNotFound
}

func (m *MemoryStore) RevokeSession(_ context.Context, sessionID string, revokedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok || session.RevokedAt != nil {
		return false, nil
	}
	session.RevokedAt = &revokedAt
	m.sessions[sessionID] = session
	return true, nil
}

func (m *MemoryStore) RevokeSessionsByCredential(_ context.Context, credentialID string, revokedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		if session.CredentialID == credentialID && session.RevokedAt == nil {
			session.RevokedAt = &revokedAt
			m.sessions[id] = session
		}
	}
	return nil
}

func (m *MemoryStore) CreateGrade(_ context.Context, grade model.Grade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grades[grade.ID] = grade
	return nil
}

func (m *MemoryStore) GetGrade(_ context.Context, id string) (model.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	grade, ok := m.grades[id]
	if !ok {
		return model.Grade{}, ErrNotFound
	}
	return grade, nil
}

func (m *MemoryStore) UpdateGrade(_ context.Context, grade model.Grade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.grades[grade.ID]; !ok {
		return ErrNotFound
	}
	m.grades[grade.ID] = grade
	return nil
}

func (m *MemoryStore) DeleteGrade(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.grades[id]; !ok {
		return ErrNotFound
	}
	delete(m.grades, id)
	return nil
}

func (m *MemoryStore) ListGradesByStudent(_ context.Context, studentID string) ([]model.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Grade
	for _, grade := range m.grades {
		if grade.StudentID == studentID {
			result = append(result, grade)
		}
	}
	return result, nil
}

func (m *MemoryStore) GetStudent(_ context.Context, studentID string) (model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	student, ok := m.students[studentID]
	if !ok {
		return model.Student{}, ErrNotFound
	}
	return student, nil
}

func (m *MemoryStore) SeedStudent(student model.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[student.ID] = student
}
