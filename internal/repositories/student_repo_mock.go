package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"studentrecords/internal/apperrors"
	"studentrecords/internal/models"

	"github.com/google/uuid"
)

// MockStudentRepository is an in-memory implementation of StudentRepository.
// The email index is maintained under the same lock as the records, so it
// enforces uniqueness the way a storage-level unique index would.
type MockStudentRepository struct {
	students map[string]models.Student
	byEmail  map[string]string
	mu       sync.RWMutex
}

// NewMockStudentRepository creates a new instance of MockStudentRepository.
func NewMockStudentRepository() *MockStudentRepository {
	return &MockStudentRepository{
		students: make(map[string]models.Student),
		byEmail:  make(map[string]string),
	}
}

// Find returns the students matching q, newest first.
func (r *MockStudentRepository) Find(_ context.Context, q StudentQuery) ([]models.Student, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term := strings.ToLower(q.Search)
	matched := make([]models.Student, 0, len(r.students))
	for _, s := range r.students {
		if !q.IncludeDeleted && s.IsDeleted() {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(s.FirstName), term) &&
			!strings.Contains(strings.ToLower(s.LastName), term) &&
			!strings.Contains(strings.ToLower(s.Email), term) {
			continue
		}
		matched = append(matched, cloneStudent(s))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if q.Offset < 0 || q.Offset >= len(matched) {
		return []models.Student{}, total, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

// GetByID returns a student by its ID.
func (r *MockStudentRepository) GetByID(_ context.Context, id string) (*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.students[id]
	if !ok {
		return nil, fmt.Errorf("student with ID %s: %w", id, apperrors.ErrStudentNotFound)
	}
	s = cloneStudent(s)
	return &s, nil
}

// GetByEmail returns a student by its email, deleted or not.
func (r *MockStudentRepository) GetByEmail(_ context.Context, email string) (*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("student with email %s: %w", email, apperrors.ErrStudentNotFound)
	}
	s := cloneStudent(r.students[id])
	return &s, nil
}

// Create adds a new student.
func (r *MockStudentRepository) Create(_ context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[student.Email]; taken {
		return fmt.Errorf("failed to create student: %w", apperrors.ErrEmailAlreadyExists)
	}
	if student.ID == "" {
		student.ID = uuid.New().String()
	}
	now := time.Now()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	if student.UpdatedAt.IsZero() {
		student.UpdatedAt = student.CreatedAt
	}
	r.students[student.ID] = cloneStudent(*student)
	r.byEmail[student.Email] = student.ID
	return nil
}

// Update replaces a stored student.
func (r *MockStudentRepository) Update(_ context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.students[student.ID]
	if !ok {
		return fmt.Errorf("student with ID %s not updated: %w", student.ID, apperrors.ErrStudentNotFound)
	}
	if owner, taken := r.byEmail[student.Email]; taken && owner != student.ID {
		return fmt.Errorf("failed to update student: %w", apperrors.ErrEmailAlreadyExists)
	}

	student.CreatedAt = old.CreatedAt
	student.UpdatedAt = time.Now()
	delete(r.byEmail, old.Email)
	r.byEmail[student.Email] = student.ID
	r.students[student.ID] = cloneStudent(*student)
	return nil
}

// Delete removes a student by its ID.
func (r *MockStudentRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[id]
	if !ok {
		return false, nil
	}
	delete(r.byEmail, s.Email)
	delete(r.students, id)
	return true, nil
}

// cloneStudent copies the pointer fields so callers cannot mutate stored state.
func cloneStudent(s models.Student) models.Student {
	if s.PhoneNumber != nil {
		p := *s.PhoneNumber
		s.PhoneNumber = &p
	}
	if s.Birthdate != nil {
		b := *s.Birthdate
		s.Birthdate = &b
	}
	if s.DeletedAt != nil {
		d := *s.DeletedAt
		s.DeletedAt = &d
	}
	return s
}
