package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"studentrecords/internal/apperrors"
	"studentrecords/internal/logger"
	"studentrecords/internal/models"
	"studentrecords/internal/repositories"
	"studentrecords/pkg/rabbitmq"
)

// EventPublisher receives student lifecycle events.
type EventPublisher interface {
	PublishStudentEvent(event rabbitmq.StudentEvent) error
}

// ListingConfig bounds the page size accepted by List.
type ListingConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// ListParams are the listing options taken from the query string.
type ListParams struct {
	Page        int
	Limit       int
	Search      string
	ShowDeleted bool
}

// StudentService handles business logic related to students.
type StudentService struct {
	repo      repositories.StudentRepository
	events    EventPublisher
	validator *Validator
	listing   ListingConfig
	now       func() time.Time
}

// NewStudentService creates a new StudentService. events may be nil.
func NewStudentService(repo repositories.StudentRepository, events EventPublisher, listing ListingConfig) *StudentService {
	if listing.DefaultLimit < 1 {
		listing.DefaultLimit = 10
	}
	if listing.MaxLimit < listing.DefaultLimit {
		listing.MaxLimit = listing.DefaultLimit
	}
	return &StudentService{
		repo:      repo,
		events:    events,
		validator: NewValidator(),
		listing:   listing,
		now:       time.Now,
	}
}

// SetClock replaces the time source used for timestamps.
func (s *StudentService) SetClock(now func() time.Time) {
	s.now = now
}

// List returns one page of students matching p.
func (s *StudentService) List(ctx context.Context, p ListParams) (*models.StudentPage, error) {
	page := p.Page
	if page < 1 {
		page = 1
	}
	limit := p.Limit
	if limit < 1 {
		limit = s.listing.DefaultLimit
	}
	if limit > s.listing.MaxLimit {
		limit = s.listing.MaxLimit
	}
	// Keep (page-1)*limit inside int.
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}

	students, total, err := s.repo.Find(ctx, repositories.StudentQuery{
		Search:         strings.TrimSpace(p.Search),
		IncludeDeleted: p.ShowDeleted,
		Limit:          limit,
		Offset:         (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	if students == nil {
		students = []models.Student{}
	}

	return &models.StudentPage{
		Students:   students,
		Pagination: models.NewPagination(page, limit, total),
	}, nil
}

// Get retrieves a single student by its ID, deleted or not.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates req and stores a new active student.
func (s *StudentService) Create(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	req = normalizeCreate(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, req.Email, ""); err != nil {
		return nil, err
	}

	now := s.now()
	student := &models.Student{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Gender:      req.Gender,
		PhoneNumber: optionalString(req.PhoneNumber),
		Birthdate:   optionalDate(req.Birthdate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, student); err != nil {
		return nil, err
	}
	s.publish(rabbitmq.EventStudentCreated, student)
	return student, nil
}

// Update applies the non-nil fields of req to the student with the given ID.
// The merged record is validated with the same rules as Create.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := models.CreateStudentRequest{
		FirstName: student.FirstName,
		LastName:  student.LastName,
		Email:     student.Email,
		Gender:    student.Gender,
	}
	if student.PhoneNumber != nil {
		merged.PhoneNumber = *student.PhoneNumber
	}
	if student.Birthdate != nil {
		merged.Birthdate = student.Birthdate.Format(dateLayout)
	}
	patch(&merged.FirstName, req.FirstName)
	patch(&merged.LastName, req.LastName)
	patch(&merged.Email, req.Email)
	patch(&merged.PhoneNumber, req.PhoneNumber)
	patch(&merged.Gender, req.Gender)
	patch(&merged.Birthdate, req.Birthdate)
	merged = normalizeCreate(merged)

	if err := s.validator.Struct(merged); err != nil {
		return nil, err
	}
	if merged.Email != student.Email {
		if err := s.ensureEmailFree(ctx, merged.Email, student.ID); err != nil {
			return nil, err
		}
	}

	student.FirstName = merged.FirstName
	student.LastName = merged.LastName
	student.Email = merged.Email
	student.Gender = merged.Gender
	if req.PhoneNumber != nil {
		student.PhoneNumber = optionalString(merged.PhoneNumber)
	}
	if req.Birthdate != nil {
		student.Birthdate = optionalDate(merged.Birthdate)
	}

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, err
	}
	s.publish(rabbitmq.EventStudentUpdated, student)
	return student, nil
}

// SoftDelete marks the student deleted. Deleting an already deleted student
// succeeds and leaves it unchanged.
func (s *StudentService) SoftDelete(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if student.IsDeleted() {
		return student, nil
	}

	student.MarkDeleted(s.now())
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, err
	}
	s.publish(rabbitmq.EventStudentDeleted, student)
	return student, nil
}

// Restore returns the student to the active state, whatever its current state.
func (s *StudentService) Restore(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	student.Restore()
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, err
	}
	s.publish(rabbitmq.EventStudentRestored, student)
	return student, nil
}

// PermanentDelete removes the student from storage. It cannot be undone.
func (s *StudentService) PermanentDelete(ctx context.Context, id string) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("student with ID %s: %w", id, apperrors.ErrStudentNotFound)
	}
	s.publish(rabbitmq.EventStudentPurged, &models.Student{ID: id})
	return nil
}

// ExportSelection returns every student to include in an export.
func (s *StudentService) ExportSelection(ctx context.Context, showDeleted bool) ([]models.Student, error) {
	students, _, err := s.repo.Find(ctx, repositories.StudentQuery{IncludeDeleted: showDeleted})
	if err != nil {
		return nil, fmt.Errorf("failed to select students for export: %w", err)
	}
	if len(students) == 0 {
		return nil, apperrors.ErrNoStudentsToExport
	}
	return students, nil
}

// ensureEmailFree is a fast path for the common conflict; the storage unique
// index still decides races.
func (s *StudentService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrStudentNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check email: %w", err)
	}
	if existing.ID != selfID {
		return apperrors.ErrEmailAlreadyExists
	}
	return nil
}

func (s *StudentService) publish(event string, student *models.Student) {
	if s.events == nil {
		return
	}
	err := s.events.PublishStudentEvent(rabbitmq.StudentEvent{
		Event:      event,
		StudentID:  student.ID,
		Email:      student.Email,
		OccurredAt: s.now(),
	})
	if err != nil {
		logger.Warn().Err(err).Str("event", event).Str("student_id", student.ID).Msg("failed to publish student event")
	}
}

func normalizeCreate(req models.CreateStudentRequest) models.CreateStudentRequest {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Gender = strings.TrimSpace(req.Gender)
	req.Birthdate = strings.TrimSpace(req.Birthdate)
	return req
}

// optionalString maps an empty value to nil.
func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// optionalDate maps an empty value to nil. v has already passed validation.
func optionalDate(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := ParseBirthdate(v)
	if err != nil {
		return nil
	}
	return &t
}

func patch(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
