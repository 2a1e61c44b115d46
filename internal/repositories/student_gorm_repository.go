package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studentrecords/internal/apperrors"
	"studentrecords/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMStudentRepository is a GORM implementation of StudentRepository.
type GORMStudentRepository struct {
	db *gorm.DB
}

// NewGORMStudentRepository creates a new instance of GORMStudentRepository.
func NewGORMStudentRepository(db *gorm.DB) *GORMStudentRepository {
	return &GORMStudentRepository{
		db: db,
	}
}

// scoped starts a fresh query over students filtered by q. Each call returns
// a new chain so Count and Find do not share statement state.
func (r *GORMStudentRepository) scoped(ctx context.Context, q StudentQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&models.Student{})
	if !q.IncludeDeleted {
		tx = tx.Where("deleted_at IS NULL")
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		tx = tx.Where(
			"(LOWER(first_name) LIKE ? ESCAPE '!' OR LOWER(last_name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!')",
			pattern, pattern, pattern,
		)
	}
	return tx
}

// Find retrieves the students matching q, newest first.
func (r *GORMStudentRepository) Find(ctx context.Context, q StudentQuery) ([]models.Student, int64, error) {
	var total int64
	if err := r.scoped(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count students: %w", err)
	}

	if q.Offset < 0 {
		return []models.Student{}, total, nil
	}

	tx := r.scoped(ctx, q).Order("created_at DESC").Order("id DESC")
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	students := make([]models.Student, 0)
	if err := tx.Find(&students).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find students: %w", err)
	}
	return students, total, nil
}

// GetByID retrieves a single student by its ID.
func (r *GORMStudentRepository) GetByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("student with ID %s: %w", id, apperrors.ErrStudentNotFound)
		}
		return nil, fmt.Errorf("failed to get student by ID %s: %w", id, err)
	}
	return &student, nil
}

// GetByEmail retrieves a single student by email, deleted or not.
func (r *GORMStudentRepository) GetByEmail(ctx context.Context, email string) (*models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("student with email %s: %w", email, apperrors.ErrStudentNotFound)
		}
		return nil, fmt.Errorf("failed to get student by email %s: %w", email, err)
	}
	return &student, nil
}

// Create inserts a new student.
func (r *GORMStudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(student).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("failed to create student: %w", apperrors.ErrEmailAlreadyExists)
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// Update writes every mutable column of student, including cleared optional
// fields.
func (r *GORMStudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Student{}).Where("id = ?", student.ID).Updates(map[string]interface{}{
		"first_name":   student.FirstName,
		"last_name":    student.LastName,
		"email":        student.Email,
		"phone_number": student.PhoneNumber,
		"gender":       student.Gender,
		"birthdate":    student.Birthdate,
		"deleted_at":   student.DeletedAt,
		"updated_at":   student.UpdatedAt,
	})
	if res.Error != nil {
		if isDuplicateKey(res.Error) {
			return fmt.Errorf("failed to update student: %w", apperrors.ErrEmailAlreadyExists)
		}
		return fmt.Errorf("failed to update student: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("student with ID %s not updated: %w", student.ID, apperrors.ErrStudentNotFound)
	}
	return nil
}

// Delete permanently removes a student by its ID.
func (r *GORMStudentRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Student{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete student: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// escapeLike makes term match literally inside a LIKE pattern using '!' as
// the escape character.
func escapeLike(term string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(term)
}

// isDuplicateKey reports whether err is a unique constraint violation.
// gorm.ErrDuplicatedKey is only produced when TranslateError is enabled, so
// driver messages are checked too.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
