package repositories

import (
	"context"

	"studentrecords/internal/models"
)

// StudentQuery selects students for listing and export.
type StudentQuery struct {
	// Search matches case-insensitively as a substring of first name, last
	// name or email. Empty means no search filter.
	Search string
	// IncludeDeleted also returns soft-deleted students.
	IncludeDeleted bool
	// Limit of 0 returns every matching student.
	Limit  int
	Offset int
}

// StudentRepository defines the interface for student data access.
//
// Implementations return apperrors.ErrStudentNotFound for unknown IDs or
// emails and apperrors.ErrEmailAlreadyExists when the storage layer rejects
// a duplicate email. Find orders results by creation time, newest first.
type StudentRepository interface {
	Find(ctx context.Context, q StudentQuery) ([]models.Student, int64, error)
	GetByID(ctx context.Context, id string) (*models.Student, error)
	GetByEmail(ctx context.Context, email string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) (bool, error)
}
