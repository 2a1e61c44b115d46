package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	"studentrecords/internal/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestCustomErrorsUnwrapToSentinels(t *testing.T) {
	wrapped := fmt.Errorf("failed to get student by ID 42: %w", apperrors.ErrStudentNotFound)

	assert.True(t, errors.Is(wrapped, apperrors.ErrStudentNotFound))
	assert.True(t, errors.Is(wrapped, apperrors.ErrResourceNotFound))
	assert.False(t, errors.Is(wrapped, apperrors.ErrConflict))
	assert.Equal(t, "Student not found", apperrors.Message(wrapped, "Server Error"))

	assert.True(t, errors.Is(apperrors.ErrEmailAlreadyExists, apperrors.ErrConflict))
	assert.True(t, errors.Is(apperrors.ErrNoStudentsToExport, apperrors.ErrResourceNotFound))
}

func TestMessageFallsBackForPlainErrors(t *testing.T) {
	assert.Equal(t, "Server Error", apperrors.Message(errors.New("connection refused"), "Server Error"))
}

func TestValidationError(t *testing.T) {
	err := apperrors.NewValidationError(
		apperrors.FieldError{Path: "firstName", Message: "First name is required"},
		apperrors.FieldError{Path: "gender", Message: "Gender must be Male, Female, or Other"},
	)

	var ve *apperrors.ValidationError
	assert.True(t, errors.As(fmt.Errorf("create student: %w", err), &ve))
	assert.Len(t, ve.Errors, 2)
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))
	assert.Contains(t, err.Error(), "firstName: First name is required")
}
