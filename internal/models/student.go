package models

import (
	"encoding/json"
	"time"
)

// Gender values accepted for a student.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// Genders lists the accepted gender values in display order.
var Genders = []string{GenderMale, GenderFemale, GenderOther}

// Status is the delete state of a stored student. A purged student has no
// status because it no longer exists.
type Status string

const (
	StatusActive  Status = "Active"
	StatusDeleted Status = "Deleted"
)

// Student represents a student record.
//
// The delete state lives in DeletedAt alone: nil means active, non-nil means
// soft-deleted since that instant. IsDeleted is derived from it, so the two
// can never disagree.
type Student struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)"`
	FirstName   string     `gorm:"type:varchar(100);not null"`
	LastName    string     `gorm:"type:varchar(100);not null"`
	Email       string     `gorm:"uniqueIndex;type:varchar(255);not null"`
	PhoneNumber *string    `gorm:"type:varchar(15)"`
	Gender      string     `gorm:"type:varchar(10);not null"`
	Birthdate   *time.Time `gorm:"type:date"`
	DeletedAt   *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"index"`
	UpdatedAt   time.Time
}

// IsDeleted reports whether the student is soft-deleted.
func (s *Student) IsDeleted() bool {
	return s.DeletedAt != nil
}

// Status returns the current delete state.
func (s *Student) Status() Status {
	if s.IsDeleted() {
		return StatusDeleted
	}
	return StatusActive
}

// MarkDeleted moves an active student to the soft-deleted state. Calling it
// on an already deleted student keeps the original timestamp.
func (s *Student) MarkDeleted(at time.Time) {
	if s.DeletedAt == nil {
		t := at
		s.DeletedAt = &t
	}
}

// Restore returns the student to the active state.
func (s *Student) Restore() {
	s.DeletedAt = nil
}

// FullName joins first and last name.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

type studentJSON struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email"`
	PhoneNumber *string    `json:"phoneNumber,omitempty"`
	Gender      string     `json:"gender"`
	Birthdate   *time.Time `json:"birthdate,omitempty"`
	IsDeleted   bool       `json:"isDeleted"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// MarshalJSON renders the API representation, including the derived isDeleted flag.
func (s Student) MarshalJSON() ([]byte, error) {
	return json.Marshal(studentJSON{
		ID:          s.ID,
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		Email:       s.Email,
		PhoneNumber: s.PhoneNumber,
		Gender:      s.Gender,
		Birthdate:   s.Birthdate,
		IsDeleted:   s.IsDeleted(),
		DeletedAt:   s.DeletedAt,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	})
}

// UnmarshalJSON reads the API representation. isDeleted is ignored in favour
// of deletedAt.
func (s *Student) UnmarshalJSON(data []byte) error {
	var raw studentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Student{
		ID:          raw.ID,
		FirstName:   raw.FirstName,
		LastName:    raw.LastName,
		Email:       raw.Email,
		PhoneNumber: raw.PhoneNumber,
		Gender:      raw.Gender,
		Birthdate:   raw.Birthdate,
		DeletedAt:   raw.DeletedAt,
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
	}
	return nil
}

// CreateStudentRequest is the body accepted when creating a student.
type CreateStudentRequest struct {
	FirstName   string `json:"firstName" validate:"required,min=2"`
	LastName    string `json:"lastName" validate:"required,min=2"`
	Email       string `json:"email" validate:"required,email"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,phone"`
	Gender      string `json:"gender" validate:"required,oneof=Male Female Other"`
	Birthdate   string `json:"birthdate" validate:"omitempty,isodate"`
}

// UpdateStudentRequest is a partial patch: nil fields keep their stored
// value, an empty phoneNumber or birthdate clears it.
type UpdateStudentRequest struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
	Gender      *string `json:"gender"`
	Birthdate   *string `json:"birthdate"`
}
