package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"studentrecords/internal/apperrors"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)

// dateLayout is the canonical birthdate format used in requests and responses.
const dateLayout = "2006-01-02"

// fieldMessages maps a JSON field and failed tag to the message shown to clients.
var fieldMessages = map[string]map[string]string{
	"firstName": {
		"required": "First name is required",
		"min":      "First name must be at least 2 characters",
	},
	"lastName": {
		"required": "Last name is required",
		"min":      "Last name must be at least 2 characters",
	},
	"email": {
		"required": "Email is required",
		"email":    "Please provide a valid email",
	},
	"phoneNumber": {
		"phone": "Please provide a valid phone number",
	},
	"gender": {
		"required": "Gender is required",
		"oneof":    "Gender must be Male, Female, or Other",
	},
	"birthdate": {
		"isodate": "Please provide a valid date",
	},
	"name": {
		"required": "Name is required",
		"min":      "Name must be at least 2 characters",
	},
	"password": {
		"required": "Password is required",
		"min":      "Password must be at least 6 characters",
	},
}

// Validator checks request structs and reports failures per JSON field.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the phone and isodate rules registered.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := ParseBirthdate(fl.Field().String())
		return err == nil
	})
	return &Validator{validate: v}
}

// Struct validates s and returns an *apperrors.ValidationError listing every
// failed field, or nil.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate request: %w", err)
	}

	fieldErrs := make([]apperrors.FieldError, 0, len(verrs))
	for _, e := range verrs {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Path:    e.Field(),
			Message: messageFor(e.Field(), e.Tag()),
		})
	}
	return apperrors.NewValidationError(fieldErrs...)
}

func messageFor(field, tag string) string {
	if msg, ok := fieldMessages[field][tag]; ok {
		return msg
	}
	return fmt.Sprintf("Field '%s' failed on the '%s' tag", field, tag)
}

// ParseBirthdate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar date at midnight UTC.
func ParseBirthdate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q", value)
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
