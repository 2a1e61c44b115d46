package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"studentrecords/internal/models"
)

var csvHeader = []string{
	"ID",
	"First Name",
	"Last Name",
	"Email",
	"Phone Number",
	"Gender",
	"Birthdate",
	"Status",
	"Created At",
}

// CSV writes a header row and one row per student to w.
func (e *Exporter) CSV(w io.Writer, students []models.Student) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for i := range students {
		s := &students[i]
		record := []string{
			s.ID,
			s.FirstName,
			s.LastName,
			s.Email,
			phone(s),
			s.Gender,
			birthdate(s),
			string(s.Status()),
			e.date(s.CreatedAt),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row for student %s: %w", s.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
