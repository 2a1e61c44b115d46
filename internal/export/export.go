// Package export renders student selections as CSV or PDF documents.
package export

import (
	"time"

	"studentrecords/internal/models"
)

const (
	notAvailable = "N/A"
	dateLayout   = "1/2/2006"
	stampLayout  = "1/2/2006, 3:04:05 PM"
)

// Exporter renders students with dates shown in a fixed time zone.
type Exporter struct {
	loc *time.Location
	now func() time.Time
}

// New creates an Exporter. A nil loc means time.Local.
func New(loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{loc: loc, now: time.Now}
}

// SetClock replaces the time source used for the generation timestamp.
func (e *Exporter) SetClock(now func() time.Time) {
	e.now = now
}

func (e *Exporter) date(t time.Time) string {
	return t.In(e.loc).Format(dateLayout)
}

// birthdate is a calendar date, so it is never shifted into another zone.
func birthdate(s *models.Student) string {
	if s.Birthdate == nil {
		return notAvailable
	}
	return s.Birthdate.UTC().Format(dateLayout)
}

func phone(s *models.Student) string {
	if s.PhoneNumber == nil || *s.PhoneNumber == "" {
		return notAvailable
	}
	return *s.PhoneNumber
}
