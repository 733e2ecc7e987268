package core

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the only accepted wire format for dates.
const DateLayout = "2006-01-02"

const (
	EntryLogged  EventType = "entry.logged"
	EntryUpdated EventType = "entry.updated"
	EntryDeleted EventType = "entry.deleted"
)

type (
	EventType string

	// Date is a calendar date at UTC midnight.
	Date struct {
		time.Time
	}

	// Entry is a single block of logged work.
	Entry struct {
		ID          string // Stable identifier, kept across edits
		Date        Date
		Hours       float64
		Description string
	}

	// EntryEvent describes a change applied to the entry sequence.
	EntryEvent struct {
		Type  EventType
		Index int // Position the change applied to
		Entry Entry
		At    time.Time
	}
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidIndex = errors.New("invalid index")
	ErrInvalidHours = errors.New("invalid hours")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Any other shape, or a date that does
// not exist on the calendar, yields ErrInvalidDate.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String renders the date back as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Within reports whether d falls in [start, end], both ends inclusive.
func (d Date) Within(start, end Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}

// Equal compares two dates by calendar day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

func (e Entry) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
