package http

import (
	"strconv"
	"strings"

	"timebill/internal/core"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, then trims whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		if r == 127 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// entryRow is an entry prepared for display. Hours is rounded for reading;
// HoursValue is the stored value unchanged, used to prefill edit forms.
type entryRow struct {
	Index       int
	ID          string
	Date        string
	Hours       string
	HoursValue  string
	Description string
}

func toRows(items []core.Entry) []entryRow {
	rows := make([]entryRow, 0, len(items))
	for i, e := range items {
		rows = append(rows, entryRow{
			Index:       i,
			ID:          e.ID,
			Date:        e.Date.String(),
			Hours:       core.FormatHours(e.Hours),
			HoursValue:  strconv.FormatFloat(e.Hours, 'f', -1, 64),
			Description: e.Description,
		})
	}
	return rows
}
