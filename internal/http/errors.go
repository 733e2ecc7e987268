package http

import (
	"errors"
	"fmt"

	"timebill/internal/core"
)

// User-facing messages rendered into pages.
const (
	msgLogged  = "Time logged successfully!"
	msgUpdated = "Entry updated successfully!"
	msgDeleted = "Entry deleted successfully!"

	msgInvalidDate  = "Invalid date format. Please use YYYY-MM-DD."
	msgInvalidIndex = "Invalid item ID."
	msgInvalidHours = "Invalid hours value. Please enter a number."
	msgUnexpected   = "Unexpected error, please retry."
)

// FormError reports a required form field that was missing or empty.
type FormError struct {
	Field string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// errorMessage maps a handler error to the message shown on the page.
// The boolean is false for errors the user cannot fix.
func errorMessage(err error) (string, bool) {
	var fe *FormError
	switch {
	case errors.As(err, &fe):
		return fmt.Sprintf("Missing required field: %s.", fe.Field), true
	case errors.Is(err, core.ErrInvalidIndex):
		return msgInvalidIndex, true
	case errors.Is(err, core.ErrInvalidDate):
		return msgInvalidDate, true
	case errors.Is(err, core.ErrInvalidHours):
		return msgInvalidHours, true
	default:
		return msgUnexpected, false
	}
}
