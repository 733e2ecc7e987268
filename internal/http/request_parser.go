package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"timebill/internal/core"
	"timebill/internal/services"
)

// maxFormBytes caps urlencoded request bodies.
const maxFormBytes = 64 << 10

// logTimeForm is the body of POST /log_time.
type logTimeForm struct {
	Date        string `form:"date_str" validate:"required"`
	Hours       string `form:"hours" validate:"required"`
	Description string `form:"description"`
}

func (f logTimeForm) input() services.EntryInput {
	return services.EntryInput{Date: f.Date, Hours: f.Hours, Description: f.Description}
}

// editTimeForm is the body of POST /edit_time.
type editTimeForm struct {
	ItemID      string `form:"item_id" validate:"required"`
	Date        string `form:"date_str" validate:"required"`
	Hours       string `form:"hours" validate:"required"`
	Description string `form:"description"`
}

func (f editTimeForm) input() services.EntryInput {
	return services.EntryInput{Date: f.Date, Hours: f.Hours, Description: f.Description}
}

// deleteTimeForm is the body of POST /delete_time.
type deleteTimeForm struct {
	ItemID string `form:"item_id" validate:"required"`
}

// invoiceForm is the body of POST /generate_invoice.
type invoiceForm struct {
	ClientName string `form:"client_name"`
	StartDate  string `form:"start_date" validate:"required"`
	EndDate    string `form:"end_date" validate:"required"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// formValidator reports field errors by their form names.
func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// errBadForm marks bodies that could not be parsed at all.
var errBadForm = errors.New("malformed form body")

// bindForm parses the urlencoded body into dst (a pointer to a struct with
// form tags) and checks required fields. Values are sanitized first.
func bindForm(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %v", errBadForm, err)
	}

	v := reflect.ValueOf(dst).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("form")
		if name == "" || name == "-" {
			continue
		}
		v.Field(i).SetString(sanitizeInput(r.PostForm.Get(name)))
	}

	if err := formValidator().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &FormError{Field: verrs[0].Field()}
		}
		return fmt.Errorf("validate form: %w", err)
	}
	return nil
}

// parseIndex converts an item_id value to a position.
func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("item id %q: %w", s, core.ErrInvalidIndex)
	}
	return i, nil
}
