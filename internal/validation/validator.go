// Package validation checks and cleans moderation input before it reaches the store.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"candor/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// PreviewLength is the number of runes of reported content kept on a report.
const PreviewLength = 200

var (
	once     sync.Once
	validate *validator.Validate
	strict   *bluemonday.Policy
)

func setup() {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		strict = bluemonday.StrictPolicy()
	})
}

// Struct validates v against its `validate` tags. Failures come back as a
// single VALIDATION_ERROR naming every offending field.
func Struct(v any) error {
	setup()
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.NewValidationError(err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, message(fe.Field(), fe.Tag(), fe.Param()))
	}
	return models.NewValidationError(strings.Join(msgs, "; "))
}

func message(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, param)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// Sanitize strips all markup from free text and trims surrounding space.
func Sanitize(s string) string {
	setup()
	return strings.TrimSpace(strict.Sanitize(s))
}

// Preview returns a sanitized excerpt of at most PreviewLength runes.
func Preview(body string) string {
	clean := Sanitize(body)
	if utf8.RuneCountInString(clean) <= PreviewLength {
		return clean
	}
	runes := []rune(clean)
	return string(runes[:PreviewLength])
}
