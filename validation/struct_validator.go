package validation

import (
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/diarizer/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report json names so messages match what the client sent.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return toSnakeCase(fld.Name)
			}
			return name
		})
	})
	return validate
}

// Validate checks s against its `validate` struct tags. Failures are
// returned as a 400 AppError listing every offending field.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed")
	}

	v := New()
	for _, e := range validationErrors {
		v.AddError(e.Field(), formatValidationError(e))
	}
	return v.Validate()
}

// ValidateSlice validates each element, prefixing field names with the
// element's index (segments[3].start).
func ValidateSlice[T any](field string, items []T) error {
	v := New()
	for i := range items {
		err := getValidator().Struct(items[i])
		if err == nil {
			continue
		}
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			v.AddError(indexed(field, i, ""), "is invalid")
			continue
		}
		for _, e := range validationErrors {
			v.AddError(indexed(field, i, e.Field()), formatValidationError(e))
		}
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func indexed(field string, i int, sub string) string {
	var b strings.Builder
	b.WriteString(field)
	b.WriteByte('[')
	b.WriteString(strconv.Itoa(i))
	b.WriteByte(']')
	if sub != "" {
		b.WriteByte('.')
		b.WriteString(sub)
	}
	return b.String()
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gtefield":
		return "must not be less than " + toSnakeCase(e.Param())
	case "ltefield":
		return "must not be greater than " + toSnakeCase(e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				result.WriteRune('_')
			}
			r += 'a' - 'A'
		}
		result.WriteRune(r)
	}
	return result.String()
}
