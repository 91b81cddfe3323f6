package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

type structValidator struct {
	validate *validator.Validate
}

var messages = map[string]string{
	"required": "is required",
	"datetime": "must be a date in YYYY-MM-DD format",
	"gtfield":  "must be after %s",
}

// New returns a Validator reporting field names by their json tag.
func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	RegisterJSONTagNames(v)
	return &structValidator{validate: v}
}

// RegisterJSONTagNames makes v report json (or form) tag names instead of Go field names.
func RegisterJSONTagNames(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return fld.Name
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
}

// Validate checks obj against its validate tags. Failures come back as an
// *errors.AppError carrying one FieldError per failed field.
func (v *structValidator) Validate(obj interface{}) error {
	err := v.validate.Struct(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewInternal(err)
	}
	return apperrors.NewValidation("validation failed", FieldErrors(verrs)...)
}

// FieldErrors converts validator errors into API field errors.
func FieldErrors(verrs validator.ValidationErrors) []apperrors.FieldError {
	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, apperrors.FieldError{
			Field:   e.Field(),
			Message: message(e),
		})
	}
	return fields
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "min", "gte":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max", "lte":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", e.Param())
		}
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gtfield":
		return fmt.Sprintf(messages["gtfield"], toSnake(e.Param()))
	}
	if msg, ok := messages[e.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("failed on the '%s' rule", e.Tag())
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
