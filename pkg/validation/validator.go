package validation

import (
	"errors"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Get returns the shared validator. Field names in errors come from the
// `env` struct tag when present.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(envTagName)
	})
	return validate
}

func envTagName(f reflect.StructField) string {
	if name := f.Tag.Get("env"); name != "" && name != "-" {
		return name
	}
	return f.Name
}

// ValidateStruct validates a struct against its `validate` tags and converts
// field failures into a *ValidationError
func ValidateStruct(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return NewValidationError(fieldErrs)
	}
	return err
}
