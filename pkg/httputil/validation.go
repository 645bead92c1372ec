package httputil

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/docscan/docscan-backend/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("mrzline", validateMRZLine); err != nil {
		panic(fmt.Sprintf("register mrzline validation: %v", err))
	}
	return v
}

// validateMRZLine accepts letters, digits, the filler and spaces. Case is not
// checked because lines are uppercased before decoding.
func validateMRZLine(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '<', r == ' ':
		default:
			return false
		}
	}
	return true
}

// Validate validates a struct using go-playground/validator
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.BadRequest("invalid request")
	}

	details := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		details[fieldPath(e)] = formatValidationError(e)
	}
	return errors.Validation(details)
}

// fieldPath drops the top-level struct name from the namespace,
// e.g. "DecodeRequest.Lines[1]" becomes "Lines[1]".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return ns
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "must have at least " + e.Param() + " items or characters"
	case "max":
		return "must have at most " + e.Param() + " items or characters"
	case "oneof":
		return "must be one of: " + e.Param()
	case "mrzline":
		return "may only contain A-Z, 0-9 and '<'"
	default:
		return "invalid value"
	}
}
