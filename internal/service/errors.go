package service

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ErrValidation marks malformed or out-of-range client input. Wrap it with the detail.
var ErrValidation = errors.New("validation failed")

// IsValidationError reports whether err stems from invalid client input.
func IsValidationError(err error) bool {
	if errors.Is(err, ErrValidation) {
		return true
	}
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
