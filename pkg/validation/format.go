// Package validation provides the validation error taxonomy and common
// validation utilities.
package validation

import (
	"errors"
	"fmt"

	"github.com/iwvelando/cashflow-planner/pkg/constants"
)

// ErrValidation is matched by every validation failure via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidation) match any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Errorf builds a *ValidationError for field with a formatted message.
func Errorf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON, constants.OutputFormatYAML:
		return nil
	}
	return Errorf("output.format", "expected output format of %s, %s, %s or %s, got %s",
		constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON, constants.OutputFormatYAML, format)
}
