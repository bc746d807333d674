package validation

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		expectErr bool
	}{
		{name: "Valid pretty format", format: "pretty"},
		{name: "Valid csv format", format: "csv"},
		{name: "Valid json format", format: "json"},
		{name: "Valid yaml format", format: "yaml"},
		{name: "Invalid format", format: "xml", expectErr: true},
		{name: "Empty format", format: "", expectErr: true},
		{name: "Case sensitive - uppercase", format: "PRETTY", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format)
			if tt.expectErr && err == nil {
				t.Errorf("ValidateOutputFormat(%q) expected error", tt.format)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("ValidateOutputFormat(%q) unexpected error: %v", tt.format, err)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("expected validation error, got %T", err)
			}
		})
	}
}

func TestValidationErrorWrapping(t *testing.T) {
	base := Errorf("importance", "must be between 0 and 1, got %.2f", 1.5)
	wrapped := fmt.Errorf("payables: set supplier importance: %w", base)

	if !errors.Is(wrapped, ErrValidation) {
		t.Fatalf("wrapped validation error should match ErrValidation")
	}

	var verr *ValidationError
	if !errors.As(wrapped, &verr) {
		t.Fatalf("expected errors.As to find *ValidationError")
	}
	if verr.Field != "importance" {
		t.Errorf("field = %q", verr.Field)
	}
	if got := base.Error(); got != "importance: must be between 0 and 1, got 1.50" {
		t.Errorf("unexpected message %q", got)
	}
	if IsValidation(errors.New("boom")) {
		t.Errorf("plain errors are not validation errors")
	}
}
