package validation

import (
	"strings"
	"unicode"

	vferrors "github.com/voxflow/voxflow/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return vferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidatePositiveFloat validates that a float64 value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositiveFloat(module, field string, value float64) error {
	if value <= 0 {
		return vferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNotNil validates that an interface value is not nil.
// Returns a ValidationError if the value is nil.
func ValidateNotNil(module, field string, value interface{}) error {
	if value == nil {
		return vferrors.NewValidationError(module, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}

// ValidateNotEmpty validates that a string value is not empty.
// Returns a ValidationError if the string is empty.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return vferrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}

// ValidateIdentifier validates that a string is usable both as a graph
// identifier and as a single path component of the on-disk output layout.
// Leading underscores are rejected because the engine reserves them for
// branch directories.
func ValidateIdentifier(module, field string, value string) error {
	if err := ValidateNotEmpty(module, field, value); err != nil {
		return err
	}
	if strings.HasPrefix(value, "_") {
		return vferrors.NewValidationError(module, field, value, "cannot start with '_'").
			WithHint("underscore-prefixed names are reserved for branch directories")
	}
	for _, r := range value {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case r == '_' || r == '-' || r == '.':
		default:
			return vferrors.NewValidationError(module, field, value, "contains invalid character").
				WithHint("use letters, digits, '_', '-' or '.'")
		}
	}
	return nil
}
