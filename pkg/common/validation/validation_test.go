package validation

import (
	"errors"
	"testing"

	vferrors "github.com/voxflow/voxflow/pkg/common/errors"
)

func TestValidatePositive(t *testing.T) {
	if err := ValidatePositive("workerpool", "WorkerCount", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidatePositive("workerpool", "WorkerCount", 0); err == nil {
		t.Fatal("expected error for zero value")
	}
	if err := ValidatePositive("workerpool", "WorkerCount", -1); err == nil {
		t.Fatal("expected error for negative value")
	}
}

func TestValidatePositiveFloat(t *testing.T) {
	if err := ValidatePositiveFloat("smooth", "fwhm", 8.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidatePositiveFloat("smooth", "fwhm", 0); err == nil {
		t.Fatal("expected error for zero value")
	}
}

func TestValidateNotEmpty(t *testing.T) {
	if err := ValidateNotEmpty("workflow", "name", "smoothflow"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := ValidateNotEmpty("workflow", "name", "")
	if err == nil {
		t.Fatal("expected error for empty string")
	}
	if !errors.Is(err, vferrors.ErrInvalidConfiguration) {
		t.Fatalf("error should match ErrInvalidConfiguration, got %v", err)
	}
}

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"smooth", "skull-strip", "sub01", "anat.T1", "a_b"}
	for _, name := range valid {
		if err := ValidateIdentifier("node", "name", name); err != nil {
			t.Errorf("ValidateIdentifier(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "_fwhm", "a/b", "a b", "a\tb"}
	for _, name := range invalid {
		if err := ValidateIdentifier("node", "name", name); err == nil {
			t.Errorf("ValidateIdentifier(%q) = nil, want error", name)
		}
	}
}
