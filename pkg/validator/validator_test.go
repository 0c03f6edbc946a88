package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type reportPayload struct {
	IncidentType string `json:"incident_type" validate:"required"`
	Severity     string `json:"severity" validate:"required,oneof=critical high medium low"`
	ContactPhone string `json:"contact_phone" validate:"required,len=10,numeric"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := reportPayload{
		IncidentType: "medical",
		Severity:     "critical",
		ContactPhone: "5551234567",
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	payload := reportPayload{
		IncidentType: "",
		Severity:     "urgent",
		ContactPhone: "555-123",
	}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(vErrs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d", len(vErrs))
	}

	foundPhone := false
	for _, v := range vErrs {
		if v.Field == "contact_phone" {
			foundPhone = true
		}
	}

	if !foundPhone {
		t.Fatal("expected contact_phone field to be present in validation errors")
	}
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("responderid", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return len(value) > 4 && value[:4] == "RES-"
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	type custom struct {
		Value string `validate:"responderid"`
	}

	if err := ValidateStruct(custom{Value: "RES-0001"}); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
	if err := ValidateStruct(custom{Value: "0001"}); err == nil {
		t.Fatal("expected validation to fail for non-matching value")
	}
}
