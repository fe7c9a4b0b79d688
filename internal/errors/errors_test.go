package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestGetServiceError_Unwraps(t *testing.T) {
	base := TenantNotFound("nobody@example.com")
	wrapped := fmt.Errorf("create lease: %w", base)

	got := GetServiceError(wrapped)
	if got == nil {
		t.Fatal("expected service error in chain")
	}
	if got.Code != CodeTenantNotFound {
		t.Fatalf("code = %s", got.Code)
	}
	if got.HTTPStatus != http.StatusNotFound {
		t.Fatalf("status = %d", got.HTTPStatus)
	}
	if got.Details["email"] != "nobody@example.com" {
		t.Fatalf("details = %v", got.Details)
	}
	if !HasCode(wrapped, CodeTenantNotFound) {
		t.Fatal("HasCode should match wrapped error")
	}
}

func TestGetServiceError_PlainError(t *testing.T) {
	if GetServiceError(fmt.Errorf("boom")) != nil {
		t.Fatal("plain error must not convert")
	}
	if HasCode(nil, CodeInternal) {
		t.Fatal("nil error has no code")
	}
}

func TestPersistence_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Persistence("Failed to save property", cause)
	if err.Unwrap() != cause {
		t.Fatal("cause lost")
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Fatalf("status = %d", err.HTTPStatus)
	}
}

func TestValidation_CarriesFields(t *testing.T) {
	err := Validation(FieldError{Field: "rent_amount", Message: "must be greater than 0"})
	if len(err.Fields) != 1 || err.Fields[0].Field != "rent_amount" {
		t.Fatalf("fields = %+v", err.Fields)
	}
}
