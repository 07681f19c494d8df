package jobs

import (
	"testing"
	"time"

	"github.com/booali9/obe-comiler-backend/internal/domain/job"
)

func TestEncodeDecode_FormAlert(t *testing.T) {
	payload := FormAlertPayload{
		FormID:    "form-123",
		RequestID: "req-456",
	}

	b, err := EncodePayload(JobFormAlert, payload)
	if err != nil {
		t.Fatalf("EncodePayload error: %v", err)
	}

	j := job.New(job.CreateRequest{Type: string(JobFormAlert), Payload: b})

	decoded, err := DecodePayload(j)
	if err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}

	p, ok := decoded.(FormAlertPayload)
	if !ok {
		t.Fatalf("expected FormAlertPayload, got %T", decoded)
	}

	if p.FormID != payload.FormID {
		t.Fatalf("expected formId %s, got %s", payload.FormID, p.FormID)
	}
}

func TestEncodePayload_TypeMismatch(t *testing.T) {
	_, err := EncodePayload(JobFormAlert, FormExportPayload{
		RequestedBy: "admin-1",
		RequestedAt: time.Now(),
	})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if err != ErrPayloadTypeMismatch {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestDecodePayload_UnknownType(t *testing.T) {
	j := job.New(job.CreateRequest{Type: "bogus", Payload: []byte(`{}`)})

	if _, err := DecodePayload(j); err != ErrInvalidJobType {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestValidatePayload_RequiredIDs(t *testing.T) {
	if err := ValidatePayload(JobFormAlert, FormAlertPayload{FormID: ""}); err == nil {
		t.Fatalf("expected error")
	}

	if err := ValidatePayload(JobFormExport, FormExportPayload{RequestedBy: ""}); err == nil {
		t.Fatalf("expected error")
	}
}
