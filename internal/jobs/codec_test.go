package jobs

import (
	"errors"
	"testing"
	"time"
)

func TestEncodeDecode_NewMessage(t *testing.T) {
	payload := NewMessagePayload{
		MessageID:  "msg-1",
		SenderID:   "patient-1",
		ReceiverID: "therapist-1",
		SentAt:     time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	b, err := EncodePayload(JobNotifyNewMessage, payload)
	if err != nil {
		t.Fatalf("EncodePayload error: %v", err)
	}

	decoded, err := DecodePayload(JobNotifyNewMessage, b)
	if err != nil {
		t.Fatalf("DecodePayload error: %v", err)
	}

	p, ok := decoded.(NewMessagePayload)
	if !ok {
		t.Fatalf("expected NewMessagePayload, got %T", decoded)
	}

	if p.MessageID != payload.MessageID || !p.SentAt.Equal(payload.SentAt) {
		t.Fatalf("unexpected payload after round trip: %+v", p)
	}
}

func TestEncodePayload_TypeMismatch(t *testing.T) {
	_, err := EncodePayload(JobNotifyNewMessage, PatientAssignedPayload{
		TherapistID: "t1",
		PatientID:   "p1",
	})
	if !errors.Is(err, ErrPayloadTypeMismatch) {
		t.Fatalf("expected ErrPayloadTypeMismatch, got %v", err)
	}
}

func TestEncodePayload_UnknownType(t *testing.T) {
	_, err := EncodePayload(JobType("export.csv"), NewMessagePayload{})
	if !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestValidatePayload_RequiredIDs(t *testing.T) {
	err := ValidatePayload(JobNotifyPatientAssigned, &PatientAssignedPayload{TherapistID: "  "})
	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}

func TestDecodePayload_BadJSON(t *testing.T) {
	_, err := DecodePayload(JobNotifyPatientAssigned, []byte(`{"therapistId":`))
	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}

	_, err = DecodePayload(JobNotifyPatientAssigned, nil)
	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload for empty payload, got %v", err)
	}
}
