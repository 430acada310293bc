package jobs

import "strings"

// ValidatePayload checks that payload matches t and carries the required IDs.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	trim := func(s string) string { return strings.TrimSpace(s) }

	switch t {
	case JobNotifyNewMessage:
		var p NewMessagePayload
		switch v := payload.(type) {
		case NewMessagePayload:
			p = v
		case *NewMessagePayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.MessageID) == "" || trim(p.SenderID) == "" || trim(p.ReceiverID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case JobNotifyPatientAssigned:
		var p PatientAssignedPayload
		switch v := payload.(type) {
		case PatientAssignedPayload:
			p = v
		case *PatientAssignedPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.AssignmentID) == "" || trim(p.TherapistID) == "" || trim(p.PatientID) == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
