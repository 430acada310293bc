package jobs

import "time"

// NewMessagePayload tells the receiver of a message that something is waiting.
// Keep payloads ID-based; the content itself never leaves the database.
type NewMessagePayload struct {
	MessageID  string    `json:"messageId"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	SentAt     time.Time `json:"sentAt"`
	RequestID  string    `json:"requestId,omitempty"`
}

// PatientAssignedPayload tells a patient which therapist now follows them.
type PatientAssignedPayload struct {
	AssignmentID string `json:"assignmentId"`
	TherapistID  string `json:"therapistId"`
	PatientID    string `json:"patientId"`
	RequestID    string `json:"requestId,omitempty"`
}
