package notifications

import "context"

type NewMessageInput struct {
	MessageID      string
	SenderID       string
	RecipientID    string
	RecipientEmail string
	RecipientName  string
}

type PatientAssignedInput struct {
	AssignmentID  string
	TherapistID   string
	TherapistName string
	PatientID     string
	PatientEmail  string
	PatientName   string
}

// Notifier delivers the side-channel notices the outbox worker produces.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, in NewMessageInput) error
	NotifyPatientAssigned(ctx context.Context, in PatientAssignedInput) error
}
