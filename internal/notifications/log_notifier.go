package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrProviderDown = errors.New("provider down (simulated)")

// LogNotifier writes notifications to the structured log. Delay and Fail
// simulate a slow or unavailable provider.
type LogNotifier struct {
	log   *slog.Logger
	Delay time.Duration
	Fail  bool
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) simulate(ctx context.Context) error {
	if n.Delay > 0 {
		select {
		case <-time.After(n.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if n.Fail {
		return ErrProviderDown
	}
	return nil
}

func (n *LogNotifier) NotifyNewMessage(ctx context.Context, in NewMessageInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.new_message",
		"message_id", in.MessageID,
		"sender_id", in.SenderID,
		"recipient_id", in.RecipientID,
		"recipient_email", in.RecipientEmail,
	)
	return nil
}

func (n *LogNotifier) NotifyPatientAssigned(ctx context.Context, in PatientAssignedInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.patient_assigned",
		"assignment_id", in.AssignmentID,
		"therapist_id", in.TherapistID,
		"therapist_name", in.TherapistName,
		"patient_id", in.PatientID,
		"patient_email", in.PatientEmail,
	)
	return nil
}
