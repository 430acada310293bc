package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/domain/delivery"
	"github.com/geocoder89/coter/internal/domain/job"
	"github.com/geocoder89/coter/internal/jobs"
	"github.com/geocoder89/coter/internal/notifications"
)

const (
	deliveryKindNewMessage      = "new_message"
	deliveryKindPatientAssigned = "patient_assigned"
)

// permanentError marks failures a retry cannot fix (bad payload, vanished account).
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return permanentError{err: err} }

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// ProcessOne claims and runs a single job. It reports false when the queue is empty.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	w.metrics.IncClaimed()
	start := w.now()

	execCtx, cancelExec := context.WithTimeout(ctx, w.cfg.JobTimeout)
	err = w.execute(execCtx, j)
	cancelExec()

	d := w.now().Sub(start)
	w.metrics.ObserveDuration(d)

	if err != nil {
		w.handleFailure(ctx, j, err, d)
		return true, nil
	}

	if err := w.repo.MarkDone(ctx, j.ID); err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.metrics.IncDone()
	w.prom.ObserveJob(j.Type, "done", d)
	w.log.Info("job done", "job_id", j.ID, "type", j.Type, "attempt", j.Attempts+1, "duration_ms", d.Milliseconds())

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	payload, err := jobs.DecodePayload(jobs.JobType(j.Type), j.Payload)
	if err != nil {
		return permanent(err)
	}

	switch p := payload.(type) {
	case jobs.NewMessagePayload:
		recipient, err := w.lookup(ctx, p.ReceiverID)
		if err != nil {
			return err
		}

		in := notifications.NewMessageInput{
			MessageID:      p.MessageID,
			SenderID:       p.SenderID,
			RecipientID:    recipient.ID,
			RecipientEmail: recipient.Email,
			RecipientName:  recipient.FirstName,
		}

		return w.deliver(ctx, j, deliveryKindNewMessage, p.MessageID, recipient.ID, func(ctx context.Context) error {
			return w.notifier.NotifyNewMessage(ctx, in)
		})

	case jobs.PatientAssignedPayload:
		patient, err := w.lookup(ctx, p.PatientID)
		if err != nil {
			return err
		}
		therapist, err := w.lookup(ctx, p.TherapistID)
		if err != nil {
			return err
		}

		in := notifications.PatientAssignedInput{
			AssignmentID:  p.AssignmentID,
			TherapistID:   therapist.ID,
			TherapistName: therapist.FirstName,
			PatientID:     patient.ID,
			PatientEmail:  patient.Email,
			PatientName:   patient.FirstName,
		}

		return w.deliver(ctx, j, deliveryKindPatientAssigned, p.AssignmentID, patient.ID, func(ctx context.Context) error {
			return w.notifier.NotifyPatientAssigned(ctx, in)
		})

	default:
		return permanent(fmt.Errorf("%w: %s", jobs.ErrInvalidJobType, j.Type))
	}
}

func (w *Worker) lookup(ctx context.Context, id string) (account.Account, error) {
	a, err := w.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, permanent(fmt.Errorf("recipient %s: %w", id, err))
		}
		return account.Account{}, err
	}
	return a, nil
}

// deliver sends at most once per (kind, subjectID) across retries and workers.
func (w *Worker) deliver(ctx context.Context, j job.Job, kind, subjectID, recipientID string, send func(context.Context) error) error {
	err := w.deliveries.TryStart(ctx, kind, subjectID, j.ID, recipientID)

	if errors.Is(err, delivery.ErrAlreadySent) {
		w.metrics.IncDuplicate()
		w.log.Info("notification already sent", "job_id", j.ID, "kind", kind, "subject_id", subjectID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := send(ctx); err != nil {
		if markErr := w.deliveries.MarkFailed(context.WithoutCancel(ctx), kind, subjectID, err.Error()); markErr != nil {
			w.log.Error("mark delivery failed", "job_id", j.ID, "kind", kind, "err", markErr)
		}
		return err
	}

	// the notice is out; a ledger write failure must not trigger a resend
	if err := w.deliveries.MarkSent(context.WithoutCancel(ctx), kind, subjectID); err != nil {
		w.log.Error("mark delivery sent", "job_id", j.ID, "kind", kind, "err", err)
	}

	return nil
}

func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error, d time.Duration) {
	msg := cause.Error()

	if isPermanent(cause) || j.Exhausted() {
		if err := w.repo.MarkFailed(ctx, j.ID, msg); err != nil {
			w.log.Error("mark job failed", "job_id", j.ID, "err", err)
		}
		w.metrics.IncFailed()
		w.prom.ObserveJob(j.Type, "failed", d)
		w.log.Error("job failed", "job_id", j.ID, "type", j.Type, "attempt", j.Attempts+1, "err", cause)
		return
	}

	delay := w.backoff(j.Attempts)
	runAt := w.now().Add(delay)

	if err := w.repo.Reschedule(ctx, j.ID, runAt, msg); err != nil {
		w.log.Error("reschedule job", "job_id", j.ID, "err", err)
		return
	}

	w.metrics.IncRetried()
	w.prom.ObserveJob(j.Type, "retried", d)
	w.log.Warn("job retry scheduled", "job_id", j.ID, "type", j.Type, "attempt", j.Attempts+1, "retry_in", delay.String(), "err", cause)
}
