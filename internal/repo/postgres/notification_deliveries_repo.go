package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/coter/internal/domain/delivery"
	"github.com/geocoder89/coter/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationDeliveriesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewNotificationDeliveriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *NotificationDeliveriesRepo {
	return &NotificationDeliveriesRepo{pool: pool, prom: prom}
}

func (r *NotificationDeliveriesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// TryStart claims the delivery of (kind, subjectID) for jobID. It returns
// delivery.ErrAlreadySent or delivery.ErrInProgress when the claim is not ours.
func (r *NotificationDeliveriesRepo) TryStart(ctx context.Context, kind, subjectID, jobID, recipientID string) error {
	// 1) Insert if missing
	err := r.observe("deliveries.try_start.insert", func() error {
		_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_deliveries (kind, subject_id, job_id, recipient_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'sending', NOW(), NOW())
	`, kind, subjectID, jobID, recipientID)
		return err
	})

	if err == nil {
		return nil
	}
	if !IsUniqueViolation(err) {
		return err
	}

	// 2) Row exists. A failed delivery is claimed back atomically: only one worker flips failed -> sending.
	var tag pgconn.CommandTag
	err = r.observe("deliveries.try_start.reclaim", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
		UPDATE notification_deliveries
		SET status = 'sending',
		    job_id = $3,
		    recipient_id = $4,
		    last_error = NULL,
		    updated_at = NOW()
		WHERE kind = $1 AND subject_id = $2 AND status = 'failed'
	`, kind, subjectID, jobID, recipientID)
		return e
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// 3) Not failed: either sent or being sent.
	var status string
	var sentAt *time.Time

	err = r.observe("deliveries.try_start.status", func() error {
		return r.pool.QueryRow(ctx, `
		SELECT status, sent_at
		FROM notification_deliveries
		WHERE kind = $1 AND subject_id = $2
	`, kind, subjectID).Scan(&status, &sentAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// row disappeared; let caller retry
			return nil
		}
		return err
	}

	if sentAt != nil || status == "sent" {
		return delivery.ErrAlreadySent
	}

	return delivery.ErrInProgress
}

func (r *NotificationDeliveriesRepo) MarkSent(ctx context.Context, kind, subjectID string) error {
	return r.observe("deliveries.mark_sent", func() error {
		_, err := r.pool.Exec(ctx, `
		UPDATE notification_deliveries
		SET status = 'sent',
		    sent_at = NOW(),
		    last_error = NULL,
		    updated_at = NOW()
		WHERE kind = $1 AND subject_id = $2
	`, kind, subjectID)
		return err
	})
}

func (r *NotificationDeliveriesRepo) MarkFailed(ctx context.Context, kind, subjectID, errMsg string) error {
	return r.observe("deliveries.mark_failed", func() error {
		_, err := r.pool.Exec(ctx, `
		UPDATE notification_deliveries
		SET status = 'failed',
		    last_error = $3,
		    updated_at = NOW()
		WHERE kind = $1 AND subject_id = $2
	`, kind, subjectID, errMsg)
		return err
	})
}
