package postgres

import (
	"context"

	"github.com/geocoder89/coter/internal/domain/job"
	"github.com/geocoder89/coter/internal/domain/message"
	"github.com/geocoder89/coter/internal/jobs"
	"github.com/geocoder89/coter/internal/observability"
	"github.com/geocoder89/coter/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessagesRepo struct {
	pool *pgxpool.Pool
	jobs *JobsRepo
	prom *observability.Prom
}

func NewMessagesRepo(pool *pgxpool.Pool, jobsRepo *JobsRepo, prom *observability.Prom) *MessagesRepo {
	return &MessagesRepo{pool: pool, jobs: jobsRepo, prom: prom}
}

func (repo *MessagesRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Send stores m and enqueues the receiver's notification in one transaction.
func (repo *MessagesRepo) Send(ctx context.Context, m message.Message, requestID string) (out message.Message, err error) {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = repo.observe("messages.send.insert", func() error {
		_, e := tx.Exec(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content, created_at)
		VALUES ($1,$2,$3,$4,$5)
		`, m.ID, m.SenderID, m.ReceiverID, m.Content, m.CreatedAt)
		return e
	})
	if err != nil {
		return
	}

	raw, err := jobs.EncodePayload(jobs.JobNotifyNewMessage, jobs.NewMessagePayload{
		MessageID:  m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		SentAt:     m.CreatedAt,
		RequestID:  requestID,
	})
	if err != nil {
		return
	}

	key := "message:notify:" + m.ID

	_, err = repo.jobs.CreateTx(ctx, tx, job.CreateRequest{
		Type:           string(jobs.JobNotifyNewMessage),
		Payload:        raw,
		IdempotencyKey: &key,
	})
	if err != nil {
		return
	}

	if err = tx.Commit(ctx); err != nil {
		return
	}

	out = m
	return
}

// ListConversation pages through the messages exchanged by f.A and f.B in
// chronological order. A zero AfterCreatedAt starts from the first message.
func (repo *MessagesRepo) ListConversation(ctx context.Context, f message.ListFilter) (items []message.Message, nextCursor *string, hasMore bool, err error) {
	op := "messages.list_conversation"

	q := `
		SELECT id, sender_id, receiver_id, content, created_at
		FROM messages
		WHERE ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		  AND (created_at, id) > ($3, $4)
		ORDER BY created_at ASC, id ASC
		LIMIT $5
	`

	afterID := f.AfterID
	if afterID == "" {
		afterID = "00000000-0000-0000-0000-000000000000"
	}

	limitPlusOne := f.Limit + 1

	var rows pgx.Rows
	err = repo.observe(op, func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, q, f.A, f.B, f.AfterCreatedAt, afterID, limitPlusOne)
		return qerr
	})
	if err != nil {
		return nil, nil, false, err
	}
	defer rows.Close()

	out := make([]message.Message, 0, f.Limit)

	for rows.Next() {
		var m message.Message
		if scanErr := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt); scanErr != nil {
			return nil, nil, false, scanErr
		}
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, nil, false, rows.Err()
	}

	if len(out) > f.Limit {
		hasMore = true
		out = out[:f.Limit]
		last := out[len(out)-1]
		cur, encErr := utils.EncodeMessageCursor(last.CreatedAt, last.ID)
		if encErr != nil {
			return nil, nil, false, encErr
		}
		nextCursor = &cur
	}

	return out, nextCursor, hasMore, nil
}
