//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/geocoder89/coter/internal/db"
	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/domain/assignment"
	"github.com/geocoder89/coter/internal/domain/delivery"
	"github.com/geocoder89/coter/internal/domain/job"
	"github.com/geocoder89/coter/internal/domain/message"
	"github.com/geocoder89/coter/internal/jobs"
	"github.com/geocoder89/coter/internal/repo/postgres"
	"github.com/geocoder89/coter/internal/utils"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "coter",
				"POSTGRES_PASSWORD": "coter",
				"POSTGRES_DB":       "coter_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://coter:coter@%s:%s/coter_test?sslmode=disable", host, port.Port())

	if err := db.Migrate(ctx, dsn); err != nil {
		panic(err)
	}

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, err := db.NewPool(dsn, 20)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func createAccount(t *testing.T, repo *postgres.AccountsRepo, email string, role account.Role) account.Account {
	t.Helper()
	a, err := repo.Create(context.Background(), account.New(email, "$2a$04$hash", "Name", "", role))
	require.NoError(t, err)
	return a
}

func TestAccounts_ConcurrentCreateSameEmail(t *testing.T) {
	pool := newPool(t)
	repo := postgres.NewAccountsRepo(pool, nil)

	const n = 10
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Create(context.Background(), account.New("Race@Example.com", "h", "R", "", account.RolePatient))
		}(i)
	}
	wg.Wait()

	ok, taken := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, account.ErrEmailTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, taken)

	got, err := repo.GetByEmail(context.Background(), "race@example.com")
	require.NoError(t, err)
	assert.Equal(t, "race@example.com", got.Email)
}

func TestAssignments_RulesAndOutbox(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t)

	accounts := postgres.NewAccountsRepo(pool, nil)
	jobsRepo := postgres.NewJobsRepo(pool, nil)
	assignments := postgres.NewAssignmentsRepo(pool, jobsRepo, nil)

	doc := createAccount(t, accounts, "doc-assign@example.com", account.RoleTherapist)
	other := createAccount(t, accounts, "other-assign@example.com", account.RoleTherapist)
	pat := createAccount(t, accounts, "pat-assign@example.com", account.RolePatient)

	_, err := assignments.Assign(ctx, doc.ID, "missing@example.com", "")
	assert.ErrorIs(t, err, account.ErrNotFound)

	_, err = assignments.Assign(ctx, doc.ID, other.Email, "")
	assert.ErrorIs(t, err, assignment.ErrNotAPatient)

	got, err := assignments.Assign(ctx, doc.ID, "PAT-assign@example.com", "req-1")
	require.NoError(t, err)
	assert.True(t, got.IsAssignedTo(doc.ID))

	// idempotent for the same therapist
	_, err = assignments.Assign(ctx, doc.ID, pat.Email, "req-2")
	require.NoError(t, err)

	_, err = assignments.Assign(ctx, other.ID, pat.Email, "")
	assert.ErrorIs(t, err, assignment.ErrAlreadyAssigned)

	patients, err := accounts.ListPatientsByTherapist(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, pat.ID, patients[0].ID)

	var queued int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE type = $1 AND payload->>'patientId' = $2`,
		string(jobs.JobNotifyPatientAssigned), pat.ID).Scan(&queued))
	assert.Equal(t, 1, queued, "exactly one notification job per assignment")

	require.NoError(t, assignments.Unassign(ctx, doc.ID, pat.ID))
	assert.ErrorIs(t, assignments.Unassign(ctx, doc.ID, pat.ID), assignment.ErrNotFound)
}

func TestMessages_SendEnqueuesAndPages(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t)

	accounts := postgres.NewAccountsRepo(pool, nil)
	jobsRepo := postgres.NewJobsRepo(pool, nil)
	messages := postgres.NewMessagesRepo(pool, jobsRepo, nil)

	doc := createAccount(t, accounts, "doc-msg@example.com", account.RoleTherapist)
	pat := createAccount(t, accounts, "pat-msg@example.com", account.RolePatient)

	var sent []message.Message
	for i := 0; i < 5; i++ {
		m, err := messages.Send(ctx, message.New(doc.ID, pat.ID, fmt.Sprintf("note %d", i)), "req")
		require.NoError(t, err)
		sent = append(sent, m)
	}

	j, err := jobsRepo.GetByIdempotencyKey(ctx, "message:notify:"+sent[0].ID)
	require.NoError(t, err)
	assert.Equal(t, string(jobs.JobNotifyNewMessage), j.Type)
	assert.Equal(t, job.StatusPending, j.Status)

	page, next, hasMore, err := messages.ListConversation(ctx, message.ListFilter{A: pat.ID, B: doc.ID, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.True(t, hasMore)
	require.NotNil(t, next)
	assert.Equal(t, sent[0].ID, page[0].ID)

	cur, err := utils.DecodeMessageCursor(*next)
	require.NoError(t, err)

	rest, _, hasMore, err := messages.ListConversation(ctx, message.ListFilter{
		A: doc.ID, B: pat.ID, Limit: 3, AfterCreatedAt: cur.CreatedAt, AfterID: cur.ID,
	})
	require.NoError(t, err)
	assert.Len(t, rest, 2)
	assert.False(t, hasMore)
}

func TestJobs_ClaimIsExclusiveAndDeliveryLedger(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t)

	jobsRepo := postgres.NewJobsRepo(pool, nil)
	ledger := postgres.NewNotificationDeliveriesRepo(pool, nil)

	_, err := pool.Exec(ctx, `DELETE FROM jobs`)
	require.NoError(t, err)

	raw, err := jobs.EncodePayload(jobs.JobNotifyNewMessage, jobs.NewMessagePayload{MessageID: "m", SenderID: "s", ReceiverID: "r"})
	require.NoError(t, err)
	created, err := jobsRepo.Create(ctx, job.CreateRequest{Type: string(jobs.JobNotifyNewMessage), Payload: raw})
	require.NoError(t, err)

	var wg sync.WaitGroup
	claims := make(chan string, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			j, err := jobsRepo.ClaimNext(ctx, fmt.Sprintf("w%d", i))
			if err == nil {
				claims <- j.ID
			}
		}(i)
	}
	wg.Wait()
	close(claims)

	var claimed []string
	for id := range claims {
		claimed = append(claimed, id)
	}
	require.Equal(t, []string{created.ID}, claimed)

	subject := "00000000-0000-0000-0000-0000000000aa"
	recipient := "00000000-0000-0000-0000-0000000000bb"
	require.NoError(t, ledger.TryStart(ctx, "new_message", subject, created.ID, recipient))
	assert.ErrorIs(t, ledger.TryStart(ctx, "new_message", subject, created.ID, recipient), delivery.ErrInProgress)

	require.NoError(t, ledger.MarkFailed(ctx, "new_message", subject, "boom"))
	require.NoError(t, ledger.TryStart(ctx, "new_message", subject, created.ID, recipient))
	require.NoError(t, ledger.MarkSent(ctx, "new_message", subject))
	assert.ErrorIs(t, ledger.TryStart(ctx, "new_message", subject, created.ID, recipient), delivery.ErrAlreadySent)
}
