package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/domain/assignment"
	"github.com/geocoder89/coter/internal/domain/job"
	"github.com/geocoder89/coter/internal/jobs"
	"github.com/geocoder89/coter/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AssignmentsRepo struct {
	pool *pgxpool.Pool
	jobs *JobsRepo
	prom *observability.Prom
}

func NewAssignmentsRepo(pool *pgxpool.Pool, jobsRepo *JobsRepo, prom *observability.Prom) *AssignmentsRepo {
	return &AssignmentsRepo{pool: pool, jobs: jobsRepo, prom: prom}
}

func (repo *AssignmentsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Assign links the patient with patientEmail to therapistID and enqueues the
// "therapist assigned" notification in the same transaction. Assigning a patient
// already linked to therapistID is a no-op that returns the patient.
func (repo *AssignmentsRepo) Assign(ctx context.Context, therapistID, patientEmail, requestID string) (patient account.Account, err error) {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// 1) lock the patient row so concurrent assigns for one patient serialize
	var patientID, role string

	err = repo.observe("assignments.assign.lock_patient", func() error {
		return tx.QueryRow(ctx, `
		SELECT id, role FROM accounts WHERE email = $1 FOR UPDATE
		`, account.NormalizeEmail(patientEmail)).Scan(&patientID, &role)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = account.ErrNotFound
		}
		return
	}

	if account.Role(role) != account.RolePatient {
		err = assignment.ErrNotAPatient
		return
	}

	// 2) insert; the unique patient_id constraint decides who wins
	a := assignment.New(therapistID, patientID)

	var tag pgconn.CommandTag
	err = repo.observe("assignments.assign.insert", func() error {
		var e error
		tag, e = tx.Exec(ctx, `
		INSERT INTO assignments (id, therapist_id, patient_id, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (patient_id) DO NOTHING
		`, a.ID, a.TherapistID, a.PatientID, a.CreatedAt)
		return e
	})
	if err != nil {
		return
	}

	if tag.RowsAffected() == 0 {
		var current string

		err = repo.observe("assignments.assign.current", func() error {
			return tx.QueryRow(ctx, `SELECT therapist_id::text FROM assignments WHERE patient_id = $1`, patientID).Scan(&current)
		})
		if err != nil {
			return
		}

		if current != therapistID {
			err = assignment.ErrAlreadyAssigned
			return
		}
	} else {
		// 3) enqueue the notification with the write
		var raw []byte
		raw, err = jobs.EncodePayload(jobs.JobNotifyPatientAssigned, jobs.PatientAssignedPayload{
			AssignmentID: a.ID,
			TherapistID:  a.TherapistID,
			PatientID:    a.PatientID,
			RequestID:    requestID,
		})
		if err != nil {
			return
		}

		key := "assignment:notify:" + a.ID

		_, err = repo.jobs.CreateTx(ctx, tx, job.CreateRequest{
			Type:           string(jobs.JobNotifyPatientAssigned),
			Payload:        raw,
			IdempotencyKey: &key,
		})
		if err != nil {
			return
		}
	}

	err = repo.observe("assignments.assign.reload", func() error {
		var e error
		patient, e = scanAccount(tx.QueryRow(ctx, accountSelect+` WHERE a.id = $1`, patientID))
		return e
	})
	if err != nil {
		return
	}

	err = tx.Commit(ctx)
	return
}

// Unassign removes the link between therapistID and patientID.
func (repo *AssignmentsRepo) Unassign(ctx context.Context, therapistID, patientID string) error {
	var tag pgconn.CommandTag

	err := repo.observe("assignments.unassign", func() error {
		var err error
		tag, err = repo.pool.Exec(ctx, `
		DELETE FROM assignments WHERE therapist_id = $1 AND patient_id = $2
		`, therapistID, patientID)
		return err
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return assignment.ErrNotFound
	}
	return nil
}
