package postgres

import (
	"context"

	"github.com/geocoder89/coter/internal/domain/checkin"
	"github.com/geocoder89/coter/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CheckInsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCheckInsRepo(pool *pgxpool.Pool, prom *observability.Prom) *CheckInsRepo {
	return &CheckInsRepo{pool: pool, prom: prom}
}

func (r *CheckInsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *CheckInsRepo) Create(ctx context.Context, c checkin.CheckIn) (checkin.CheckIn, error) {
	err := r.observe("checkins.create", func() error {
		_, err := r.pool.Exec(ctx, `
		INSERT INTO checkins (id, patient_id, mood_score, anxiety_score, energy_score, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, c.ID, c.PatientID, c.MoodScore, c.AnxietyScore, c.EnergyScore, c.Notes, c.CreatedAt)
		return err
	})
	if err != nil {
		return checkin.CheckIn{}, err
	}
	return c, nil
}

// ListByPatient returns the patient's check-ins, newest first.
func (r *CheckInsRepo) ListByPatient(ctx context.Context, patientID string) ([]checkin.CheckIn, error) {
	var rows pgx.Rows

	err := r.observe("checkins.list_by_patient", func() error {
		var err error
		rows, err = r.pool.Query(ctx, `
		SELECT id, patient_id, mood_score, anxiety_score, energy_score, notes, created_at
		FROM checkins
		WHERE patient_id = $1
		ORDER BY created_at DESC, id ASC
		`, patientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]checkin.CheckIn, 0)

	for rows.Next() {
		var c checkin.CheckIn
		if err := rows.Scan(&c.ID, &c.PatientID, &c.MoodScore, &c.AnxietyScore, &c.EnergyScore, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		if r.prom != nil {
			r.prom.DbErrorsTotal.WithLabelValues("checkins.list_by_patient", "rows_err").Inc()
		}
		return nil, err
	}

	return out, nil
}
