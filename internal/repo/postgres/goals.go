package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/coter/internal/domain/goal"
	"github.com/geocoder89/coter/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GoalsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewGoalsRepo(pool *pgxpool.Pool, prom *observability.Prom) *GoalsRepo {
	return &GoalsRepo{pool: pool, prom: prom}
}

func (r *GoalsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const goalColumns = `id, patient_id, therapist_id, title, description, status, due_date, created_at, updated_at`

func scanGoal(row pgx.Row) (goal.Goal, error) {
	var g goal.Goal
	var status string

	if err := row.Scan(&g.ID, &g.PatientID, &g.TherapistID, &g.Title, &g.Description, &status, &g.DueDate, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return goal.Goal{}, err
	}
	g.Status = goal.Status(status)
	return g, nil
}

func (r *GoalsRepo) Create(ctx context.Context, g goal.Goal) (goal.Goal, error) {
	err := r.observe("goals.create", func() error {
		_, err := r.pool.Exec(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, g.ID, g.PatientID, g.TherapistID, g.Title, g.Description, string(g.Status), g.DueDate, g.CreatedAt, g.UpdatedAt)
		return err
	})
	if err != nil {
		return goal.Goal{}, err
	}
	return g, nil
}

func (r *GoalsRepo) GetByID(ctx context.Context, id string) (goal.Goal, error) {
	var g goal.Goal

	err := r.observe("goals.get_by_id", func() error {
		var err error
		g, err = scanGoal(r.pool.QueryRow(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return goal.Goal{}, goal.ErrNotFound
		}
		return goal.Goal{}, err
	}
	return g, nil
}

func (r *GoalsRepo) ListByPatient(ctx context.Context, patientID string) ([]goal.Goal, error) {
	var rows pgx.Rows

	err := r.observe("goals.list_by_patient", func() error {
		var err error
		rows, err = r.pool.Query(ctx, `
		SELECT `+goalColumns+`
		FROM goals
		WHERE patient_id = $1
		ORDER BY created_at DESC, id ASC
		`, patientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]goal.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes every mutable field of g and returns the stored row.
func (r *GoalsRepo) Update(ctx context.Context, g goal.Goal) (goal.Goal, error) {
	var out goal.Goal

	err := r.observe("goals.update", func() error {
		var err error
		out, err = scanGoal(r.pool.QueryRow(ctx, `
		UPDATE goals
		SET title = $2,
		    description = $3,
		    status = $4,
		    due_date = $5,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+goalColumns,
			g.ID, g.Title, g.Description, string(g.Status), g.DueDate))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return goal.Goal{}, goal.ErrNotFound
		}
		return goal.Goal{}, err
	}
	return out, nil
}

func (r *GoalsRepo) UpdateStatus(ctx context.Context, id string, status goal.Status) (goal.Goal, error) {
	var out goal.Goal

	err := r.observe("goals.update_status", func() error {
		var err error
		out, err = scanGoal(r.pool.QueryRow(ctx, `
		UPDATE goals
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+goalColumns, id, string(status)))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return goal.Goal{}, goal.ErrNotFound
		}
		return goal.Goal{}, err
	}
	return out, nil
}

func (r *GoalsRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("goals.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM goals WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return goal.ErrNotFound
	}
	return nil
}
