package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/coter/internal/domain/task"
	"github.com/geocoder89/coter/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TasksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTasksRepo(pool *pgxpool.Pool, prom *observability.Prom) *TasksRepo {
	return &TasksRepo{pool: pool, prom: prom}
}

func (r *TasksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const taskColumns = `id, patient_id, therapist_id, title, description, status, due_date, created_at, updated_at`

func scanTask(row pgx.Row) (task.Task, error) {
	var t task.Task
	var status string

	if err := row.Scan(&t.ID, &t.PatientID, &t.TherapistID, &t.Title, &t.Description, &status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return task.Task{}, err
	}
	t.Status = task.Status(status)
	return t, nil
}

func (r *TasksRepo) Create(ctx context.Context, t task.Task) (task.Task, error) {
	err := r.observe("tasks.create", func() error {
		_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, t.ID, t.PatientID, t.TherapistID, t.Title, t.Description, string(t.Status), t.DueDate, t.CreatedAt, t.UpdatedAt)
		return err
	})
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (r *TasksRepo) GetByID(ctx context.Context, id string) (task.Task, error) {
	var t task.Task

	err := r.observe("tasks.get_by_id", func() error {
		var err error
		t, err = scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}
	return t, nil
}

func (r *TasksRepo) ListByPatient(ctx context.Context, patientID string) ([]task.Task, error) {
	var rows pgx.Rows

	err := r.observe("tasks.list_by_patient", func() error {
		var err error
		rows, err = r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE patient_id = $1
		ORDER BY created_at DESC, id ASC
		`, patientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]task.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TasksRepo) Update(ctx context.Context, t task.Task) (task.Task, error) {
	var out task.Task

	err := r.observe("tasks.update", func() error {
		var err error
		out, err = scanTask(r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = $2,
		    description = $3,
		    status = $4,
		    due_date = $5,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+taskColumns,
			t.ID, t.Title, t.Description, string(t.Status), t.DueDate))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}
	return out, nil
}

func (r *TasksRepo) UpdateStatus(ctx context.Context, id string, status task.Status) (task.Task, error) {
	var out task.Task

	err := r.observe("tasks.update_status", func() error {
		var err error
		out, err = scanTask(r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+taskColumns, id, string(status)))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return task.Task{}, task.ErrNotFound
		}
		return task.Task{}, err
	}
	return out, nil
}

func (r *TasksRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("tasks.delete", func() error {
		var err error
		tag, err = r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}
	return nil
}
