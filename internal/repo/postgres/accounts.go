package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewAccountsRepo(pool *pgxpool.Pool, prom *observability.Prom) *AccountsRepo {
	return &AccountsRepo{pool: pool, prom: prom}
}

func (r *AccountsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// the assigned therapist lives in assignments; every read joins it in.
const accountSelect = `
	SELECT a.id, a.email, a.password_hash, a.first_name, a.last_name, a.role,
	       s.therapist_id::text, a.created_at, a.updated_at
	FROM accounts a
	LEFT JOIN assignments s ON s.patient_id = a.id
`

func scanAccount(row pgx.Row) (account.Account, error) {
	var a account.Account
	var role string

	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.FirstName,
		&a.LastName,
		&role,
		&a.AssignedTherapistID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return account.Account{}, err
	}

	a.Role = account.Role(role)
	return a, nil
}

// Create inserts a. The unique constraint on email is the only duplicate check,
// so two concurrent registrations for one address cannot both succeed.
func (r *AccountsRepo) Create(ctx context.Context, a account.Account) (account.Account, error) {
	err := r.observe("accounts.create", func() error {
		_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, first_name, last_name, role, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, a.ID, a.Email, a.PasswordHash, a.FirstName, a.LastName, string(a.Role), a.CreatedAt, a.UpdatedAt)
		return err
	})

	if err != nil {
		if uniqueConstraint(err) == "accounts_email_uniq" {
			return account.Account{}, account.ErrEmailTaken
		}
		return account.Account{}, err
	}

	return a, nil
}

func (r *AccountsRepo) GetByEmail(ctx context.Context, email string) (account.Account, error) {
	var a account.Account

	err := r.observe("accounts.get_by_email", func() error {
		var err error
		a, err = scanAccount(r.pool.QueryRow(ctx, accountSelect+` WHERE a.email = $1`, account.NormalizeEmail(email)))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}
	return a, nil
}

func (r *AccountsRepo) GetByID(ctx context.Context, id string) (account.Account, error) {
	var a account.Account

	err := r.observe("accounts.get_by_id", func() error {
		var err error
		a, err = scanAccount(r.pool.QueryRow(ctx, accountSelect+` WHERE a.id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}
	return a, nil
}

// ListPatientsByTherapist returns the therapist's patients, newest assignment first.
func (r *AccountsRepo) ListPatientsByTherapist(ctx context.Context, therapistID string) ([]account.Account, error) {
	var rows pgx.Rows

	err := r.observe("accounts.list_patients_by_therapist", func() error {
		var err error
		rows, err = r.pool.Query(ctx, accountSelect+`
		WHERE s.therapist_id = $1
		ORDER BY s.created_at DESC, a.id ASC
		`, therapistID)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]account.Account, 0)

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
