package db

import (
	"context"
	"errors"

	"github.com/geocoder89/coter/internal/config"
	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/security"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSeedTherapist creates the configured therapist account once. It is a
// no-op when the seed email or password is unset.
func EnsureSeedTherapist(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, hasher *security.Hasher) error {
	if cfg.Seed.Email == "" || cfg.Seed.Password == "" {
		return nil
	}

	email := account.NormalizeEmail(cfg.Seed.Email)

	// check if the account exists

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM accounts WHERE email = $1`, email).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := hasher.Hash(cfg.Seed.Password)

	if err != nil {
		return err
	}

	a := account.New(email, hash, cfg.Seed.FirstName, "", account.RoleTherapist)

	_, err = pool.Exec(ctx,
		`INSERT INTO accounts (id, email, password_hash, first_name, last_name, role, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (email) DO NOTHING
		`,
		a.ID, a.Email, a.PasswordHash, a.FirstName, a.LastName, string(a.Role), a.CreatedAt, a.UpdatedAt,
	)

	return err
}
