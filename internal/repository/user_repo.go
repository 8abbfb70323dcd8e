package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"recipeshare/internal/domain"
)

// UserRepository define el contrato de persistencia para cuentas del proveedor local.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateConfirmation(ctx context.Context, id, codeHash string, expiresAt time.Time) error
	ConfirmEmail(ctx context.Context, id string, confirmedAt time.Time) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, email, password_hash, metadata, email_confirmed_at, confirm_code_hash, confirm_expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	metadata := user.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		metadata,
		user.EmailConfirmedAt,
		nullIfEmpty(user.ConfirmCodeHash),
		user.ConfirmExpiresAt,
		user.CreatedAt,
	)
	if isUniqueViolation(err, "ux_users_email") {
		return domain.ErrEmailTaken
	}
	return translate("create user", err)
}

const selectUser = `
	SELECT id::text, email, password_hash, metadata, email_confirmed_at,
	       coalesce(confirm_code_hash, ''), confirm_expires_at, created_at
	FROM users
`

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, "get user", selectUser+` WHERE id = $1`, id)
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, "get user by email", selectUser+` WHERE lower(email) = lower($1)`, email)
}

func (r *PgUserRepository) getOne(ctx context.Context, op, query string, arg any) (domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Metadata,
		&u.EmailConfirmedAt,
		&u.ConfirmCodeHash,
		&u.ConfirmExpiresAt,
		&u.CreatedAt,
	)
	if err != nil {
		return domain.User{}, translate(op, err)
	}
	return u, nil
}

func (r *PgUserRepository) UpdateConfirmation(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET confirm_code_hash = $2, confirm_expires_at = $3
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, codeHash, expiresAt)
	if err != nil {
		return translate("update confirmation", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgUserRepository) ConfirmEmail(ctx context.Context, id string, confirmedAt time.Time) error {
	const query = `
		UPDATE users
		SET email_confirmed_at = $2, confirm_code_hash = NULL, confirm_expires_at = NULL
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, confirmedAt)
	if err != nil {
		return translate("confirm email", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
