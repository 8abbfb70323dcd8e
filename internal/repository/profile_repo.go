package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"recipeshare/internal/domain"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile domain.Profile) error
	GetByID(ctx context.Context, id string) (domain.Profile, error)
	GetByUsername(ctx context.Context, username string) (domain.Profile, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Profile, error)
	Update(ctx context.Context, profile domain.Profile) error
	GetStats(ctx context.Context, id string) (domain.ProfileStats, error)
}

type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

func (r *PgProfileRepository) Create(ctx context.Context, profile domain.Profile) error {
	const query = `
		INSERT INTO profiles (id, username, full_name, bio, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		profile.ID,
		profile.Username,
		nullIfEmpty(profile.FullName),
		nullIfEmpty(profile.Bio),
		nullIfEmpty(profile.AvatarURL),
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if isUniqueViolation(err, "ux_profiles_username") {
		return domain.ErrUsernameTaken
	}
	return translate("create profile", err)
}

const selectProfile = `
	SELECT id::text, username, coalesce(full_name, ''), coalesce(bio, ''), coalesce(avatar_url, ''), created_at, updated_at
	FROM profiles
`

func (r *PgProfileRepository) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	profile, err := scanProfile(r.pool.QueryRow(ctx, selectProfile+` WHERE id = $1`, id))
	return profile, translate("get profile", err)
}

func (r *PgProfileRepository) GetByUsername(ctx context.Context, username string) (domain.Profile, error) {
	profile, err := scanProfile(r.pool.QueryRow(ctx, selectProfile+` WHERE lower(username) = lower($1)`, username))
	return profile, translate("get profile by username", err)
}

func (r *PgProfileRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Profile, error) {
	if len(ids) == 0 {
		return []domain.Profile{}, nil
	}
	rows, err := r.pool.Query(ctx, selectProfile+` WHERE id = ANY($1::text[]::uuid[])`, ids)
	if err != nil {
		return nil, translate("list profiles", err)
	}
	defer rows.Close()

	profiles := make([]domain.Profile, 0, len(ids))
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, translate("scan profile", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list profiles", err)
	}
	return profiles, nil
}

func (r *PgProfileRepository) Update(ctx context.Context, profile domain.Profile) error {
	const query = `
		UPDATE profiles
		SET username = $2, full_name = $3, bio = $4, avatar_url = $5, updated_at = $6
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		profile.ID,
		profile.Username,
		nullIfEmpty(profile.FullName),
		nullIfEmpty(profile.Bio),
		nullIfEmpty(profile.AvatarURL),
		profile.UpdatedAt,
	)
	if isUniqueViolation(err, "ux_profiles_username") {
		return domain.ErrUsernameTaken
	}
	if err != nil {
		return translate("update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgProfileRepository) GetStats(ctx context.Context, id string) (domain.ProfileStats, error) {
	const query = `
		SELECT id::text, username, coalesce(full_name, ''), coalesce(bio, ''), coalesce(avatar_url, ''),
		       created_at, updated_at, followers_count, following_count, recipes_count
		FROM profile_stats
		WHERE id = $1
	`
	var s domain.ProfileStats
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Username,
		&s.FullName,
		&s.Bio,
		&s.AvatarURL,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.FollowersCount,
		&s.FollowingCount,
		&s.RecipesCount,
	)
	if err != nil {
		return domain.ProfileStats{}, translate("get profile stats", err)
	}
	return s, nil
}

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.FullName,
		&p.Bio,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}
