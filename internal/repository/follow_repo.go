package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"recipeshare/internal/domain"
)

type FollowRepository interface {
	// Create devuelve false si la arista ya existia.
	Create(ctx context.Context, followerID, followingID string, createdAt time.Time) (bool, error)
	Delete(ctx context.Context, followerID, followingID string) error
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	ListFollowing(ctx context.Context, followerID string, after *domain.Cursor, limit int) ([]domain.FollowEdge, error)
	ListFollowers(ctx context.Context, followingID string, after *domain.Cursor, limit int) ([]domain.FollowEdge, error)
	Counts(ctx context.Context, profileID string) (domain.FollowCounts, error)
}

type PgFollowRepository struct {
	pool *pgxpool.Pool
}

func NewPgFollowRepository(pool *pgxpool.Pool) *PgFollowRepository {
	return &PgFollowRepository{pool: pool}
}

// Create es idempotente: una arista repetida no es error e informa created=false.
func (r *PgFollowRepository) Create(ctx context.Context, followerID, followingID string, createdAt time.Time) (bool, error) {
	const query = `
		INSERT INTO follows (follower_id, following_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (follower_id, following_id) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query, followerID, followingID, createdAt)
	if err != nil {
		return false, translate("create follow", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete es idempotente: borrar una arista inexistente no es error.
func (r *PgFollowRepository) Delete(ctx context.Context, followerID, followingID string) error {
	const query = `DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`
	_, err := r.pool.Exec(ctx, query, followerID, followingID)
	return translate("delete follow", err)
}

func (r *PgFollowRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND following_id = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, followerID, followingID).Scan(&exists); err != nil {
		return false, translate("follow exists", err)
	}
	return exists, nil
}

func (r *PgFollowRepository) ListFollowing(ctx context.Context, followerID string, after *domain.Cursor, limit int) ([]domain.FollowEdge, error) {
	return r.list(ctx, "follower_id", "following_id", followerID, after, limit)
}

func (r *PgFollowRepository) ListFollowers(ctx context.Context, followingID string, after *domain.Cursor, limit int) ([]domain.FollowEdge, error) {
	return r.list(ctx, "following_id", "follower_id", followingID, after, limit)
}

// list pagina por (created_at DESC, otro extremo ASC).
func (r *PgFollowRepository) list(ctx context.Context, anchorCol, otherCol, id string, after *domain.Cursor, limit int) ([]domain.FollowEdge, error) {
	query := `
		SELECT follower_id::text, following_id::text, created_at
		FROM follows
		WHERE ` + anchorCol + ` = $1`
	args := []any{id}

	if after != nil {
		query += fmt.Sprintf(" AND (created_at < $2 OR (created_at = $2 AND %s > $3::uuid))", otherCol)
		args = append(args, after.CreatedAt, after.ID)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, %s ASC LIMIT $%d", otherCol, len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list follows", err)
	}
	defer rows.Close()

	var edges []domain.FollowEdge
	for rows.Next() {
		var e domain.FollowEdge
		if err := rows.Scan(&e.FollowerID, &e.FollowingID, &e.CreatedAt); err != nil {
			return nil, translate("scan follow", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list follows", err)
	}
	return edges, nil
}

func (r *PgFollowRepository) Counts(ctx context.Context, profileID string) (domain.FollowCounts, error) {
	const query = `
		SELECT
			(SELECT count(*) FROM follows WHERE following_id = $1),
			(SELECT count(*) FROM follows WHERE follower_id = $1)
	`
	var c domain.FollowCounts
	if err := r.pool.QueryRow(ctx, query, profileID).Scan(&c.Followers, &c.Following); err != nil {
		return domain.FollowCounts{}, translate("follow counts", err)
	}
	return c, nil
}
