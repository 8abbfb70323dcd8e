package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"recipeshare/internal/domain"
)

// RecipeFilter describe el conjunto candidato de una pagina de recetas.
//
// Una fila entra si: CreatorID vacio o igual al autor; el estado es published salvo que
// IncludeDrafts; y la visibilidad es public o el autor esta en AudienceIDs.
type RecipeFilter struct {
	CreatorID     string
	AudienceIDs   []string
	IncludeDrafts bool
}

// Matches evalua el filtro en memoria con la misma semantica que la consulta SQL.
func (f RecipeFilter) Matches(r domain.Recipe) bool {
	if f.CreatorID != "" && r.CreatorID != f.CreatorID {
		return false
	}
	if !f.IncludeDrafts && r.Status != domain.StatusPublished {
		return false
	}
	if r.Visibility == domain.VisibilityPublic {
		return true
	}
	for _, id := range f.AudienceIDs {
		if id == r.CreatorID {
			return true
		}
	}
	return false
}

type RecipeRepository interface {
	Create(ctx context.Context, recipe domain.Recipe) error
	GetByID(ctx context.Context, id string) (domain.Recipe, error)
	Update(ctx context.Context, recipe domain.Recipe) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter RecipeFilter, after *domain.Cursor, limit int) ([]domain.FeedItem, error)
}

type PgRecipeRepository struct {
	pool *pgxpool.Pool
}

func NewPgRecipeRepository(pool *pgxpool.Pool) *PgRecipeRepository {
	return &PgRecipeRepository{pool: pool}
}

func (r *PgRecipeRepository) Create(ctx context.Context, recipe domain.Recipe) error {
	const query = `
		INSERT INTO recipes (
			id, creator_id, title, description, ingredients, steps, prep_time, cook_time, servings,
			image_url, visibility, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::recipe_visibility, $12::recipe_status, $13, $14)
	`
	_, err := r.pool.Exec(ctx, query,
		recipe.ID,
		recipe.CreatorID,
		recipe.Title,
		nullIfEmpty(recipe.Description),
		recipe.Ingredients,
		recipe.Steps,
		recipe.PrepTime,
		recipe.CookTime,
		recipe.Servings,
		nullIfEmpty(recipe.ImageURL),
		string(recipe.Visibility),
		string(recipe.Status),
		recipe.CreatedAt,
		recipe.UpdatedAt,
	)
	return translate("create recipe", err)
}

const recipeColumns = `
	id::text, creator_id::text, title, coalesce(description, ''), ingredients, steps,
	prep_time, cook_time, servings, coalesce(image_url, ''), visibility::text, status::text,
	created_at, updated_at
`

func (r *PgRecipeRepository) GetByID(ctx context.Context, id string) (domain.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1`
	var rec domain.Recipe
	if err := scanRecipe(r.pool.QueryRow(ctx, query, id), &rec); err != nil {
		return domain.Recipe{}, translate("get recipe", err)
	}
	return rec, nil
}

// Update no toca creator_id ni created_at.
func (r *PgRecipeRepository) Update(ctx context.Context, recipe domain.Recipe) error {
	const query = `
		UPDATE recipes
		SET title = $2, description = $3, ingredients = $4, steps = $5, prep_time = $6, cook_time = $7,
		    servings = $8, image_url = $9, visibility = $10::recipe_visibility, status = $11::recipe_status,
		    updated_at = $12
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		recipe.ID,
		recipe.Title,
		nullIfEmpty(recipe.Description),
		recipe.Ingredients,
		recipe.Steps,
		recipe.PrepTime,
		recipe.CookTime,
		recipe.Servings,
		nullIfEmpty(recipe.ImageURL),
		string(recipe.Visibility),
		string(recipe.Status),
		recipe.UpdatedAt,
	)
	if err != nil {
		return translate("update recipe", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgRecipeRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return translate("delete recipe", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List devuelve filas de recipe_feed ordenadas por created_at DESC, id ASC a partir del cursor.
func (r *PgRecipeRepository) List(ctx context.Context, filter RecipeFilter, after *domain.Cursor, limit int) ([]domain.FeedItem, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CreatorID != "" {
		conds = append(conds, "creator_id = "+arg(filter.CreatorID))
	}
	if !filter.IncludeDrafts {
		conds = append(conds, "status = 'published'")
	}
	audience := filter.AudienceIDs
	if audience == nil {
		audience = []string{}
	}
	conds = append(conds, fmt.Sprintf("(visibility = 'public' OR creator_id = ANY(%s::text[]::uuid[]))", arg(audience)))
	if after != nil {
		ts := arg(after.CreatedAt)
		conds = append(conds, fmt.Sprintf("(created_at < %s OR (created_at = %s AND id > %s::uuid))", ts, ts, arg(after.ID)))
	}

	query := `SELECT ` + recipeColumns + `,
		coalesce(creator_username, ''), coalesce(creator_name, ''), coalesce(creator_avatar, '')
		FROM recipe_feed
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY created_at DESC, id ASC
		LIMIT ` + arg(limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate("list recipes", err)
	}
	defer rows.Close()

	var items []domain.FeedItem
	for rows.Next() {
		var item domain.FeedItem
		if err := scanRecipe(rows, &item.Recipe,
			&item.Creator.Username,
			&item.Creator.FullName,
			&item.Creator.AvatarURL,
		); err != nil {
			return nil, translate("scan recipe", err)
		}
		item.Creator.ID = item.Recipe.CreatorID
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list recipes", err)
	}
	return items, nil
}

func scanRecipe(row pgx.Row, rec *domain.Recipe, extra ...any) error {
	var visibility, status string
	dest := []any{
		&rec.ID,
		&rec.CreatorID,
		&rec.Title,
		&rec.Description,
		&rec.Ingredients,
		&rec.Steps,
		&rec.PrepTime,
		&rec.CookTime,
		&rec.Servings,
		&rec.ImageURL,
		&visibility,
		&status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	rec.Visibility = domain.Visibility(visibility)
	rec.Status = domain.RecipeStatus(status)
	return nil
}
