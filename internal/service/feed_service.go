package service

import (
	"context"
	"errors"
	"iter"

	"go.uber.org/zap"

	"recipeshare/internal/domain"
	"recipeshare/internal/metrics"
	"recipeshare/internal/repository"
)

// FeedService compone el feed personalizado y los listados por creador.
// Es de solo lectura y no reintenta: un fallo del store se propaga tal cual.
type FeedService struct {
	logger   *zap.Logger
	recipes  repository.RecipeRepository
	graph    *GraphService
	recorder metrics.Recorder
	limits   PageLimits
}

func NewFeedService(logger *zap.Logger, recipes repository.RecipeRepository, graph *GraphService, recorder metrics.Recorder, limits PageLimits) *FeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Noop()
	}
	return &FeedService{
		logger:   logger,
		recipes:  recipes,
		graph:    graph,
		recorder: recorder,
		limits:   limits,
	}
}

// ComposeFeed devuelve una pagina del feed de viewerID (vacio = anonimo):
// recetas publicadas que son publicas, del propio viewer o de alguien a quien sigue,
// ordenadas por created_at DESC, id ASC.
func (s *FeedService) ComposeFeed(ctx context.Context, viewerID string, page PageParams) (domain.FeedPage, error) {
	following := map[string]bool{}
	audience := []string{}
	if viewerID != "" {
		for id, err := range s.graph.FollowingSet(ctx, viewerID) {
			if err != nil {
				return domain.FeedPage{}, err
			}
			following[id] = true
			audience = append(audience, id)
		}
		audience = append(audience, viewerID)
	}

	out, err := s.page(ctx, repository.RecipeFilter{AudienceIDs: audience}, page, viewerID, following)
	if err != nil {
		return domain.FeedPage{}, err
	}
	s.recorder.ObserveFeedPage("home", len(out.Items))
	return out, nil
}

// CreatorRecipes lista las recetas de creatorID visibles para viewerID.
// El propio creador ve tambien sus borradores.
func (s *FeedService) CreatorRecipes(ctx context.Context, viewerID, creatorID string, page PageParams) (domain.FeedPage, error) {
	filter := repository.RecipeFilter{CreatorID: creatorID, AudienceIDs: []string{}}
	following := map[string]bool{}
	switch {
	case viewerID != "" && viewerID == creatorID:
		filter.IncludeDrafts = true
		filter.AudienceIDs = []string{creatorID}
	case viewerID != "":
		follows, err := s.graph.IsFollowing(ctx, viewerID, creatorID)
		if err != nil {
			return domain.FeedPage{}, err
		}
		if follows {
			following[creatorID] = true
			filter.AudienceIDs = []string{creatorID}
		}
	}

	out, err := s.page(ctx, filter, page, viewerID, following)
	if err != nil {
		return domain.FeedPage{}, err
	}
	s.recorder.ObserveFeedPage("creator", len(out.Items))
	return out, nil
}

// Stream recorre el feed completo de viewerID pagina a pagina.
// Cada pagina es una consulta nueva anclada en el cursor anterior.
func (s *FeedService) Stream(ctx context.Context, viewerID string, pageSize int) iter.Seq2[domain.FeedItem, error] {
	return func(yield func(domain.FeedItem, error) bool) {
		params := PageParams{Limit: pageSize}
		for {
			page, err := s.ComposeFeed(ctx, viewerID, params)
			if err != nil {
				yield(domain.FeedItem{}, err)
				return
			}
			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
			if page.NextCursor == "" {
				return
			}
			params.Cursor = page.NextCursor
		}
	}
}

// page valida el cursor, trae limit+1 filas y filtra por visibilidad.
// NextCursor apunta a la ultima fila leida aunque el filtro la descarte.
func (s *FeedService) page(ctx context.Context, filter repository.RecipeFilter, page PageParams, viewerID string, following map[string]bool) (domain.FeedPage, error) {
	after, err := s.anchor(ctx, page.Cursor, viewerID, following)
	if err != nil {
		return domain.FeedPage{}, err
	}
	limit := s.limits.clamp(page.Limit)

	rows, err := s.recipes.List(ctx, filter, after, limit+1)
	if err != nil {
		return domain.FeedPage{}, err
	}

	out := domain.FeedPage{Items: make([]domain.FeedItem, 0, min(len(rows), limit))}
	if len(rows) > limit {
		rows = rows[:limit]
		out.NextCursor = domain.RecipeCursor(rows[len(rows)-1].Recipe).Encode()
	}
	for _, item := range rows {
		if CanSee(item.Recipe, viewerID, following[item.Recipe.CreatorID]) {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

// anchor decodifica el cursor y verifica que la receta ancla siga existiendo con el mismo
// created_at y que viewerID pueda verla. Un ancla invisible se trata igual que una borrada.
func (s *FeedService) anchor(ctx context.Context, raw, viewerID string, following map[string]bool) (*domain.Cursor, error) {
	after, err := domain.DecodeCursor(raw)
	if err != nil || after == nil {
		return nil, err
	}
	recipe, err := s.recipes.GetByID(ctx, after.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCursor
	}
	if err != nil {
		return nil, err
	}
	if !recipe.CreatedAt.Equal(after.CreatedAt) || !CanSee(recipe, viewerID, following[recipe.CreatorID]) {
		return nil, domain.ErrInvalidCursor
	}
	return after, nil
}
