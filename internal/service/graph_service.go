package service

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"

	"recipeshare/internal/domain"
	"recipeshare/internal/events"
	"recipeshare/internal/metrics"
	"recipeshare/internal/repository"
)

// followingBatch es el tamaño de pagina con que FollowingSet recorre el grafo.
const followingBatch = 500

// GraphService administra las aristas de seguimiento. Follow y Unfollow son idempotentes.
type GraphService struct {
	logger   *zap.Logger
	profiles repository.ProfileRepository
	follows  repository.FollowRepository
	notify   notifier
	limits   PageLimits
	now      func() time.Time
}

func NewGraphService(logger *zap.Logger, profiles repository.ProfileRepository, follows repository.FollowRepository, publisher events.Publisher, recorder metrics.Recorder, limits PageLimits) *GraphService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphService{
		logger:   logger,
		profiles: profiles,
		follows:  follows,
		notify:   newNotifier(publisher, recorder, logger),
		limits:   limits,
		now:      time.Now,
	}
}

// Follow crea la arista followerID -> targetID. Repetirla no es error.
func (s *GraphService) Follow(ctx context.Context, followerID, targetID string) error {
	if followerID == "" {
		return domain.ErrUnauthenticated
	}
	if followerID == targetID {
		return domain.ErrSelfFollow
	}
	if _, err := s.profiles.GetByID(ctx, targetID); err != nil {
		return err
	}
	now := stamp(s.now())
	created, err := s.follows.Create(ctx, followerID, targetID, now)
	if err != nil || !created {
		return err
	}
	s.notify.publish(ctx, events.SubjectFollowCreated, events.FollowEvent{
		FollowerID:  followerID,
		FollowingID: targetID,
		OccurredAt:  now,
	})
	return nil
}

// Unfollow borra la arista si existe.
func (s *GraphService) Unfollow(ctx context.Context, followerID, targetID string) error {
	if followerID == "" {
		return domain.ErrUnauthenticated
	}
	if followerID == targetID {
		return nil
	}
	return s.follows.Delete(ctx, followerID, targetID)
}

func (s *GraphService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	if followerID == "" || followerID == targetID {
		return false, nil
	}
	return s.follows.Exists(ctx, followerID, targetID)
}

// FollowingSet recorre perezosamente los ids que followerID sigue, paginando el repositorio.
// Un error corta la secuencia despues de entregarse.
func (s *GraphService) FollowingSet(ctx context.Context, followerID string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var after *domain.Cursor
		for {
			edges, err := s.follows.ListFollowing(ctx, followerID, after, followingBatch)
			if err != nil {
				yield("", err)
				return
			}
			for _, e := range edges {
				if !yield(e.FollowingID, nil) {
					return
				}
			}
			if len(edges) < followingBatch {
				return
			}
			last := edges[len(edges)-1]
			after = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.FollowingID}
		}
	}
}

func (s *GraphService) Counts(ctx context.Context, profileID string) (domain.FollowCounts, error) {
	return s.follows.Counts(ctx, profileID)
}

// Followers lista quienes siguen a profileID, mas recientes primero.
func (s *GraphService) Followers(ctx context.Context, profileID string, page PageParams) (domain.FollowPage, error) {
	return s.listPage(ctx, page, func(after *domain.Cursor, limit int) ([]domain.FollowEdge, error) {
		return s.follows.ListFollowers(ctx, profileID, after, limit)
	}, func(e domain.FollowEdge) string { return e.FollowerID })
}

// Following lista a quienes sigue profileID, mas recientes primero.
func (s *GraphService) Following(ctx context.Context, profileID string, page PageParams) (domain.FollowPage, error) {
	return s.listPage(ctx, page, func(after *domain.Cursor, limit int) ([]domain.FollowEdge, error) {
		return s.follows.ListFollowing(ctx, profileID, after, limit)
	}, func(e domain.FollowEdge) string { return e.FollowingID })
}

func (s *GraphService) listPage(
	ctx context.Context,
	page PageParams,
	list func(after *domain.Cursor, limit int) ([]domain.FollowEdge, error),
	other func(domain.FollowEdge) string,
) (domain.FollowPage, error) {
	after, err := domain.DecodeCursor(page.Cursor)
	if err != nil {
		return domain.FollowPage{}, err
	}
	limit := s.limits.clamp(page.Limit)

	edges, err := list(after, limit+1)
	if err != nil {
		return domain.FollowPage{}, err
	}
	out := domain.FollowPage{Profiles: []domain.Profile{}}
	if len(edges) > limit {
		edges = edges[:limit]
		last := edges[len(edges)-1]
		out.NextCursor = domain.Cursor{CreatedAt: last.CreatedAt, ID: other(last)}.Encode()
	}
	if len(edges) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, other(e))
	}
	profiles, err := s.profiles.ListByIDs(ctx, ids)
	if err != nil {
		return domain.FollowPage{}, err
	}
	byID := make(map[string]domain.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out.Profiles = append(out.Profiles, p)
		}
	}
	return out, nil
}
