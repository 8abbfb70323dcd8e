// Package memrepo implementa los repositorios en memoria con la misma semantica que Postgres.
// Lo usan los tests de servicios y handlers.
package memrepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"recipeshare/internal/domain"
	"recipeshare/internal/repository"
)

// Store agrupa los cuatro repositorios sobre un mismo estado para poder resolver
// joins como recipe_feed o profile_stats.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	profiles map[string]domain.Profile
	follows  map[[2]string]time.Time
	recipes  map[string]domain.Recipe
	failure  error
}

func New() *Store {
	return &Store{
		users:    map[string]domain.User{},
		profiles: map[string]domain.Profile{},
		follows:  map[[2]string]time.Time{},
		recipes:  map[string]domain.Recipe{},
	}
}

func (s *Store) Users() *Users       { return &Users{s} }
func (s *Store) Profiles() *Profiles { return &Profiles{s} }
func (s *Store) Follows() *Follows   { return &Follows{s} }
func (s *Store) Recipes() *Recipes   { return &Recipes{s} }

var (
	_ repository.UserRepository    = (*Users)(nil)
	_ repository.ProfileRepository = (*Profiles)(nil)
	_ repository.FollowRepository  = (*Follows)(nil)
	_ repository.RecipeRepository  = (*Recipes)(nil)
)

// SetFail hace que todas las operaciones devuelvan err; nil lo desactiva.
func (s *Store) SetFail(err error) {
	s.mu.Lock()
	s.failure = err
	s.mu.Unlock()
}

func (s *Store) fail(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failure
}

type Users struct{ s *Store }

func (r *Users) Create(ctx context.Context, user domain.User) error {
	if err := r.s.fail(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrEmailTaken
		}
	}
	if _, ok := r.s.users[user.ID]; ok {
		return domain.ErrConflict
	}
	r.s.users[user.ID] = user
	return nil
}

func (r *Users) GetByID(ctx context.Context, id string) (domain.User, error) {
	if err := r.s.fail(ctx); err != nil {
		return domain.User{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	if err := r.s.fail(ctx); err != nil {
		return domain.User{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *Users) UpdateConfirmation(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	if err := r.s.fail(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.ConfirmCodeHash = codeHash
	u.ConfirmExpiresAt = &expiresAt
	r.s.users[id] = u
	return nil
}

func (r *Users) ConfirmEmail(ctx context.Context, id string, confirmedAt time.Time) error {
	if err := r.s.fail(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.EmailConfirmedAt = &confirmedAt
	u.ConfirmCodeHash = ""
	u.ConfirmExpiresAt = nil
	r.s.users[id] = u
	return nil
}

type Profiles struct{ s *Store }

func (r *Profiles) Create(ctx context.Context, profile domain.Profile) error {
	if err := r.s.fail(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[profile.ID]; ok {
		return domain.ErrConflict
	}
	if r.s.usernameTakenLocked(profile.Username, profile.ID) {
		return domain.ErrUsernameTaken
	}
	r.s.profiles[profile.ID] = profile
	return nil
}

func (s *Store) usernameTakenLocked(username, exceptID string) bool {
	for id, p := range s.profiles {
		if id != exceptID && strings.EqualFold(p.Username, username) {
			return true
		}
	}
	return false
}

func (r *Profiles) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	if err := r.s.fail(ctx); err != nil {
		return domain.Profile{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *Profiles) GetByUsername(ctx context.Context, username string) (domain.Profile, error) {
	if err := r.s.fail(ctx); err != nil {
		return domain.Profile{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.profiles {
		if strings.EqualFold(p.Username, username) {
			return p, nil
		}
	}
	return domain.Profile{}, domain.ErrNotFound
}

func (r *Profiles) ListByIDs(ctx context.Context, ids []string) ([]domain.Profile, error) {
	if err := r.s.fail(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Profiles) Update(ctx context.Context, profile domain.Profile) error {
	if err := r.s.fail(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.profiles[profile.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.s.usernameTakenLocked(profile.Username, profile.ID) {
		return domain.ErrUsernameTaken
	}
	profile.CreatedAt = current.CreatedAt
	r.s.profiles[profile.ID] = profile
	return nil
}

func (r *Profiles) GetStats(ctx context.Context, id string) (domain.ProfileStats, error) {
	if err := r.s.fail(ctx); err != nil {
		return domain.ProfileStats{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return domain.ProfileStats{}, domain.ErrNotFound
	}
	stats := domain.ProfileStats{Profile: p}
	for edge := range r.s.follows {
		if edge[1] == id {
			stats.FollowersCount++
		}
		if edge[0] == id {
			stats.FollowingCount++
		}
	}
	for _, rec := range r.s.recipes {
		if rec.CreatorID == id && rec.Published() {
			stats.RecipesCount++
		}
	}
	return stats, nil
}

type Follows struct{ s *Store }

func (r *Follows) Create(ctx context.Context, followerID, followingID string, createdAt time.Time) (bool, error) {
	if err := r.s.fail(ctx); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if followerID == followingID {
		return false, domain.InvalidInputf("follows_no_self")
	}
	_, okA := r.s.profiles[followerID]
	_, okB := r.s.profiles[followingID]
	if !okA || !okB {
		return false, domain.ErrNotFound
	}
	key := [2]string{followerID, followingID}
	if _, ok := r.s.follows[key]; ok {
		return false, nil
	}
	r.s.follows[key] = createdAt
	return true, nil
}

func (r *Follows) Delete(ctx context.Context, followerID, followingID string) error {
	if err := r.s.fail(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.follows, [2]string{followerID, followingID})
	return nil
}

func (r *Follows) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	if err := r.s.fail(ctx); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.follows[[2]string{followerID, followingID}]
	return ok, nil
}

func (r *Follows) ListFollowing(ctx context.Context, followerID string, after *domain.Cursor, limit int) ([]domain.FollowEdge, error) {
	return r.list(ctx, func(e domain.FollowEdge) (bool, string) { return e.FollowerID == followerID, e.FollowingID }, after, limit)
}

func (r *Follows) ListFollowers(ctx context.Context, followingID string, after *domain.Cursor, limit int) ([]domain.FollowEdge, error) {
	return r.list(ctx, func(e domain.FollowEdge) (bool, string) { return e.FollowingID == followingID, e.FollowerID }, after, limit)
}

// list selecciona aristas con match y las ordena por (created_at DESC, otro extremo ASC).
func (r *Follows) list(ctx context.Context, match func(domain.FollowEdge) (bool, string), after *domain.Cursor, limit int) ([]domain.FollowEdge, error) {
	if err := r.s.fail(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	type row struct {
		edge  domain.FollowEdge
		other string
	}
	var rows []row
	for key, at := range r.s.follows {
		e := domain.FollowEdge{FollowerID: key[0], FollowingID: key[1], CreatedAt: at}
		ok, other := match(e)
		if !ok {
			continue
		}
		if after != nil && !after.After(at, other) {
			continue
		}
		rows = append(rows, row{edge: e, other: other})
	}
	r.s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].edge.CreatedAt.Equal(rows[j].edge.CreatedAt) {
			return rows[i].edge.CreatedAt.After(rows[j].edge.CreatedAt)
		}
		return rows[i].other < rows[j].other
	})
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	edges := make([]domain.FollowEdge, 0, len(rows))
	for _, r := range rows {
		edges = append(edges, r.edge)
	}
	return edges, nil
}

func (r *Follows) Counts(ctx context.Context, profileID string) (domain.FollowCounts, error) {
	if err := r.s.fail(ctx); err != nil {
		return domain.FollowCounts{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var c domain.FollowCounts
	for edge := range r.s.follows {
		if edge[1] == profileID {
			c.Followers++
		}
		if edge[0] == profileID {
			c.Following++
		}
	}
	return c, nil
}

type Recipes struct{ s *Store }

func (r *Recipes) Create(ctx context.Context, recipe domain.Recipe) error {
	if err := r.s.fail(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[recipe.CreatorID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := r.s.recipes[recipe.ID]; ok {
		return domain.ErrConflict
	}
	r.s.recipes[recipe.ID] = recipe
	return nil
}

func (r *Recipes) GetByID(ctx context.Context, id string) (domain.Recipe, error) {
	if err := r.s.fail(ctx); err != nil {
		return domain.Recipe{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.recipes[id]
	if !ok {
		return domain.Recipe{}, domain.ErrNotFound
	}
	return rec, nil
}

func (r *Recipes) Update(ctx context.Context, recipe domain.Recipe) error {
	if err := r.s.fail(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.recipes[recipe.ID]
	if !ok {
		return domain.ErrNotFound
	}
	recipe.CreatorID = current.CreatorID
	recipe.CreatedAt = current.CreatedAt
	r.s.recipes[recipe.ID] = recipe
	return nil
}

func (r *Recipes) Delete(ctx context.Context, id string) error {
	if err := r.s.fail(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.recipes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.recipes, id)
	return nil
}

func (r *Recipes) List(ctx context.Context, filter repository.RecipeFilter, after *domain.Cursor, limit int) ([]domain.FeedItem, error) {
	if err := r.s.fail(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	var items []domain.FeedItem
	for _, rec := range r.s.recipes {
		if !filter.Matches(rec) {
			continue
		}
		if after != nil && !after.After(rec.CreatedAt, rec.ID) {
			continue
		}
		p := r.s.profiles[rec.CreatorID]
		items = append(items, domain.FeedItem{
			Recipe: rec,
			Creator: domain.CreatorSummary{
				ID:        rec.CreatorID,
				Username:  p.Username,
				FullName:  p.FullName,
				AvatarURL: p.AvatarURL,
			},
		})
	}
	r.s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].Recipe, items[j].Recipe
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
