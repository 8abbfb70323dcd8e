package memrepo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeshare/internal/domain"
	"recipeshare/internal/repository"
)

func TestProfilesUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Profiles().Create(ctx, domain.Profile{ID: "p1", Username: "Alice"}))

	assert.ErrorIs(t, s.Profiles().Create(ctx, domain.Profile{ID: "p2", Username: "alice"}), domain.ErrUsernameTaken)
	assert.ErrorIs(t, s.Profiles().Create(ctx, domain.Profile{ID: "p1", Username: "other"}), domain.ErrConflict)

	p, err := s.Profiles().GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	p.Username = "alice"
	assert.NoError(t, s.Profiles().Update(ctx, p), "changing case of own username")
}

func TestFollowsEdges(t *testing.T) {
	s := New()
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Profiles().Create(ctx, domain.Profile{ID: id, Username: "user_" + id}))
	}

	_, err := s.Follows().Create(ctx, "a", "a", t0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.Follows().Create(ctx, "a", "zzz", t0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	created, err := s.Follows().Create(ctx, "a", "b", t0)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.Follows().Create(ctx, "a", "b", t0.Add(time.Hour))
	require.NoError(t, err, "idempotent")
	assert.False(t, created, "repeated edge must report no insert")
	_, err = s.Follows().Create(ctx, "c", "b", t0.Add(time.Minute))
	require.NoError(t, err)

	followers, err := s.Follows().ListFollowers(ctx, "b", nil, 10)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	assert.Equal(t, "c", followers[0].FollowerID)
	assert.Equal(t, t0, followers[1].CreatedAt, "re-follow keeps the original timestamp")

	counts, err := s.Follows().Counts(ctx, "b")
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts.Followers)
	assert.EqualValues(t, 0, counts.Following)
}

func TestRecipesListUsesFilterAndCursor(t *testing.T) {
	s := New()
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Profiles().Create(ctx, domain.Profile{ID: "a", Username: "alice"}))

	ids := []string{
		"00000000-0000-4000-8000-000000000001",
		"00000000-0000-4000-8000-000000000002",
		"00000000-0000-4000-8000-000000000003",
	}
	for i, id := range ids {
		require.NoError(t, s.Recipes().Create(ctx, domain.Recipe{
			ID: id, CreatorID: "a", Title: id,
			Visibility: domain.VisibilityPublic, Status: domain.StatusPublished,
			CreatedAt: t0.Add(time.Duration(i/2) * time.Minute),
		}))
	}

	all, err := s.Recipes().List(ctx, repository.RecipeFilter{}, nil, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].Recipe.ID)
	assert.Equal(t, ids[0], all[1].Recipe.ID, "ties break by id ascending")
	assert.Equal(t, "alice", all[0].Creator.Username)

	cur := domain.RecipeCursor(all[1].Recipe)
	rest, err := s.Recipes().List(ctx, repository.RecipeFilter{}, &cur, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[1], rest[0].Recipe.ID)

	assert.ErrorIs(t, s.Recipes().Create(ctx, domain.Recipe{ID: "x", CreatorID: "ghost"}), domain.ErrNotFound)
}

func TestFailAndCancellation(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.SetFail(boom)
	_, err := s.Profiles().GetByID(context.Background(), "a")
	assert.ErrorIs(t, err, boom)

	s.SetFail(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Follows().Exists(ctx, "a", "b")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetFailWhileInUse(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Profiles().Create(ctx, domain.Profile{ID: "a", Username: "alice"}))

	boom := errors.New("boom")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetFail(boom)
			s.SetFail(nil)
		}()
		go func() {
			defer wg.Done()
			if _, err := s.Profiles().GetByID(ctx, "a"); err != nil {
				assert.ErrorIs(t, err, boom)
			}
		}()
	}
	wg.Wait()

	s.SetFail(nil)
	_, err := s.Profiles().GetByID(ctx, "a")
	assert.NoError(t, err)
}
