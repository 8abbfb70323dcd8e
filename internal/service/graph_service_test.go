package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeshare/internal/domain"
	"recipeshare/internal/events"
)

func TestGraphService_FollowIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")

	require.NoError(t, f.graph.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, f.graph.Follow(ctx, alice.ID, bob.ID))

	counts, err := f.graph.Counts(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.Followers, "exactly one edge after repeated follow")
	assert.Equal(t, []string{events.SubjectFollowCreated}, f.publisher.subjects(), "only the first follow notifies")

	ok, err := f.graph.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.graph.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok, "edges are directed")
}

func TestGraphService_SelfFollow(t *testing.T) {
	f := newFixture(t)
	alice := f.profile(t, "alice")
	err := f.graph.Follow(context.Background(), alice.ID, alice.ID)
	assert.ErrorIs(t, err, domain.ErrSelfFollow)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGraphService_FollowUnknownTarget(t *testing.T) {
	f := newFixture(t)
	alice := f.profile(t, "alice")
	err := f.graph.Follow(context.Background(), alice.ID, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.graph.Follow(context.Background(), "", alice.ID), domain.ErrUnauthenticated)
}

func TestGraphService_UnfollowIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")

	require.NoError(t, f.graph.Unfollow(ctx, alice.ID, bob.ID), "unfollowing a non-followed id is a no-op")
	require.NoError(t, f.graph.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, f.graph.Unfollow(ctx, alice.ID, bob.ID))
	require.NoError(t, f.graph.Unfollow(ctx, alice.ID, bob.ID))

	ok, err := f.graph.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGraphService_ConcurrentFollowUnfollowConverges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = f.graph.Follow(ctx, alice.ID, bob.ID)
			} else {
				_ = f.graph.Unfollow(ctx, alice.ID, bob.ID)
			}
		}(i)
	}
	wg.Wait()

	counts, err := f.graph.Counts(ctx, bob.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, counts.Followers, int64(1))
}

func TestGraphService_ConcurrentFollowsNotifyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.graph.Follow(ctx, alice.ID, bob.ID))
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{events.SubjectFollowCreated}, f.publisher.subjects(), "one insert, one event")
	counts, err := f.graph.Counts(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.Followers)
}

func TestGraphService_FollowingSetPagesLazily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")

	want := map[string]bool{}
	for i := 0; i < followingBatch+3; i++ {
		id := uuid.NewString()
		require.NoError(t, f.store.Profiles().Create(ctx, domain.Profile{ID: id, Username: "user_" + id[:8]}))
		_, err := f.store.Follows().Create(ctx, alice.ID, id, f.clock.Now())
		require.NoError(t, err)
		want[id] = true
	}

	got := map[string]bool{}
	for id, err := range f.graph.FollowingSet(ctx, alice.ID) {
		require.NoError(t, err)
		assert.False(t, got[id], "duplicate id %s", id)
		got[id] = true
	}
	assert.Equal(t, want, got)

	n := 0
	for range f.graph.FollowingSet(ctx, alice.ID) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n, "iteration stops when the consumer stops")
}

func TestGraphService_FollowingSetSurfacesErrors(t *testing.T) {
	f := newFixture(t)
	alice := f.profile(t, "alice")
	f.store.SetFail(domain.Unavailable("list follows", errors.New("timeout")))

	var gotErr error
	for _, err := range f.graph.FollowingSet(context.Background(), alice.ID) {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, domain.ErrUpstreamUnavailable)
}

func TestGraphService_FollowerAndFollowingPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.profile(t, "bob")
	var followers []domain.Profile
	for _, name := range []string{"ann", "cid", "dee", "eve", "fay"} {
		p := f.profile(t, name)
		require.NoError(t, f.graph.Follow(ctx, p.ID, bob.ID))
		followers = append(followers, p)
	}

	var seen []string
	params := PageParams{Limit: 2}
	for {
		page, err := f.graph.Followers(ctx, bob.ID, params)
		require.NoError(t, err)
		for _, p := range page.Profiles {
			seen = append(seen, p.Username)
		}
		if page.NextCursor == "" {
			break
		}
		params.Cursor = page.NextCursor
	}
	assert.Equal(t, []string{"fay", "eve", "dee", "cid", "ann"}, seen, "most recent followers first")

	following, err := f.graph.Following(ctx, followers[0].ID, PageParams{})
	require.NoError(t, err)
	require.Len(t, following.Profiles, 1)
	assert.Equal(t, "bob", following.Profiles[0].Username)
	assert.Empty(t, following.NextCursor)

	_, err = f.graph.Followers(ctx, bob.ID, PageParams{Cursor: "%%%"})
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}
