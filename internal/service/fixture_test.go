package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipeshare/internal/domain"
	"recipeshare/internal/repository/memrepo"
)

// fakeClock avanza un paso en cada lectura; step 0 congela el tiempo.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

type published struct {
	subject string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{subject: subject, payload: payload})
	return p.err
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.subject)
	}
	return out
}

type fixture struct {
	store     *memrepo.Store
	clock     *fakeClock
	publisher *recordingPublisher
	profiles  *ProfileService
	graph     *GraphService
	recipes   *RecipeService
	feed      *FeedService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memrepo.New()
	clock := newFakeClock(time.Second)
	pub := &recordingPublisher{}
	logger := zap.NewNop()
	sanitizer := NewSanitizer()
	limits := PageLimits{Default: 20, Max: 100}

	profiles := NewProfileService(logger, store.Profiles(), store.Follows(), sanitizer)
	profiles.now = clock.Now
	graph := NewGraphService(logger, store.Profiles(), store.Follows(), pub, nil, limits)
	graph.now = clock.Now
	recipes := NewRecipeService(logger, store.Recipes(), NewVisibilityChecker(store.Follows()), sanitizer, pub, nil)
	recipes.now = clock.Now
	feed := NewFeedService(logger, store.Recipes(), graph, nil, limits)

	return &fixture{
		store:     store,
		clock:     clock,
		publisher: pub,
		profiles:  profiles,
		graph:     graph,
		recipes:   recipes,
		feed:      feed,
	}
}

func (f *fixture) profile(t *testing.T, username string) domain.Profile {
	t.Helper()
	p, err := f.profiles.Create(context.Background(), CreateProfileInput{ID: uuid.NewString(), Username: username})
	require.NoError(t, err)
	return p
}

func (f *fixture) recipe(t *testing.T, creatorID, title string, vis domain.Visibility, status domain.RecipeStatus) domain.Recipe {
	t.Helper()
	r, err := f.recipes.Create(context.Background(), creatorID, RecipeInput{Title: title, Visibility: vis, Status: status})
	require.NoError(t, err)
	return r
}

func titles(items []domain.FeedItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Recipe.Title)
	}
	return out
}
