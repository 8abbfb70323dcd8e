package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeshare/internal/domain"
	"recipeshare/internal/events"
)

func intPtr(v int) *int { return &v }

func TestRecipeService_CreateDefaults(t *testing.T) {
	f := newFixture(t)
	bob := f.profile(t, "bob")

	r, err := f.recipes.Create(context.Background(), bob.ID, RecipeInput{
		Title:       "  <b>Soup</b> ",
		Ingredients: []domain.Ingredient{{Name: "Water", Quantity: "1", Unit: "l"}},
		Steps:       []domain.Step{{Instruction: "Boil"}},
		PrepTime:    intPtr(5),
	})
	require.NoError(t, err)
	_, err = uuid.Parse(r.ID)
	require.NoError(t, err, "server generated id")
	assert.Equal(t, bob.ID, r.CreatorID)
	assert.Equal(t, "Soup", r.Title)
	assert.Equal(t, domain.VisibilityPublic, r.Visibility)
	assert.Equal(t, domain.StatusDraft, r.Status)
	assert.False(t, r.CreatedAt.IsZero())
	assert.Equal(t, r.CreatedAt, r.UpdatedAt)
	assert.Empty(t, f.publisher.subjects(), "drafts are not announced")

	stored, err := f.store.Recipes().GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, stored)
}

func TestRecipeService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	bob := f.profile(t, "bob")
	ctx := context.Background()

	cases := map[string]RecipeInput{
		"missing title":        {Title: "  "},
		"markup only title":    {Title: "<br/>"},
		"negative servings":    {Title: "x", Servings: intPtr(-1)},
		"overflowing prep":     {Title: "x", PrepTime: intPtr(3000000000)},
		"overflowing cook":     {Title: "x", CookTime: intPtr(math.MaxInt32 + 1)},
		"overflowing servings": {Title: "x", Servings: intPtr(1 << 40)},
		"bad visibility":       {Title: "x", Visibility: "friends"},
		"bad status":           {Title: "x", Status: "archived"},
		"nameless ingredient":  {Title: "x", Ingredients: []domain.Ingredient{{Quantity: "2"}}},
		"empty step":           {Title: "x", Steps: []domain.Step{{Instruction: " "}}},
		"bad image":            {Title: "x", ImageURL: "data:image/png;base64,AAAA"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.recipes.Create(ctx, bob.ID, input)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err := f.recipes.Create(ctx, "", RecipeInput{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = f.recipes.Create(ctx, uuid.NewString(), RecipeInput{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound, "creator profile must exist")
}

func TestRecipeService_UpdateAndDeleteOnlyByCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	r := f.recipe(t, bob.ID, "Soup", domain.VisibilityPublic, domain.StatusDraft)

	title := "Stolen"
	_, err := f.recipes.Update(ctx, alice.ID, r.ID, RecipePatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, f.recipes.Delete(ctx, alice.ID, r.ID), domain.ErrForbidden)

	_, err = f.recipes.Update(ctx, bob.ID, uuid.NewString(), RecipePatch{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.recipes.Delete(ctx, bob.ID, "not-a-uuid"), domain.ErrNotFound)
	assert.ErrorIs(t, f.recipes.Delete(ctx, "", r.ID), domain.ErrUnauthenticated)
}

func TestRecipeService_UpdateRecomputesUpdatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.profile(t, "bob")
	r := f.recipe(t, bob.ID, "Soup", domain.VisibilityPublic, domain.StatusDraft)

	title := "Tomato soup"
	status := domain.StatusPublished
	vis := domain.VisibilityFollowers
	var noServings *int
	updated, err := f.recipes.Update(ctx, bob.ID, r.ID, RecipePatch{
		Title:      &title,
		Status:     &status,
		Visibility: &vis,
		Servings:   &noServings,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tomato soup", updated.Title)
	assert.True(t, updated.UpdatedAt.After(r.UpdatedAt))
	assert.Equal(t, r.CreatedAt, updated.CreatedAt)
	assert.Equal(t, bob.ID, updated.CreatorID, "creator is immutable")
	assert.Nil(t, updated.Servings)
	assert.Equal(t, []string{events.SubjectRecipePublished}, f.publisher.subjects())

	again := "Tomato soup v2"
	_, err = f.recipes.Update(ctx, bob.ID, r.ID, RecipePatch{Title: &again})
	require.NoError(t, err)
	assert.Len(t, f.publisher.subjects(), 1, "already published recipes are not announced again")

	empty := ""
	_, err = f.recipes.Update(ctx, bob.ID, r.ID, RecipePatch{Title: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecipeService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.profile(t, "bob")
	r := f.recipe(t, bob.ID, "Soup", domain.VisibilityPublic, domain.StatusPublished)

	require.NoError(t, f.recipes.Delete(ctx, bob.ID, r.ID))
	_, err := f.recipes.Get(ctx, r.ID, bob.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.recipes.Delete(ctx, bob.ID, r.ID), domain.ErrNotFound)
	assert.Equal(t, []string{events.SubjectRecipePublished, events.SubjectRecipeDeleted}, f.publisher.subjects())
}

func TestRecipeService_GetHidesInvisibleRecipes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	soup := f.recipe(t, bob.ID, "Soup", domain.VisibilityFollowers, domain.StatusPublished)
	stew := f.recipe(t, bob.ID, "Stew", domain.VisibilityPublic, domain.StatusDraft)

	_, err := f.recipes.Get(ctx, soup.ID, alice.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.recipes.Get(ctx, soup.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.graph.Follow(ctx, alice.ID, bob.ID))
	got, err := f.recipes.Get(ctx, soup.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Soup", got.Title)

	_, err = f.recipes.Get(ctx, stew.ID, alice.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "drafts stay private even for followers")
	got, err = f.recipes.Get(ctx, stew.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stew", got.Title)
}

func TestRecipeService_PublishFailureDoesNotFailCreate(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("nats: no servers available")
	bob := f.profile(t, "bob")
	_, err := f.recipes.Create(context.Background(), bob.ID, RecipeInput{Title: "Soup", Status: domain.StatusPublished})
	require.NoError(t, err)
}
