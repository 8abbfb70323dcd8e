package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recipeshare/internal/domain"
	"recipeshare/internal/events"
	"recipeshare/internal/metrics"
	"recipeshare/internal/repository"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 5000
	maxListItems      = 100
	// columnas INTEGER en Postgres
	maxRecipeNumber = math.MaxInt32
)

// RecipeService es el CRUD de recetas. Solo el creador modifica o borra.
type RecipeService struct {
	logger     *zap.Logger
	recipes    repository.RecipeRepository
	visibility *VisibilityChecker
	sanitizer  *Sanitizer
	notify     notifier
	now        func() time.Time
}

func NewRecipeService(
	logger *zap.Logger,
	recipes repository.RecipeRepository,
	visibility *VisibilityChecker,
	sanitizer *Sanitizer,
	publisher events.Publisher,
	recorder metrics.Recorder,
) *RecipeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipeService{
		logger:     logger,
		recipes:    recipes,
		visibility: visibility,
		sanitizer:  sanitizer,
		notify:     newNotifier(publisher, recorder, logger),
		now:        time.Now,
	}
}

type RecipeInput struct {
	Title       string
	Description string
	Ingredients []domain.Ingredient
	Steps       []domain.Step
	PrepTime    *int
	CookTime    *int
	Servings    *int
	ImageURL    string
	Visibility  domain.Visibility
	Status      domain.RecipeStatus
}

// RecipePatch solo modifica los campos no nil. El creador no es modificable.
type RecipePatch struct {
	Title       *string
	Description *string
	Ingredients *[]domain.Ingredient
	Steps       *[]domain.Step
	PrepTime    **int
	CookTime    **int
	Servings    **int
	ImageURL    *string
	Visibility  *domain.Visibility
	Status      *domain.RecipeStatus
}

func (s *RecipeService) Create(ctx context.Context, callerID string, input RecipeInput) (domain.Recipe, error) {
	if callerID == "" {
		return domain.Recipe{}, domain.ErrUnauthenticated
	}
	if input.Visibility == "" {
		input.Visibility = domain.VisibilityPublic
	}
	if input.Status == "" {
		input.Status = domain.StatusDraft
	}

	now := stamp(s.now())
	recipe := domain.Recipe{
		ID:          uuid.NewString(),
		CreatorID:   callerID,
		Title:       input.Title,
		Description: input.Description,
		Ingredients: input.Ingredients,
		Steps:       input.Steps,
		PrepTime:    input.PrepTime,
		CookTime:    input.CookTime,
		Servings:    input.Servings,
		ImageURL:    input.ImageURL,
		Visibility:  input.Visibility,
		Status:      input.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.normalize(&recipe); err != nil {
		return domain.Recipe{}, err
	}
	if err := s.recipes.Create(ctx, recipe); err != nil {
		return domain.Recipe{}, err
	}

	s.logger.Info("recipe created",
		zap.String("recipe_id", recipe.ID),
		zap.String("creator_id", callerID),
		zap.String("status", string(recipe.Status)),
	)
	if recipe.Published() {
		s.publishPublished(ctx, recipe)
	}
	return recipe, nil
}

// Get responde NotFound tambien cuando la receta existe pero el viewer no puede verla.
func (s *RecipeService) Get(ctx context.Context, id, viewerID string) (domain.Recipe, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Recipe{}, domain.ErrNotFound
	}
	recipe, err := s.recipes.GetByID(ctx, id)
	if err != nil {
		return domain.Recipe{}, err
	}
	ok, err := s.visibility.IsVisible(ctx, recipe, viewerID)
	if err != nil {
		return domain.Recipe{}, err
	}
	if !ok {
		return domain.Recipe{}, domain.ErrNotFound
	}
	return recipe, nil
}

func (s *RecipeService) Update(ctx context.Context, callerID, id string, patch RecipePatch) (domain.Recipe, error) {
	recipe, err := s.owned(ctx, callerID, id)
	if err != nil {
		return domain.Recipe{}, err
	}
	wasPublished := recipe.Published()

	if patch.Title != nil {
		recipe.Title = *patch.Title
	}
	if patch.Description != nil {
		recipe.Description = *patch.Description
	}
	if patch.Ingredients != nil {
		recipe.Ingredients = *patch.Ingredients
	}
	if patch.Steps != nil {
		recipe.Steps = *patch.Steps
	}
	if patch.PrepTime != nil {
		recipe.PrepTime = *patch.PrepTime
	}
	if patch.CookTime != nil {
		recipe.CookTime = *patch.CookTime
	}
	if patch.Servings != nil {
		recipe.Servings = *patch.Servings
	}
	if patch.ImageURL != nil {
		recipe.ImageURL = *patch.ImageURL
	}
	if patch.Visibility != nil {
		recipe.Visibility = *patch.Visibility
	}
	if patch.Status != nil {
		recipe.Status = *patch.Status
	}
	if err := s.normalize(&recipe); err != nil {
		return domain.Recipe{}, err
	}

	recipe.UpdatedAt = stamp(s.now())
	if recipe.UpdatedAt.Before(recipe.CreatedAt) {
		recipe.UpdatedAt = recipe.CreatedAt
	}
	if err := s.recipes.Update(ctx, recipe); err != nil {
		return domain.Recipe{}, err
	}
	if !wasPublished && recipe.Published() {
		s.publishPublished(ctx, recipe)
	}
	return recipe, nil
}

func (s *RecipeService) Delete(ctx context.Context, callerID, id string) error {
	recipe, err := s.owned(ctx, callerID, id)
	if err != nil {
		return err
	}
	if err := s.recipes.Delete(ctx, recipe.ID); err != nil {
		return err
	}
	s.logger.Info("recipe deleted", zap.String("recipe_id", recipe.ID), zap.String("creator_id", callerID))
	s.notify.publish(ctx, events.SubjectRecipeDeleted, events.RecipeEvent{
		RecipeID:   recipe.ID,
		CreatorID:  recipe.CreatorID,
		OccurredAt: stamp(s.now()),
	})
	return nil
}

// owned carga la receta y verifica que callerID sea el creador.
// Sin sesion la respuesta es ErrUnauthenticated; con otra identidad, ErrForbidden.
func (s *RecipeService) owned(ctx context.Context, callerID, id string) (domain.Recipe, error) {
	if callerID == "" {
		return domain.Recipe{}, domain.ErrUnauthenticated
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.Recipe{}, domain.ErrNotFound
	}
	recipe, err := s.recipes.GetByID(ctx, id)
	if err != nil {
		return domain.Recipe{}, err
	}
	if recipe.CreatorID != callerID {
		return domain.Recipe{}, domain.ErrForbidden
	}
	return recipe, nil
}

func (s *RecipeService) publishPublished(ctx context.Context, r domain.Recipe) {
	s.notify.publish(ctx, events.SubjectRecipePublished, events.RecipeEvent{
		RecipeID:   r.ID,
		CreatorID:  r.CreatorID,
		Visibility: string(r.Visibility),
		OccurredAt: r.UpdatedAt,
	})
}

// normalize limpia el texto libre y valida rangos y enums.
func (s *RecipeService) normalize(r *domain.Recipe) error {
	r.Title = s.sanitizer.Text(r.Title)
	if r.Title == "" {
		return domain.InvalidInputf("title is required")
	}
	if len([]rune(r.Title)) > maxTitleLen {
		return domain.InvalidInputf("title must be at most %d characters", maxTitleLen)
	}
	r.Description = s.sanitizer.Text(r.Description)
	if len([]rune(r.Description)) > maxDescriptionLen {
		return domain.InvalidInputf("description must be at most %d characters", maxDescriptionLen)
	}
	if !r.Visibility.Valid() {
		return domain.InvalidInputf("visibility must be public or followers")
	}
	if !r.Status.Valid() {
		return domain.InvalidInputf("status must be draft or published")
	}
	for _, f := range []struct {
		name string
		v    *int
	}{{"prep_time", r.PrepTime}, {"cook_time", r.CookTime}, {"servings", r.Servings}} {
		if f.v == nil {
			continue
		}
		if *f.v < 0 {
			return domain.InvalidInputf("%s must be non-negative", f.name)
		}
		if *f.v > maxRecipeNumber {
			return domain.InvalidInputf("%s must be at most %d", f.name, maxRecipeNumber)
		}
	}
	image, err := validateImageURL("image_url", r.ImageURL)
	if err != nil {
		return err
	}
	r.ImageURL = image

	if len(r.Ingredients) > maxListItems || len(r.Steps) > maxListItems {
		return domain.InvalidInputf("at most %d ingredients and %d steps", maxListItems, maxListItems)
	}
	ingredients := make([]domain.Ingredient, 0, len(r.Ingredients))
	for i, in := range r.Ingredients {
		in.Name = s.sanitizer.Text(in.Name)
		in.Quantity = s.sanitizer.Text(in.Quantity)
		in.Unit = s.sanitizer.Text(in.Unit)
		in.Note = s.sanitizer.Text(in.Note)
		if in.Name == "" {
			return domain.InvalidInputf("ingredient %d needs a name", i+1)
		}
		ingredients = append(ingredients, in)
	}
	steps := make([]domain.Step, 0, len(r.Steps))
	for i, st := range r.Steps {
		st.Instruction = s.sanitizer.Text(st.Instruction)
		if st.Instruction == "" {
			return domain.InvalidInputf("step %d needs an instruction", i+1)
		}
		steps = append(steps, st)
	}
	r.Ingredients = ingredients
	r.Steps = steps
	return nil
}
