package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipeshare/internal/domain"
	"recipeshare/internal/service"
)

// RecipeHandler expone el CRUD de recetas y el feed.
type RecipeHandler struct {
	logger  *zap.Logger
	recipes *service.RecipeService
	feed    *service.FeedService
}

func NewRecipeHandler(logger *zap.Logger, recipes *service.RecipeService, feed *service.FeedService) *RecipeHandler {
	return &RecipeHandler{logger: logger, recipes: recipes, feed: feed}
}

// optionalInt distingue un campo ausente de un null explicito en un PATCH.
type optionalInt struct {
	set   bool
	value *int
}

func (o *optionalInt) UnmarshalJSON(b []byte) error {
	o.set = true
	return json.Unmarshal(b, &o.value)
}

func (o optionalInt) patch() **int {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

type recipeRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	Ingredients []domain.Ingredient `json:"ingredients"`
	Steps       []domain.Step       `json:"steps"`
	PrepTime    *int                `json:"prep_time"`
	CookTime    *int                `json:"cook_time"`
	Servings    *int                `json:"servings"`
	ImageURL    string              `json:"image_url"`
	Visibility  domain.Visibility   `json:"visibility"`
	Status      domain.RecipeStatus `json:"status"`
}

type recipePatchRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Ingredients *[]domain.Ingredient `json:"ingredients"`
	Steps       *[]domain.Step       `json:"steps"`
	PrepTime    optionalInt          `json:"prep_time"`
	CookTime    optionalInt          `json:"cook_time"`
	Servings    optionalInt          `json:"servings"`
	ImageURL    *string              `json:"image_url"`
	Visibility  *domain.Visibility   `json:"visibility"`
	Status      *domain.RecipeStatus `json:"status"`
}

// Create maneja POST /recipes.
func (h *RecipeHandler) Create(c *gin.Context) {
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "create recipe", err)
		return
	}
	recipe, err := h.recipes.Create(c.Request.Context(), viewerID(c), service.RecipeInput{
		Title:       req.Title,
		Description: req.Description,
		Ingredients: req.Ingredients,
		Steps:       req.Steps,
		PrepTime:    req.PrepTime,
		CookTime:    req.CookTime,
		Servings:    req.Servings,
		ImageURL:    req.ImageURL,
		Visibility:  req.Visibility,
		Status:      req.Status,
	})
	if err != nil {
		writeError(c, h.logger, "create recipe", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recipe": recipe})
}

// Get maneja GET /recipes/:id. Una receta no visible responde 404.
func (h *RecipeHandler) Get(c *gin.Context) {
	recipe, err := h.recipes.Get(c.Request.Context(), c.Param("id"), viewerID(c))
	if err != nil {
		writeError(c, h.logger, "get recipe", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": recipe})
}

// Update maneja PATCH /recipes/:id.
func (h *RecipeHandler) Update(c *gin.Context) {
	var req recipePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update recipe", err)
		return
	}
	recipe, err := h.recipes.Update(c.Request.Context(), viewerID(c), c.Param("id"), service.RecipePatch{
		Title:       req.Title,
		Description: req.Description,
		Ingredients: req.Ingredients,
		Steps:       req.Steps,
		PrepTime:    req.PrepTime.patch(),
		CookTime:    req.CookTime.patch(),
		Servings:    req.Servings.patch(),
		ImageURL:    req.ImageURL,
		Visibility:  req.Visibility,
		Status:      req.Status,
	})
	if err != nil {
		writeError(c, h.logger, "update recipe", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": recipe})
}

// Delete maneja DELETE /recipes/:id.
func (h *RecipeHandler) Delete(c *gin.Context) {
	if err := h.recipes.Delete(c.Request.Context(), viewerID(c), c.Param("id")); err != nil {
		writeError(c, h.logger, "delete recipe", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Feed maneja GET /feed.
func (h *RecipeHandler) Feed(c *gin.Context) {
	page, err := pageParams(c)
	if err != nil {
		writeError(c, h.logger, "feed", err)
		return
	}
	out, err := h.feed.ComposeFeed(c.Request.Context(), viewerID(c), page)
	if err != nil {
		writeError(c, h.logger, "feed", err)
		return
	}
	c.JSON(http.StatusOK, out)
}
