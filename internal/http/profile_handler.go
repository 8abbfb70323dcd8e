package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipeshare/internal/domain"
	"recipeshare/internal/service"
)

// ProfileHandler expone perfiles, el grafo social y el listado por creador.
type ProfileHandler struct {
	logger   *zap.Logger
	profiles *service.ProfileService
	graph    *service.GraphService
	feed     *service.FeedService
}

func NewProfileHandler(logger *zap.Logger, profiles *service.ProfileService, graph *service.GraphService, feed *service.FeedService) *ProfileHandler {
	return &ProfileHandler{logger: logger, profiles: profiles, graph: graph, feed: feed}
}

// pageParams lee ?cursor y ?limit; el rango del limite lo ajusta el servicio.
func pageParams(c *gin.Context) (service.PageParams, error) {
	page := service.PageParams{Cursor: c.Query("cursor")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return service.PageParams{}, domain.InvalidInputf("limit must be an integer")
		}
		page.Limit = limit
	}
	return page, nil
}

// Get maneja GET /profiles/:username.
func (h *ProfileHandler) Get(c *gin.Context) {
	view, err := h.profiles.View(c.Request.Context(), c.Param("username"), viewerID(c))
	if err != nil {
		writeError(c, h.logger, "get profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": view})
}

// UpdateMe maneja PATCH /profiles/me.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	var req struct {
		Username  *string `json:"username"`
		FullName  *string `json:"full_name"`
		Bio       *string `json:"bio"`
		AvatarURL *string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update profile", err)
		return
	}
	id := viewerID(c)
	profile, err := h.profiles.Update(c.Request.Context(), id, id, service.ProfileUpdate{
		Username:  req.Username,
		FullName:  req.FullName,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		writeError(c, h.logger, "update profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// Follow maneja POST /profiles/:username/follow.
func (h *ProfileHandler) Follow(c *gin.Context) {
	target, err := h.profiles.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, h.logger, "follow", err)
		return
	}
	if err := h.graph.Follow(c.Request.Context(), viewerID(c), target.ID); err != nil {
		writeError(c, h.logger, "follow", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_following": true})
}

// Unfollow maneja DELETE /profiles/:username/follow.
func (h *ProfileHandler) Unfollow(c *gin.Context) {
	target, err := h.profiles.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, h.logger, "unfollow", err)
		return
	}
	if err := h.graph.Unfollow(c.Request.Context(), viewerID(c), target.ID); err != nil {
		writeError(c, h.logger, "unfollow", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_following": false})
}

// Followers maneja GET /profiles/:username/followers.
func (h *ProfileHandler) Followers(c *gin.Context) {
	h.listGraph(c, "followers", h.graph.Followers)
}

// Following maneja GET /profiles/:username/following.
func (h *ProfileHandler) Following(c *gin.Context) {
	h.listGraph(c, "following", h.graph.Following)
}

func (h *ProfileHandler) listGraph(c *gin.Context, op string, list func(ctx context.Context, profileID string, page service.PageParams) (domain.FollowPage, error)) {
	page, err := pageParams(c)
	if err != nil {
		writeError(c, h.logger, op, err)
		return
	}
	profile, err := h.profiles.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, h.logger, op, err)
		return
	}
	out, err := list(c.Request.Context(), profile.ID, page)
	if err != nil {
		writeError(c, h.logger, op, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Recipes maneja GET /profiles/:username/recipes.
func (h *ProfileHandler) Recipes(c *gin.Context) {
	page, err := pageParams(c)
	if err != nil {
		writeError(c, h.logger, "creator recipes", err)
		return
	}
	profile, err := h.profiles.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, h.logger, "creator recipes", err)
		return
	}
	out, err := h.feed.CreatorRecipes(c.Request.Context(), viewerID(c), profile.ID, page)
	if err != nil {
		writeError(c, h.logger, "creator recipes", err)
		return
	}
	c.JSON(http.StatusOK, out)
}
