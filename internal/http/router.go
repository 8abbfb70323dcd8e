package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"recipeshare/internal/metrics"
)

// RouterDeps agrupa lo que necesita el router. Gatherer nil omite /metrics.
type RouterDeps struct {
	Auth     Authenticator
	AuthH    *AuthHandler
	ProfileH *ProfileHandler
	RecipeH  *RecipeHandler
	HealthH  *HealthHandler
	Limiter  *IPRateLimiter
	Recorder metrics.Recorder
	Gatherer prometheus.Gatherer
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, d RouterDeps) *gin.Engine {
	if d.Recorder == nil {
		d.Recorder = metrics.Noop()
	}
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), metricsMiddleware(d.Recorder))

	r.GET("/healthz", d.HealthH.Healthz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))
	}

	api := r.Group("", jsonContentTypeMiddleware(), d.Limiter.Middleware(logger))
	requireAuth := RequireAuth(d.Auth, logger)
	optionalAuth := OptionalAuth(d.Auth, logger)

	auth := api.Group("/auth")
	auth.POST("/signup", d.AuthH.SignUp)
	auth.POST("/confirm", d.AuthH.Confirm)
	auth.POST("/confirm/resend", d.AuthH.ResendConfirmation)
	auth.POST("/login", d.AuthH.Login)
	auth.POST("/refresh", d.AuthH.Refresh)
	auth.POST("/logout", requireAuth, d.AuthH.Logout)

	api.GET("/me", requireAuth, d.AuthH.Me)

	profiles := api.Group("/profiles")
	profiles.PATCH("/me", requireAuth, d.ProfileH.UpdateMe)
	profiles.GET("/:username", optionalAuth, d.ProfileH.Get)
	profiles.POST("/:username/follow", requireAuth, d.ProfileH.Follow)
	profiles.DELETE("/:username/follow", requireAuth, d.ProfileH.Unfollow)
	profiles.GET("/:username/followers", d.ProfileH.Followers)
	profiles.GET("/:username/following", d.ProfileH.Following)
	profiles.GET("/:username/recipes", optionalAuth, d.ProfileH.Recipes)

	recipes := api.Group("/recipes")
	recipes.POST("", requireAuth, d.RecipeH.Create)
	recipes.GET("/:id", optionalAuth, d.RecipeH.Get)
	recipes.PATCH("/:id", requireAuth, d.RecipeH.Update)
	recipes.DELETE("/:id", requireAuth, d.RecipeH.Delete)

	api.GET("/feed", optionalAuth, d.RecipeH.Feed)

	return r
}
