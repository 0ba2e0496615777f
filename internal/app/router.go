package app

import (
	"edu_copilot_backend/internal/config"
	"edu_copilot_backend/internal/middleware"
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/me", c.auth.Me)

		a.registerProfileRoutes(authGroup, c)
		a.registerRecommendationRoutes(authGroup, c)
		a.registerPlanRoutes(authGroup, c)

		// 教师与管理员
		admin := authGroup.Group("/admin")
		admin.Use(middleware.RoleMiddleware(model.Teacher))
		{
			admin.POST("/recommendations/warmup", c.recommendation.Warmup)
		}
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerProfileRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/profiles", c.profile.CreateProfile)
	rg.GET("/profiles/me", c.profile.GetProfile)
	rg.PUT("/profiles/me", c.profile.UpdateProfile)
}

func (a *App) registerRecommendationRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/recommendations", c.recommendation.GetRecommendations)
	rg.GET("/recommendations/by-style", c.recommendation.GetByStyle)
	rg.GET("/recommendations/by-topics", c.recommendation.GetByTopics)
	rg.GET("/recommendations/media/:type", c.recommendation.GetByMediaType)
	rg.GET("/recommendations/progression", c.recommendation.GetProgression)

	rg.GET("/content/:id", c.recommendation.GetContent)
	rg.GET("/content/:id/similar", c.recommendation.GetSimilar)
}

func (a *App) registerPlanRoutes(rg *gin.RouterGroup, c *controllers) {
	plans := rg.Group("/learning-plans")
	{
		plans.POST("", c.plan.CreatePlan)
		plans.POST("/balanced", c.plan.CreateBalancedPlan)
		plans.POST("/path", c.plan.CreatePathPlan)
		plans.GET("", c.plan.ListPlans)
		plans.GET("/:id", c.plan.GetPlan)
		plans.PUT("/:id/activities/:activityId", c.plan.UpdateActivityStatus)
		plans.POST("/:id/adapt", c.plan.AdaptPlan)
		plans.POST("/:id/export", c.plan.ExportPlan)
		plans.DELETE("/:id", c.plan.DeletePlan)
	}

	rg.GET("/progress", c.plan.GetProgress)
}
