package app

import (
	"bravolearn_backend/docs"
	"bravolearn_backend/internal/config"
	"bravolearn_backend/internal/middleware"
	"bravolearn_backend/internal/model"

	"bravolearn_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 课程列表允许游客访问，登录用户可看到报名状态
		public.GET("/courses", middleware.OptionalAuth(cfg), c.course.ListCourses)
		public.GET("/leaderboard", c.leaderboard.GetLeaderboard)
	}
}

func (a *App) registerLearnerRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.profile.GetProfile)
	group.POST("/profile/avatar", c.profile.UploadAvatar)

	courses := group.Group("/courses")
	{
		courses.GET("/:id", c.course.GetCourse)
		courses.POST("/:id/enroll", c.course.Enroll)
	}

	lessons := group.Group("/lessons")
	{
		lessons.GET("/:id", c.lesson.GetLesson)
		lessons.POST("/:id/start", c.lesson.StartLesson)
		lessons.POST("/:id/complete", c.lesson.CompleteLesson)
	}

	group.POST("/exercises/:id/answer", c.lesson.SubmitAnswer)

	group.GET("/achievements", c.achievement.ListAchievements)
	group.GET("/leaderboard/me", c.leaderboard.GetMyRank)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/debug/state", c.profile.DebugState)
	}
}
