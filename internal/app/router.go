package app

import (
	"onboarding_backend/docs"
	"onboarding_backend/internal/config"
	"onboarding_backend/internal/middleware"
	"onboarding_backend/internal/model"
	"onboarding_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.Check)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerCollaboratorRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.Check)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 证书真伪核验对外开放
		public.GET("/certificate/:id", c.certificate.Verify)
	}
}

func (a *App) registerCollaboratorRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)
	group.PUT("/profile", c.user.UpdateProfile)

	// 培训内容
	group.GET("/modules", c.content.ListModules)
	group.GET("/modules/:number", c.content.GetModule)

	// 测评闸门与期限
	group.GET("/check-attempts/:userId/:moduleId", c.onboarding.CheckAttempts)
	group.GET("/check-deadline/:userId", c.onboarding.CheckDeadline)

	// 测评与进度
	group.POST("/evaluations", c.onboarding.SubmitEvaluation)
	group.GET("/evaluations/:userId", c.onboarding.ListEvaluations)
	group.POST("/sync-progress/:userId", c.onboarding.SyncProgress)
	group.GET("/progress/:userId", c.onboarding.GetProgress)

	// 证书
	group.POST("/generate-certificate", c.certificate.Generate)
	group.GET("/certificates/:userId", c.certificate.ListByUser)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user), middleware.RoleMiddleware(model.Admin))
	{
		// 进度修数
		admin.PUT("/progress/:userId", c.onboarding.UpdateProgress)

		// 用户管理
		admin.GET("/admin/users", c.user.GetUsers)
		admin.GET("/admin/users/:id", c.user.GetUser)
		admin.PUT("/admin/users/:id", c.user.UpdateUser)
		admin.DELETE("/admin/users/:id", c.user.DeleteUser)
		admin.POST("/admin/users/:id/reset-password", c.user.ResetPassword)
		admin.POST("/admin/users/:id/disable", c.user.SetDisabled)
		admin.GET("/admin/reports/completions", c.user.CompletedReport)

		// 内容管理
		admin.POST("/admin/modules", c.content.CreateModule)
		admin.PUT("/admin/modules/:id", c.content.UpdateModule)
		admin.DELETE("/admin/modules/:id", c.content.DeleteModule)
		admin.POST("/admin/modules/:id/video", c.content.UploadModuleVideo)
		admin.POST("/admin/slides", c.content.CreateSlide)
		admin.PUT("/admin/slides/:id", c.content.UpdateSlide)
		admin.DELETE("/admin/slides/:id", c.content.DeleteSlide)
		admin.POST("/admin/checklist-items", c.content.CreateChecklistItem)
		admin.PUT("/admin/checklist-items/:id", c.content.UpdateChecklistItem)
		admin.DELETE("/admin/checklist-items/:id", c.content.DeleteChecklistItem)
		admin.POST("/admin/questions", c.content.CreateQuestion)
		admin.PUT("/admin/questions/:id", c.content.UpdateQuestion)
		admin.DELETE("/admin/questions/:id", c.content.DeleteQuestion)
	}
}
