package app

import (
	"classhub_backend/docs"
	"classhub_backend/internal/config"
	"classhub_backend/internal/middleware"
	"classhub_backend/internal/model"
	"classhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		api.GET("/auth/me", c.auth.Me)

		a.registerQuizRoutes(api, c)
		a.registerAssignmentRoutes(api, c)
		a.registerModuleRoutes(api, c)
		a.registerLiveClassRoutes(api, c)
		a.registerEnrollmentRoutes(api, c)
		a.registerNotificationRoutes(api, c)
		a.registerAIRoutes(api, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
	}
}

func (a *App) registerQuizRoutes(rg *gin.RouterGroup, c *controllers) {
	author := middleware.RoleMiddleware(model.Teacher)
	student := middleware.RoleMiddleware(model.Student)

	quizzes := rg.Group("/quizzes")
	{
		quizzes.GET("", c.quiz.ListQuizzes)
		quizzes.GET("/my-attempts", student, c.quiz.MyAttempts)
		quizzes.GET("/:id", c.quiz.GetQuiz)

		quizzes.POST("", author, c.quiz.CreateQuiz)
		quizzes.POST("/import", author, c.quiz.ImportQuiz)
		quizzes.PUT("/:id", author, c.quiz.UpdateQuiz)
		quizzes.DELETE("/:id", author, c.quiz.DeleteQuiz)
		quizzes.PUT("/:id/publish", author, c.quiz.PublishQuiz)
		quizzes.PUT("/:id/close", author, c.quiz.CloseQuiz)
		quizzes.GET("/:id/attempts", author, c.quiz.QuizAttempts)

		quizzes.POST("/:id/attempt", student, c.quiz.StartAttempt)
		quizzes.PUT("/attempts/:id/submit", student, c.quiz.SubmitAttempt)
		quizzes.PUT("/attempts/:id/abandon", student, c.quiz.AbandonAttempt)
	}
}

func (a *App) registerAssignmentRoutes(rg *gin.RouterGroup, c *controllers) {
	author := middleware.RoleMiddleware(model.Teacher)
	student := middleware.RoleMiddleware(model.Student)

	assignments := rg.Group("/assignments")
	{
		assignments.GET("", c.assignment.ListAssignments)
		assignments.GET("/my-submissions", student, c.assignment.MySubmissions)
		assignments.GET("/:id", c.assignment.GetAssignment)

		assignments.POST("", author, c.assignment.CreateAssignment)
		assignments.PUT("/:id", author, c.assignment.UpdateAssignment)
		assignments.DELETE("/:id", author, c.assignment.DeleteAssignment)
		assignments.PUT("/:id/publish", author, c.assignment.PublishAssignment)
		assignments.PUT("/:id/close", author, c.assignment.CloseAssignment)
		assignments.GET("/:id/submissions", author, c.assignment.ListSubmissions)
		assignments.PUT("/submissions/:id/grade", author, c.assignment.GradeSubmission)
		assignments.PUT("/submissions/:id/return", author, c.assignment.ReturnSubmission)

		assignments.POST("/:id/submit", student, c.assignment.Submit)
	}
}

func (a *App) registerModuleRoutes(rg *gin.RouterGroup, c *controllers) {
	author := middleware.RoleMiddleware(model.Teacher)

	modules := rg.Group("/modules")
	{
		modules.GET("", c.module.ListModules)
		modules.GET("/:id", c.module.GetModule)

		modules.POST("", author, c.module.CreateModule)
		modules.PUT("/:id", author, c.module.UpdateModule)
		modules.DELETE("/:id", author, c.module.DeleteModule)
		modules.PUT("/:id/publish", author, c.module.PublishModule)
		modules.PUT("/:id/archive", author, c.module.ArchiveModule)
		modules.POST("/:id/materials", author, c.module.AddMaterial)
		modules.POST("/:id/videos", author, c.module.UploadVideo)
	}
}

func (a *App) registerLiveClassRoutes(rg *gin.RouterGroup, c *controllers) {
	author := middleware.RoleMiddleware(model.Teacher)

	classes := rg.Group("/live-classes")
	{
		classes.GET("", c.liveClass.ListClasses)
		classes.GET("/:id", c.liveClass.GetClass)
		classes.GET("/:id/ws", c.liveClass.Classroom)

		classes.POST("", author, c.liveClass.ScheduleClass)
		classes.PUT("/:id", author, c.liveClass.UpdateClass)
		classes.DELETE("/:id", author, c.liveClass.DeleteClass)
		classes.PUT("/:id/start", author, c.liveClass.StartClass)
		classes.PUT("/:id/end", author, c.liveClass.EndClass)
		classes.PUT("/:id/cancel", author, c.liveClass.CancelClass)
		classes.GET("/:id/participants", author, c.liveClass.Participants)
		classes.GET("/:id/recordings", author, c.liveClass.Recordings)
	}
}

func (a *App) registerEnrollmentRoutes(rg *gin.RouterGroup, c *controllers) {
	enrollments := rg.Group("/enrollments")
	{
		enrollments.POST("", middleware.RoleMiddleware(model.Student), c.enrollment.Enroll)
		enrollments.GET("/my", c.enrollment.MyEnrollments)
		enrollments.PUT("/:id/progress", c.enrollment.UpdateProgress)
		enrollments.PUT("/:id/drop", c.enrollment.Drop)
		enrollments.GET("/target/:type/:id", middleware.RoleMiddleware(model.Teacher), c.enrollment.TargetEnrollments)
	}
}

func (a *App) registerNotificationRoutes(rg *gin.RouterGroup, c *controllers) {
	notifications := rg.Group("/notifications")
	{
		notifications.GET("", c.notification.ListNotifications)
		notifications.GET("/unread-count", c.notification.UnreadCount)
		notifications.PUT("/read-all", c.notification.MarkAllRead)
		notifications.PUT("/:id/read", c.notification.MarkRead)
	}
}

func (a *App) registerAIRoutes(rg *gin.RouterGroup, c *controllers) {
	author := middleware.RoleMiddleware(model.Teacher)

	ai := rg.Group("/ai")
	{
		ai.POST("/quiz-questions", author, c.ai.GenerateQuestions)
		ai.POST("/feedback", author, c.ai.GenerateFeedback)
		ai.POST("/ask", c.ai.Ask)
		ai.POST("/recommendations", c.ai.Recommend)
		ai.POST("/study-tips", c.ai.StudyTips)
		ai.POST("/summarize", c.ai.Summarize)
	}
}
