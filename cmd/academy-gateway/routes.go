package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-gateway/internal/handler"
	"github.com/noah-isme/academy-gateway/internal/middleware"
	"github.com/noah-isme/academy-gateway/internal/models"
	"github.com/noah-isme/academy-gateway/internal/service"
	"github.com/noah-isme/academy-gateway/pkg/config"
	"github.com/noah-isme/academy-gateway/pkg/logger"
	corsmiddleware "github.com/noah-isme/academy-gateway/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-gateway/pkg/middleware/requestid"
)

type routerDeps struct {
	sessions      *service.SessionService
	store         *service.AppStore
	certificates  *service.CertificateService
	notifications *service.NotificationService
	questions     *service.QuestionService
	profiles      *service.ProfileService
	views         *service.ViewService
	editor        *service.EditorService
	instructor    *service.InstructorService
	events        *service.EventHub
	metrics       *service.MetricsService
	postgres      handler.Pinger
	redis         handler.Pinger
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(deps.metrics, map[string]handler.Pinger{
		"postgres": deps.postgres,
		"redis":    deps.redis,
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(deps.sessions, deps.store)
	courseHandler := handler.NewCourseHandler(deps.store)
	certificateHandler := handler.NewCertificateHandler(deps.certificates)
	notificationHandler := handler.NewNotificationHandler(deps.notifications)
	viewHandler := handler.NewViewHandler(deps.views)
	questionHandler := handler.NewQuestionHandler(deps.questions)
	profileHandler := handler.NewProfileHandler(deps.profiles)
	draftHandler := handler.NewDraftHandler(deps.editor, cfg.Drafts.MaxFileSizeBytes)
	instructorHandler := handler.NewInstructorHandler(deps.instructor)
	eventsHandler := handler.NewEventsHandler(deps.events, cfg.CORS.AllowedOrigins, logr)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/public/certificates/:code", certificateHandler.Validate)
	api.GET("/certificates/files/:token", certificateHandler.File)
	api.GET("/drafts/previews/:token", draftHandler.Preview)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.sessions))
	secured.GET("/auth/me", authHandler.Me)
	secured.POST("/auth/logout", authHandler.Logout)

	secured.GET("/courses", courseHandler.List)
	secured.GET("/courses/:id", courseHandler.Get)
	secured.GET("/my-courses", courseHandler.MyCourses)
	secured.POST("/courses/:id/lessons/:lessonId/complete", courseHandler.CompleteLesson)
	secured.GET("/courses/:id/lessons/:lessonId/questions", questionHandler.List)
	secured.POST("/courses/:id/lessons/:lessonId/questions", questionHandler.Ask)

	secured.PUT("/profile", profileHandler.Update)
	secured.POST("/profile/avatar", profileHandler.Avatar)

	secured.GET("/certificates", certificateHandler.List)
	secured.GET("/certificates/:courseId/download", certificateHandler.Download)

	secured.GET("/notifications", notificationHandler.List)
	secured.POST("/notifications/read", notificationHandler.MarkRead)

	secured.GET("/views/:tab", viewHandler.Render)
	secured.GET("/events", eventsHandler.Stream)

	admin := secured.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	drafts := admin.Group("/drafts")
	drafts.POST("", draftHandler.Open)
	drafts.GET("/:id", draftHandler.Get)
	drafts.DELETE("/:id", draftHandler.Discard)
	drafts.POST("/:id/commands", draftHandler.Command)
	drafts.POST("/:id/files", draftHandler.Upload)
	drafts.POST("/:id/outline", draftHandler.Outline)
	drafts.POST("/:id/save", draftHandler.Save)

	instructor := admin.Group("/instructor")
	instructor.GET("/courses", instructorHandler.Courses)
	instructor.DELETE("/courses/:id", instructorHandler.DeleteCourse)
	instructor.GET("/affiliates", instructorHandler.Affiliates)
	instructor.GET("/signature", instructorHandler.Signature)
	instructor.PUT("/signature", instructorHandler.SaveSignature)

	return r
}
