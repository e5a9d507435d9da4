package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/learnweave/backend/internal/handlers"
)

type RouterConfig struct {
	CourseHandler *handlers.CourseHandler
	SSEHandler    *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-ID"},
		AllowCredentials: true,
	}))

	router.Use(otelgin.Middleware("learnweave"))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Courses
		api.POST("/courses", cfg.CourseHandler.CreateCourse)
		api.GET("/courses", cfg.CourseHandler.ListCourses)
		api.GET("/courses/:course_id", cfg.CourseHandler.GetCourse)
		api.POST("/courses/grade", cfg.CourseHandler.GradeQuestion)
		// SSE
		api.GET("/sse/stream", cfg.SSEHandler.Stream)
	}

	return router
}
