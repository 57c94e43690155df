package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"habittracker/internal/db"
	"habittracker/internal/handler"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	habitHandler *handler.HabitHandler,
	progressHandler *handler.ProgressHandler,
	healthHandler *handler.HealthHandler,
	wsHandler *handler.WSHandler,
	monitor *db.Monitor,
	jwtSecret string,
) *Router {
	r := gin.Default()
	r.Use(MetricsMiddleware())

	// Public
	r.GET("/api/health", healthHandler.Status)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", wsHandler.Serve)

	// Auth endpoints need the store but no token.
	creds := r.Group("/api/auth")
	creds.Use(AvailabilityMiddleware(monitor))
	{
		creds.POST("/register", authHandler.Register)
		creds.POST("/login", authHandler.Login)
	}

	// Protected
	auth := r.Group("/api")
	auth.Use(AuthMiddleware(jwtSecret), AvailabilityMiddleware(monitor))
	{
		auth.GET("/auth/me", authHandler.Me)

		auth.GET("/habits", habitHandler.List)
		auth.GET("/habits/stats/overview", habitHandler.StatsOverview)
		auth.GET("/habits/:id", habitHandler.Get)
		auth.POST("/habits", habitHandler.Create)
		auth.PUT("/habits/:id", habitHandler.Update)
		auth.DELETE("/habits/:id", habitHandler.Delete)
		auth.PATCH("/habits/:id/toggle-status", habitHandler.ToggleStatus)

		auth.GET("/progress", progressHandler.List)
		auth.GET("/progress/stats/overview", progressHandler.StatsOverview)
		auth.GET("/progress/date/:date", progressHandler.ByDate)
		auth.GET("/progress/habit/:habitId", progressHandler.ByHabit)
		auth.POST("/progress", progressHandler.Upsert)
		auth.PUT("/progress/:id", progressHandler.Update)
		auth.DELETE("/progress/:id", progressHandler.Delete)
		auth.PATCH("/progress/:id/toggle-completion", progressHandler.ToggleCompletion)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
