// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tabiplan/internal/http/handlers"
	"tabiplan/internal/http/middleware"
	"tabiplan/internal/service"
)

func NewRouter(planner *service.Planner, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logging(logger), middleware.Recovery(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	api := r.Group("/api")

	sessionHandler := handlers.NewSessionHandler(planner)
	api.POST("/sessions", sessionHandler.Create)
	api.GET("/sessions/:id", sessionHandler.Get)
	api.POST("/sessions/:id/suggestions", sessionHandler.Suggest)
	api.POST("/sessions/:id/select", sessionHandler.Select)
	api.POST("/sessions/:id/messages", sessionHandler.Message)
	api.GET("/sessions/:id/export", sessionHandler.Export)

	weatherHandler := handlers.NewWeatherHandler(planner)
	api.GET("/weather", weatherHandler.Get)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
