package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"incomedash/internal"
	"incomedash/internal/container"
)

// NewRouter builds the gin engine serving /api. It is mounted under the
// dashboard router, which passes the full path through.
func NewRouter(deps *container.Container) *gin.Engine {
	gin.SetMode(deps.Config.Server.GinMode)

	h := NewHandler(deps)

	router := gin.New()
	router.Use(gin.CustomRecovery(h.recoverPanic))
	router.Use(requestLogger(internal.DefaultLogger.With("API")))

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/schema", h.Schema)
		api.POST("/predict", h.Predict)
		api.GET("/charts", h.ListCharts)
		api.GET("/charts/:name", h.GetChart)
	}
	return router
}

func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
