package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/foodvision/food-vision/internal/handlers"
	"github.com/foodvision/food-vision/internal/middleware"
)

// Setup creates and configures the Gin router
func Setup(h *handlers.Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	router.SetHTMLTemplate(handlers.Templates())

	// Health endpoints
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Upload page
	router.GET("/", h.Index)
	router.POST("/", h.Submit)
	router.POST("/ui/model", h.SubmitModel)

	// Prediction API
	predict := router.Group("/predict")
	{
		predict.POST("", h.Predict)
		predict.POST("/image", h.PredictFromImage)
		predict.POST("/scores", h.PredictScores)
	}

	// Model lifecycle
	models := router.Group("/model")
	{
		models.GET("", h.ModelStatus)
		models.POST("", h.UploadModel)
		models.POST("/reload", h.ReloadModel)
	}

	return router
}
