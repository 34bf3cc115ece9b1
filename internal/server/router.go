package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lumenlearn/insight-backend/internal/handlers"
	"github.com/lumenlearn/insight-backend/internal/middleware"
	"github.com/lumenlearn/insight-backend/internal/platform/envutil"
)

type RouterConfig struct {
	HealthHandler          *handlers.HealthHandler
	PredictionHandler      *handlers.PredictionHandler
	InterventionHandler    *handlers.InterventionHandler
	FeedbackHandler        *handlers.FeedbackHandler
	PersonalizationHandler *handlers.PersonalizationHandler
	WellnessHandler        *handlers.WellnessHandler
	RequestLog             *middleware.RequestLogMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if envutil.String("APP_MODE", "dev") == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cfg.RequestLog.Handle())

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.Check)

	api := router.Group("/api")
	{
		learners := api.Group("/learners/:learnerId")
		// Predictions
		learners.POST("/predictions/generate", cfg.PredictionHandler.Generate)
		learners.GET("/predictions", cfg.PredictionHandler.List)
		// Interventions
		learners.GET("/interventions", cfg.InterventionHandler.List)
		// Feedback analytics
		learners.GET("/model-performance", cfg.FeedbackHandler.ModelPerformance)
		learners.GET("/struggle-reduction", cfg.FeedbackHandler.StruggleReduction)
		// Personalization
		learners.GET("/personalization/config", cfg.PersonalizationHandler.Config)
		learners.GET("/personalization/insights", cfg.PersonalizationHandler.Insights)
		// Wellness
		learners.GET("/burnout-risk", cfg.WellnessHandler.BurnoutRisk)
		learners.POST("/cognitive-load/calculate", cfg.WellnessHandler.CalculateLoad)

		api.POST("/interventions/:interventionId/apply", cfg.InterventionHandler.Apply)
		api.POST("/predictions/:predictionId/feedback", cfg.FeedbackHandler.Record)
	}

	return router
}
