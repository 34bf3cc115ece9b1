package main

import (
	"fmt"
	"os"

	redisclient "github.com/lumenlearn/insight-backend/internal/clients/redis"
	"github.com/lumenlearn/insight-backend/internal/db"
	"github.com/lumenlearn/insight-backend/internal/handlers"
	"github.com/lumenlearn/insight-backend/internal/middleware"
	"github.com/lumenlearn/insight-backend/internal/platform/envutil"
	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/platform/textgen"
	"github.com/lumenlearn/insight-backend/internal/repos"
	"github.com/lumenlearn/insight-backend/internal/resilience"
	"github.com/lumenlearn/insight-backend/internal/server"
	"github.com/lumenlearn/insight-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis (optional)
	cache, err := redisclient.NewCache(log)
	if err != nil {
		log.Warn("Redis init failed, caching disabled", "error", err)
		cache = nil
	}
	if cache != nil {
		defer cache.Close()
	}

	// Text generation client (optional)
	textgenClient, err := textgen.NewClient(log)
	if err != nil {
		log.Warn("Text generation init failed, narration disabled", "error", err)
		textgenClient = nil
	}

	// Resilience
	executor := resilience.NewExecutor(log)

	// Repos
	log.Info("Setting up Repos from main...")
	learnerRepo := repos.NewLearnerRepo(thePG, log)
	profileRepo := repos.NewLearnerProfileRepo(thePG, log)
	historyRepo := repos.NewHistoryRepo(thePG, log)
	predictionRepo := repos.NewPredictionRepo(thePG, log)
	interventionRepo := repos.NewInterventionRepo(thePG, log)
	feedbackRepo := repos.NewFeedbackRepo(thePG, log)
	studyPlanRepo := repos.NewStudyPlanRepo(thePG, log)
	wellnessRepo := repos.NewWellnessRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	narrator := services.NewNarrator(log, textgenClient, executor)
	featureExtractor := services.NewFeatureExtractor(log, historyRepo, profileRepo, wellnessRepo)
	interventionSelector := services.NewInterventionSelector(thePG, log, interventionRepo, predictionRepo, studyPlanRepo, profileRepo, historyRepo)
	alertPrioritizer := services.NewAlertPrioritizer(log)
	predictionService := services.NewPredictionService(
		log,
		featureExtractor,
		predictionRepo,
		historyRepo,
		wellnessRepo,
		learnerRepo,
		interventionSelector,
		alertPrioritizer,
		narrator,
	)
	loadEstimator := services.NewCognitiveLoadEstimator(log, wellnessRepo)
	burnoutEstimator := services.NewBurnoutRiskEstimator(log, historyRepo, wellnessRepo, cache, narrator)
	feedbackService := services.NewFeedbackService(log, thePG, predictionRepo, feedbackRepo)
	personalizationService := services.NewPersonalizationService(
		log,
		learnerRepo,
		profileRepo,
		historyRepo,
		predictionRepo,
		interventionRepo,
		studyPlanRepo,
		wellnessRepo,
		burnoutEstimator,
		cache,
	)

	// Handlers
	log.Info("Setting up handlers from main...")
	healthHandler := handlers.NewHealthHandler(thePG, cache)
	predictionHandler := handlers.NewPredictionHandler(predictionService)
	interventionHandler := handlers.NewInterventionHandler(interventionSelector)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackService)
	personalizationHandler := handlers.NewPersonalizationHandler(personalizationService)
	wellnessHandler := handlers.NewWellnessHandler(learnerRepo, loadEstimator, burnoutEstimator)

	// Middleware
	requestLog := middleware.NewRequestLogMiddleware(log)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		HealthHandler:          healthHandler,
		PredictionHandler:      predictionHandler,
		InterventionHandler:    interventionHandler,
		FeedbackHandler:        feedbackHandler,
		PersonalizationHandler: personalizationHandler,
		WellnessHandler:        wellnessHandler,
		RequestLog:             requestLog,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
