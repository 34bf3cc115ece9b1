package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumenlearn/insight-backend/internal/platform/apierr"
	"github.com/lumenlearn/insight-backend/internal/repos"
	"github.com/lumenlearn/insight-backend/internal/services"
)

type WellnessHandler struct {
	learners         repos.LearnerRepo
	loadEstimator    services.CognitiveLoadEstimator
	burnoutEstimator services.BurnoutRiskEstimator
}

func NewWellnessHandler(learners repos.LearnerRepo, loadEstimator services.CognitiveLoadEstimator, burnoutEstimator services.BurnoutRiskEstimator) *WellnessHandler {
	return &WellnessHandler{learners: learners, loadEstimator: loadEstimator, burnoutEstimator: burnoutEstimator}
}

// requireLearner rejects unknown learners before any estimate runs, so
// a bad id never yields a metric that cannot be persisted.
func (wh *WellnessHandler) requireLearner(c *gin.Context, learnerID uuid.UUID) bool {
	learner, err := wh.learners.GetByID(c.Request.Context(), nil, learnerID)
	if err != nil {
		RespondAPIError(c, err)
		return false
	}
	if learner == nil {
		RespondAPIError(c, apierr.NotFound("learner %s not found", learnerID))
		return false
	}
	return true
}

func (wh *WellnessHandler) CalculateLoad(c *gin.Context) {
	learnerID, ok := pathUUID(c, "learnerId")
	if !ok {
		return
	}
	if !wh.requireLearner(c, learnerID) {
		return
	}
	var req struct {
		SessionID             uuid.UUID `json:"session_id"`
		ResponseLatenciesMs   []float64 `json:"response_latencies_ms"`
		BaselineLatencyMs     float64   `json:"baseline_latency_ms"`
		ItemsAttempted        int       `json:"items_attempted"`
		ItemsIncorrect        int       `json:"items_incorrect"`
		EngagementSamples     []float64 `json:"engagement_samples"`
		PerformanceSamples    []float64 `json:"performance_samples"`
		SessionMinutes        int       `json:"session_minutes"`
		TypicalSessionMinutes int       `json:"typical_session_minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, apierr.Validation("invalid request body"))
		return
	}
	metric, err := wh.loadEstimator.Calculate(c.Request.Context(), learnerID, req.SessionID, services.BehavioralData{
		ResponseLatenciesMs:   req.ResponseLatenciesMs,
		BaselineLatencyMs:     req.BaselineLatencyMs,
		ItemsAttempted:        req.ItemsAttempted,
		ItemsIncorrect:        req.ItemsIncorrect,
		EngagementSamples:     req.EngagementSamples,
		PerformanceSamples:    req.PerformanceSamples,
		SessionMinutes:        req.SessionMinutes,
		TypicalSessionMinutes: req.TypicalSessionMinutes,
	})
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, metric)
}

func (wh *WellnessHandler) BurnoutRisk(c *gin.Context) {
	learnerID, ok := pathUUID(c, "learnerId")
	if !ok {
		return
	}
	if !wh.requireLearner(c, learnerID) {
		return
	}
	assessment, err := wh.burnoutEstimator.Assess(c.Request.Context(), learnerID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, assessment)
}
