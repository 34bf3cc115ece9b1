package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumenlearn/insight-backend/internal/platform/apierr"
	"github.com/lumenlearn/insight-backend/internal/repos"
	"github.com/lumenlearn/insight-backend/internal/services"
)

type PredictionHandler struct {
	predictionService services.PredictionService
}

func NewPredictionHandler(predictionService services.PredictionService) *PredictionHandler {
	return &PredictionHandler{predictionService: predictionService}
}

// Generate runs the prediction pipeline for every objective due within
// the requested horizon.
func (ph *PredictionHandler) Generate(c *gin.Context) {
	learnerID, ok := pathUUID(c, "learnerId")
	if !ok {
		return
	}
	var req struct {
		DaysAhead int `json:"days_ahead"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, apierr.Validation("invalid request body"))
			return
		}
	}
	result, err := ph.predictionService.RunPredictions(c.Request.Context(), learnerID, req.DaysAhead)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, result)
}

func (ph *PredictionHandler) List(c *gin.Context) {
	learnerID, ok := pathUUID(c, "learnerId")
	if !ok {
		return
	}
	filter := repos.PredictionFilter{Status: c.Query("status")}
	if raw := c.Query("min_probability"); raw != "" {
		minProb, err := strconv.ParseFloat(raw, 64)
		if err != nil || minProb < 0 || minProb > 1 {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, apierr.Validation("invalid min_probability"))
			return
		}
		filter.MinProbability = minProb
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, apierr.Validation("invalid since, want RFC3339"))
			return
		}
		filter.Since = &since
	}

	rows, stats, err := ph.predictionService.ListPredictions(c.Request.Context(), learnerID, filter)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"predictions": rows, "stats": stats})
}
