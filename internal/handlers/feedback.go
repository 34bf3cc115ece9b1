package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lumenlearn/insight-backend/internal/platform/apierr"
	"github.com/lumenlearn/insight-backend/internal/services"
)

type FeedbackHandler struct {
	feedbackService services.FeedbackService
}

func NewFeedbackHandler(feedbackService services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

func (fh *FeedbackHandler) Record(c *gin.Context) {
	predictionID, ok := pathUUID(c, "predictionId")
	if !ok {
		return
	}
	var req struct {
		ActualOutcome string     `json:"actual_outcome"`
		FeedbackType  string     `json:"feedback_type"`
		RecordedAt    *time.Time `json:"recorded_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, apierr.CodeValidation, apierr.Validation("invalid request body"))
		return
	}
	result, err := fh.feedbackService.RecordFeedback(c.Request.Context(), predictionID, services.FeedbackInput{
		ActualOutcome: req.ActualOutcome,
		FeedbackType:  req.FeedbackType,
		RecordedAt:    req.RecordedAt,
	})
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, result)
}

func (fh *FeedbackHandler) ModelPerformance(c *gin.Context) {
	learnerID, ok := pathUUID(c, "learnerId")
	if !ok {
		return
	}
	windowDays := 0
	if raw := c.Query("window_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, apierr.Validation("invalid window_days"))
			return
		}
		windowDays = parsed
	}
	report, err := fh.feedbackService.ModelPerformance(c.Request.Context(), learnerID, windowDays)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, report)
}

func (fh *FeedbackHandler) StruggleReduction(c *gin.Context) {
	learnerID, ok := pathUUID(c, "learnerId")
	if !ok {
		return
	}
	periodDays := 0
	if raw := c.Query("period_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, apierr.Validation("invalid period_days"))
			return
		}
		periodDays = parsed
	}
	report, err := fh.feedbackService.StruggleReduction(c.Request.Context(), learnerID, periodDays)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, report)
}
