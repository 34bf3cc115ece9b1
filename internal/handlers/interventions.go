package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumenlearn/insight-backend/internal/platform/apierr"
	"github.com/lumenlearn/insight-backend/internal/services"
)

type InterventionHandler struct {
	selector services.InterventionSelector
}

func NewInterventionHandler(selector services.InterventionSelector) *InterventionHandler {
	return &InterventionHandler{selector: selector}
}

// List returns the learner's recommendations grouped by strategy with
// per-strategy effectiveness.
func (ih *InterventionHandler) List(c *gin.Context) {
	learnerID, ok := pathUUID(c, "learnerId")
	if !ok {
		return
	}
	groups, err := ih.selector.ListGrouped(c.Request.Context(), learnerID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"interventions": groups})
}

func (ih *InterventionHandler) Apply(c *gin.Context) {
	interventionID, ok := pathUUID(c, "interventionId")
	if !ok {
		return
	}
	var req struct {
		TargetPlanID *uuid.UUID `json:"target_plan_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, apierr.CodeValidation, apierr.Validation("invalid request body"))
			return
		}
	}
	result, err := ih.selector.Apply(c.Request.Context(), interventionID, req.TargetPlanID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, result)
}
