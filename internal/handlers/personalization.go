package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/lumenlearn/insight-backend/internal/services"
	"github.com/lumenlearn/insight-backend/internal/types"
)

type PersonalizationHandler struct {
	personalizationService services.PersonalizationService
}

func NewPersonalizationHandler(personalizationService services.PersonalizationService) *PersonalizationHandler {
	return &PersonalizationHandler{personalizationService: personalizationService}
}

// Config returns the per-context adjustment set. Missing context query
// defaults to SESSION.
func (ph *PersonalizationHandler) Config(c *gin.Context) {
	learnerID, ok := pathUUID(c, "learnerId")
	if !ok {
		return
	}
	personalizationContext := c.Query("context")
	if personalizationContext == "" {
		personalizationContext = types.ContextSession
	}
	config, err := ph.personalizationService.ApplyPersonalization(c.Request.Context(), learnerID, personalizationContext)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, config)
}

func (ph *PersonalizationHandler) Insights(c *gin.Context) {
	learnerID, ok := pathUUID(c, "learnerId")
	if !ok {
		return
	}
	insights, err := ph.personalizationService.AggregateInsights(c.Request.Context(), learnerID)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, insights)
}
