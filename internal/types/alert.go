package types

import "github.com/google/uuid"

const (
	AlertProactiveWarning       = "PROACTIVE_WARNING"
	AlertPrerequisite           = "PREREQUISITE_ALERT"
	AlertRealTime               = "REAL_TIME_ALERT"
	AlertInterventionSuggestion = "INTERVENTION_SUGGESTION"
)

// Alert is derived and ephemeral: regenerated on every prioritization
// pass, never persisted. Priority is 0-100.
type Alert struct {
	Type           string     `json:"type"`
	Priority       float64    `json:"priority"`
	Severity       string     `json:"severity"`
	PredictionID   uuid.UUID  `json:"prediction_id"`
	ObjectiveID    uuid.UUID  `json:"objective_id"`
	InterventionID *uuid.UUID `json:"intervention_id,omitempty"`
	Message        string     `json:"message,omitempty"`
}
