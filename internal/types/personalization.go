package types

import "github.com/google/uuid"

const (
	ContextMission    = "MISSION"
	ContextContent    = "CONTENT"
	ContextAssessment = "ASSESSMENT"
	ContextSession    = "SESSION"
)

// PatternInsights summarizes detected behavioral patterns for a learner.
// Quality below the aggregator's gate drops the whole block.
type PatternInsights struct {
	Quality           float64  `json:"quality"`
	PeakHours         []int    `json:"peak_hours,omitempty"`
	PreferredModality string   `json:"preferred_modality,omitempty"`
	StrongTopics      []string `json:"strong_topics,omitempty"`
	WeakTopics        []string `json:"weak_topics,omitempty"`
}

// PredictionInsights carries the active high-confidence predictions and
// open interventions.
type PredictionInsights struct {
	ActivePredictions  []*StrugglePrediction         `json:"active_predictions"`
	OpenInterventions  []*InterventionRecommendation `json:"open_interventions"`
	MeanConfidence     float64                       `json:"mean_confidence"`
	HighestProbability float64                       `json:"highest_probability"`
}

// OrchestrationInsights summarizes recent study-plan activity.
type OrchestrationInsights struct {
	ActivePlanID         *uuid.UUID `json:"active_plan_id,omitempty"`
	PlannedItems         int        `json:"planned_items"`
	AppliedInterventions int        `json:"applied_interventions"`
	RecentCompletionRate float64    `json:"recent_completion_rate"`
}

// WellnessInsights bundles current cognitive load and burnout state.
type WellnessInsights struct {
	CurrentLoad    float64                `json:"current_load"`
	LoadConfidence float64                `json:"load_confidence"`
	Burnout        *BurnoutRiskAssessment `json:"burnout,omitempty"`
}

// DataQualityFlags records which insight sources made it past their
// failure boundary and quality gate.
type DataQualityFlags struct {
	PatternsAvailable      bool `json:"patterns_available"`
	PredictionsAvailable   bool `json:"predictions_available"`
	OrchestrationAvailable bool `json:"orchestration_available"`
	WellnessAvailable      bool `json:"wellness_available"`
}

// AggregatedInsights is the per-request aggregation output. Any source
// may be nil; the flags say which ones were used.
type AggregatedInsights struct {
	LearnerID     uuid.UUID              `json:"learner_id"`
	Patterns      *PatternInsights       `json:"patterns,omitempty"`
	Predictions   *PredictionInsights    `json:"predictions,omitempty"`
	Orchestration *OrchestrationInsights `json:"orchestration,omitempty"`
	Wellness      *WellnessInsights      `json:"wellness,omitempty"`
	DataQuality   DataQualityFlags       `json:"data_quality"`
}

// PersonalizationConfig is a pure read-aggregation output, never a
// system of record. Confidence floors at 0.5 and caps at 1.0.
type PersonalizationConfig struct {
	LearnerID           uuid.UUID      `json:"learner_id"`
	Context             string         `json:"context"`
	Adjustments         map[string]any `json:"adjustments"`
	Confidence          float64        `json:"confidence"`
	Reasoning           []string       `json:"reasoning"`
	DataQualityWarnings []string       `json:"data_quality_warnings"`
}
