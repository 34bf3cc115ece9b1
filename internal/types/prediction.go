package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FeatureVector is the normalized per-(learner, objective) input to the
// struggle predictor. Every component is in [0,1]. Recomputed each run,
// never stored on its own; a snapshot rides on the prediction row.
type FeatureVector struct {
	PrerequisiteGap    float64 `json:"prerequisite_gap"`
	ComplexityMismatch float64 `json:"complexity_mismatch"`
	ModalityMismatch   float64 `json:"modality_mismatch"`
	HistoricalStruggle float64 `json:"historical_struggle"`
	CognitiveLoad      float64 `json:"cognitive_load"`
	SessionPerformance float64 `json:"session_performance"`
}

const (
	PredictionStatusPending       = "PENDING"
	PredictionStatusConfirmed     = "CONFIRMED"
	PredictionStatusFalsePositive = "FALSE_POSITIVE"
	PredictionStatusMissed        = "MISSED"
)

const (
	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// Indicator types mirror the feature components that can trip them.
const (
	IndicatorPrerequisiteGap    = "PREREQUISITE_GAP"
	IndicatorComplexityMismatch = "COMPLEXITY_MISMATCH"
	IndicatorModalityMismatch   = "MODALITY_MISMATCH"
	IndicatorHistoricalStruggle = "HISTORICAL_STRUGGLE"
	IndicatorCognitiveLoad      = "COGNITIVE_LOAD"
	IndicatorLowPerformance     = "LOW_PERFORMANCE"
)

type StruggleIndicator struct {
	Type     string  `json:"type"`
	Severity string  `json:"severity"`
	Weight   float64 `json:"weight"`
	Value    float64 `json:"value"`
}

// StrugglePrediction rows are append-only: status transitions happen
// only through feedback, and rows are never deleted so model evaluation
// history stays intact.
type StrugglePrediction struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_prediction_learner,priority:1" json:"learner_id"`
	Learner     *Learner   `gorm:"constraint:OnDelete:CASCADE;foreignKey:LearnerID;references:ID" json:"learner,omitempty"`
	ObjectiveID uuid.UUID  `gorm:"type:uuid;not null;index:idx_prediction_learner,priority:2" json:"objective_id"`
	Objective   *Objective `gorm:"constraint:OnDelete:CASCADE;foreignKey:ObjectiveID;references:ID" json:"objective,omitempty"`

	Probability float64        `gorm:"column:probability;not null" json:"probability"`
	Confidence  float64        `gorm:"column:confidence;not null" json:"confidence"`
	Status      string         `gorm:"column:status;not null;default:'PENDING';index" json:"status"`
	Indicators  datatypes.JSON `gorm:"type:jsonb;column:indicators" json:"indicators"`
	Features    datatypes.JSON `gorm:"type:jsonb;column:features" json:"features"`
	PredictedAt time.Time      `gorm:"column:predicted_at;not null;index" json:"predicted_at"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StrugglePrediction) TableName() string { return "struggle_prediction" }
