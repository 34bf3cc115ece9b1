package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CognitiveLoadMetric is an append-only series of in-session load
// estimates, 0-100.
type CognitiveLoadMetric struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID uuid.UUID `gorm:"type:uuid;not null;index:idx_load_learner,priority:1" json:"learner_id"`
	Learner   *Learner  `gorm:"constraint:OnDelete:CASCADE;foreignKey:LearnerID;references:ID" json:"learner,omitempty"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`

	LoadScore        float64        `gorm:"column:load_score;not null" json:"load_score"`
	Confidence       float64        `gorm:"column:confidence;not null" json:"confidence"`
	StressIndicators datatypes.JSON `gorm:"type:jsonb;column:stress_indicators" json:"stress_indicators"`
	MeasuredAt       time.Time      `gorm:"column:measured_at;not null;index:idx_load_learner,priority:2" json:"measured_at"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CognitiveLoadMetric) TableName() string { return "cognitive_load_metric" }

const (
	RiskLevelLow      = "LOW"
	RiskLevelMedium   = "MEDIUM"
	RiskLevelHigh     = "HIGH"
	RiskLevelCritical = "CRITICAL"
)

// ContributingFactor is one weighted input to a burnout assessment.
type ContributingFactor struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

type BurnoutRiskAssessment struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID uuid.UUID `gorm:"type:uuid;not null;index:idx_burnout_learner,priority:1" json:"learner_id"`
	Learner   *Learner  `gorm:"constraint:OnDelete:CASCADE;foreignKey:LearnerID;references:ID" json:"learner,omitempty"`

	RiskScore           float64        `gorm:"column:risk_score;not null" json:"risk_score"`
	RiskLevel           string         `gorm:"column:risk_level;not null;index" json:"risk_level"`
	Confidence          float64        `gorm:"column:confidence;not null" json:"confidence"`
	ContributingFactors datatypes.JSON `gorm:"type:jsonb;column:contributing_factors" json:"contributing_factors"`
	WarningSignals      datatypes.JSON `gorm:"type:jsonb;column:warning_signals" json:"warning_signals,omitempty"`
	Recommendations     datatypes.JSON `gorm:"type:jsonb;column:recommendations" json:"recommendations,omitempty"`
	AssessedAt          time.Time      `gorm:"column:assessed_at;not null;index:idx_burnout_learner,priority:2" json:"assessed_at"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (BurnoutRiskAssessment) TableName() string { return "burnout_risk_assessment" }
