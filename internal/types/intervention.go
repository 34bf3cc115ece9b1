package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// The six intervention strategies, each gated by one feature component.
const (
	StrategyPrerequisiteReview    = "PREREQUISITE_REVIEW"
	StrategyDifficultyProgress    = "DIFFICULTY_PROGRESSION"
	StrategyContentFormatAdapt    = "CONTENT_FORMAT_ADAPT"
	StrategyCognitiveLoadReduce   = "COGNITIVE_LOAD_REDUCE"
	StrategySpacedRepetitionBoost = "SPACED_REPETITION_BOOST"
	StrategyBreakScheduleAdjust   = "BREAK_SCHEDULE_ADJUST"
)

const (
	InterventionStatusPending  = "PENDING"
	InterventionStatusApplied  = "APPLIED"
	InterventionStatusRejected = "REJECTED"
)

// AppliedAction records one concrete plan mutation made by an applied
// intervention.
type AppliedAction struct {
	Action string    `json:"action"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// InterventionRecommendation is immutable once APPLIED: re-applying is
// a conflict, never a silent repeat.
type InterventionRecommendation struct {
	ID           uuid.UUID           `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PredictionID uuid.UUID           `gorm:"type:uuid;not null;index" json:"prediction_id"`
	Prediction   *StrugglePrediction `gorm:"constraint:OnDelete:CASCADE;foreignKey:PredictionID;references:ID" json:"prediction,omitempty"`
	LearnerID    uuid.UUID           `gorm:"type:uuid;not null;index" json:"learner_id"`
	ObjectiveID  uuid.UUID           `gorm:"type:uuid;not null" json:"objective_id"`

	Strategy       string         `gorm:"column:strategy;not null;index" json:"strategy"`
	Priority       int            `gorm:"column:priority;not null" json:"priority"`
	Status         string         `gorm:"column:status;not null;default:'PENDING';index" json:"status"`
	AppliedActions datatypes.JSON `gorm:"type:jsonb;column:applied_actions" json:"applied_actions,omitempty"`
	AppliedAt      *time.Time     `gorm:"column:applied_at" json:"applied_at,omitempty"`
	TargetPlanID   *uuid.UUID     `gorm:"type:uuid;column:target_plan_id" json:"target_plan_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (InterventionRecommendation) TableName() string { return "intervention_recommendation" }
