package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FeedbackTypeEducator  = "EDUCATOR"
	FeedbackTypeLearner   = "LEARNER"
	FeedbackTypeAutomatic = "AUTOMATIC"
)

const (
	OutcomeStruggled   = "STRUGGLED"
	OutcomeNoStruggle  = "NO_STRUGGLE"
	OutcomeNotObserved = "NOT_OBSERVED"
)

// PredictionFeedback is the only mechanism that moves a PENDING
// prediction out of PENDING. One row per prediction.
type PredictionFeedback struct {
	ID           uuid.UUID           `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PredictionID uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex" json:"prediction_id"`
	Prediction   *StrugglePrediction `gorm:"constraint:OnDelete:CASCADE;foreignKey:PredictionID;references:ID" json:"prediction,omitempty"`

	ActualOutcome string    `gorm:"column:actual_outcome;not null" json:"actual_outcome"`
	FeedbackType  string    `gorm:"column:feedback_type;not null" json:"feedback_type"`
	RecordedAt    time.Time `gorm:"column:recorded_at;not null" json:"recorded_at"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PredictionFeedback) TableName() string { return "prediction_feedback" }
