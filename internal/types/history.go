package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudySession is one sitting of learner activity. The behavioral
// columns feed the cognitive-load and burnout estimators.
type StudySession struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID uuid.UUID `gorm:"type:uuid;not null;index:idx_session_learner,priority:1" json:"learner_id"`
	Learner   *Learner  `gorm:"constraint:OnDelete:CASCADE;foreignKey:LearnerID;references:ID" json:"learner,omitempty"`

	StartedAt       time.Time `gorm:"column:started_at;not null;index:idx_session_learner,priority:2" json:"started_at"`
	DurationMinutes int       `gorm:"column:duration_minutes;not null;default:0" json:"duration_minutes"`
	ItemsAttempted  int       `gorm:"column:items_attempted;not null;default:0" json:"items_attempted"`
	ItemsCorrect    int       `gorm:"column:items_correct;not null;default:0" json:"items_correct"`
	AvgLatencyMs    float64   `gorm:"column:avg_latency_ms;not null;default:0" json:"avg_latency_ms"`
	Engagement      float64   `gorm:"column:engagement;not null;default:0" json:"engagement"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StudySession) TableName() string { return "study_session" }

// ReviewRecord is one graded review of an objective.
type ReviewRecord struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_review_learner_obj,priority:1" json:"learner_id"`
	ObjectiveID uuid.UUID  `gorm:"type:uuid;not null;index:idx_review_learner_obj,priority:2" json:"objective_id"`
	Objective   *Objective `gorm:"constraint:OnDelete:CASCADE;foreignKey:ObjectiveID;references:ID" json:"objective,omitempty"`

	Correct    bool      `gorm:"column:correct;not null" json:"correct"`
	LatencyMs  float64   `gorm:"column:latency_ms;not null;default:0" json:"latency_ms"`
	ReviewedAt time.Time `gorm:"column:reviewed_at;not null;index" json:"reviewed_at"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ReviewRecord) TableName() string { return "review_record" }

// PerformanceRecord is a normalized per-objective outcome score in [0,1].
type PerformanceRecord struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_perf_learner_obj,priority:1" json:"learner_id"`
	ObjectiveID uuid.UUID  `gorm:"type:uuid;not null;index:idx_perf_learner_obj,priority:2" json:"objective_id"`
	Objective   *Objective `gorm:"constraint:OnDelete:CASCADE;foreignKey:ObjectiveID;references:ID" json:"objective,omitempty"`

	Score      float64   `gorm:"column:score;not null" json:"score"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null;index" json:"recorded_at"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PerformanceRecord) TableName() string { return "performance_record" }
