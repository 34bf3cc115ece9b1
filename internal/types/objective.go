package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Objective struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title      string         `gorm:"column:title;not null" json:"title"`
	Complexity int            `gorm:"column:complexity;not null;default:1" json:"complexity"`
	Modality   string         `gorm:"column:modality;not null;default:'text'" json:"modality"`
	Prereqs    datatypes.JSON `gorm:"type:jsonb;column:prereqs" json:"prereqs,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Objective) TableName() string { return "objective" }

// Mission schedules one objective for one learner with a due date. The
// prediction horizon query runs over open missions.
type Mission struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_mission_learner,priority:1" json:"learner_id"`
	Learner     *Learner   `gorm:"constraint:OnDelete:CASCADE;foreignKey:LearnerID;references:ID" json:"learner,omitempty"`
	ObjectiveID uuid.UUID  `gorm:"type:uuid;not null;index:idx_mission_learner,priority:2" json:"objective_id"`
	Objective   *Objective `gorm:"constraint:OnDelete:CASCADE;foreignKey:ObjectiveID;references:ID" json:"objective,omitempty"`

	Status string    `gorm:"column:status;not null;default:'open';index" json:"status"`
	DueAt  time.Time `gorm:"column:due_at;not null;index" json:"due_at"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Mission) TableName() string { return "mission" }

const (
	MissionStatusOpen      = "open"
	MissionStatusCompleted = "completed"
)

// PlanItem is one scheduled entry inside a study plan. Stored as jsonb
// on StudyPlan, mutated by applied interventions.
type PlanItem struct {
	ObjectiveID     uuid.UUID `json:"objective_id"`
	Kind            string    `json:"kind"`
	ScheduledFor    time.Time `json:"scheduled_for"`
	DurationMinutes int       `json:"duration_minutes"`
	Modality        string    `json:"modality,omitempty"`
	MaxNewItems     int       `json:"max_new_items,omitempty"`
	ReviewWeight    float64   `json:"review_weight,omitempty"`
	Note            string    `json:"note,omitempty"`
}

const (
	PlanItemKindStudy     = "study"
	PlanItemKindReview    = "review"
	PlanItemKindPrereq    = "prerequisite_review"
	PlanItemKindIntroPass = "intro_pass"
	PlanItemKindBreak     = "break"
)

type StudyPlan struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"learner_id"`
	Learner   *Learner  `gorm:"constraint:OnDelete:CASCADE;foreignKey:LearnerID;references:ID" json:"learner,omitempty"`

	Name   string         `gorm:"column:name;not null" json:"name"`
	Active bool           `gorm:"column:active;not null;default:true;index" json:"active"`
	Items  datatypes.JSON `gorm:"type:jsonb;column:items" json:"items"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (StudyPlan) TableName() string { return "study_plan" }
