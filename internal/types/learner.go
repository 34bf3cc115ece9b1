package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Learner struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email     string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Timezone  string         `gorm:"column:timezone" json:"timezone,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Learner) TableName() string { return "learner" }

// LearnerProfile holds the modality/learning-style profile consumed by
// content-format adaptation and CONTENT-context personalization.
type LearnerProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	LearnerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"learner_id"`
	Learner   *Learner  `gorm:"constraint:OnDelete:CASCADE;foreignKey:LearnerID;references:ID" json:"learner,omitempty"`

	PreferredModality string         `gorm:"column:preferred_modality;not null;default:'text'" json:"preferred_modality"`
	ModalityScores    datatypes.JSON `gorm:"type:jsonb;column:modality_scores" json:"modality_scores,omitempty"`
	Preferences       datatypes.JSON `gorm:"type:jsonb;column:preferences" json:"preferences,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LearnerProfile) TableName() string { return "learner_profile" }

// Modality values stored in LearnerProfile.PreferredModality.
const (
	ModalityText        = "text"
	ModalityVideo       = "video"
	ModalityAudio       = "audio"
	ModalityInteractive = "interactive"
)
