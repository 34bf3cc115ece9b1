package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/types"
)

type LearnerRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Learner, error)
	Create(ctx context.Context, tx *gorm.DB, learner *types.Learner) error
}

type learnerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearnerRepo(db *gorm.DB, baseLog *logger.Logger) LearnerRepo {
	return &learnerRepo{db: db, log: baseLog.With("repo", "LearnerRepo")}
}

func (r *learnerRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *learnerRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Learner, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Learner
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *learnerRepo) Create(ctx context.Context, tx *gorm.DB, learner *types.Learner) error {
	return r.conn(tx).WithContext(ctx).Create(learner).Error
}

type LearnerProfileRepo interface {
	GetByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) (*types.LearnerProfile, error)
	Upsert(ctx context.Context, tx *gorm.DB, profile *types.LearnerProfile) error
}

type learnerProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearnerProfileRepo(db *gorm.DB, baseLog *logger.Logger) LearnerProfileRepo {
	return &learnerProfileRepo{db: db, log: baseLog.With("repo", "LearnerProfileRepo")}
}

func (r *learnerProfileRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *learnerProfileRepo) GetByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) (*types.LearnerProfile, error) {
	if learnerID == uuid.Nil {
		return nil, nil
	}
	var row types.LearnerProfile
	err := r.conn(tx).WithContext(ctx).Where("learner_id = ?", learnerID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *learnerProfileRepo) Upsert(ctx context.Context, tx *gorm.DB, profile *types.LearnerProfile) error {
	return r.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"preferred_modality", "modality_scores", "preferences", "updated_at"}),
		}).
		Create(profile).Error
}
