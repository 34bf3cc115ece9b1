package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/types"
)

type StudyPlanRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudyPlan, error)
	GetActiveByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) (*types.StudyPlan, error)
	Create(ctx context.Context, tx *gorm.DB, plan *types.StudyPlan) error
	UpdateItems(ctx context.Context, tx *gorm.DB, id uuid.UUID, items datatypes.JSON) error
}

type studyPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyPlanRepo(db *gorm.DB, baseLog *logger.Logger) StudyPlanRepo {
	return &studyPlanRepo{db: db, log: baseLog.With("repo", "StudyPlanRepo")}
}

func (r *studyPlanRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *studyPlanRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StudyPlan, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.StudyPlan
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *studyPlanRepo) GetActiveByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) (*types.StudyPlan, error) {
	var row types.StudyPlan
	err := r.conn(tx).WithContext(ctx).
		Where("learner_id = ? AND active = true", learnerID).
		Order("updated_at DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *studyPlanRepo) Create(ctx context.Context, tx *gorm.DB, plan *types.StudyPlan) error {
	return r.conn(tx).WithContext(ctx).Create(plan).Error
}

func (r *studyPlanRepo) UpdateItems(ctx context.Context, tx *gorm.DB, id uuid.UUID, items datatypes.JSON) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.StudyPlan{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"items": items, "updated_at": time.Now().UTC()}).Error
}
