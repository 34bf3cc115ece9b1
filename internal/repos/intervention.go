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

type InterventionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rec *types.InterventionRecommendation) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.InterventionRecommendation, error)
	ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.InterventionRecommendation, error)
	ExistsForPrediction(ctx context.Context, tx *gorm.DB, predictionID uuid.UUID) (bool, error)
	// MarkApplied transitions PENDING→APPLIED and records the actions.
	// Returns false when the row was not PENDING.
	MarkApplied(ctx context.Context, tx *gorm.DB, id uuid.UUID, actions datatypes.JSON, planID uuid.UUID) (bool, error)
}

type interventionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInterventionRepo(db *gorm.DB, baseLog *logger.Logger) InterventionRepo {
	return &interventionRepo{db: db, log: baseLog.With("repo", "InterventionRepo")}
}

func (r *interventionRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *interventionRepo) Create(ctx context.Context, tx *gorm.DB, rec *types.InterventionRecommendation) error {
	return r.conn(tx).WithContext(ctx).Create(rec).Error
}

func (r *interventionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.InterventionRecommendation, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.InterventionRecommendation
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *interventionRepo) ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.InterventionRecommendation, error) {
	var rows []*types.InterventionRecommendation
	err := r.conn(tx).WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *interventionRepo) ExistsForPrediction(ctx context.Context, tx *gorm.DB, predictionID uuid.UUID) (bool, error) {
	var n int64
	err := r.conn(tx).WithContext(ctx).
		Model(&types.InterventionRecommendation{}).
		Where("prediction_id = ?", predictionID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *interventionRepo) MarkApplied(ctx context.Context, tx *gorm.DB, id uuid.UUID, actions datatypes.JSON, planID uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	res := r.conn(tx).WithContext(ctx).
		Model(&types.InterventionRecommendation{}).
		Where("id = ? AND status = ?", id, types.InterventionStatusPending).
		Updates(map[string]interface{}{
			"status":          types.InterventionStatusApplied,
			"applied_actions": actions,
			"applied_at":      now,
			"target_plan_id":  planID,
			"updated_at":      now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
