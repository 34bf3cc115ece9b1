package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/types"
)

type FeedbackRepo interface {
	Create(ctx context.Context, tx *gorm.DB, feedback *types.PredictionFeedback) error
	GetByPrediction(ctx context.Context, tx *gorm.DB, predictionID uuid.UUID) (*types.PredictionFeedback, error)
	ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.PredictionFeedback, error)
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return &feedbackRepo{db: db, log: baseLog.With("repo", "FeedbackRepo")}
}

func (r *feedbackRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *feedbackRepo) Create(ctx context.Context, tx *gorm.DB, feedback *types.PredictionFeedback) error {
	return r.conn(tx).WithContext(ctx).Create(feedback).Error
}

func (r *feedbackRepo) GetByPrediction(ctx context.Context, tx *gorm.DB, predictionID uuid.UUID) (*types.PredictionFeedback, error) {
	if predictionID == uuid.Nil {
		return nil, nil
	}
	var row types.PredictionFeedback
	err := r.conn(tx).WithContext(ctx).Where("prediction_id = ?", predictionID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *feedbackRepo) ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) ([]*types.PredictionFeedback, error) {
	var rows []*types.PredictionFeedback
	err := r.conn(tx).WithContext(ctx).
		Joins("JOIN struggle_prediction ON struggle_prediction.id = prediction_feedback.prediction_id").
		Where("struggle_prediction.learner_id = ?", learnerID).
		Order("prediction_feedback.recorded_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
