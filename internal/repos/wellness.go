package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/types"
)

type WellnessRepo interface {
	CreateLoadMetric(ctx context.Context, tx *gorm.DB, metric *types.CognitiveLoadMetric) error
	LoadMetricsSince(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, since time.Time) ([]*types.CognitiveLoadMetric, error)
	LatestLoadMetric(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) (*types.CognitiveLoadMetric, error)
	CreateAssessment(ctx context.Context, tx *gorm.DB, assessment *types.BurnoutRiskAssessment) error
	LatestAssessment(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) (*types.BurnoutRiskAssessment, error)
}

type wellnessRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWellnessRepo(db *gorm.DB, baseLog *logger.Logger) WellnessRepo {
	return &wellnessRepo{db: db, log: baseLog.With("repo", "WellnessRepo")}
}

func (r *wellnessRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *wellnessRepo) CreateLoadMetric(ctx context.Context, tx *gorm.DB, metric *types.CognitiveLoadMetric) error {
	return r.conn(tx).WithContext(ctx).Create(metric).Error
}

func (r *wellnessRepo) LoadMetricsSince(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, since time.Time) ([]*types.CognitiveLoadMetric, error) {
	var rows []*types.CognitiveLoadMetric
	err := r.conn(tx).WithContext(ctx).
		Where("learner_id = ? AND measured_at >= ?", learnerID, since).
		Order("measured_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *wellnessRepo) LatestLoadMetric(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) (*types.CognitiveLoadMetric, error) {
	var row types.CognitiveLoadMetric
	err := r.conn(tx).WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Order("measured_at DESC").
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

func (r *wellnessRepo) CreateAssessment(ctx context.Context, tx *gorm.DB, assessment *types.BurnoutRiskAssessment) error {
	return r.conn(tx).WithContext(ctx).Create(assessment).Error
}

func (r *wellnessRepo) LatestAssessment(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID) (*types.BurnoutRiskAssessment, error) {
	var row types.BurnoutRiskAssessment
	err := r.conn(tx).WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Order("assessed_at DESC").
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
