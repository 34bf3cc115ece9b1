package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/types"
)

type PredictionFilter struct {
	Status         string
	MinProbability float64
	Since          *time.Time
}

type PredictionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, prediction *types.StrugglePrediction) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StrugglePrediction, error)
	ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, filter PredictionFilter) ([]*types.StrugglePrediction, error)
	// TransitionStatus moves a prediction out of PENDING. Returns false
	// when the row was not PENDING, so callers can reject the change.
	TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, newStatus string) (bool, error)
	CountByStatus(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, since *time.Time) (map[string]int64, error)
}

type predictionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPredictionRepo(db *gorm.DB, baseLog *logger.Logger) PredictionRepo {
	return &predictionRepo{db: db, log: baseLog.With("repo", "PredictionRepo")}
}

func (r *predictionRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *predictionRepo) Create(ctx context.Context, tx *gorm.DB, prediction *types.StrugglePrediction) error {
	return r.conn(tx).WithContext(ctx).Create(prediction).Error
}

func (r *predictionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.StrugglePrediction, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.StrugglePrediction
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *predictionRepo) ListByLearner(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, filter PredictionFilter) ([]*types.StrugglePrediction, error) {
	q := r.conn(tx).WithContext(ctx).Where("learner_id = ?", learnerID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.MinProbability > 0 {
		q = q.Where("probability >= ?", filter.MinProbability)
	}
	if filter.Since != nil {
		q = q.Where("predicted_at >= ?", *filter.Since)
	}
	var rows []*types.StrugglePrediction
	if err := q.Order("predicted_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *predictionRepo) TransitionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, newStatus string) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&types.StrugglePrediction{}).
		Where("id = ? AND status = ?", id, types.PredictionStatusPending).
		Updates(map[string]interface{}{"status": newStatus, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *predictionRepo) CountByStatus(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, since *time.Time) (map[string]int64, error) {
	type bucket struct {
		Status string
		N      int64
	}
	q := r.conn(tx).WithContext(ctx).
		Model(&types.StrugglePrediction{}).
		Select("status, count(*) as n").
		Where("learner_id = ?", learnerID)
	if since != nil {
		q = q.Where("predicted_at >= ?", *since)
	}
	var buckets []bucket
	if err := q.Group("status").Find(&buckets).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		out[b.Status] = b.N
	}
	return out, nil
}
