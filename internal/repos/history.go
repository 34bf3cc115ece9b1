package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/types"
)

// HistoryRepo is the read interface over session/review/mission/
// performance history, filterable by learner and window.
type HistoryRepo interface {
	SessionsSince(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, since time.Time) ([]*types.StudySession, error)
	ReviewsSince(ctx context.Context, tx *gorm.DB, learnerID, objectiveID uuid.UUID, since time.Time) ([]*types.ReviewRecord, error)
	PerformanceSince(ctx context.Context, tx *gorm.DB, learnerID, objectiveID uuid.UUID, since time.Time) ([]*types.PerformanceRecord, error)
	PerformanceForLearnerSince(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, since time.Time) ([]*types.PerformanceRecord, error)
	OpenMissionsDueWithin(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, horizon time.Time) ([]*types.Mission, error)
	GetObjective(ctx context.Context, tx *gorm.DB, objectiveID uuid.UUID) (*types.Objective, error)
}

type historyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHistoryRepo(db *gorm.DB, baseLog *logger.Logger) HistoryRepo {
	return &historyRepo{db: db, log: baseLog.With("repo", "HistoryRepo")}
}

func (r *historyRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *historyRepo) SessionsSince(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, since time.Time) ([]*types.StudySession, error) {
	var rows []*types.StudySession
	err := r.conn(tx).WithContext(ctx).
		Where("learner_id = ? AND started_at >= ?", learnerID, since).
		Order("started_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *historyRepo) ReviewsSince(ctx context.Context, tx *gorm.DB, learnerID, objectiveID uuid.UUID, since time.Time) ([]*types.ReviewRecord, error) {
	var rows []*types.ReviewRecord
	err := r.conn(tx).WithContext(ctx).
		Where("learner_id = ? AND objective_id = ? AND reviewed_at >= ?", learnerID, objectiveID, since).
		Order("reviewed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *historyRepo) PerformanceSince(ctx context.Context, tx *gorm.DB, learnerID, objectiveID uuid.UUID, since time.Time) ([]*types.PerformanceRecord, error) {
	var rows []*types.PerformanceRecord
	err := r.conn(tx).WithContext(ctx).
		Where("learner_id = ? AND objective_id = ? AND recorded_at >= ?", learnerID, objectiveID, since).
		Order("recorded_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *historyRepo) PerformanceForLearnerSince(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, since time.Time) ([]*types.PerformanceRecord, error) {
	var rows []*types.PerformanceRecord
	err := r.conn(tx).WithContext(ctx).
		Where("learner_id = ? AND recorded_at >= ?", learnerID, since).
		Order("recorded_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *historyRepo) OpenMissionsDueWithin(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, horizon time.Time) ([]*types.Mission, error) {
	var rows []*types.Mission
	err := r.conn(tx).WithContext(ctx).
		Where("learner_id = ? AND status = ? AND due_at <= ?", learnerID, types.MissionStatusOpen, horizon).
		Order("due_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *historyRepo) GetObjective(ctx context.Context, tx *gorm.DB, objectiveID uuid.UUID) (*types.Objective, error) {
	if objectiveID == uuid.Nil {
		return nil, nil
	}
	var row types.Objective
	err := r.conn(tx).WithContext(ctx).Where("id = ?", objectiveID).Limit(1).Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}
