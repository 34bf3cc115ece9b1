package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/lumenlearn/insight-backend/internal/platform/envutil"
	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/repos"
	"github.com/lumenlearn/insight-backend/internal/types"
)

// FeatureExtractor turns recent history into the normalized feature
// vector the predictor scores. Extraction is a pure read; calls across
// objectives are independent.
type FeatureExtractor interface {
	Extract(ctx context.Context, learnerID, objectiveID uuid.UUID, asOf time.Time) (types.FeatureVector, error)
	ExtractBatch(ctx context.Context, learnerID uuid.UUID, objectiveIDs []uuid.UUID, asOf time.Time) (map[uuid.UUID]types.FeatureVector, error)
}

// DefaultFeatureVector is what extraction degrades to when the window
// holds no activity at all: no measured risk signals, neutral load and
// performance.
func DefaultFeatureVector() types.FeatureVector {
	return types.FeatureVector{
		CognitiveLoad:      0.5,
		SessionPerformance: 0.5,
	}
}

type featureExtractor struct {
	log      *logger.Logger
	history  repos.HistoryRepo
	profiles repos.LearnerProfileRepo
	wellness repos.WellnessRepo

	windowDays int
	batchLimit int
}

func NewFeatureExtractor(log *logger.Logger, history repos.HistoryRepo, profiles repos.LearnerProfileRepo, wellness repos.WellnessRepo) FeatureExtractor {
	return &featureExtractor{
		log:        log.With("service", "FeatureExtractor"),
		history:    history,
		profiles:   profiles,
		wellness:   wellness,
		windowDays: envutil.Int("FEATURE_WINDOW_DAYS", 14),
		batchLimit: envutil.Int("FEATURE_BATCH_PARALLELISM", 4),
	}
}

func (e *featureExtractor) Extract(ctx context.Context, learnerID, objectiveID uuid.UUID, asOf time.Time) (types.FeatureVector, error) {
	since := asOf.AddDate(0, 0, -e.windowDays)

	objective, err := e.history.GetObjective(ctx, nil, objectiveID)
	if err != nil {
		return types.FeatureVector{}, err
	}

	sessions, err := e.history.SessionsSince(ctx, nil, learnerID, since)
	if err != nil {
		return types.FeatureVector{}, err
	}
	reviews, err := e.history.ReviewsSince(ctx, nil, learnerID, objectiveID, since)
	if err != nil {
		return types.FeatureVector{}, err
	}
	perf, err := e.history.PerformanceSince(ctx, nil, learnerID, objectiveID, since)
	if err != nil {
		return types.FeatureVector{}, err
	}
	allPerf, err := e.history.PerformanceForLearnerSince(ctx, nil, learnerID, since)
	if err != nil {
		return types.FeatureVector{}, err
	}

	if len(sessions) == 0 && len(reviews) == 0 && len(allPerf) == 0 {
		return DefaultFeatureVector(), nil
	}

	vector := types.FeatureVector{
		PrerequisiteGap:    e.prerequisiteGap(ctx, learnerID, objective, since),
		ComplexityMismatch: complexityMismatch(objective, allPerf),
		ModalityMismatch:   e.modalityMismatch(ctx, nil, learnerID, objective),
		HistoricalStruggle: historicalStruggle(reviews, perf),
		CognitiveLoad:      e.loadIndicator(ctx, learnerID, since),
		SessionPerformance: sessionPerformance(sessions),
	}
	return vector, nil
}

func (e *featureExtractor) ExtractBatch(ctx context.Context, learnerID uuid.UUID, objectiveIDs []uuid.UUID, asOf time.Time) (map[uuid.UUID]types.FeatureVector, error) {
	out := make(map[uuid.UUID]types.FeatureVector, len(objectiveIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchLimit)
	for _, objectiveID := range objectiveIDs {
		g.Go(func() error {
			vector, err := e.Extract(gctx, learnerID, objectiveID, asOf)
			if err != nil {
				return err
			}
			mu.Lock()
			out[objectiveID] = vector
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// prerequisiteGap is the share of prerequisite objectives the learner
// has not demonstrated at the readiness bar within the window.
func (e *featureExtractor) prerequisiteGap(ctx context.Context, learnerID uuid.UUID, objective *types.Objective, since time.Time) float64 {
	const readinessBar = 0.6

	prereqs := objectivePrereqs(objective)
	if len(prereqs) == 0 {
		return 0
	}
	gaps := 0
	for _, prereqID := range prereqs {
		scores, err := e.history.PerformanceSince(ctx, nil, learnerID, prereqID, since)
		if err != nil || len(scores) == 0 {
			gaps++
			continue
		}
		if meanScore(scores) < readinessBar {
			gaps++
		}
	}
	return clamp01(float64(gaps) / float64(len(prereqs)))
}

// complexityMismatch compares the objective's complexity level (1-5)
// against the ability level implied by recent performance.
func complexityMismatch(objective *types.Objective, allPerf []*types.PerformanceRecord) float64 {
	if objective == nil {
		return 0
	}
	complexity := float64(objective.Complexity)
	if complexity < 1 {
		complexity = 1
	}
	if len(allPerf) == 0 {
		// Unknown ability against a hard objective reads as moderate risk.
		return clamp01((complexity - 1) / 8)
	}
	ability := 1 + meanScore(allPerf)*4
	return clamp01((complexity - ability) / 4)
}

func (e *featureExtractor) modalityMismatch(ctx context.Context, tx *gorm.DB, learnerID uuid.UUID, objective *types.Objective) float64 {
	if objective == nil || objective.Modality == "" {
		return 0
	}
	profile, err := e.profiles.GetByLearner(ctx, tx, learnerID)
	if err != nil || profile == nil {
		return 0
	}
	if len(profile.ModalityScores) > 0 {
		var scores map[string]float64
		if jsonErr := json.Unmarshal(profile.ModalityScores, &scores); jsonErr == nil {
			if s, ok := scores[objective.Modality]; ok {
				return clamp01(1 - s)
			}
		}
	}
	if profile.PreferredModality == objective.Modality {
		return 0
	}
	return 0.7
}

// historicalStruggle blends the wrong-answer rate with the share of
// low-scoring outcomes on this objective.
func historicalStruggle(reviews []*types.ReviewRecord, perf []*types.PerformanceRecord) float64 {
	if len(reviews) == 0 && len(perf) == 0 {
		return 0
	}
	wrongRate := 0.0
	if len(reviews) > 0 {
		wrong := 0
		for _, review := range reviews {
			if !review.Correct {
				wrong++
			}
		}
		wrongRate = float64(wrong) / float64(len(reviews))
	}
	lowShare := 0.0
	if len(perf) > 0 {
		low := 0
		for _, record := range perf {
			if record.Score < 0.5 {
				low++
			}
		}
		lowShare = float64(low) / float64(len(perf))
	}
	return clamp01(0.6*wrongRate + 0.4*lowShare)
}

func (e *featureExtractor) loadIndicator(ctx context.Context, learnerID uuid.UUID, since time.Time) float64 {
	metrics, err := e.wellness.LoadMetricsSince(ctx, nil, learnerID, since)
	if err != nil || len(metrics) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, metric := range metrics {
		sum += metric.LoadScore
	}
	return clamp01(sum / float64(len(metrics)) / 100)
}

func sessionPerformance(sessions []*types.StudySession) float64 {
	attempted, correct := 0, 0
	for _, session := range sessions {
		attempted += session.ItemsAttempted
		correct += session.ItemsCorrect
	}
	if attempted == 0 {
		return 0.5
	}
	return clamp01(float64(correct) / float64(attempted))
}

func objectivePrereqs(objective *types.Objective) []uuid.UUID {
	if objective == nil || len(objective.Prereqs) == 0 {
		return nil
	}
	var raw []string
	if err := json.Unmarshal(objective.Prereqs, &raw); err != nil {
		return nil
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		if id, err := uuid.Parse(s); err == nil && id != uuid.Nil {
			out = append(out, id)
		}
	}
	return out
}

func meanScore(records []*types.PerformanceRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0.0
	for _, record := range records {
		sum += record.Score
	}
	return sum / float64(len(records))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
