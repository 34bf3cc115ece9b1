package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/insight-backend/internal/platform/apierr"
	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/repos"
	"github.com/lumenlearn/insight-backend/internal/types"
)

// outcomeStatus maps an observed outcome to the prediction's terminal
// status. Feedback is the only path out of PENDING.
var outcomeStatus = map[string]string{
	types.OutcomeStruggled:   types.PredictionStatusConfirmed,
	types.OutcomeNoStruggle:  types.PredictionStatusFalsePositive,
	types.OutcomeNotObserved: types.PredictionStatusMissed,
}

var feedbackTypes = map[string]struct{}{
	types.FeedbackTypeEducator:  {},
	types.FeedbackTypeLearner:   {},
	types.FeedbackTypeAutomatic: {},
}

// Accuracy trend across the two halves of the reporting window.
const (
	TrendImproving = "IMPROVING"
	TrendStable    = "STABLE"
	TrendDeclining = "DECLINING"
)

// trendDelta is the minimum half-to-half accuracy move that counts as
// a trend; trendMinSamples is required per half.
const (
	trendDelta      = 0.05
	trendMinSamples = 2
)

// ModelPerformance reports classification quality over resolved
// predictions. Counts: CONFIRMED are true positives, FALSE_POSITIVE
// false positives, MISSED false negatives.
type ModelPerformance struct {
	LearnerID        uuid.UUID `json:"learner_id"`
	WindowDays       int       `json:"window_days"`
	TotalResolved    int64     `json:"total_resolved"`
	TruePositives    int64     `json:"true_positives"`
	FalsePositives   int64     `json:"false_positives"`
	FalseNegatives   int64     `json:"false_negatives"`
	Accuracy         float64   `json:"accuracy"`
	Precision        float64   `json:"precision"`
	Recall           float64   `json:"recall"`
	F1               float64   `json:"f1"`
	CalibrationError float64   `json:"calibration_error"`
	Trend            string    `json:"trend"`
}

// FeedbackResult pairs the recorded feedback row with the learner's
// metrics refreshed after the status transition.
type FeedbackResult struct {
	Feedback *types.PredictionFeedback `json:"feedback"`
	Metrics  *ModelPerformance         `json:"metrics"`
}

// StruggleReduction compares the confirmed-struggle rate of an early
// baseline window against the most recent window.
type StruggleReduction struct {
	LearnerID        uuid.UUID `json:"learner_id"`
	PeriodDays       int       `json:"period_days,omitempty"`
	BaselineRate     float64   `json:"baseline_rate"`
	CurrentRate      float64   `json:"current_rate"`
	ReductionPercent float64   `json:"reduction_percent"`
	BaselineSamples  int       `json:"baseline_samples"`
	CurrentSamples   int       `json:"current_samples"`
}

type FeedbackInput struct {
	ActualOutcome string
	FeedbackType  string
	RecordedAt    *time.Time
}

type FeedbackService interface {
	RecordFeedback(ctx context.Context, predictionID uuid.UUID, input FeedbackInput) (*FeedbackResult, error)
	ModelPerformance(ctx context.Context, learnerID uuid.UUID, windowDays int) (*ModelPerformance, error)
	StruggleReduction(ctx context.Context, learnerID uuid.UUID, periodDays int) (*StruggleReduction, error)
}

type feedbackService struct {
	log         *logger.Logger
	predictions repos.PredictionRepo
	feedback    repos.FeedbackRepo
	// runTx wraps the feedback insert and status transition in one
	// transaction.
	runTx func(ctx context.Context, fn func(tx *gorm.DB) error) error
}

func NewFeedbackService(log *logger.Logger, db *gorm.DB, predictions repos.PredictionRepo, feedback repos.FeedbackRepo) FeedbackService {
	return &feedbackService{
		log:         log.With("service", "FeedbackService"),
		predictions: predictions,
		feedback:    feedback,
		runTx: func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			return db.WithContext(ctx).Transaction(fn)
		},
	}
}

func (s *feedbackService) RecordFeedback(ctx context.Context, predictionID uuid.UUID, input FeedbackInput) (*FeedbackResult, error) {
	newStatus, ok := outcomeStatus[input.ActualOutcome]
	if !ok {
		return nil, apierr.Validation("unknown outcome %q", input.ActualOutcome)
	}
	if _, ok := feedbackTypes[input.FeedbackType]; !ok {
		return nil, apierr.Validation("unknown feedback type %q", input.FeedbackType)
	}

	prediction, err := s.predictions.GetByID(ctx, nil, predictionID)
	if err != nil {
		return nil, err
	}
	if prediction == nil {
		return nil, apierr.NotFound("prediction %s not found", predictionID)
	}
	if prediction.Status != types.PredictionStatusPending {
		return nil, apierr.Conflict("prediction %s already resolved to %s", predictionID, prediction.Status)
	}
	if existing, fErr := s.feedback.GetByPrediction(ctx, nil, predictionID); fErr != nil {
		return nil, fErr
	} else if existing != nil {
		return nil, apierr.Conflict("feedback already recorded for prediction %s", predictionID)
	}

	recordedAt := time.Now().UTC()
	if input.RecordedAt != nil {
		recordedAt = input.RecordedAt.UTC()
	}
	row := &types.PredictionFeedback{
		PredictionID:  predictionID,
		ActualOutcome: input.ActualOutcome,
		FeedbackType:  input.FeedbackType,
		RecordedAt:    recordedAt,
	}

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		if cErr := s.feedback.Create(ctx, tx, row); cErr != nil {
			return cErr
		}
		moved, tErr := s.predictions.TransitionStatus(ctx, tx, predictionID, newStatus)
		if tErr != nil {
			return tErr
		}
		if !moved {
			return apierr.Conflict("prediction %s resolved concurrently", predictionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("feedback recorded",
		"prediction_id", predictionID,
		"outcome", input.ActualOutcome,
		"new_status", newStatus)

	metrics, err := s.ModelPerformance(ctx, prediction.LearnerID, 0)
	if err != nil {
		return nil, err
	}
	return &FeedbackResult{Feedback: row, Metrics: metrics}, nil
}

func (s *feedbackService) ModelPerformance(ctx context.Context, learnerID uuid.UUID, windowDays int) (*ModelPerformance, error) {
	if windowDays <= 0 {
		windowDays = 90
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	counts, err := s.predictions.CountByStatus(ctx, nil, learnerID, &since)
	if err != nil {
		return nil, err
	}

	out := &ModelPerformance{
		LearnerID:      learnerID,
		WindowDays:     windowDays,
		TruePositives:  counts[types.PredictionStatusConfirmed],
		FalsePositives: counts[types.PredictionStatusFalsePositive],
		FalseNegatives: counts[types.PredictionStatusMissed],
	}
	out.TotalResolved = out.TruePositives + out.FalsePositives + out.FalseNegatives
	if out.TotalResolved == 0 {
		out.Trend = TrendStable
		return out, nil
	}

	tp := float64(out.TruePositives)
	fp := float64(out.FalsePositives)
	fn := float64(out.FalseNegatives)

	out.Accuracy = tp / float64(out.TotalResolved)
	if tp+fp > 0 {
		out.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		out.Recall = tp / (tp + fn)
	}
	if out.Precision+out.Recall > 0 {
		out.F1 = 2 * out.Precision * out.Recall / (out.Precision + out.Recall)
	}

	rows, err := s.predictions.ListByLearner(ctx, nil, learnerID, repos.PredictionFilter{Since: &since})
	if err != nil {
		return nil, err
	}
	out.CalibrationError = calibrationError(rows)
	out.Trend = accuracyTrend(rows)
	return out, nil
}

// calibrationError is the mean absolute gap between predicted
// probability and the realized 0/1 outcome over resolved predictions.
func calibrationError(rows []*types.StrugglePrediction) float64 {
	total := 0.0
	n := 0
	for _, prediction := range rows {
		var realized float64
		switch prediction.Status {
		case types.PredictionStatusConfirmed:
			realized = 1
		case types.PredictionStatusFalsePositive:
			realized = 0
		default:
			continue
		}
		total += math.Abs(prediction.Probability - realized)
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// accuracyTrend compares the TP share of the newer half of the window
// against the older half. Rows arrive newest first.
func accuracyTrend(rows []*types.StrugglePrediction) string {
	var resolved []*types.StrugglePrediction
	for _, prediction := range rows {
		switch prediction.Status {
		case types.PredictionStatusConfirmed, types.PredictionStatusFalsePositive, types.PredictionStatusMissed:
			resolved = append(resolved, prediction)
		}
	}
	mid := len(resolved) / 2
	recent, earlier := resolved[:mid], resolved[mid:]
	if len(recent) < trendMinSamples || len(earlier) < trendMinSamples {
		return TrendStable
	}
	delta := confirmedRate(recent) - confirmedRate(earlier)
	switch {
	case delta >= trendDelta:
		return TrendImproving
	case delta <= -trendDelta:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func (s *feedbackService) StruggleReduction(ctx context.Context, learnerID uuid.UUID, periodDays int) (*StruggleReduction, error) {
	filter := repos.PredictionFilter{}
	if periodDays > 0 {
		since := time.Now().UTC().AddDate(0, 0, -periodDays)
		filter.Since = &since
	}
	rows, err := s.predictions.ListByLearner(ctx, nil, learnerID, filter)
	if err != nil {
		return nil, err
	}

	var resolved []*types.StrugglePrediction
	for _, prediction := range rows {
		if prediction.Status == types.PredictionStatusConfirmed || prediction.Status == types.PredictionStatusFalsePositive {
			resolved = append(resolved, prediction)
		}
	}

	out := &StruggleReduction{LearnerID: learnerID, PeriodDays: periodDays}
	if len(resolved) < 4 {
		// Not enough history to split into two meaningful windows.
		out.BaselineSamples = len(resolved)
		return out, nil
	}

	// ListByLearner orders newest first; the tail is the baseline.
	mid := len(resolved) / 2
	current, baseline := resolved[:mid], resolved[mid:]

	out.BaselineRate = confirmedRate(baseline)
	out.CurrentRate = confirmedRate(current)
	out.BaselineSamples = len(baseline)
	out.CurrentSamples = len(current)
	if out.BaselineRate > 0 {
		out.ReductionPercent = (out.BaselineRate - out.CurrentRate) / out.BaselineRate * 100
	}
	return out, nil
}

func confirmedRate(rows []*types.StrugglePrediction) float64 {
	if len(rows) == 0 {
		return 0
	}
	confirmed := 0
	for _, prediction := range rows {
		if prediction.Status == types.PredictionStatusConfirmed {
			confirmed++
		}
	}
	return float64(confirmed) / float64(len(rows))
}
