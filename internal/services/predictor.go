package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/lumenlearn/insight-backend/internal/platform/apierr"
	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/repos"
	"github.com/lumenlearn/insight-backend/internal/types"
)

// Scoring weights for the struggle probability. Hand-specified stand-ins
// for a trained model: named here so a learned replacement can swap in
// without touching the pipeline contract.
const (
	weightPrerequisiteGap    = 0.25
	weightComplexityMismatch = 0.20
	weightModalityMismatch   = 0.10
	weightHistoricalStruggle = 0.25
	weightCognitiveLoad      = 0.10
	weightLowPerformance     = 0.10
)

// Per-indicator thresholds: a component below its threshold does not
// surface as an indicator.
const (
	thresholdPrerequisiteGap    = 0.4
	thresholdComplexityMismatch = 0.5
	thresholdModalityMismatch   = 0.5
	thresholdHistoricalStruggle = 0.5
	thresholdCognitiveLoad      = 0.6
	thresholdLowPerformance     = 0.5
)

// Predictions are persisted only at or above this probability, bounding
// storage growth.
const persistThreshold = 0.5

// interventionThreshold gates recommendation creation.
const interventionThreshold = 0.6

type PredictionStats struct {
	Total           int64   `json:"total"`
	Pending         int64   `json:"pending"`
	Confirmed       int64   `json:"confirmed"`
	FalsePositive   int64   `json:"false_positive"`
	Missed          int64   `json:"missed"`
	MeanProbability float64 `json:"mean_probability"`
}

type GenerateResult struct {
	Alerts  []types.Alert `json:"alerts"`
	Summary string        `json:"summary"`
}

type PredictionService interface {
	Predict(ctx context.Context, learnerID, objectiveID uuid.UUID) (*types.StrugglePrediction, types.FeatureVector, error)
	RunPredictions(ctx context.Context, learnerID uuid.UUID, daysAhead int) (*GenerateResult, error)
	ListPredictions(ctx context.Context, learnerID uuid.UUID, filter repos.PredictionFilter) ([]*types.StrugglePrediction, *PredictionStats, error)
}

type predictionService struct {
	log         *logger.Logger
	features    FeatureExtractor
	predictions repos.PredictionRepo
	history     repos.HistoryRepo
	wellness    repos.WellnessRepo
	learners    repos.LearnerRepo
	selector    InterventionSelector
	prioritizer AlertPrioritizer
	narrator    Narrator
}

func NewPredictionService(
	log *logger.Logger,
	features FeatureExtractor,
	predictions repos.PredictionRepo,
	history repos.HistoryRepo,
	wellness repos.WellnessRepo,
	learners repos.LearnerRepo,
	selector InterventionSelector,
	prioritizer AlertPrioritizer,
	narrator Narrator,
) PredictionService {
	return &predictionService{
		log:         log.With("service", "PredictionService"),
		features:    features,
		predictions: predictions,
		history:     history,
		wellness:    wellness,
		learners:    learners,
		selector:    selector,
		prioritizer: prioritizer,
		narrator:    narrator,
	}
}

// ScoreVector is the fixed-weight linear combination, clipped to [0,1].
// Session performance enters inverted: low performance raises risk.
func ScoreVector(v types.FeatureVector) float64 {
	score := weightPrerequisiteGap*v.PrerequisiteGap +
		weightComplexityMismatch*v.ComplexityMismatch +
		weightModalityMismatch*v.ModalityMismatch +
		weightHistoricalStruggle*v.HistoricalStruggle +
		weightCognitiveLoad*v.CognitiveLoad +
		weightLowPerformance*(1-v.SessionPerformance)
	return clamp01(score)
}

// IndicatorsFor lists the components above their thresholds, sorted by
// weight×value descending.
func IndicatorsFor(v types.FeatureVector) []types.StruggleIndicator {
	lowPerf := 1 - v.SessionPerformance
	candidates := []struct {
		typ       string
		value     float64
		weight    float64
		threshold float64
	}{
		{types.IndicatorPrerequisiteGap, v.PrerequisiteGap, weightPrerequisiteGap, thresholdPrerequisiteGap},
		{types.IndicatorComplexityMismatch, v.ComplexityMismatch, weightComplexityMismatch, thresholdComplexityMismatch},
		{types.IndicatorModalityMismatch, v.ModalityMismatch, weightModalityMismatch, thresholdModalityMismatch},
		{types.IndicatorHistoricalStruggle, v.HistoricalStruggle, weightHistoricalStruggle, thresholdHistoricalStruggle},
		{types.IndicatorCognitiveLoad, v.CognitiveLoad, weightCognitiveLoad, thresholdCognitiveLoad},
		{types.IndicatorLowPerformance, lowPerf, weightLowPerformance, thresholdLowPerformance},
	}

	var out []types.StruggleIndicator
	for _, c := range candidates {
		if c.value <= c.threshold {
			continue
		}
		out = append(out, types.StruggleIndicator{
			Type:     c.typ,
			Severity: severityFor(c.value),
			Weight:   c.weight,
			Value:    c.value,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Weight*out[i].Value > out[j].Weight*out[j].Value
	})
	return out
}

func severityFor(value float64) string {
	switch {
	case value >= 0.8:
		return types.SeverityHigh
	case value >= 0.6:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}

// predictionConfidence reflects how much evidence backs the score, not
// how likely the score is correct.
func predictionConfidence(v types.FeatureVector, indicators []types.StruggleIndicator) float64 {
	if v == DefaultFeatureVector() {
		return 0.3
	}
	conf := 0.6 + 0.05*float64(len(indicators))
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

func (s *predictionService) Predict(ctx context.Context, learnerID, objectiveID uuid.UUID) (*types.StrugglePrediction, types.FeatureVector, error) {
	now := time.Now().UTC()
	vector, err := s.features.Extract(ctx, learnerID, objectiveID, now)
	if err != nil {
		return nil, types.FeatureVector{}, err
	}

	probability := ScoreVector(vector)
	indicators := IndicatorsFor(vector)

	prediction := &types.StrugglePrediction{
		ID:          uuid.New(),
		LearnerID:   learnerID,
		ObjectiveID: objectiveID,
		Probability: probability,
		Confidence:  predictionConfidence(vector, indicators),
		Status:      types.PredictionStatusPending,
		PredictedAt: now,
	}
	if raw, mErr := json.Marshal(indicators); mErr == nil {
		prediction.Indicators = datatypes.JSON(raw)
	}
	if raw, mErr := json.Marshal(vector); mErr == nil {
		prediction.Features = datatypes.JSON(raw)
	}

	if probability >= persistThreshold {
		if err := s.predictions.Create(ctx, nil, prediction); err != nil {
			return nil, vector, err
		}
	}
	return prediction, vector, nil
}

func (s *predictionService) RunPredictions(ctx context.Context, learnerID uuid.UUID, daysAhead int) (*GenerateResult, error) {
	if daysAhead <= 0 {
		daysAhead = 7
	}
	learner, err := s.learners.GetByID(ctx, nil, learnerID)
	if err != nil {
		return nil, err
	}
	if learner == nil {
		return nil, apierr.NotFound("learner %s not found", learnerID)
	}

	now := time.Now().UTC()
	horizon := now.AddDate(0, 0, daysAhead)
	missions, err := s.history.OpenMissionsDueWithin(ctx, nil, learnerID, horizon)
	if err != nil {
		return nil, err
	}
	if len(missions) == 0 {
		return &GenerateResult{Alerts: []types.Alert{}, Summary: "No objectives due within the horizon."}, nil
	}

	objectiveIDs := make([]uuid.UUID, 0, len(missions))
	dueAt := make(map[uuid.UUID]time.Time, len(missions))
	for _, mission := range missions {
		objectiveIDs = append(objectiveIDs, mission.ObjectiveID)
		dueAt[mission.ObjectiveID] = mission.DueAt
	}

	vectors, err := s.features.ExtractBatch(ctx, learnerID, objectiveIDs, now)
	if err != nil {
		return nil, err
	}

	currentLoad := 0.5
	if metric, lErr := s.wellness.LatestLoadMetric(ctx, nil, learnerID); lErr == nil && metric != nil {
		currentLoad = clamp01(metric.LoadScore / 100)
	}

	var inputs []AlertInput
	for _, objectiveID := range objectiveIDs {
		vector := vectors[objectiveID]
		prediction, _, pErr := s.predictFromVector(ctx, learnerID, objectiveID, vector, now)
		if pErr != nil {
			return nil, pErr
		}
		if prediction.Probability < persistThreshold {
			continue
		}

		var interventionID *uuid.UUID
		if prediction.Probability >= interventionThreshold {
			recs, recErr := s.selector.Recommend(ctx, prediction, vector)
			if recErr != nil {
				s.log.Warn("intervention recommendation failed",
					"learner_id", learnerID, "objective_id", objectiveID, "error", recErr)
			}
			if len(recs) > 0 {
				// Recommend returns highest base priority first.
				interventionID = &recs[0].ID
			}
		}

		inputs = append(inputs, AlertInput{
			Prediction:     prediction,
			DaysUntilDue:   dueAt[objectiveID].Sub(now).Hours() / 24,
			CognitiveLoad:  currentLoad,
			InterventionID: interventionID,
		})
	}

	alerts := s.prioritizer.Prioritize(inputs)
	summary := s.summarize(ctx, learner, len(missions), alerts)
	return &GenerateResult{Alerts: alerts, Summary: summary}, nil
}

// predictFromVector scores an already-extracted vector so the batch run
// does one extraction per objective.
func (s *predictionService) predictFromVector(ctx context.Context, learnerID, objectiveID uuid.UUID, vector types.FeatureVector, now time.Time) (*types.StrugglePrediction, types.FeatureVector, error) {
	probability := ScoreVector(vector)
	indicators := IndicatorsFor(vector)

	prediction := &types.StrugglePrediction{
		ID:          uuid.New(),
		LearnerID:   learnerID,
		ObjectiveID: objectiveID,
		Probability: probability,
		Confidence:  predictionConfidence(vector, indicators),
		Status:      types.PredictionStatusPending,
		PredictedAt: now,
	}
	if raw, err := json.Marshal(indicators); err == nil {
		prediction.Indicators = datatypes.JSON(raw)
	}
	if raw, err := json.Marshal(vector); err == nil {
		prediction.Features = datatypes.JSON(raw)
	}
	if probability >= persistThreshold {
		if err := s.predictions.Create(ctx, nil, prediction); err != nil {
			return nil, vector, err
		}
	}
	return prediction, vector, nil
}

func (s *predictionService) summarize(ctx context.Context, learner *types.Learner, missionCount int, alerts []types.Alert) string {
	fallback := fmt.Sprintf("%d objective(s) in the horizon, %d alert(s) raised.", missionCount, len(alerts))
	if s.narrator == nil || len(alerts) == 0 {
		return fallback
	}
	raw, err := json.Marshal(alerts)
	if err != nil {
		return fallback
	}
	summary, err := s.narrator.Narrate(ctx,
		"You summarize learning-risk alerts for an educator in two sentences.",
		fmt.Sprintf("Learner: %s. Alerts: %s", learner.Name, string(raw)))
	if err != nil || summary == "" {
		return fallback
	}
	return summary
}

func (s *predictionService) ListPredictions(ctx context.Context, learnerID uuid.UUID, filter repos.PredictionFilter) ([]*types.StrugglePrediction, *PredictionStats, error) {
	rows, err := s.predictions.ListByLearner(ctx, nil, learnerID, filter)
	if err != nil {
		return nil, nil, err
	}
	counts, err := s.predictions.CountByStatus(ctx, nil, learnerID, nil)
	if err != nil {
		return nil, nil, err
	}

	stats := &PredictionStats{
		Pending:       counts[types.PredictionStatusPending],
		Confirmed:     counts[types.PredictionStatusConfirmed],
		FalsePositive: counts[types.PredictionStatusFalsePositive],
		Missed:        counts[types.PredictionStatusMissed],
	}
	for _, n := range counts {
		stats.Total += n
	}
	if len(rows) > 0 {
		sum := 0.0
		for _, row := range rows {
			sum += row.Probability
		}
		stats.MeanProbability = sum / float64(len(rows))
	}
	return rows, stats, nil
}
