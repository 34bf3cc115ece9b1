package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/repos"
	"github.com/lumenlearn/insight-backend/internal/types"
)

// Sub-score weights for the 0-100 load estimate.
const (
	loadWeightLatency     = 0.25
	loadWeightErrors      = 0.25
	loadWeightEngagement  = 0.20
	loadWeightPerformance = 0.20
	loadWeightDuration    = 0.10
)

// BehavioralData is the raw in-session signal bundle posted by the
// client. Any slice may be empty; missing signals degrade the estimate
// instead of failing it.
type BehavioralData struct {
	ResponseLatenciesMs   []float64 `json:"response_latencies_ms"`
	BaselineLatencyMs     float64   `json:"baseline_latency_ms"`
	ItemsAttempted        int       `json:"items_attempted"`
	ItemsIncorrect        int       `json:"items_incorrect"`
	EngagementSamples     []float64 `json:"engagement_samples"`
	PerformanceSamples    []float64 `json:"performance_samples"`
	SessionMinutes        int       `json:"session_minutes"`
	TypicalSessionMinutes int       `json:"typical_session_minutes"`
}

type stressIndicator struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type CognitiveLoadEstimator interface {
	Calculate(ctx context.Context, learnerID, sessionID uuid.UUID, data BehavioralData) (*types.CognitiveLoadMetric, error)
}

type cognitiveLoadEstimator struct {
	log      *logger.Logger
	wellness repos.WellnessRepo
}

func NewCognitiveLoadEstimator(log *logger.Logger, wellness repos.WellnessRepo) CognitiveLoadEstimator {
	return &cognitiveLoadEstimator{
		log:      log.With("service", "CognitiveLoadEstimator"),
		wellness: wellness,
	}
}

// Calculate runs the five stress factors concurrently and combines them
// into one 0-100 score. It may run mid-session, so the factor math does
// no I/O; persistence failures are logged, not surfaced.
func (e *cognitiveLoadEstimator) Calculate(ctx context.Context, learnerID, sessionID uuid.UUID, data BehavioralData) (*types.CognitiveLoadMetric, error) {
	type factor struct {
		name   string
		weight float64
		fn     func(BehavioralData) (float64, bool)
	}
	factors := []factor{
		{"latency_deviation", loadWeightLatency, latencyDeviation},
		{"error_rate", loadWeightErrors, errorRate},
		{"engagement_drop", loadWeightEngagement, engagementDrop},
		{"performance_decline", loadWeightPerformance, performanceDecline},
		{"duration_stress", loadWeightDuration, durationStress},
	}

	scores := make([]float64, len(factors))
	haveSignal := make([]bool, len(factors))
	g, _ := errgroup.WithContext(ctx)
	for i, f := range factors {
		g.Go(func() error {
			scores[i], haveSignal[i] = f.fn(data)
			return nil
		})
	}
	_ = g.Wait()

	total := 0.0
	available := 0
	indicators := make([]stressIndicator, 0, len(factors))
	for i, f := range factors {
		score := scores[i]
		if !haveSignal[i] {
			// Neutral mid-range stand-in for a missing signal.
			score = 0.5
		} else {
			available++
		}
		total += f.weight * score
		indicators = append(indicators, stressIndicator{Name: f.name, Score: score})
	}

	confidence := 0.3 + 0.7*float64(available)/float64(len(factors))
	metric := &types.CognitiveLoadMetric{
		ID:         uuid.New(),
		LearnerID:  learnerID,
		SessionID:  sessionID,
		LoadScore:  clamp01(total) * 100,
		Confidence: confidence,
		MeasuredAt: time.Now().UTC(),
	}
	if raw, err := json.Marshal(indicators); err == nil {
		metric.StressIndicators = datatypes.JSON(raw)
	}

	if err := e.wellness.CreateLoadMetric(ctx, nil, metric); err != nil {
		e.log.Warn("cognitive load metric not persisted",
			"learner_id", learnerID, "session_id", sessionID, "error", err)
	}
	return metric, nil
}

func latencyDeviation(data BehavioralData) (float64, bool) {
	if len(data.ResponseLatenciesMs) == 0 || data.BaselineLatencyMs <= 0 {
		return 0, false
	}
	sum := 0.0
	for _, latency := range data.ResponseLatenciesMs {
		sum += latency
	}
	mean := sum / float64(len(data.ResponseLatenciesMs))
	// 2x baseline latency saturates the factor.
	return clamp01((mean - data.BaselineLatencyMs) / data.BaselineLatencyMs), true
}

func errorRate(data BehavioralData) (float64, bool) {
	if data.ItemsAttempted <= 0 {
		return 0, false
	}
	return clamp01(float64(data.ItemsIncorrect) / float64(data.ItemsAttempted)), true
}

func engagementDrop(data BehavioralData) (float64, bool) {
	first, second, ok := halves(data.EngagementSamples)
	if !ok {
		return 0, false
	}
	if first <= 0 {
		return 0, true
	}
	return clamp01((first - second) / first), true
}

func performanceDecline(data BehavioralData) (float64, bool) {
	first, second, ok := halves(data.PerformanceSamples)
	if !ok {
		return 0, false
	}
	if first <= 0 {
		return 0, true
	}
	return clamp01((first - second) / first), true
}

func durationStress(data BehavioralData) (float64, bool) {
	if data.SessionMinutes <= 0 || data.TypicalSessionMinutes <= 0 {
		return 0, false
	}
	ratio := float64(data.SessionMinutes) / float64(data.TypicalSessionMinutes)
	if ratio <= 1 {
		return 0, true
	}
	return clamp01(ratio - 1), true
}

// halves splits a sample series and returns the mean of each half.
func halves(samples []float64) (first, second float64, ok bool) {
	if len(samples) < 2 {
		return 0, 0, false
	}
	mid := len(samples) / 2
	for _, s := range samples[:mid] {
		first += s
	}
	for _, s := range samples[mid:] {
		second += s
	}
	return first / float64(mid), second / float64(len(samples)-mid), true
}
