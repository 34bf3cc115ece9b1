package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	redisclient "github.com/lumenlearn/insight-backend/internal/clients/redis"
	"github.com/lumenlearn/insight-backend/internal/platform/envutil"
	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/repos"
	"github.com/lumenlearn/insight-backend/internal/types"
)

// Burnout factor weights, summing to 1.0.
const (
	burnoutWeightIntensity    = 0.20
	burnoutWeightPerformance  = 0.25
	burnoutWeightChronicLoad  = 0.25
	burnoutWeightIrregularity = 0.15
	burnoutWeightEngagement   = 0.10
	burnoutWeightRecovery     = 0.05
)

const burnoutWindowDays = 14

// A cached assessment younger than this is served as-is.
const assessmentFreshness = 24 * time.Hour

type BurnoutRiskEstimator interface {
	Assess(ctx context.Context, learnerID uuid.UUID) (*types.BurnoutRiskAssessment, error)
}

type burnoutRiskEstimator struct {
	log      *logger.Logger
	history  repos.HistoryRepo
	wellness repos.WellnessRepo
	cache    *redisclient.Cache
	narrator Narrator

	healthyDailyMinutes float64
}

func NewBurnoutRiskEstimator(log *logger.Logger, history repos.HistoryRepo, wellness repos.WellnessRepo, cache *redisclient.Cache, narrator Narrator) BurnoutRiskEstimator {
	return &burnoutRiskEstimator{
		log:                 log.With("service", "BurnoutRiskEstimator"),
		history:             history,
		wellness:            wellness,
		cache:               cache,
		narrator:            narrator,
		healthyDailyMinutes: float64(envutil.Int("BURNOUT_HEALTHY_DAILY_MINUTES", 90)),
	}
}

func burnoutCacheKey(learnerID uuid.UUID) string {
	return "burnout:" + learnerID.String()
}

func (e *burnoutRiskEstimator) Assess(ctx context.Context, learnerID uuid.UUID) (*types.BurnoutRiskAssessment, error) {
	var cached types.BurnoutRiskAssessment
	if hit, err := e.cache.GetJSON(ctx, burnoutCacheKey(learnerID), &cached); err == nil && hit {
		return &cached, nil
	}

	if latest, err := e.wellness.LatestAssessment(ctx, nil, learnerID); err == nil && latest != nil {
		if time.Since(latest.AssessedAt) < assessmentFreshness {
			e.cacheAssessment(ctx, latest)
			return latest, nil
		}
	}

	assessment := e.compute(ctx, learnerID)
	if err := e.wellness.CreateAssessment(ctx, nil, assessment); err != nil {
		e.log.Warn("burnout assessment not persisted", "learner_id", learnerID, "error", err)
	}
	e.cacheAssessment(ctx, assessment)
	return assessment, nil
}

func (e *burnoutRiskEstimator) cacheAssessment(ctx context.Context, assessment *types.BurnoutRiskAssessment) {
	ttl := assessmentFreshness - time.Since(assessment.AssessedAt)
	if ttl <= 0 {
		return
	}
	if err := e.cache.SetJSON(ctx, burnoutCacheKey(assessment.LearnerID), assessment, ttl); err != nil {
		e.log.Warn("burnout assessment not cached", "learner_id", assessment.LearnerID, "error", err)
	}
}

// compute never fails: estimator errors degrade to the neutral
// mid-range assessment with reduced confidence.
func (e *burnoutRiskEstimator) compute(ctx context.Context, learnerID uuid.UUID) *types.BurnoutRiskAssessment {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -burnoutWindowDays)

	sessions, sErr := e.history.SessionsSince(ctx, nil, learnerID, since)
	loads, lErr := e.wellness.LoadMetricsSince(ctx, nil, learnerID, since)
	perf, pErr := e.history.PerformanceForLearnerSince(ctx, nil, learnerID, since)
	if sErr != nil || len(sessions) == 0 {
		if sErr != nil {
			e.log.Warn("burnout history read failed", "learner_id", learnerID, "error", sErr)
		}
		return e.neutralAssessment(learnerID, now)
	}
	if lErr != nil {
		loads = nil
	}
	if pErr != nil {
		perf = nil
	}

	factors := BurnoutFactors(sessions, loads, perf, e.healthyDailyMinutes)
	score := BurnoutScore(factors)
	level := RiskLevelFor(score)

	assessment := &types.BurnoutRiskAssessment{
		ID:         uuid.New(),
		LearnerID:  learnerID,
		RiskScore:  score,
		RiskLevel:  level,
		Confidence: burnoutConfidence(sessions, loads, perf),
		AssessedAt: now,
	}
	if raw, err := json.Marshal(factors); err == nil {
		assessment.ContributingFactors = datatypes.JSON(raw)
	}
	if raw, err := json.Marshal(warningSignals(factors)); err == nil {
		assessment.WarningSignals = datatypes.JSON(raw)
	}
	if raw, err := json.Marshal(e.recommendations(ctx, level, factors)); err == nil {
		assessment.Recommendations = datatypes.JSON(raw)
	}
	return assessment
}

func (e *burnoutRiskEstimator) neutralAssessment(learnerID uuid.UUID, now time.Time) *types.BurnoutRiskAssessment {
	assessment := &types.BurnoutRiskAssessment{
		ID:         uuid.New(),
		LearnerID:  learnerID,
		RiskScore:  50,
		RiskLevel:  types.RiskLevelMedium,
		Confidence: 0.3,
		AssessedAt: now,
	}
	if raw, err := json.Marshal([]string{"insufficient recent activity for a grounded assessment"}); err == nil {
		assessment.WarningSignals = datatypes.JSON(raw)
	}
	return assessment
}

// BurnoutFactors computes the six weighted contributing factors, each
// value in [0,1], from a 14-day history window.
func BurnoutFactors(sessions []*types.StudySession, loads []*types.CognitiveLoadMetric, perf []*types.PerformanceRecord, healthyDailyMinutes float64) []types.ContributingFactor {
	return []types.ContributingFactor{
		{Name: "study_intensity", Weight: burnoutWeightIntensity, Value: intensityFactor(sessions, healthyDailyMinutes)},
		{Name: "performance_decline", Weight: burnoutWeightPerformance, Value: performanceDeclineFactor(perf)},
		{Name: "chronic_cognitive_load", Weight: burnoutWeightChronicLoad, Value: chronicLoadFactor(loads)},
		{Name: "schedule_irregularity", Weight: burnoutWeightIrregularity, Value: irregularityFactor(sessions)},
		{Name: "engagement_decay", Weight: burnoutWeightEngagement, Value: engagementDecayFactor(sessions)},
		{Name: "recovery_deficit", Weight: burnoutWeightRecovery, Value: recoveryDeficitFactor(sessions)},
	}
}

// BurnoutScore is the deterministic 0-100 combination of the weighted
// factors.
func BurnoutScore(factors []types.ContributingFactor) float64 {
	total := 0.0
	for _, factor := range factors {
		total += factor.Weight * clamp01(factor.Value)
	}
	return clamp01(total) * 100
}

// RiskLevelFor maps score to level with boundaries exactly at 25/50/75.
func RiskLevelFor(score float64) string {
	switch {
	case score < 25:
		return types.RiskLevelLow
	case score < 50:
		return types.RiskLevelMedium
	case score < 75:
		return types.RiskLevelHigh
	default:
		return types.RiskLevelCritical
	}
}

func intensityFactor(sessions []*types.StudySession, healthyDailyMinutes float64) float64 {
	total := 0.0
	for _, session := range sessions {
		total += float64(session.DurationMinutes)
	}
	budget := healthyDailyMinutes * burnoutWindowDays
	if budget <= 0 {
		return 0
	}
	return clamp01(total / budget)
}

func performanceDeclineFactor(perf []*types.PerformanceRecord) float64 {
	if len(perf) < 2 {
		return 0
	}
	mid := len(perf) / 2
	first, second := 0.0, 0.0
	for _, record := range perf[:mid] {
		first += record.Score
	}
	for _, record := range perf[mid:] {
		second += record.Score
	}
	first /= float64(mid)
	second /= float64(len(perf) - mid)
	if first <= 0 {
		return 0
	}
	return clamp01((first - second) / first)
}

func chronicLoadFactor(loads []*types.CognitiveLoadMetric) float64 {
	if len(loads) == 0 {
		return 0
	}
	sum := 0.0
	for _, metric := range loads {
		sum += metric.LoadScore
	}
	return clamp01(sum / float64(len(loads)) / 100)
}

// irregularityFactor is the coefficient of variation of daily study
// minutes, saturating at 1.
func irregularityFactor(sessions []*types.StudySession) float64 {
	daily := map[string]float64{}
	for _, session := range sessions {
		day := session.StartedAt.Format("2006-01-02")
		daily[day] += float64(session.DurationMinutes)
	}
	if len(daily) < 2 {
		return 0
	}
	mean := 0.0
	for _, minutes := range daily {
		mean += minutes
	}
	mean /= float64(len(daily))
	if mean <= 0 {
		return 0
	}
	variance := 0.0
	for _, minutes := range daily {
		variance += (minutes - mean) * (minutes - mean)
	}
	variance /= float64(len(daily))
	return clamp01(math.Sqrt(variance) / mean)
}

func engagementDecayFactor(sessions []*types.StudySession) float64 {
	if len(sessions) < 2 {
		return 0
	}
	mid := len(sessions) / 2
	first, second := 0.0, 0.0
	for _, session := range sessions[:mid] {
		first += session.Engagement
	}
	for _, session := range sessions[mid:] {
		second += session.Engagement
	}
	first /= float64(mid)
	second /= float64(len(sessions) - mid)
	if first <= 0 {
		return 0
	}
	return clamp01((first - second) / first)
}

// recoveryDeficitFactor rises as rest days disappear from the window.
func recoveryDeficitFactor(sessions []*types.StudySession) float64 {
	activeDays := map[string]struct{}{}
	for _, session := range sessions {
		activeDays[session.StartedAt.Format("2006-01-02")] = struct{}{}
	}
	restDays := burnoutWindowDays - len(activeDays)
	if restDays < 0 {
		restDays = 0
	}
	const wantedRestDays = 4.0
	return clamp01(1 - float64(restDays)/wantedRestDays)
}

func burnoutConfidence(sessions []*types.StudySession, loads []*types.CognitiveLoadMetric, perf []*types.PerformanceRecord) float64 {
	conf := 0.4
	if len(sessions) >= 5 {
		conf += 0.2
	}
	if len(loads) > 0 {
		conf += 0.2
	}
	if len(perf) >= 4 {
		conf += 0.15
	}
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

func warningSignals(factors []types.ContributingFactor) []string {
	var signals []string
	for _, factor := range factors {
		if factor.Value > 0.6 {
			signals = append(signals, fmt.Sprintf("%s elevated (%.2f)", factor.Name, factor.Value))
		}
	}
	return signals
}

var cannedRecommendations = map[string][]string{
	types.RiskLevelLow:      {"Keep the current pace."},
	types.RiskLevelMedium:   {"Add a full rest day this week.", "Cap sessions at one hour."},
	types.RiskLevelHigh:     {"Cut daily study time in half for several days.", "Move hard objectives past the recovery window."},
	types.RiskLevelCritical: {"Pause new material entirely.", "Schedule at least two consecutive rest days."},
}

func (e *burnoutRiskEstimator) recommendations(ctx context.Context, level string, factors []types.ContributingFactor) []string {
	canned := cannedRecommendations[level]
	if e.narrator == nil {
		return canned
	}
	raw, err := json.Marshal(factors)
	if err != nil {
		return canned
	}
	text, err := e.narrator.Narrate(ctx,
		"You give a learner two short, concrete recovery suggestions based on burnout factors. One sentence each.",
		fmt.Sprintf("Risk level: %s. Factors: %s", level, string(raw)))
	if err != nil || text == "" {
		return canned
	}
	return append([]string{text}, canned...)
}
