package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	redisclient "github.com/lumenlearn/insight-backend/internal/clients/redis"
	"github.com/lumenlearn/insight-backend/internal/platform/apierr"
	"github.com/lumenlearn/insight-backend/internal/platform/envutil"
	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/repos"
	"github.com/lumenlearn/insight-backend/internal/types"
)

// Per-source confidence weights. The floor is 0.5 with nothing
// available; the cap at 1.0 is authoritative even though the weights
// sum past 0.5.
const (
	confidenceFloor           = 0.5
	sourceWeightPatterns      = 0.3
	sourceWeightPredictions   = 0.25
	sourceWeightOrchestration = 0.25
	sourceWeightWellness      = 0.2
)

// Quality gates: a reachable source below its bar is treated as absent.
const (
	patternQualityGate       = 0.6
	predictionConfidenceGate = 0.7
)

type PersonalizationService interface {
	AggregateInsights(ctx context.Context, learnerID uuid.UUID) (*types.AggregatedInsights, error)
	ApplyPersonalization(ctx context.Context, learnerID uuid.UUID, personalizationContext string) (*types.PersonalizationConfig, error)
}

type personalizationService struct {
	log           *logger.Logger
	learners      repos.LearnerRepo
	profiles      repos.LearnerProfileRepo
	history       repos.HistoryRepo
	predictions   repos.PredictionRepo
	interventions repos.InterventionRepo
	plans         repos.StudyPlanRepo
	wellness      repos.WellnessRepo
	burnout       BurnoutRiskEstimator
	cache         *redisclient.Cache
	configTTL     time.Duration
}

func NewPersonalizationService(
	log *logger.Logger,
	learners repos.LearnerRepo,
	profiles repos.LearnerProfileRepo,
	history repos.HistoryRepo,
	predictions repos.PredictionRepo,
	interventions repos.InterventionRepo,
	plans repos.StudyPlanRepo,
	wellness repos.WellnessRepo,
	burnout BurnoutRiskEstimator,
	cache *redisclient.Cache,
) PersonalizationService {
	return &personalizationService{
		log:           log.With("service", "PersonalizationService"),
		learners:      learners,
		profiles:      profiles,
		history:       history,
		predictions:   predictions,
		interventions: interventions,
		plans:         plans,
		wellness:      wellness,
		burnout:       burnout,
		cache:         cache,
		configTTL:     envutil.Duration("PERSONALIZATION_CONFIG_TTL", 5*time.Minute),
	}
}

// AggregateInsights issues the four source fetches concurrently, each
// behind its own failure boundary: one panicking or erroring source
// never blocks the others, it just comes back nil.
func (s *personalizationService) AggregateInsights(ctx context.Context, learnerID uuid.UUID) (*types.AggregatedInsights, error) {
	out := &types.AggregatedInsights{LearnerID: learnerID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Patterns = s.guardPatterns(gctx, learnerID)
		return nil
	})
	g.Go(func() error {
		out.Predictions = s.guardPredictions(gctx, learnerID)
		return nil
	})
	g.Go(func() error {
		out.Orchestration = s.guardOrchestration(gctx, learnerID)
		return nil
	})
	g.Go(func() error {
		out.Wellness = s.guardWellness(gctx, learnerID)
		return nil
	})
	_ = g.Wait()

	out.DataQuality = types.DataQualityFlags{
		PatternsAvailable:      out.Patterns != nil,
		PredictionsAvailable:   out.Predictions != nil,
		OrchestrationAvailable: out.Orchestration != nil,
		WellnessAvailable:      out.Wellness != nil,
	}
	return out, nil
}

func (s *personalizationService) guardPatterns(ctx context.Context, learnerID uuid.UUID) (out *types.PatternInsights) {
	defer sourceBoundary(s.log, "patterns", learnerID, &out)
	patterns, err := s.fetchPatterns(ctx, learnerID)
	if err != nil {
		s.log.Warn("pattern source unavailable", "learner_id", learnerID, "error", err)
		return nil
	}
	if patterns == nil || patterns.Quality < patternQualityGate {
		return nil
	}
	return patterns
}

func (s *personalizationService) guardPredictions(ctx context.Context, learnerID uuid.UUID) (out *types.PredictionInsights) {
	defer sourceBoundary(s.log, "predictions", learnerID, &out)
	insights, err := s.fetchPredictions(ctx, learnerID)
	if err != nil {
		s.log.Warn("prediction source unavailable", "learner_id", learnerID, "error", err)
		return nil
	}
	if insights == nil || len(insights.ActivePredictions) == 0 || insights.MeanConfidence < predictionConfidenceGate {
		return nil
	}
	return insights
}

func (s *personalizationService) guardOrchestration(ctx context.Context, learnerID uuid.UUID) (out *types.OrchestrationInsights) {
	defer sourceBoundary(s.log, "orchestration", learnerID, &out)
	insights, err := s.fetchOrchestration(ctx, learnerID)
	if err != nil {
		s.log.Warn("orchestration source unavailable", "learner_id", learnerID, "error", err)
		return nil
	}
	return insights
}

func (s *personalizationService) guardWellness(ctx context.Context, learnerID uuid.UUID) (out *types.WellnessInsights) {
	defer sourceBoundary(s.log, "wellness", learnerID, &out)
	insights, err := s.fetchWellness(ctx, learnerID)
	if err != nil {
		s.log.Warn("wellness source unavailable", "learner_id", learnerID, "error", err)
		return nil
	}
	return insights
}

// sourceBoundary converts a panicking source into "source unavailable".
func sourceBoundary[T any](log *logger.Logger, name string, learnerID uuid.UUID, out **T) {
	if r := recover(); r != nil {
		log.Error("insight source panicked", "source", name, "learner_id", learnerID, "panic", r)
		*out = nil
	}
}

func (s *personalizationService) fetchPatterns(ctx context.Context, learnerID uuid.UUID) (*types.PatternInsights, error) {
	since := time.Now().UTC().AddDate(0, 0, -28)
	sessions, err := s.history.SessionsSince(ctx, nil, learnerID, since)
	if err != nil {
		return nil, err
	}
	perf, err := s.history.PerformanceForLearnerSince(ctx, nil, learnerID, since)
	if err != nil {
		return nil, err
	}

	insights := &types.PatternInsights{
		Quality:   clamp01(float64(len(sessions)+len(perf)) / 20),
		PeakHours: peakHours(sessions),
	}
	if profile, pErr := s.profiles.GetByLearner(ctx, nil, learnerID); pErr == nil && profile != nil {
		insights.PreferredModality = profile.PreferredModality
	}

	strong, weak := topicSplit(perf)
	insights.StrongTopics = strong
	insights.WeakTopics = weak
	return insights, nil
}

func (s *personalizationService) fetchPredictions(ctx context.Context, learnerID uuid.UUID) (*types.PredictionInsights, error) {
	active, err := s.predictions.ListByLearner(ctx, nil, learnerID, repos.PredictionFilter{
		Status:         types.PredictionStatusPending,
		MinProbability: 0.5,
	})
	if err != nil {
		return nil, err
	}
	open, err := s.interventions.ListByLearner(ctx, nil, learnerID)
	if err != nil {
		return nil, err
	}
	pending := open[:0:0]
	for _, rec := range open {
		if rec.Status == types.InterventionStatusPending {
			pending = append(pending, rec)
		}
	}

	insights := &types.PredictionInsights{
		ActivePredictions: active,
		OpenInterventions: pending,
	}
	for _, prediction := range active {
		insights.MeanConfidence += prediction.Confidence
		if prediction.Probability > insights.HighestProbability {
			insights.HighestProbability = prediction.Probability
		}
	}
	if len(active) > 0 {
		insights.MeanConfidence /= float64(len(active))
	}
	return insights, nil
}

func (s *personalizationService) fetchOrchestration(ctx context.Context, learnerID uuid.UUID) (*types.OrchestrationInsights, error) {
	plan, err := s.plans.GetActiveByLearner(ctx, nil, learnerID)
	if err != nil {
		return nil, err
	}
	recs, err := s.interventions.ListByLearner(ctx, nil, learnerID)
	if err != nil {
		return nil, err
	}

	insights := &types.OrchestrationInsights{}
	if plan != nil {
		insights.ActivePlanID = &plan.ID
		if items, dErr := decodePlanItems(plan.Items); dErr == nil {
			insights.PlannedItems = len(items)
		}
	}
	for _, rec := range recs {
		if rec.Status == types.InterventionStatusApplied {
			insights.AppliedInterventions++
		}
	}

	// Activity share over the last week stands in for plan completion.
	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	sessions, sErr := s.history.SessionsSince(ctx, nil, learnerID, weekAgo)
	if sErr == nil {
		activeDays := map[string]struct{}{}
		for _, session := range sessions {
			activeDays[session.StartedAt.Format("2006-01-02")] = struct{}{}
		}
		insights.RecentCompletionRate = clamp01(float64(len(activeDays)) / 7)
	}
	return insights, nil
}

func (s *personalizationService) fetchWellness(ctx context.Context, learnerID uuid.UUID) (*types.WellnessInsights, error) {
	insights := &types.WellnessInsights{CurrentLoad: 50, LoadConfidence: 0.3}
	if metric, err := s.wellness.LatestLoadMetric(ctx, nil, learnerID); err == nil && metric != nil {
		insights.CurrentLoad = metric.LoadScore
		insights.LoadConfidence = metric.Confidence
	}
	assessment, err := s.burnout.Assess(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	insights.Burnout = assessment
	return insights, nil
}

// availableSource pairs a present source with its confidence weight so
// the config build is a fold over whatever happens to be available.
type availableSource struct {
	name   string
	weight float64
}

func availableSources(insights *types.AggregatedInsights) []availableSource {
	var out []availableSource
	if insights.Patterns != nil {
		out = append(out, availableSource{"patterns", sourceWeightPatterns})
	}
	if insights.Predictions != nil {
		out = append(out, availableSource{"predictions", sourceWeightPredictions})
	}
	if insights.Orchestration != nil {
		out = append(out, availableSource{"orchestration", sourceWeightOrchestration})
	}
	if insights.Wellness != nil {
		out = append(out, availableSource{"wellness", sourceWeightWellness})
	}
	return out
}

// ConfigConfidence folds the available-source weights onto the 0.5
// floor. The 1.0 cap is authoritative.
func ConfigConfidence(sources []availableSource) float64 {
	confidence := confidenceFloor
	for _, source := range sources {
		confidence += source.weight
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func configCacheKey(learnerID uuid.UUID, personalizationContext string) string {
	return fmt.Sprintf("personalization:%s:%s", learnerID, personalizationContext)
}

func (s *personalizationService) ApplyPersonalization(ctx context.Context, learnerID uuid.UUID, personalizationContext string) (*types.PersonalizationConfig, error) {
	switch personalizationContext {
	case types.ContextMission, types.ContextContent, types.ContextAssessment, types.ContextSession:
	default:
		return nil, apierr.Validation("unknown personalization context %q", personalizationContext)
	}
	learner, err := s.learners.GetByID(ctx, nil, learnerID)
	if err != nil {
		return nil, err
	}
	if learner == nil {
		return nil, apierr.NotFound("learner %s not found", learnerID)
	}

	cacheKey := configCacheKey(learnerID, personalizationContext)
	var cached types.PersonalizationConfig
	if hit, cErr := s.cache.GetJSON(ctx, cacheKey, &cached); cErr == nil && hit {
		return &cached, nil
	}

	insights, err := s.AggregateInsights(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	config := s.buildConfig(learnerID, personalizationContext, insights)
	if cErr := s.cache.SetJSON(ctx, cacheKey, config, s.configTTL); cErr != nil {
		s.log.Warn("personalization config not cached", "learner_id", learnerID, "error", cErr)
	}
	return config, nil
}

func (s *personalizationService) buildConfig(learnerID uuid.UUID, personalizationContext string, insights *types.AggregatedInsights) *types.PersonalizationConfig {
	sources := availableSources(insights)
	config := &types.PersonalizationConfig{
		LearnerID:   learnerID,
		Context:     personalizationContext,
		Adjustments: map[string]any{},
		Confidence:  ConfigConfidence(sources),
	}

	for _, missing := range missingSources(insights) {
		config.DataQualityWarnings = append(config.DataQualityWarnings,
			fmt.Sprintf("%s source unavailable, using defaults", missing))
	}

	switch personalizationContext {
	case types.ContextMission:
		s.adjustMission(config, insights)
	case types.ContextContent:
		s.adjustContent(config, insights)
	case types.ContextAssessment:
		s.adjustAssessment(config, insights)
	case types.ContextSession:
		s.adjustSession(config, insights)
	}
	return config
}

func missingSources(insights *types.AggregatedInsights) []string {
	var out []string
	if insights.Patterns == nil {
		out = append(out, "patterns")
	}
	if insights.Predictions == nil {
		out = append(out, "predictions")
	}
	if insights.Orchestration == nil {
		out = append(out, "orchestration")
	}
	if insights.Wellness == nil {
		out = append(out, "wellness")
	}
	return out
}

func (s *personalizationService) adjustMission(config *types.PersonalizationConfig, insights *types.AggregatedInsights) {
	config.Adjustments["daily_objective_count"] = 3
	config.Reasoning = append(config.Reasoning, "default mission volume")

	if insights.Wellness != nil {
		if insights.Wellness.Burnout != nil && (insights.Wellness.Burnout.RiskLevel == types.RiskLevelHigh || insights.Wellness.Burnout.RiskLevel == types.RiskLevelCritical) {
			config.Adjustments["daily_objective_count"] = 1
			config.Reasoning = append(config.Reasoning, "burnout risk elevated, mission volume reduced")
		} else if insights.Wellness.CurrentLoad > 70 {
			config.Adjustments["daily_objective_count"] = 2
			config.Reasoning = append(config.Reasoning, "cognitive load high, mission volume trimmed")
		}
	}
	if insights.Predictions != nil && insights.Predictions.HighestProbability >= 0.7 {
		config.Adjustments["front_load_at_risk_objectives"] = true
		config.Reasoning = append(config.Reasoning, "high-probability struggle predicted, at-risk objectives moved first")
	}
	if insights.Orchestration != nil && insights.Orchestration.RecentCompletionRate < 0.5 {
		config.Adjustments["mission_scope"] = "reduced"
		config.Reasoning = append(config.Reasoning, "recent completion below half, mission scope reduced")
	}
}

func (s *personalizationService) adjustContent(config *types.PersonalizationConfig, insights *types.AggregatedInsights) {
	config.Adjustments["modality"] = types.ModalityText
	config.Reasoning = append(config.Reasoning, "default content modality")

	if insights.Patterns != nil && insights.Patterns.PreferredModality != "" {
		config.Adjustments["modality"] = insights.Patterns.PreferredModality
		config.Reasoning = append(config.Reasoning, fmt.Sprintf("preferred modality %s from behavior patterns", insights.Patterns.PreferredModality))
	}
	if insights.Predictions != nil && len(insights.Predictions.OpenInterventions) > 0 {
		config.Adjustments["difficulty_ramp"] = "gentle"
		config.Reasoning = append(config.Reasoning, "open interventions present, difficulty ramp softened")
	}
	if insights.Patterns != nil && len(insights.Patterns.WeakTopics) > 0 {
		config.Adjustments["reinforce_topics"] = insights.Patterns.WeakTopics
		config.Reasoning = append(config.Reasoning, "weak topics scheduled for reinforcement")
	}
}

func (s *personalizationService) adjustAssessment(config *types.PersonalizationConfig, insights *types.AggregatedInsights) {
	config.Adjustments["question_count"] = 10
	config.Reasoning = append(config.Reasoning, "default assessment length")

	if insights.Wellness != nil && insights.Wellness.CurrentLoad > 70 {
		config.Adjustments["question_count"] = 5
		config.Reasoning = append(config.Reasoning, "cognitive load high, assessment shortened")
	}
	if insights.Patterns != nil && len(insights.Patterns.PeakHours) > 0 {
		config.Adjustments["preferred_hours"] = insights.Patterns.PeakHours
		config.Reasoning = append(config.Reasoning, "assessments scheduled into peak performance hours")
	}
	if insights.Predictions != nil && insights.Predictions.HighestProbability >= 0.7 {
		config.Adjustments["include_prerequisite_checks"] = true
		config.Reasoning = append(config.Reasoning, "struggle predicted, prerequisite checks added")
	}
}

func (s *personalizationService) adjustSession(config *types.PersonalizationConfig, insights *types.AggregatedInsights) {
	config.Adjustments["session_minutes"] = 45
	config.Adjustments["break_every_minutes"] = 25
	config.Reasoning = append(config.Reasoning, "default session shape")

	if insights.Wellness != nil {
		if insights.Wellness.CurrentLoad > 70 {
			config.Adjustments["session_minutes"] = 25
			config.Adjustments["break_every_minutes"] = 15
			config.Reasoning = append(config.Reasoning, "cognitive load high, shorter sessions with more breaks")
		}
		if insights.Wellness.Burnout != nil && insights.Wellness.Burnout.RiskLevel == types.RiskLevelCritical {
			config.Adjustments["session_minutes"] = 15
			config.Reasoning = append(config.Reasoning, "critical burnout risk, sessions minimized")
		}
	}
	if insights.Orchestration != nil && insights.Orchestration.PlannedItems > 20 {
		config.Adjustments["spread_over_days"] = true
		config.Reasoning = append(config.Reasoning, "dense plan spread over more days")
	}
}

func peakHours(sessions []*types.StudySession) []int {
	if len(sessions) == 0 {
		return nil
	}
	counts := map[int]int{}
	for _, session := range sessions {
		counts[session.StartedAt.Hour()]++
	}
	hours := make([]int, 0, len(counts))
	for hour := range counts {
		hours = append(hours, hour)
	}
	sort.Slice(hours, func(i, j int) bool {
		if counts[hours[i]] != counts[hours[j]] {
			return counts[hours[i]] > counts[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > 3 {
		hours = hours[:3]
	}
	sort.Ints(hours)
	return hours
}

func topicSplit(perf []*types.PerformanceRecord) (strong, weak []string) {
	byObjective := map[uuid.UUID][]float64{}
	for _, record := range perf {
		byObjective[record.ObjectiveID] = append(byObjective[record.ObjectiveID], record.Score)
	}
	for objectiveID, scores := range byObjective {
		sum := 0.0
		for _, score := range scores {
			sum += score
		}
		mean := sum / float64(len(scores))
		switch {
		case mean >= 0.75:
			strong = append(strong, objectiveID.String())
		case mean < 0.5:
			weak = append(weak, objectiveID.String())
		}
	}
	sort.Strings(strong)
	sort.Strings(weak)
	return strong, weak
}
