package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumenlearn/insight-backend/internal/platform/apierr"
	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/repos"
	"github.com/lumenlearn/insight-backend/internal/types"
)

// Strategy gates: each strategy fires on one feature component.
const (
	gatePrerequisiteGap    = 0.5
	gateComplexity         = 0.6
	gateModality           = 0.5
	gateCognitiveLoad      = 0.7
	gateHistoricalStruggle = 0.6
	gateBreakLoad          = 0.6
	gateBreakPerformance   = 0.6
)

// Fixed base priorities, 5-9.
var strategyPriority = map[string]int{
	types.StrategyPrerequisiteReview:    9,
	types.StrategyDifficultyProgress:    8,
	types.StrategyCognitiveLoadReduce:   8,
	types.StrategyContentFormatAdapt:    7,
	types.StrategySpacedRepetitionBoost: 6,
	types.StrategyBreakScheduleAdjust:   5,
}

type ApplyResult struct {
	Plan           *types.StudyPlan      `json:"plan"`
	AppliedActions []types.AppliedAction `json:"applied_actions"`
}

type GroupedInterventions struct {
	Strategy        string                              `json:"strategy"`
	Priority        int                                 `json:"priority"`
	Recommendations []*types.InterventionRecommendation `json:"recommendations"`
	Effectiveness   float64                             `json:"effectiveness"`
}

type InterventionSelector interface {
	// Select maps a feature vector to the gated strategies, highest
	// base priority first.
	Select(vector types.FeatureVector) []string
	// Recommend persists one recommendation per gated strategy for a
	// persisted prediction.
	Recommend(ctx context.Context, prediction *types.StrugglePrediction, vector types.FeatureVector) ([]*types.InterventionRecommendation, error)
	Apply(ctx context.Context, interventionID uuid.UUID, targetPlanID *uuid.UUID) (*ApplyResult, error)
	ListGrouped(ctx context.Context, learnerID uuid.UUID) ([]GroupedInterventions, error)
}

type interventionSelector struct {
	log           *logger.Logger
	interventions repos.InterventionRepo
	predictions   repos.PredictionRepo
	plans         repos.StudyPlanRepo
	profiles      repos.LearnerProfileRepo
	history       repos.HistoryRepo
	// runTx wraps the apply transition and plan update in one
	// transaction.
	runTx func(ctx context.Context, fn func(tx *gorm.DB) error) error
}

func NewInterventionSelector(
	db *gorm.DB,
	log *logger.Logger,
	interventions repos.InterventionRepo,
	predictions repos.PredictionRepo,
	plans repos.StudyPlanRepo,
	profiles repos.LearnerProfileRepo,
	history repos.HistoryRepo,
) InterventionSelector {
	return &interventionSelector{
		log:           log.With("service", "InterventionSelector"),
		interventions: interventions,
		predictions:   predictions,
		plans:         plans,
		profiles:      profiles,
		history:       history,
		runTx: func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			return db.WithContext(ctx).Transaction(fn)
		},
	}
}

func (s *interventionSelector) Select(vector types.FeatureVector) []string {
	var out []string
	if vector.PrerequisiteGap > gatePrerequisiteGap {
		out = append(out, types.StrategyPrerequisiteReview)
	}
	if vector.ComplexityMismatch > gateComplexity {
		out = append(out, types.StrategyDifficultyProgress)
	}
	if vector.ModalityMismatch > gateModality {
		out = append(out, types.StrategyContentFormatAdapt)
	}
	if vector.CognitiveLoad > gateCognitiveLoad {
		out = append(out, types.StrategyCognitiveLoadReduce)
	}
	if vector.HistoricalStruggle > gateHistoricalStruggle {
		out = append(out, types.StrategySpacedRepetitionBoost)
	}
	if vector.CognitiveLoad > gateBreakLoad && vector.SessionPerformance < gateBreakPerformance {
		out = append(out, types.StrategyBreakScheduleAdjust)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strategyPriority[out[i]] > strategyPriority[out[j]]
	})
	return out
}

func (s *interventionSelector) Recommend(ctx context.Context, prediction *types.StrugglePrediction, vector types.FeatureVector) ([]*types.InterventionRecommendation, error) {
	if prediction == nil {
		return nil, apierr.Validation("prediction required")
	}
	if exists, err := s.interventions.ExistsForPrediction(ctx, nil, prediction.ID); err != nil {
		return nil, err
	} else if exists {
		return nil, nil
	}

	strategies := s.Select(vector)
	out := make([]*types.InterventionRecommendation, 0, len(strategies))
	for _, strategy := range strategies {
		rec := &types.InterventionRecommendation{
			ID:           uuid.New(),
			PredictionID: prediction.ID,
			LearnerID:    prediction.LearnerID,
			ObjectiveID:  prediction.ObjectiveID,
			Strategy:     strategy,
			Priority:     strategyPriority[strategy],
			Status:       types.InterventionStatusPending,
		}
		if err := s.interventions.Create(ctx, nil, rec); err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *interventionSelector) Apply(ctx context.Context, interventionID uuid.UUID, targetPlanID *uuid.UUID) (*ApplyResult, error) {
	rec, err := s.interventions.GetByID(ctx, nil, interventionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apierr.NotFound("intervention %s not found", interventionID)
	}
	if rec.Status == types.InterventionStatusApplied {
		return nil, apierr.Conflict("intervention %s already applied", interventionID)
	}
	if rec.Status == types.InterventionStatusRejected {
		return nil, apierr.Conflict("intervention %s was rejected", interventionID)
	}

	var plan *types.StudyPlan
	if targetPlanID != nil && *targetPlanID != uuid.Nil {
		plan, err = s.plans.GetByID(ctx, nil, *targetPlanID)
	} else {
		plan, err = s.plans.GetActiveByLearner(ctx, nil, rec.LearnerID)
	}
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, apierr.NotFound("no study plan for learner %s", rec.LearnerID)
	}

	items, err := decodePlanItems(plan.Items)
	if err != nil {
		return nil, apierr.Validation("study plan %s holds malformed items: %v", plan.ID, err)
	}

	items, actions, err := s.mutatePlan(ctx, rec, items)
	if err != nil {
		return nil, err
	}

	encodedItems, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	encodedActions, err := json.Marshal(actions)
	if err != nil {
		return nil, err
	}

	// The conditional transition is the conflict guard under
	// concurrency: only one applier wins the PENDING row.
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		applied, txErr := s.interventions.MarkApplied(ctx, tx, rec.ID, datatypes.JSON(encodedActions), plan.ID)
		if txErr != nil {
			return txErr
		}
		if !applied {
			return apierr.Conflict("intervention %s already applied", rec.ID)
		}
		return s.plans.UpdateItems(ctx, tx, plan.ID, datatypes.JSON(encodedItems))
	})
	if err != nil {
		return nil, err
	}

	plan.Items = datatypes.JSON(encodedItems)
	s.log.Info("intervention applied",
		"intervention_id", rec.ID, "strategy", rec.Strategy, "plan_id", plan.ID)
	return &ApplyResult{Plan: plan, AppliedActions: actions}, nil
}

func (s *interventionSelector) mutatePlan(ctx context.Context, rec *types.InterventionRecommendation, items []types.PlanItem) ([]types.PlanItem, []types.AppliedAction, error) {
	now := time.Now().UTC()
	var actions []types.AppliedAction
	record := func(action, detail string) {
		actions = append(actions, types.AppliedAction{Action: action, Detail: detail, At: now})
	}

	switch rec.Strategy {
	case types.StrategyPrerequisiteReview:
		objective, err := s.history.GetObjective(ctx, nil, rec.ObjectiveID)
		if err != nil {
			return nil, nil, err
		}
		anchor := earliestFor(items, rec.ObjectiveID, now.AddDate(0, 0, 2))
		for i, prereqID := range objectivePrereqs(objective) {
			// Spread prerequisite passes 1-2 days ahead of the target.
			daysBefore := 1 + i%2
			items = append(items, types.PlanItem{
				ObjectiveID:     prereqID,
				Kind:            types.PlanItemKindPrereq,
				ScheduledFor:    anchor.AddDate(0, 0, -daysBefore),
				DurationMinutes: 20,
			})
			record("insert_prerequisite_review", prereqID.String())
		}

	case types.StrategyDifficultyProgress:
		anchor := earliestFor(items, rec.ObjectiveID, now.AddDate(0, 0, 1))
		items = append(items, types.PlanItem{
			ObjectiveID:     rec.ObjectiveID,
			Kind:            types.PlanItemKindIntroPass,
			ScheduledFor:    anchor.AddDate(0, 0, -1),
			DurationMinutes: 15,
		})
		record("insert_intro_pass", rec.ObjectiveID.String())
		for i := range items {
			if items[i].ObjectiveID == rec.ObjectiveID && items[i].Kind == types.PlanItemKindStudy {
				items[i].DurationMinutes = items[i].DurationMinutes * 5 / 4
			}
		}
		record("extend_study_time", "+25%")

	case types.StrategyContentFormatAdapt:
		profile, err := s.profiles.GetByLearner(ctx, nil, rec.LearnerID)
		if err != nil {
			return nil, nil, err
		}
		modality := types.ModalityText
		if profile != nil && profile.PreferredModality != "" {
			modality = profile.PreferredModality
		}
		for i := range items {
			if items[i].ObjectiveID == rec.ObjectiveID {
				items[i].Modality = modality
			}
		}
		record("swap_content_modality", modality)

	case types.StrategyCognitiveLoadReduce:
		const maxNewItems = 5
		for i := range items {
			if items[i].ScheduledFor.Before(now) {
				continue
			}
			items[i].DurationMinutes = items[i].DurationMinutes / 2
			if items[i].MaxNewItems == 0 || items[i].MaxNewItems > maxNewItems {
				items[i].MaxNewItems = maxNewItems
			}
		}
		record("halve_session_duration", "")
		record("cap_new_items", fmt.Sprintf("%d", maxNewItems))

	case types.StrategySpacedRepetitionBoost:
		for _, offset := range []int{1, 3, 7} {
			items = append(items, types.PlanItem{
				ObjectiveID:     rec.ObjectiveID,
				Kind:            types.PlanItemKindReview,
				ScheduledFor:    now.AddDate(0, 0, offset),
				DurationMinutes: 10,
				ReviewWeight:    1.5,
			})
		}
		record("shorten_review_schedule", "[1,3,7] days")
		twoWeeks := now.AddDate(0, 0, 14)
		for i := range items {
			if items[i].Kind == types.PlanItemKindReview && items[i].ScheduledFor.Before(twoWeeks) {
				items[i].ReviewWeight = 1.5
			}
		}
		record("boost_review_weight", "x1.5 for two weeks")

	case types.StrategyBreakScheduleAdjust:
		var withBreaks []types.PlanItem
		inserted := 0
		for _, item := range items {
			withBreaks = append(withBreaks, item)
			if item.Kind == types.PlanItemKindStudy && !item.ScheduledFor.Before(now) {
				withBreaks = append(withBreaks, types.PlanItem{
					ObjectiveID:     item.ObjectiveID,
					Kind:            types.PlanItemKindBreak,
					ScheduledFor:    item.ScheduledFor,
					DurationMinutes: 10,
					Note:            "timed break",
				})
				inserted++
			}
		}
		items = withBreaks
		record("insert_timed_breaks", fmt.Sprintf("%d", inserted))

	default:
		return nil, nil, apierr.Validation("unknown strategy %q", rec.Strategy)
	}

	return items, actions, nil
}

func (s *interventionSelector) ListGrouped(ctx context.Context, learnerID uuid.UUID) ([]GroupedInterventions, error) {
	rows, err := s.interventions.ListByLearner(ctx, nil, learnerID)
	if err != nil {
		return nil, err
	}

	byStrategy := map[string][]*types.InterventionRecommendation{}
	for _, row := range rows {
		byStrategy[row.Strategy] = append(byStrategy[row.Strategy], row)
	}

	out := make([]GroupedInterventions, 0, len(byStrategy))
	for strategy, recs := range byStrategy {
		out = append(out, GroupedInterventions{
			Strategy:        strategy,
			Priority:        strategyPriority[strategy],
			Recommendations: recs,
			Effectiveness:   s.effectiveness(ctx, recs),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

// effectiveness is the share of applied interventions whose prediction
// ended FALSE_POSITIVE: the struggle the intervention targeted did not
// materialize.
func (s *interventionSelector) effectiveness(ctx context.Context, recs []*types.InterventionRecommendation) float64 {
	applied, averted := 0, 0
	for _, rec := range recs {
		if rec.Status != types.InterventionStatusApplied {
			continue
		}
		prediction, err := s.predictions.GetByID(ctx, nil, rec.PredictionID)
		if err != nil || prediction == nil {
			continue
		}
		if prediction.Status == types.PredictionStatusPending {
			continue
		}
		applied++
		if prediction.Status == types.PredictionStatusFalsePositive {
			averted++
		}
	}
	if applied == 0 {
		return 0
	}
	return float64(averted) / float64(applied)
}

func decodePlanItems(raw datatypes.JSON) ([]types.PlanItem, error) {
	if len(raw) == 0 {
		return []types.PlanItem{}, nil
	}
	var items []types.PlanItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// earliestFor finds the earliest upcoming plan item for the objective,
// falling back when the objective is not yet planned.
func earliestFor(items []types.PlanItem, objectiveID uuid.UUID, fallback time.Time) time.Time {
	earliest := fallback
	found := false
	for _, item := range items {
		if item.ObjectiveID != objectiveID {
			continue
		}
		if !found || item.ScheduledFor.Before(earliest) {
			earliest = item.ScheduledFor
			found = true
		}
	}
	return earliest
}
