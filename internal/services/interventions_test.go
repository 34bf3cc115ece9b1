package services

import (
	"bytes"
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/types"
)

func newTestSelector() *interventionSelector {
	return &interventionSelector{log: logger.NewNop()}
}

func TestSelect_PrerequisiteGapAloneTriggersOnlyPrerequisiteReview(t *testing.T) {
	vector := types.FeatureVector{
		PrerequisiteGap:    0.8,
		CognitiveLoad:      0.5,
		SessionPerformance: 0.5,
	}
	got := newTestSelector().Select(vector)
	want := []string{types.StrategyPrerequisiteReview}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSelect_AllGatesOrderedByPriority(t *testing.T) {
	vector := types.FeatureVector{
		PrerequisiteGap:    0.9,
		ComplexityMismatch: 0.9,
		ModalityMismatch:   0.9,
		HistoricalStruggle: 0.9,
		CognitiveLoad:      0.9,
		SessionPerformance: 0.1,
	}
	got := newTestSelector().Select(vector)
	want := []string{
		types.StrategyPrerequisiteReview,    // 9
		types.StrategyDifficultyProgress,    // 8
		types.StrategyCognitiveLoadReduce,   // 8, gated later
		types.StrategyContentFormatAdapt,    // 7
		types.StrategySpacedRepetitionBoost, // 6
		types.StrategyBreakScheduleAdjust,   // 5
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSelect_BreakNeedsLoadAndLowPerformance(t *testing.T) {
	highLoadGoodPerf := types.FeatureVector{CognitiveLoad: 0.65, SessionPerformance: 0.9}
	for _, strategy := range newTestSelector().Select(highLoadGoodPerf) {
		if strategy == types.StrategyBreakScheduleAdjust {
			t.Fatalf("break adjust must not fire on load alone")
		}
	}

	lowPerfOnly := types.FeatureVector{CognitiveLoad: 0.3, SessionPerformance: 0.2}
	for _, strategy := range newTestSelector().Select(lowPerfOnly) {
		if strategy == types.StrategyBreakScheduleAdjust {
			t.Fatalf("break adjust must not fire on low performance alone")
		}
	}

	both := types.FeatureVector{CognitiveLoad: 0.65, SessionPerformance: 0.2}
	found := false
	for _, strategy := range newTestSelector().Select(both) {
		if strategy == types.StrategyBreakScheduleAdjust {
			found = true
		}
	}
	if !found {
		t.Fatalf("break adjust must fire when both signals trip")
	}
}

func TestSelect_NeutralVectorSelectsNothing(t *testing.T) {
	if got := newTestSelector().Select(DefaultFeatureVector()); len(got) != 0 {
		t.Fatalf("neutral vector: expected no strategies, got %v", got)
	}
}

func TestEarliestFor(t *testing.T) {
	objectiveID := uuid.New()
	otherID := uuid.New()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	items := []types.PlanItem{
		{ObjectiveID: otherID, ScheduledFor: now.AddDate(0, 0, 1)},
		{ObjectiveID: objectiveID, ScheduledFor: now.AddDate(0, 0, 5)},
		{ObjectiveID: objectiveID, ScheduledFor: now.AddDate(0, 0, 3)},
	}

	if got := earliestFor(items, objectiveID, now); !got.Equal(now.AddDate(0, 0, 3)) {
		t.Fatalf("expected the earlier scheduled item, got %v", got)
	}
	fallback := now.AddDate(0, 0, 2)
	if got := earliestFor(items, uuid.New(), fallback); !got.Equal(fallback) {
		t.Fatalf("expected fallback for unplanned objective, got %v", got)
	}
}

func TestDecodePlanItems(t *testing.T) {
	items, err := decodePlanItems(nil)
	if err != nil || len(items) != 0 {
		t.Fatalf("empty plan: expected no items, got %v, %v", items, err)
	}
	if _, err := decodePlanItems([]byte(`{"not":"a list"}`)); err == nil {
		t.Fatalf("expected error for malformed items")
	}
}

func newApplySelector(interventions *fakeInterventionRepo, plans *fakeStudyPlanRepo) *interventionSelector {
	return &interventionSelector{
		log:           logger.NewNop(),
		interventions: interventions,
		plans:         plans,
		runTx: func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			return fn(nil)
		},
	}
}

func pendingRecommendation(learnerID uuid.UUID, strategy string) *types.InterventionRecommendation {
	return &types.InterventionRecommendation{
		ID:           uuid.New(),
		PredictionID: uuid.New(),
		LearnerID:    learnerID,
		ObjectiveID:  uuid.New(),
		Strategy:     strategy,
		Priority:     strategyPriority[strategy],
		Status:       types.InterventionStatusPending,
	}
}

func TestApply_SecondApplyConflictsAndActionsRecordedOnce(t *testing.T) {
	learnerID := uuid.New()
	rec := pendingRecommendation(learnerID, types.StrategySpacedRepetitionBoost)
	interventions := &fakeInterventionRepo{recs: []*types.InterventionRecommendation{rec}}
	plans := &fakeStudyPlanRepo{plan: &types.StudyPlan{ID: uuid.New(), LearnerID: learnerID, Active: true}}
	selector := newApplySelector(interventions, plans)

	result, err := selector.Apply(context.Background(), rec.ID, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if rec.Status != types.InterventionStatusApplied {
		t.Fatalf("status = %s, want APPLIED", rec.Status)
	}
	if len(result.AppliedActions) == 0 {
		t.Fatal("expected applied actions")
	}
	items, err := decodePlanItems(result.Plan.Items)
	if err != nil {
		t.Fatalf("decode plan items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("plan items = %d, want three boosted reviews", len(items))
	}
	recorded := append([]byte(nil), rec.AppliedActions...)

	_, err = selector.Apply(context.Background(), rec.ID, nil)
	assertStatus(t, err, 409)
	if !bytes.Equal(rec.AppliedActions, recorded) {
		t.Fatal("applied actions changed on the rejected second apply")
	}
}

func TestApply_RejectedRecommendationConflicts(t *testing.T) {
	learnerID := uuid.New()
	rec := pendingRecommendation(learnerID, types.StrategySpacedRepetitionBoost)
	rec.Status = types.InterventionStatusRejected
	interventions := &fakeInterventionRepo{recs: []*types.InterventionRecommendation{rec}}
	selector := newApplySelector(interventions, &fakeStudyPlanRepo{})

	_, err := selector.Apply(context.Background(), rec.ID, nil)
	assertStatus(t, err, 409)
}

func TestApply_UnknownInterventionNotFound(t *testing.T) {
	selector := newApplySelector(&fakeInterventionRepo{}, &fakeStudyPlanRepo{})

	_, err := selector.Apply(context.Background(), uuid.New(), nil)
	assertStatus(t, err, 404)
}

func TestApply_NoStudyPlanNotFound(t *testing.T) {
	learnerID := uuid.New()
	rec := pendingRecommendation(learnerID, types.StrategySpacedRepetitionBoost)
	interventions := &fakeInterventionRepo{recs: []*types.InterventionRecommendation{rec}}
	selector := newApplySelector(interventions, &fakeStudyPlanRepo{})

	_, err := selector.Apply(context.Background(), rec.ID, nil)
	assertStatus(t, err, 404)
}
