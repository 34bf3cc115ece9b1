package services

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/types"
)

func newTestExtractor(history *fakeHistoryRepo, profiles *fakeProfileRepo, wellness *fakeWellnessRepo) FeatureExtractor {
	return NewFeatureExtractor(logger.NewNop(), history, profiles, wellness)
}

func TestExtract_NoActivityYieldsDefaultVector(t *testing.T) {
	objectiveID := uuid.New()
	history := &fakeHistoryRepo{
		objectives: map[uuid.UUID]*types.Objective{
			objectiveID: {ID: objectiveID, Complexity: 5, Modality: types.ModalityVideo},
		},
	}
	extractor := newTestExtractor(history, &fakeProfileRepo{}, &fakeWellnessRepo{})

	vector, err := extractor.Extract(context.Background(), uuid.New(), objectiveID, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vector != DefaultFeatureVector() {
		t.Fatalf("expected default vector for an empty window, got %+v", vector)
	}
}

func TestExtract_ComponentsStayInUnitRange(t *testing.T) {
	learnerID := uuid.New()
	objectiveID := uuid.New()
	prereqID := uuid.New()
	now := time.Now().UTC()

	prereqs, _ := json.Marshal([]string{prereqID.String()})
	history := &fakeHistoryRepo{
		objectives: map[uuid.UUID]*types.Objective{
			objectiveID: {ID: objectiveID, Complexity: 5, Modality: types.ModalityVideo, Prereqs: datatypes.JSON(prereqs)},
		},
		sessions: []*types.StudySession{
			{LearnerID: learnerID, StartedAt: now.AddDate(0, 0, -1), ItemsAttempted: 10, ItemsCorrect: 2},
		},
		reviews: []*types.ReviewRecord{
			{ObjectiveID: objectiveID, Correct: false, ReviewedAt: now.AddDate(0, 0, -2)},
			{ObjectiveID: objectiveID, Correct: false, ReviewedAt: now.AddDate(0, 0, -3)},
		},
		perfByObjective: map[uuid.UUID][]*types.PerformanceRecord{
			objectiveID: {{ObjectiveID: objectiveID, Score: 0.2, RecordedAt: now.AddDate(0, 0, -2)}},
		},
		allPerf: []*types.PerformanceRecord{
			{ObjectiveID: objectiveID, Score: 0.2, RecordedAt: now.AddDate(0, 0, -2)},
		},
	}
	wellness := &fakeWellnessRepo{
		metrics: []*types.CognitiveLoadMetric{{LoadScore: 150, MeasuredAt: now}},
	}
	extractor := newTestExtractor(history, &fakeProfileRepo{}, wellness)

	vector, err := extractor.Extract(context.Background(), learnerID, objectiveID, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	components := []float64{
		vector.PrerequisiteGap,
		vector.ComplexityMismatch,
		vector.ModalityMismatch,
		vector.HistoricalStruggle,
		vector.CognitiveLoad,
		vector.SessionPerformance,
	}
	for i, component := range components {
		if component < 0 || component > 1 {
			t.Fatalf("component %d = %v escapes [0,1]", i, component)
		}
	}
	// No performance on the prerequisite within the window: full gap.
	if vector.PrerequisiteGap != 1 {
		t.Fatalf("expected full prerequisite gap, got %v", vector.PrerequisiteGap)
	}
	// LoadScore above 100 must still clamp.
	if vector.CognitiveLoad != 1 {
		t.Fatalf("expected clamped cognitive load, got %v", vector.CognitiveLoad)
	}
}

func TestExtractBatch_CoversEveryObjective(t *testing.T) {
	objectiveA, objectiveB := uuid.New(), uuid.New()
	history := &fakeHistoryRepo{
		objectives: map[uuid.UUID]*types.Objective{
			objectiveA: {ID: objectiveA, Complexity: 1},
			objectiveB: {ID: objectiveB, Complexity: 3},
		},
	}
	extractor := newTestExtractor(history, &fakeProfileRepo{}, &fakeWellnessRepo{})

	vectors, err := extractor.ExtractBatch(context.Background(), uuid.New(), []uuid.UUID{objectiveA, objectiveB}, time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	for _, objectiveID := range []uuid.UUID{objectiveA, objectiveB} {
		if _, ok := vectors[objectiveID]; !ok {
			t.Fatalf("missing vector for %s", objectiveID)
		}
	}
}

func TestComplexityMismatch(t *testing.T) {
	hard := &types.Objective{Complexity: 5}
	easy := &types.Objective{Complexity: 1}
	strong := []*types.PerformanceRecord{{Score: 1.0}}
	weak := []*types.PerformanceRecord{{Score: 0.0}}

	if got := complexityMismatch(hard, strong); got != 0 {
		t.Fatalf("strong learner on hard objective: expected 0, got %v", got)
	}
	if got := complexityMismatch(hard, weak); got != 1 {
		t.Fatalf("weak learner on hard objective: expected 1, got %v", got)
	}
	if got := complexityMismatch(easy, weak); got != 0 {
		t.Fatalf("easy objective: expected 0, got %v", got)
	}
	// No history: moderate read scaled by complexity.
	if got := complexityMismatch(hard, nil); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("no history on complexity 5: expected 0.5, got %v", got)
	}
	if got := complexityMismatch(nil, strong); got != 0 {
		t.Fatalf("missing objective: expected 0, got %v", got)
	}
}

func TestHistoricalStruggle(t *testing.T) {
	if got := historicalStruggle(nil, nil); got != 0 {
		t.Fatalf("no history: expected 0, got %v", got)
	}
	allWrong := []*types.ReviewRecord{{Correct: false}, {Correct: false}}
	allLow := []*types.PerformanceRecord{{Score: 0.1}}
	if got := historicalStruggle(allWrong, allLow); got != 1 {
		t.Fatalf("all wrong and low: expected 1, got %v", got)
	}
	halfWrong := []*types.ReviewRecord{{Correct: true}, {Correct: false}}
	if got := historicalStruggle(halfWrong, nil); math.Abs(got-0.3) > 1e-9 {
		t.Fatalf("half wrong, no scores: expected 0.3, got %v", got)
	}
}

func TestSessionPerformance(t *testing.T) {
	if got := sessionPerformance(nil); got != 0.5 {
		t.Fatalf("no sessions: expected neutral 0.5, got %v", got)
	}
	sessions := []*types.StudySession{
		{ItemsAttempted: 10, ItemsCorrect: 9},
		{ItemsAttempted: 10, ItemsCorrect: 7},
	}
	if got := sessionPerformance(sessions); math.Abs(got-0.8) > 1e-9 {
		t.Fatalf("expected 0.8, got %v", got)
	}
}

func TestObjectivePrereqs_SkipsMalformedEntries(t *testing.T) {
	valid := uuid.New()
	raw, _ := json.Marshal([]string{valid.String(), "not-a-uuid"})
	objective := &types.Objective{Prereqs: datatypes.JSON(raw)}

	got := objectivePrereqs(objective)
	if len(got) != 1 || got[0] != valid {
		t.Fatalf("expected only the valid prereq, got %v", got)
	}
	if got := objectivePrereqs(nil); got != nil {
		t.Fatalf("expected nil for missing objective, got %v", got)
	}
}
