package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/types"
)

func TestRiskLevelFor_Boundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0, types.RiskLevelLow},
		{24.99, types.RiskLevelLow},
		{25, types.RiskLevelMedium},
		{49.99, types.RiskLevelMedium},
		{50, types.RiskLevelHigh},
		{74.99, types.RiskLevelHigh},
		{75, types.RiskLevelCritical},
		{100, types.RiskLevelCritical},
	}
	for _, tc := range cases {
		if got := RiskLevelFor(tc.score); got != tc.want {
			t.Fatalf("RiskLevelFor(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestBurnoutScore_DeterministicAndBounded(t *testing.T) {
	factors := []types.ContributingFactor{
		{Name: "a", Weight: 0.5, Value: 0.8},
		{Name: "b", Weight: 0.5, Value: 0.4},
	}
	want := (0.5*0.8 + 0.5*0.4) * 100
	first := BurnoutScore(factors)
	if math.Abs(first-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, first)
	}
	if second := BurnoutScore(factors); second != first {
		t.Fatalf("same inputs must give the same score: %v != %v", first, second)
	}

	// Out-of-range factor values clamp instead of escaping 0-100.
	wild := []types.ContributingFactor{{Weight: 1, Value: 4.2}}
	if got := BurnoutScore(wild); got != 100 {
		t.Fatalf("expected clamp at 100, got %v", got)
	}
}

func TestBurnoutFactors_AllValuesInRange(t *testing.T) {
	now := time.Now().UTC()
	var sessions []*types.StudySession
	for day := 0; day < 10; day++ {
		sessions = append(sessions, &types.StudySession{
			StartedAt:       now.AddDate(0, 0, -day),
			DurationMinutes: 180,
			Engagement:      1 - float64(day)*0.05,
		})
	}
	loads := []*types.CognitiveLoadMetric{{LoadScore: 80}, {LoadScore: 90}}
	perf := []*types.PerformanceRecord{{Score: 0.9}, {Score: 0.8}, {Score: 0.5}, {Score: 0.4}}

	factors := BurnoutFactors(sessions, loads, perf, 90)
	if len(factors) != 6 {
		t.Fatalf("expected 6 factors, got %d", len(factors))
	}
	weightSum := 0.0
	for _, factor := range factors {
		if factor.Value < 0 || factor.Value > 1 {
			t.Fatalf("factor %s = %v escapes [0,1]", factor.Name, factor.Value)
		}
		weightSum += factor.Weight
	}
	if math.Abs(weightSum-1.0) > 1e-9 {
		t.Fatalf("factor weights must sum to 1, got %v", weightSum)
	}
}

func TestIntensityFactor(t *testing.T) {
	sessions := []*types.StudySession{{DurationMinutes: 630}} // half of 90*14
	if got := intensityFactor(sessions, 90); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	heavy := []*types.StudySession{{DurationMinutes: 90 * 14 * 2}}
	if got := intensityFactor(heavy, 90); got != 1 {
		t.Fatalf("expected saturation at 1, got %v", got)
	}
	if got := intensityFactor(nil, 90); got != 0 {
		t.Fatalf("no sessions: expected 0, got %v", got)
	}
}

func TestPerformanceDeclineFactor(t *testing.T) {
	if got := performanceDeclineFactor(nil); got != 0 {
		t.Fatalf("no records: expected 0, got %v", got)
	}
	declining := []*types.PerformanceRecord{{Score: 0.8}, {Score: 0.8}, {Score: 0.4}, {Score: 0.4}}
	if got := performanceDeclineFactor(declining); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	improving := []*types.PerformanceRecord{{Score: 0.4}, {Score: 0.4}, {Score: 0.8}, {Score: 0.8}}
	if got := performanceDeclineFactor(improving); got != 0 {
		t.Fatalf("improvement must clamp to 0, got %v", got)
	}
}

func TestRecoveryDeficitFactor(t *testing.T) {
	now := time.Now().UTC()
	// Study on 10 distinct days: exactly 4 rest days in the 14-day
	// window fully covers the wanted rest.
	var sessions []*types.StudySession
	for day := 0; day < 10; day++ {
		sessions = append(sessions, &types.StudySession{StartedAt: now.AddDate(0, 0, -day)})
	}
	if got := recoveryDeficitFactor(sessions); got != 0 {
		t.Fatalf("4 rest days: expected 0 deficit, got %v", got)
	}
	// Every day active: no rest at all.
	for day := 10; day < 14; day++ {
		sessions = append(sessions, &types.StudySession{StartedAt: now.AddDate(0, 0, -day)})
	}
	if got := recoveryDeficitFactor(sessions); got != 1 {
		t.Fatalf("no rest days: expected 1, got %v", got)
	}
}

func TestIrregularityFactor(t *testing.T) {
	now := time.Now().UTC()
	steady := []*types.StudySession{
		{StartedAt: now, DurationMinutes: 60},
		{StartedAt: now.AddDate(0, 0, -1), DurationMinutes: 60},
		{StartedAt: now.AddDate(0, 0, -2), DurationMinutes: 60},
	}
	if got := irregularityFactor(steady); got != 0 {
		t.Fatalf("identical days: expected 0, got %v", got)
	}
	erratic := []*types.StudySession{
		{StartedAt: now, DurationMinutes: 300},
		{StartedAt: now.AddDate(0, 0, -1), DurationMinutes: 10},
	}
	if got := irregularityFactor(erratic); got <= 0 {
		t.Fatalf("erratic schedule: expected positive factor, got %v", got)
	}
	if got := irregularityFactor(steady[:1]); got != 0 {
		t.Fatalf("single day: expected 0, got %v", got)
	}
}

func TestAssess_NoHistoryGivesNeutralAssessment(t *testing.T) {
	estimator := NewBurnoutRiskEstimator(logger.NewNop(), &fakeHistoryRepo{}, &fakeWellnessRepo{}, nil, nil)

	assessment, err := estimator.Assess(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assessment.RiskScore != 50 || assessment.RiskLevel != types.RiskLevelMedium {
		t.Fatalf("expected neutral 50/MEDIUM, got %v/%s", assessment.RiskScore, assessment.RiskLevel)
	}
	if math.Abs(assessment.Confidence-0.3) > 1e-9 {
		t.Fatalf("expected low confidence 0.3, got %v", assessment.Confidence)
	}
}

func TestAssess_FreshAssessmentReused(t *testing.T) {
	history := &fakeHistoryRepo{
		sessions: []*types.StudySession{{StartedAt: time.Now().UTC(), DurationMinutes: 60, Engagement: 0.8}},
	}
	wellness := &fakeWellnessRepo{}
	estimator := NewBurnoutRiskEstimator(logger.NewNop(), history, wellness, nil, nil)

	first, err := estimator.Assess(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := estimator.Assess(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the fresh persisted assessment to be reused")
	}
	if len(wellness.assessments) != 1 {
		t.Fatalf("expected a single persisted assessment, got %d", len(wellness.assessments))
	}
}
