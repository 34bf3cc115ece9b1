package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumenlearn/insight-backend/internal/repos"
	"github.com/lumenlearn/insight-backend/internal/types"
)

// In-memory repo fakes. Slices are returned as stored; window
// filtering is the production repo's job and is not re-modeled here.

type fakeHistoryRepo struct {
	sessions        []*types.StudySession
	reviews         []*types.ReviewRecord
	perfByObjective map[uuid.UUID][]*types.PerformanceRecord
	allPerf         []*types.PerformanceRecord
	missions        []*types.Mission
	objectives      map[uuid.UUID]*types.Objective
}

func (f *fakeHistoryRepo) SessionsSince(context.Context, *gorm.DB, uuid.UUID, time.Time) ([]*types.StudySession, error) {
	return f.sessions, nil
}

func (f *fakeHistoryRepo) ReviewsSince(context.Context, *gorm.DB, uuid.UUID, uuid.UUID, time.Time) ([]*types.ReviewRecord, error) {
	return f.reviews, nil
}

func (f *fakeHistoryRepo) PerformanceSince(_ context.Context, _ *gorm.DB, _ uuid.UUID, objectiveID uuid.UUID, _ time.Time) ([]*types.PerformanceRecord, error) {
	return f.perfByObjective[objectiveID], nil
}

func (f *fakeHistoryRepo) PerformanceForLearnerSince(context.Context, *gorm.DB, uuid.UUID, time.Time) ([]*types.PerformanceRecord, error) {
	return f.allPerf, nil
}

func (f *fakeHistoryRepo) OpenMissionsDueWithin(context.Context, *gorm.DB, uuid.UUID, time.Time) ([]*types.Mission, error) {
	return f.missions, nil
}

func (f *fakeHistoryRepo) GetObjective(_ context.Context, _ *gorm.DB, objectiveID uuid.UUID) (*types.Objective, error) {
	return f.objectives[objectiveID], nil
}

type fakeProfileRepo struct {
	profile *types.LearnerProfile
}

func (f *fakeProfileRepo) GetByLearner(context.Context, *gorm.DB, uuid.UUID) (*types.LearnerProfile, error) {
	return f.profile, nil
}

func (f *fakeProfileRepo) Upsert(_ context.Context, _ *gorm.DB, profile *types.LearnerProfile) error {
	f.profile = profile
	return nil
}

type fakeWellnessRepo struct {
	metrics     []*types.CognitiveLoadMetric
	assessments []*types.BurnoutRiskAssessment
}

func (f *fakeWellnessRepo) CreateLoadMetric(_ context.Context, _ *gorm.DB, metric *types.CognitiveLoadMetric) error {
	f.metrics = append(f.metrics, metric)
	return nil
}

func (f *fakeWellnessRepo) LoadMetricsSince(context.Context, *gorm.DB, uuid.UUID, time.Time) ([]*types.CognitiveLoadMetric, error) {
	return f.metrics, nil
}

func (f *fakeWellnessRepo) LatestLoadMetric(context.Context, *gorm.DB, uuid.UUID) (*types.CognitiveLoadMetric, error) {
	if len(f.metrics) == 0 {
		return nil, nil
	}
	return f.metrics[len(f.metrics)-1], nil
}

func (f *fakeWellnessRepo) CreateAssessment(_ context.Context, _ *gorm.DB, assessment *types.BurnoutRiskAssessment) error {
	f.assessments = append(f.assessments, assessment)
	return nil
}

func (f *fakeWellnessRepo) LatestAssessment(context.Context, *gorm.DB, uuid.UUID) (*types.BurnoutRiskAssessment, error) {
	if len(f.assessments) == 0 {
		return nil, nil
	}
	return f.assessments[len(f.assessments)-1], nil
}

type fakeLearnerRepo struct {
	learner *types.Learner
}

func (f *fakeLearnerRepo) GetByID(context.Context, *gorm.DB, uuid.UUID) (*types.Learner, error) {
	return f.learner, nil
}

func (f *fakeLearnerRepo) Create(_ context.Context, _ *gorm.DB, learner *types.Learner) error {
	f.learner = learner
	return nil
}

type fakePredictionRepo struct {
	rows []*types.StrugglePrediction
}

func (f *fakePredictionRepo) Create(_ context.Context, _ *gorm.DB, prediction *types.StrugglePrediction) error {
	f.rows = append(f.rows, prediction)
	return nil
}

func (f *fakePredictionRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.StrugglePrediction, error) {
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakePredictionRepo) ListByLearner(_ context.Context, _ *gorm.DB, learnerID uuid.UUID, filter repos.PredictionFilter) ([]*types.StrugglePrediction, error) {
	var out []*types.StrugglePrediction
	for _, row := range f.rows {
		if row.LearnerID != learnerID {
			continue
		}
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		if filter.MinProbability > 0 && row.Probability < filter.MinProbability {
			continue
		}
		if filter.Since != nil && row.PredictedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakePredictionRepo) TransitionStatus(_ context.Context, _ *gorm.DB, id uuid.UUID, newStatus string) (bool, error) {
	for _, row := range f.rows {
		if row.ID == id && row.Status == types.PredictionStatusPending {
			row.Status = newStatus
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePredictionRepo) CountByStatus(_ context.Context, _ *gorm.DB, learnerID uuid.UUID, _ *time.Time) (map[string]int64, error) {
	out := map[string]int64{}
	for _, row := range f.rows {
		if row.LearnerID == learnerID {
			out[row.Status]++
		}
	}
	return out, nil
}

type fakeInterventionRepo struct {
	recs []*types.InterventionRecommendation
}

func (f *fakeInterventionRepo) Create(_ context.Context, _ *gorm.DB, rec *types.InterventionRecommendation) error {
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeInterventionRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.InterventionRecommendation, error) {
	for _, rec := range f.recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, nil
}

func (f *fakeInterventionRepo) ListByLearner(_ context.Context, _ *gorm.DB, learnerID uuid.UUID) ([]*types.InterventionRecommendation, error) {
	var out []*types.InterventionRecommendation
	for _, rec := range f.recs {
		if rec.LearnerID == learnerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeInterventionRepo) ExistsForPrediction(_ context.Context, _ *gorm.DB, predictionID uuid.UUID) (bool, error) {
	for _, rec := range f.recs {
		if rec.PredictionID == predictionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInterventionRepo) MarkApplied(_ context.Context, _ *gorm.DB, id uuid.UUID, actions datatypes.JSON, planID uuid.UUID) (bool, error) {
	for _, rec := range f.recs {
		if rec.ID == id && rec.Status == types.InterventionStatusPending {
			rec.Status = types.InterventionStatusApplied
			rec.AppliedActions = actions
			rec.TargetPlanID = &planID
			return true, nil
		}
	}
	return false, nil
}

type fakeStudyPlanRepo struct {
	plan *types.StudyPlan
}

func (f *fakeStudyPlanRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.StudyPlan, error) {
	if f.plan != nil && f.plan.ID == id {
		return f.plan, nil
	}
	return nil, nil
}

func (f *fakeStudyPlanRepo) GetActiveByLearner(context.Context, *gorm.DB, uuid.UUID) (*types.StudyPlan, error) {
	return f.plan, nil
}

func (f *fakeStudyPlanRepo) Create(_ context.Context, _ *gorm.DB, plan *types.StudyPlan) error {
	f.plan = plan
	return nil
}

func (f *fakeStudyPlanRepo) UpdateItems(_ context.Context, _ *gorm.DB, _ uuid.UUID, items datatypes.JSON) error {
	if f.plan != nil {
		f.plan.Items = items
	}
	return nil
}

type fakeFeedbackRepo struct {
	rows []*types.PredictionFeedback
}

func (f *fakeFeedbackRepo) Create(_ context.Context, _ *gorm.DB, feedback *types.PredictionFeedback) error {
	f.rows = append(f.rows, feedback)
	return nil
}

func (f *fakeFeedbackRepo) GetByPrediction(_ context.Context, _ *gorm.DB, predictionID uuid.UUID) (*types.PredictionFeedback, error) {
	for _, row := range f.rows {
		if row.PredictionID == predictionID {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakeFeedbackRepo) ListByLearner(context.Context, *gorm.DB, uuid.UUID) ([]*types.PredictionFeedback, error) {
	return f.rows, nil
}

// panickyHistoryRepo blows up on every read, for source isolation tests.
type panickyHistoryRepo struct {
	fakeHistoryRepo
}

func (p *panickyHistoryRepo) SessionsSince(context.Context, *gorm.DB, uuid.UUID, time.Time) ([]*types.StudySession, error) {
	panic("history store down")
}
