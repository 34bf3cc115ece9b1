package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumenlearn/insight-backend/internal/services"
	"github.com/lumenlearn/insight-backend/internal/types"
)

type stubLearnerRepo struct {
	learners map[uuid.UUID]*types.Learner
}

func (s *stubLearnerRepo) GetByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*types.Learner, error) {
	return s.learners[id], nil
}

func (s *stubLearnerRepo) Create(_ context.Context, _ *gorm.DB, learner *types.Learner) error {
	s.learners[learner.ID] = learner
	return nil
}

type stubLoadEstimator struct {
	calls int
}

func (s *stubLoadEstimator) Calculate(_ context.Context, learnerID, sessionID uuid.UUID, _ services.BehavioralData) (*types.CognitiveLoadMetric, error) {
	s.calls++
	return &types.CognitiveLoadMetric{ID: uuid.New(), LearnerID: learnerID, SessionID: sessionID, MeasuredAt: time.Now()}, nil
}

type stubBurnoutEstimator struct {
	calls int
}

func (s *stubBurnoutEstimator) Assess(_ context.Context, learnerID uuid.UUID) (*types.BurnoutRiskAssessment, error) {
	s.calls++
	return &types.BurnoutRiskAssessment{ID: uuid.New(), LearnerID: learnerID, AssessedAt: time.Now()}, nil
}

func wellnessTestContext(t *testing.T, learnerID uuid.UUID, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Params = gin.Params{{Key: "learnerId", Value: learnerID.String()}}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, rec
}

func TestCalculateLoad_UnknownLearnerNotFound(t *testing.T) {
	loads := &stubLoadEstimator{}
	handler := NewWellnessHandler(&stubLearnerRepo{learners: map[uuid.UUID]*types.Learner{}}, loads, &stubBurnoutEstimator{})

	c, rec := wellnessTestContext(t, uuid.New(), `{"session_id":"`+uuid.NewString()+`"}`)
	handler.CalculateLoad(c)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if loads.calls != 0 {
		t.Fatalf("expected no estimate for unknown learner, got %d calls", loads.calls)
	}
}

func TestCalculateLoad_KnownLearnerOK(t *testing.T) {
	learner := &types.Learner{ID: uuid.New()}
	loads := &stubLoadEstimator{}
	handler := NewWellnessHandler(&stubLearnerRepo{learners: map[uuid.UUID]*types.Learner{learner.ID: learner}}, loads, &stubBurnoutEstimator{})

	c, rec := wellnessTestContext(t, learner.ID, `{"session_id":"`+uuid.NewString()+`","items_attempted":10,"items_incorrect":2}`)
	handler.CalculateLoad(c)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if loads.calls != 1 {
		t.Fatalf("expected 1 estimate call, got %d", loads.calls)
	}
}

func TestBurnoutRisk_UnknownLearnerNotFound(t *testing.T) {
	burnout := &stubBurnoutEstimator{}
	handler := NewWellnessHandler(&stubLearnerRepo{learners: map[uuid.UUID]*types.Learner{}}, &stubLoadEstimator{}, burnout)

	c, rec := wellnessTestContext(t, uuid.New(), "")
	handler.BurnoutRisk(c)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if burnout.calls != 0 {
		t.Fatalf("expected no assessment for unknown learner, got %d calls", burnout.calls)
	}
}

func TestBurnoutRisk_KnownLearnerOK(t *testing.T) {
	learner := &types.Learner{ID: uuid.New()}
	burnout := &stubBurnoutEstimator{}
	handler := NewWellnessHandler(&stubLearnerRepo{learners: map[uuid.UUID]*types.Learner{learner.ID: learner}}, &stubLoadEstimator{}, burnout)

	c, rec := wellnessTestContext(t, learner.ID, "")
	handler.BurnoutRisk(c)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if burnout.calls != 1 {
		t.Fatalf("expected 1 assessment call, got %d", burnout.calls)
	}
}
