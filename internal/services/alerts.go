package services

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/lumenlearn/insight-backend/internal/platform/logger"
	"github.com/lumenlearn/insight-backend/internal/types"
)

// Alert priority blend. Each term is normalized to [0,1] and the total
// scaled to 0-100.
const (
	alertWeightUrgency    = 0.4
	alertWeightConfidence = 0.3
	alertWeightSeverity   = 0.2
	alertWeightLoad       = 0.1
)

// maxAlerts bounds the output. Alert fatigue mitigation, not a
// performance limit.
const maxAlerts = 3

type AlertInput struct {
	Prediction     *types.StrugglePrediction
	DaysUntilDue   float64
	CognitiveLoad  float64
	InterventionID *uuid.UUID
}

type AlertPrioritizer interface {
	Prioritize(inputs []AlertInput) []types.Alert
}

type alertPrioritizer struct {
	log *logger.Logger
}

func NewAlertPrioritizer(log *logger.Logger) AlertPrioritizer {
	return &alertPrioritizer{log: log.With("service", "AlertPrioritizer")}
}

func (p *alertPrioritizer) Prioritize(inputs []AlertInput) []types.Alert {
	alerts := make([]types.Alert, 0, len(inputs))
	for _, input := range inputs {
		if input.Prediction == nil {
			continue
		}
		alerts = append(alerts, buildAlert(input))
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Priority > alerts[j].Priority
	})
	if len(alerts) > maxAlerts {
		alerts = alerts[:maxAlerts]
	}
	return alerts
}

func buildAlert(input AlertInput) types.Alert {
	prediction := input.Prediction

	urgency := 1 - minFloat(1, maxFloat(0, input.DaysUntilDue)/3)
	indicators := decodeIndicators(prediction.Indicators)
	severity := types.SeverityLow
	dominant := ""
	if len(indicators) > 0 {
		severity = indicators[0].Severity
		dominant = indicators[0].Type
	}

	priority := (alertWeightUrgency*urgency +
		alertWeightConfidence*clamp01(prediction.Confidence) +
		alertWeightSeverity*severityScore(severity) +
		alertWeightLoad*clamp01(input.CognitiveLoad)) * 100

	alertType := types.AlertProactiveWarning
	switch {
	case input.InterventionID != nil:
		alertType = types.AlertInterventionSuggestion
	case input.DaysUntilDue < 1:
		alertType = types.AlertRealTime
	case dominant == types.IndicatorPrerequisiteGap:
		alertType = types.AlertPrerequisite
	}

	return types.Alert{
		Type:           alertType,
		Priority:       priority,
		Severity:       severity,
		PredictionID:   prediction.ID,
		ObjectiveID:    prediction.ObjectiveID,
		InterventionID: input.InterventionID,
		Message:        fmt.Sprintf("struggle probability %.0f%%", prediction.Probability*100),
	}
}

func severityScore(severity string) float64 {
	switch severity {
	case types.SeverityHigh:
		return 1.0
	case types.SeverityMedium:
		return 0.66
	default:
		return 0.33
	}
}

func decodeIndicators(raw []byte) []types.StruggleIndicator {
	if len(raw) == 0 {
		return nil
	}
	var out []types.StruggleIndicator
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
