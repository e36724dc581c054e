package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-med/whitecard/internal/domain"
)

type analysisPayload struct {
	ReportType string             `json:"reportType"`
	Summary    string             `json:"summary"`
	Dimensions []dimensionPayload `json:"dimensions"`
	Disclaimer string             `json:"disclaimer"`
}

type dimensionPayload struct {
	Title      string   `json:"title"`
	Conclusion string   `json:"conclusion"`
	Highlights []string `json:"highlights"`
	Content    string   `json:"content"`
	Severity   string   `json:"severity"`
	VisualHint string   `json:"visualHint"`
}

// parseAnalysis validates the model's structured output and stamps it
// into a MedicalAnalysis. The upstream contract promises summary,
// disclaimer and a non-empty dimensions list; output missing any of
// them is a failure, and a short dimensions list never panics anything
// downstream. Enum fields coming back outside their member sets are
// clamped, not rejected.
func parseAnalysis(raw []byte, declared domain.ReportType) (*domain.MedicalAnalysis, error) {
	var payload analysisPayload
	if err := json.Unmarshal(stripFences(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode structured output: %w", err)
	}

	if strings.TrimSpace(payload.Summary) == "" ||
		strings.TrimSpace(payload.Disclaimer) == "" ||
		len(payload.Dimensions) == 0 {
		return nil, domain.ErrEmptyAnalysis
	}

	dims := make([]domain.AnalysisDimension, len(payload.Dimensions))
	for i, d := range payload.Dimensions {
		dims[i] = domain.AnalysisDimension{
			Title:      d.Title,
			Conclusion: d.Conclusion,
			Highlights: d.Highlights,
			Content:    d.Content,
			Severity:   domain.ParseSeverity(d.Severity),
			VisualHint: d.VisualHint,
		}
	}

	reportType := domain.ParseReportType(payload.ReportType)
	if reportType == domain.ReportUnknown && declared != "" {
		reportType = declared
	}

	return &domain.MedicalAnalysis{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UnixMilli(),
		ReportType: reportType,
		Dimensions: dims,
		Summary:    payload.Summary,
		Disclaimer: payload.Disclaimer,
	}, nil
}

// stripFences removes a markdown code fence some models wrap JSON in
// even when asked not to.
func stripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return raw
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}
